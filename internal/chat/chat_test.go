package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"

	"propflow/api/internal/models"
)

func TestSystemPrompt_WithoutListing(t *testing.T) {
	p := SystemPrompt("PropFlow", nil)
	assert.True(t, strings.HasPrefix(p, "You are PropFlow's AI Property Advisor"))
	assert.NotContains(t, p, "Current listing context")
}

func TestSystemPrompt_WithListing(t *testing.T) {
	p := SystemPrompt("PropFlow", &models.Listing{
		Title:       "Sandton Grade A office",
		Type:        models.PropertyOffice,
		ListingType: models.ListingToLet,
		Price:       145000,
		PriceUnit:   "per_month",
		SizeSqm:     820.5,
		Location:    "Rivonia Road",
		City:        "Sandton",
		Features:    map[string]any{"parking": 40},
	})

	assert.Contains(t, p, "Title: Sandton Grade A office\n")
	assert.Contains(t, p, "Type: office | to_let\n")
	assert.Contains(t, p, "Price: R145,000 per month\n")
	assert.Contains(t, p, "Size: 820.5m²\n")
	assert.Contains(t, p, "Location: Rivonia Road, Sandton\n")
	assert.Contains(t, p, "Description: Not provided\n")
	assert.Contains(t, p, `Features: {"parking":40}`)
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0", groupThousands(0))
	assert.Equal(t, "999", groupThousands(999))
	assert.Equal(t, "1,000", groupThousands(1000))
	assert.Equal(t, "12,345,678", groupThousands(12345678))
	assert.Equal(t, "-45,000", groupThousands(-45000))
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", 600)
	msgs := []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: long},
		{Role: models.ChatRoleAssistant, Content: "ok"},
	}
	got := Preview(msgs)
	assert.Len(t, []rune(got), LogMessagePreview)
	assert.Equal(t, "", Preview(nil))
}

func TestClassify(t *testing.T) {
	apiErr := func(status int) error {
		return &openai.Error{
			StatusCode: status,
			Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil),
			Response:   &http.Response{StatusCode: status},
		}
	}

	assert.ErrorIs(t, classify(apiErr(http.StatusTooManyRequests)), ErrBusy)
	assert.ErrorIs(t, classify(fmt.Errorf("post: %w", apiErr(http.StatusTooManyRequests))), ErrBusy)
	assert.NotErrorIs(t, classify(apiErr(http.StatusInternalServerError)), ErrBusy)
	assert.NotErrorIs(t, classify(errors.New("dial tcp: timeout")), ErrBusy)
}

func TestOpenAICompleter_Disabled(t *testing.T) {
	c := NewOpenAICompleter("", "gpt-4o-mini", 1024)
	_, err := c.Complete(context.Background(), Request{System: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
