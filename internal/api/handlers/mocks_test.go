package handlers_test

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"propflow/api/internal/api/handlers"
	"propflow/api/internal/api/middleware"
	"propflow/api/internal/auth"
	"propflow/api/internal/authz"
	"propflow/api/internal/chat"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/services"
	"propflow/api/internal/storage"
)

const (
	agentID   = "2f1c8f0e-6a8b-4b63-9d39-2f4f5b2d7c11"
	adminID   = "9b7e2c44-1d1f-4e0b-8a51-6c0e7f3d9a22"
	listingID = "c3a1e6d2-5b4f-4c8e-9f70-1a2b3c4d5e6f"
	enquiryID = "7d6c5b4a-3f2e-4d1c-8b0a-9e8f7d6c5b4a"
)

var (
	agentCaller = &authz.Caller{ID: agentID, Role: models.RoleAgent, IsActive: true}
	adminCaller = &authz.Caller{ID: adminID, Role: models.RoleAdmin, IsActive: true}
)

// newEngine returns a test engine whose requests run as caller (nil for
// anonymous).
func newEngine(t *testing.T, caller *authz.Caller) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, handlers.RegisterValidators())
	r := gin.New()
	r.Use(middleware.ErrorDetailMiddleware(true))
	if caller != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextKeyPrincipal, &services.Principal{Caller: caller, Identity: &auth.Identity{UserID: caller.ID}})
			c.Next()
		})
	}
	return r
}

// --- Mock Services ---

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Search(ctx context.Context, caller *authz.Caller, f query.ListingSearch) ([]models.Listing, query.Pagination, error) {
	args := m.Called(ctx, caller, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(query.Pagination), args.Error(2)
	}
	return args.Get(0).([]models.Listing), args.Get(1).(query.Pagination), args.Error(2)
}

func (m *MockListingService) Get(ctx context.Context, caller *authz.Caller, id string) (*models.Listing, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Browse(ctx context.Context, caller *authz.Caller, f query.ListingBrowse) ([]models.Listing, query.Pagination, error) {
	args := m.Called(ctx, caller, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(query.Pagination), args.Error(2)
	}
	return args.Get(0).([]models.Listing), args.Get(1).(query.Pagination), args.Error(2)
}

func (m *MockListingService) Create(ctx context.Context, caller *authz.Caller, in services.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Update(ctx context.Context, caller *authz.Caller, id string, raw map[string]any) (*models.Listing, error) {
	args := m.Called(ctx, caller, id, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) UpdateStatus(ctx context.Context, caller *authz.Caller, id string, status models.ListingStatus) (*models.Listing, error) {
	args := m.Called(ctx, caller, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Assign(ctx context.Context, caller *authz.Caller, id, agentID string) (*models.Listing, error) {
	args := m.Called(ctx, caller, id, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Delete(ctx context.Context, caller *authz.Caller, id string) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

type MockEnquiryService struct {
	mock.Mock
}

func (m *MockEnquiryService) Submit(ctx context.Context, caller *authz.Caller, in services.EnquiryInput) (*models.Enquiry, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Enquiry), args.Error(1)
}

func (m *MockEnquiryService) Inbox(ctx context.Context, caller *authz.Caller, f query.EnquiryInbox) ([]models.Enquiry, query.Pagination, error) {
	args := m.Called(ctx, caller, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(query.Pagination), args.Error(2)
	}
	return args.Get(0).([]models.Enquiry), args.Get(1).(query.Pagination), args.Error(2)
}

func (m *MockEnquiryService) UpdateStatus(ctx context.Context, caller *authz.Caller, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	args := m.Called(ctx, caller, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Enquiry), args.Error(1)
}

type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) Roster(ctx context.Context, caller *authz.Caller) ([]models.RosterEntry, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RosterEntry), args.Error(1)
}

func (m *MockAgentService) SetActive(ctx context.Context, caller *authz.Caller, id string, active bool) (*models.User, error) {
	args := m.Called(ctx, caller, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAgentService) Register(ctx context.Context, caller *authz.Caller, in services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.User, *auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(*auth.Session), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, p *services.Principal, refreshToken string) error {
	args := m.Called(ctx, p, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockAuthService) Me(ctx context.Context, caller *authz.Caller) (*models.User, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

func (m *MockAuthService) ResolveCaller(ctx context.Context, accessToken string) (*services.Principal, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Principal), args.Error(1)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Dashboard(ctx context.Context, caller *authz.Caller) (*models.Dashboard, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dashboard), args.Error(1)
}

func (m *MockAnalyticsService) TopListings(ctx context.Context, caller *authz.Caller) ([]models.TopListing, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TopListing), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Reply(ctx context.Context, caller *authz.Caller, in services.ChatInput) (*chat.Reply, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Reply), args.Error(1)
}

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Presign(ctx context.Context, caller *authz.Caller, in services.UploadInput) (*storage.PresignedUpload, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PresignedUpload), args.Error(1)
}
