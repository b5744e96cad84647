package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propflow/api/internal/auth"
	"propflow/api/internal/models"
	"propflow/api/internal/store/pgstore"
	"propflow/api/internal/utils"
)

const (
	testAppBinary     = "./propflow_test_app"
	testAppPort       = "8089"
	testServicePort   = "8091"
	testAppURL        = "http://localhost:" + testAppPort
	testServiceApiURL = "http://localhost:" + testServicePort
	startupTimeout    = 15 * time.Second
	healthEndpoint    = testAppURL + "/health"
	testJwtSecret     = "integration-test-secret"

	adminEmail    = "admin@propflow.test"
	adminPassword = "admin-password"
	agentEmail    = "agent@propflow.test"
	agentPassword = "agent-password"
)

// TestMain builds the binary, seeds an admin and runs the app in "all" mode
// against DATABASE_URL and Redis. Set INTEGRATION_TESTS=1 to enable.
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		log.Println("INTEGRATION_TESTS not set, skipping integration tests")
		return
	}
	defer func() { _ = os.Remove(testAppBinary) }()

	buildOutput, err := exec.Command("go", "build", "-o", testAppBinary, ".").CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, buildOutput)
		os.Exit(1)
	}

	if err := seedAdmin(context.Background()); err != nil {
		log.Printf("Failed to seed admin: %v", err)
		os.Exit(1)
	}

	appCmd := exec.Command(testAppBinary, "-m", "all")
	appCmd.Env = append(os.Environ(),
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServicePort,
		"JWT_SECRET="+testJwtSecret,
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"DB_AUTO_MIGRATE=true",
		"RATE_LIMIT_MAX=1000",
		"SMTP_FROM_ADDRESS=test@example.com",
	)
	appCmd.Stderr = os.Stderr
	appCmd.Stdout = os.Stdout
	if err := appCmd.Start(); err != nil {
		log.Printf("Failed to start application: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := appCmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = appCmd.Process.Kill()
		}
		_, _ = appCmd.Process.Wait()
	}()

	ready := false
	for start := time.Now(); time.Since(start) < startupTimeout; time.Sleep(200 * time.Millisecond) {
		resp, err := http.Get(healthEndpoint)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				ready = true
				break
			}
		}
	}
	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		return
	}

	exitCode := m.Run()
	log.Printf("Integration tests finished with exit code %d", exitCode)
}

// seedAdmin creates the schema and a known admin account with credentials.
func seedAdmin(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pgstore.Migrate(ctx, pool); err != nil {
		return err
	}
	for _, stmt := range []string{
		"DELETE FROM chat_logs", "DELETE FROM enquiries", "DELETE FROM listings", "DELETE FROM credentials", "DELETE FROM users",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}

	stores := pgstore.New(pool)
	now := time.Now().UTC()
	admin := &models.User{
		ID: utils.NewID(), Email: adminEmail, FullName: "Integration Admin",
		Role: models.RoleAdmin, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	if err := stores.Users.Insert(ctx, admin); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()
	provider := auth.NewLocalProvider(auth.LocalConfig{JwtSecret: testJwtSecret, AccessTTL: time.Hour}, stores.Credentials, auth.NewRedisKV(rdb))
	return provider.CreateCredentials(ctx, admin.ID, admin.Email, adminPassword)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func call(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := call(t, http.MethodPost, testAppURL+"/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status, body)
	return body["session"].(map[string]any)["access_token"].(string)
}

// testEmail reads a captured message back through the service API.
func testEmail(t *testing.T, kind, to string) string {
	t.Helper()
	status, body := call(t, http.MethodPost, testServiceApiURL+"/api", "", map[string]any{
		"method":    "getTestEmail",
		"arguments": []string{kind, to},
	})
	require.Equal(t, http.StatusOK, status, body)
	return body["data"].(map[string]any)["body"].(string)
}

func TestIntegration_Health(t *testing.T) {
	status, body := call(t, http.MethodGet, healthEndpoint, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestIntegration_ListingLifecycle(t *testing.T) {
	adminToken := login(t, adminEmail, adminPassword)

	status, body := call(t, http.MethodPost, testAppURL+"/api/auth/register", adminToken, map[string]string{
		"email": agentEmail, "password": agentPassword, "full_name": "Integration Agent", "role": "agent",
	})
	require.Equal(t, http.StatusCreated, status, body)
	agentID := body["user"].(map[string]any)["id"].(string)
	assert.Contains(t, testEmail(t, "welcome", agentEmail), "Integration Agent")

	agentToken := login(t, agentEmail, agentPassword)

	status, body = call(t, http.MethodPost, testAppURL+"/api/listings", agentToken, map[string]any{
		"title": "Integration Office Suite", "type": "office", "listing_type": "to_let",
		"price": 25000, "size_sqm": 180, "location": "12 Rivonia Road", "city": "Sandton",
		"province": "Gauteng", "status": "active",
	})
	require.Equal(t, http.StatusCreated, status, body)
	listing := body["listing"].(map[string]any)
	listingID := listing["id"].(string)
	assert.Equal(t, agentID, listing["agent_id"])

	status, body = call(t, http.MethodGet, testAppURL+"/api/listings?city=Sandton", "", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEmpty(t, body["listings"])

	status, body = call(t, http.MethodPost, testAppURL+"/api/enquiries", "", map[string]any{
		"listing_id": listingID, "name": "Thandi", "email": "thandi@example.com",
		"message": "Is the suite still available next month?",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, agentID, body["enquiry"].(map[string]any)["agent_id"])
	assert.Contains(t, testEmail(t, "enquiry_notice", agentEmail), "Integration Office Suite")

	status, body = call(t, http.MethodGet, testAppURL+"/api/enquiries", agentToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["enquiries"], 1)

	status, _ = call(t, http.MethodDelete, testAppURL+"/api/listings/"+listingID, agentToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

var resetTokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

func TestIntegration_PasswordReset(t *testing.T) {
	const email = "reset@propflow.test"
	adminToken := login(t, adminEmail, adminPassword)
	status, body := call(t, http.MethodPost, testAppURL+"/api/auth/register", adminToken, map[string]string{
		"email": email, "password": "first-password", "full_name": "Reset Agent", "role": "agent",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, _ = call(t, http.MethodPost, testAppURL+"/api/auth/forgot-password", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, status)

	match := resetTokenPattern.FindStringSubmatch(testEmail(t, "password_reset", email))
	require.Len(t, match, 2)

	status, body = call(t, http.MethodPost, testAppURL+"/api/auth/reset-password", "", map[string]string{
		"token": match[1], "password": "second-password",
	})
	require.Equal(t, http.StatusOK, status, body)

	login(t, email, "second-password")
	status, _ = call(t, http.MethodPost, testAppURL+"/api/auth/login", "", map[string]string{"email": email, "password": "first-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
}
