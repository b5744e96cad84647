package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"propflow/api/internal/auth"
	"propflow/api/internal/chat"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/storage"
	"propflow/api/internal/tasks"
)

// MockListingStore is a mock type for store.ListingStore.
type MockListingStore struct {
	mock.Mock
}

func (m *MockListingStore) Find(ctx context.Context, spec query.Spec) ([]models.Listing, int64, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Listing), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingStore) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingStore) Insert(ctx context.Context, l *models.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockListingStore) Update(ctx context.Context, id string, fields map[string]any) (*models.Listing, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockListingStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	args := m.Called(ctx, preds)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockListingStore) IncrementViewCounts(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockListingStore) IncrementEnquiryCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockListingStore) GroupCount(ctx context.Context, preds []query.Predicate, field string) (map[string]int64, error) {
	args := m.Called(ctx, preds, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockEnquiryStore is a mock type for store.EnquiryStore.
type MockEnquiryStore struct {
	mock.Mock
}

func (m *MockEnquiryStore) Find(ctx context.Context, spec query.Spec) ([]models.Enquiry, int64, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Enquiry), args.Get(1).(int64), args.Error(2)
}

func (m *MockEnquiryStore) Insert(ctx context.Context, e *models.Enquiry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEnquiryStore) UpdateStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Enquiry), args.Error(1)
}

func (m *MockEnquiryStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	args := m.Called(ctx, preds)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEnquiryStore) CreatedSince(ctx context.Context, preds []query.Predicate, since time.Time) ([]time.Time, error) {
	args := m.Called(ctx, preds, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockEnquiryStore) GroupCount(ctx context.Context, preds []query.Predicate, field string) (map[string]int64, error) {
	args := m.Called(ctx, preds, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockUserStore is a mock type for store.UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Find(ctx context.Context, spec query.Spec) ([]models.User, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) Insert(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	args := m.Called(ctx, preds)
	return args.Get(0).(int64), args.Error(1)
}

// MockChatLogStore is a mock type for store.ChatLogStore.
type MockChatLogStore struct {
	mock.Mock
}

func (m *MockChatLogStore) Insert(ctx context.Context, l *models.ChatLog) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

// MockOwnerLookup is a mock type for store.OwnerLookup.
type MockOwnerLookup struct {
	mock.Mock
}

func (m *MockOwnerLookup) OwnerOf(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// MockProvider is a mock type for auth.Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) IssueSession(ctx context.Context, userID string, role models.Role) (*auth.Session, error) {
	args := m.Called(ctx, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockProvider) Verify(ctx context.Context, accessToken string) (*auth.Identity, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Identity), args.Error(1)
}

func (m *MockProvider) ConsumeRefresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, id *auth.Identity, refreshToken string) error {
	args := m.Called(ctx, id, refreshToken)
	return args.Error(0)
}

func (m *MockProvider) CreateCredentials(ctx context.Context, userID, email, password string) error {
	args := m.Called(ctx, userID, email, password)
	return args.Error(0)
}

func (m *MockProvider) CreateResetToken(ctx context.Context, email string) (*auth.ResetGrant, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.ResetGrant), args.Error(1)
}

func (m *MockProvider) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

// MockNotifier is a mock type for Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyEnquiry(ctx context.Context, p tasks.EnquiryNoticePayload) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, p tasks.PasswordResetPayload) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockNotifier) SendWelcome(ctx context.Context, to, fullName string) error {
	args := m.Called(ctx, to, fullName)
	return args.Error(0)
}

// MockCompleter is a mock type for chat.Completer.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req chat.Request) (*chat.Reply, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Reply), args.Error(1)
}

// MockS3Storage is a mock type for storage.IS3Storage.
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*storage.PresignedUpload, error) {
	args := m.Called(ctx, key, contentType, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PresignedUpload), args.Error(1)
}

// recordingDispatcher runs work inline and remembers what was dispatched.
type recordingDispatcher struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (d *recordingDispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	err := fn(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	d.errs = append(d.errs, err)
}

func (d *recordingDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...)
}
