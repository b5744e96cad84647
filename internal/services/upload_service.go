package services

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"propflow/api/internal/apperr"
	"propflow/api/internal/authz"
	"propflow/api/internal/storage"
	"propflow/api/internal/utils"
)

// AllowedUploadTypes are the content types a presigned upload may carry.
var AllowedUploadTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

const DefaultUploadFolder = "listings"

var (
	unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	validFolder    = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
)

// IUploadService hands out presigned object storage uploads.
type IUploadService interface {
	Presign(ctx context.Context, caller *authz.Caller, in UploadInput) (*storage.PresignedUpload, error)
}

type UploadInput struct {
	Filename    string
	ContentType string
	Folder      string
}

type uploadService struct {
	storage storage.IS3Storage
	scoper  *authz.Scoper
	ttl     time.Duration
}

// NewUploadService creates the service. A nil storage makes every presign
// fail with an upstream error.
func NewUploadService(s3 storage.IS3Storage, scoper *authz.Scoper, ttl time.Duration) IUploadService {
	return &uploadService{storage: s3, scoper: scoper, ttl: ttl}
}

func (s *uploadService) Presign(ctx context.Context, caller *authz.Caller, in UploadInput) (*storage.PresignedUpload, error) {
	if _, err := s.scoper.Scope(caller, authz.Upload); err != nil {
		return nil, err
	}
	key, err := UploadKey(in)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, apperr.UpstreamErr("Failed to generate upload URL", fmt.Errorf("object storage is not configured"))
	}
	up, err := s.storage.PresignPut(ctx, key, in.ContentType, s.ttl)
	if err != nil {
		return nil, apperr.UpstreamErr("Failed to generate upload URL", err)
	}
	return up, nil
}

// UploadKey validates the request and builds folder/uuid-filename with the
// filename reduced to a safe character set.
func UploadKey(in UploadInput) (string, error) {
	if strings.TrimSpace(in.Filename) == "" || in.ContentType == "" {
		return "", apperr.Validationf("filename and contentType required")
	}
	if !slices.Contains(AllowedUploadTypes, in.ContentType) {
		return "", apperr.Validationf("File type not allowed")
	}
	folder := in.Folder
	if folder == "" {
		folder = DefaultUploadFolder
	}
	if !validFolder.MatchString(folder) {
		return "", apperr.Validationf("Invalid folder")
	}
	return fmt.Sprintf("%s/%s-%s", folder, utils.NewID(), unsafeFilename.ReplaceAllString(in.Filename, "_")), nil
}
