/*
Package storage provides the object-storage service behind KYC document and
profile-image uploads. Clients upload and download directly against
presigned URLs; this service never proxies file bytes.
*/
package storage

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"coachlink/internal/pkg/errs"
)

const (
	// MaxDocumentSizeMB is the maximum allowed upload size in megabytes.
	MaxDocumentSizeMB = 10

	// MaxDocumentSize is the maximum allowed upload size in bytes.
	MaxDocumentSize = MaxDocumentSizeMB * 1024 * 1024

	// PresignedURLDuration is how long a generated upload/download URL stays valid.
	PresignedURLDuration = 5 * time.Minute
)

// AllowedMIMETypes is the permitted set for KYC documents and profile images.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// ExtToMIME maps file extensions to their expected MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// PresignUpload generates a pre-signed URL for uploading a file.
	PresignUpload(
		ctx context.Context,
		key string,
		mimeType string,
		fileSize int64,
		duration time.Duration,
	) (string, error)

	// PresignDownload generates a pre-signed URL for downloading a file.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the file specified by the given key.
	Delete(ctx context.Context, key string) error
}

// NewStorageService initializes a concrete StorageService.
// Currently only S3-compatible backends are supported.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}

// ValidateFileSize checks that the declared upload size is positive and
// within the limit.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxDocumentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateFileType checks that the file name extension and the declared
// MIME type agree and both are allowed.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || len(ext) < 2 {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	if expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}
