package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"coachlink/internal/app/storage"
	"coachlink/internal/pkg/auth/jwt"
	"coachlink/internal/pkg/errs"
	"coachlink/internal/pkg/req"
	"coachlink/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating upload URL.
type PresignUploadInput struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// HandlePresignUploadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for file upload, scoped to the caller's account prefix.
func HandlePresignUploadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := storage.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		if err := storage.ValidateFileType(input.FileName, input.MimeType); err != nil {
			resp.RespondError(w, r, err)
			return
		}

		fileExt := strings.ToLower(filepath.Ext(input.FileName))
		fileID := uuid.New().String()
		fileKey := fmt.Sprintf("%s/%s%s", payload.ID, fileID, fileExt)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)

		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandlePresignDownloadURL creates an HTTP HandlerFunc to generate a time-limited,
// pre-signed URL for file download, scoped to the caller's account prefix.
func HandlePresignDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		fileKey := r.URL.Query().Get("k")
		if fileKey == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		expectedKeyPrefix := fmt.Sprintf("%s/", payload.ID)
		if !strings.HasPrefix(fileKey, expectedKeyPrefix) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		url, err := deps.StorageService.PresignDownload(
			r.Context(),
			fileKey,
			storage.PresignedURLDuration,
		)

		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}
