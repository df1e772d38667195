package handlers

import (
	"errors"
	"io"
	"net/http"

	"colorold/internal/domain"
	"colorold/internal/i18n"
	"colorold/internal/imaging"
	"colorold/internal/middleware"
	"colorold/internal/storage"
)

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload handles POST /v1/uploads: a multipart form with a single "file"
// part. The stored object's URL is what a client submits for processing.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := middleware.LocaleFromContext(ctx)
	maxBytes := a.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = imaging.DefaultMaxBytes
	}

	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, domain.CodeFileTooLarge, i18n.T(locale, i18n.KeyFileTooLarge, maxBytes>>20))
			return
		}
		a.error(w, http.StatusBadRequest, domain.CodeInvalidPayload, i18n.T(locale, i18n.KeyInvalidPayload))
		return
	}
	defer file.Close()

	declared := header.Header.Get("Content-Type")
	if err := imaging.Validate(imaging.File{Name: header.Filename, MIME: declared, Size: header.Size}, maxBytes); err != nil {
		code := domain.ValidationCode(err)
		if code == domain.CodeFileTooLarge {
			a.error(w, http.StatusRequestEntityTooLarge, code, i18n.T(locale, code, maxBytes>>20))
			return
		}
		a.error(w, http.StatusBadRequest, code, i18n.T(locale, code))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, domain.CodeInvalidPayload, i18n.T(locale, i18n.KeyInvalidPayload))
		return
	}

	store := a.Store
	if store == nil {
		store = storage.InlineStore{}
	}
	contentType := imaging.ContentType(header.Filename, declared)
	url, err := store.Put(ctx, storage.ObjectKey(a.now(), contentType), contentType, data)
	if err != nil {
		a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(ctx)).Str("file", header.Filename).Msg("store upload failed")
		a.error(w, http.StatusBadGateway, "upload_failed", i18n.T(locale, i18n.KeyUploadFailed))
		return
	}
	a.Logger.Info().Str("file", header.Filename).Int("bytes", len(data)).Str("content_type", contentType).Msg("upload stored")
	a.json(w, http.StatusCreated, uploadResponse{URL: url})
}
