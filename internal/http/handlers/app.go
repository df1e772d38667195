// Package handlers implements the HTTP surface the front end and the CLI
// talk to: job submission and status for each model, uploads and usage.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"colorold/internal/domain"
	"colorold/internal/quota"
	"colorold/internal/providers/replicate"
	"colorold/internal/storage"
)

// Predictor is the upstream inference client.
type Predictor interface {
	HasCredentials() bool
	CreatePrediction(ctx context.Context, model replicate.Model, imageURL string) (*domain.Job, error)
	GetPrediction(ctx context.Context, id string) (*domain.Job, error)
}

// UsageGuard meters job submissions per caller.
type UsageGuard interface {
	Key(id domain.Identity) (string, error)
	Period() quota.Period
	CanUse(ctx context.Context, key string) (bool, error)
	RecordUse(ctx context.Context, key string) error
	Remaining(ctx context.Context, key string) (quota.Usage, error)
}

type App struct {
	Predictor      Predictor
	Models         map[string]replicate.Model
	Quota          UsageGuard
	Store          storage.Store
	MaxUploadBytes int64
	Logger         zerolog.Logger
	Now            func() time.Time
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorResponse{Error: msg, Code: code})
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
