// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/lumina/internal/auth"
	"github.com/jackzampolin/lumina/internal/config"
	"github.com/jackzampolin/lumina/internal/events"
	"github.com/jackzampolin/lumina/internal/home"
	"github.com/jackzampolin/lumina/internal/llmcall"
	"github.com/jackzampolin/lumina/internal/pipeline"
	"github.com/jackzampolin/lumina/internal/providers"
	"github.com/jackzampolin/lumina/internal/store"
	"github.com/jackzampolin/lumina/internal/validation"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store        store.BookStore
	Registry     *providers.Registry
	Orchestrator *pipeline.Orchestrator
	Auth         *auth.Service
	Events       *events.Broker
	Home         *home.Dir
	Config       *config.Manager
	Validator    *validation.Validator
	LLMCalls     *llmcall.Recorder
	Logger       *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the book store from context.
func StoreFrom(ctx context.Context) store.BookStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// OrchestratorFrom extracts the chapter pipeline from context.
func OrchestratorFrom(ctx context.Context) *pipeline.Orchestrator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Orchestrator
	}
	return nil
}

// AuthFrom extracts the session service from context.
func AuthFrom(ctx context.Context) *auth.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Auth
	}
	return nil
}

// EventsFrom extracts the progress event broker from context.
func EventsFrom(ctx context.Context) *events.Broker {
	if s := ServicesFrom(ctx); s != nil {
		return s.Events
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// ValidatorFrom extracts the request validator from context.
func ValidatorFrom(ctx context.Context) *validation.Validator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Validator
	}
	return nil
}

// LLMCallsFrom extracts the LLM call recorder from context.
func LLMCallsFrom(ctx context.Context) *llmcall.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.LLMCalls
	}
	return nil
}

// LoggerFrom extracts the logger from context.
// Falls back to slog.Default so handlers can log unconditionally.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
