package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
	Speech   string `json:"speech,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }
func (e *HealthEndpoint) RequiresAuth() bool { return false }

// handler godoc
//
//	@Summary		Liveness check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }
func (e *ReadyEndpoint) RequiresAuth() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	OK once the book store is open and speech and LLM providers are registered
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "ok", Pipeline: "ok", Speech: "ok"}
	ctx := r.Context()

	if svcctx.StoreFrom(ctx) == nil {
		resp.Store = "not_initialized"
	}
	if svcctx.OrchestratorFrom(ctx) == nil {
		resp.Pipeline = "not_initialized"
	}
	reg := svcctx.RegistryFrom(ctx)
	if reg == nil || len(reg.ListTTS()) == 0 || len(reg.ListLLM()) == 0 {
		resp.Speech = "no_providers"
	}

	if resp.Store != "ok" || resp.Pipeline != "ok" || resp.Speech != "ok" {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server      string          `json:"server"`
	Providers   ProvidersStatus `json:"providers"`
	Subscribers int             `json:"event_subscribers"`
	ConfigFile  string          `json:"config_file,omitempty"`
}

// ProvidersStatus shows registered LLM and TTS providers.
type ProvidersStatus struct {
	LLM []string `json:"llm"`
	TTS []string `json:"tts"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }
func (e *StatusEndpoint) RequiresAuth() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Registered providers and connected event subscribers
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{Server: "running"}

	if reg := svcctx.RegistryFrom(ctx); reg != nil {
		resp.Providers.LLM = reg.ListLLM()
		resp.Providers.TTS = reg.ListTTS()
	}
	if b := svcctx.EventsFrom(ctx); b != nil {
		resp.Subscribers = b.Count()
	}
	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		resp.ConfigFile = cm.ConfigFile()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
