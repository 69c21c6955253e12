package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/chapters"
	"github.com/jackzampolin/lumina/internal/providers"
	"github.com/jackzampolin/lumina/internal/svcctx"
)

// CatalogResponse lists the selectable voices and languages.
type CatalogResponse struct {
	TTSProvider     string              `json:"tts_provider"`
	Voices          []providers.Voice   `json:"voices"`
	DefaultVoice    string              `json:"default_voice"`
	Languages       []chapters.Language `json:"languages"`
	DefaultLanguage string              `json:"default_language"`
}

// CatalogEndpoint handles GET /api/catalog.
type CatalogEndpoint struct{}

func (e *CatalogEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/catalog", e.handler
}

func (e *CatalogEndpoint) RequiresInit() bool { return true }
func (e *CatalogEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		Voices and languages
//	@Description	Voices of the active speech provider and the supported target languages
//	@Tags			catalog
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	CatalogResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/api/catalog [get]
func (e *CatalogEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := CatalogResponse{
		Voices:          []providers.Voice{},
		Languages:       chapters.Languages,
		DefaultLanguage: chapters.DefaultLanguage,
	}

	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		d := cm.Get().Defaults
		resp.TTSProvider = d.TTSProvider
		resp.DefaultVoice = d.Voice
		if d.TargetLanguage != "" {
			resp.DefaultLanguage = d.TargetLanguage
		}
	}

	if reg := svcctx.RegistryFrom(ctx); reg != nil && resp.TTSProvider != "" {
		if tts, err := reg.GetTTS(resp.TTSProvider); err == nil {
			if lister, ok := tts.(providers.VoicesLister); ok {
				voices, err := lister.ListVoices(ctx)
				if err != nil {
					svcctx.LoggerFrom(ctx).Warn("failed to list voices", "provider", resp.TTSProvider, "error", err)
				} else if voices != nil {
					resp.Voices = voices
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *CatalogEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List voices and target languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CatalogResponse
			if err := client.Get(cmd.Context(), "/api/catalog", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
