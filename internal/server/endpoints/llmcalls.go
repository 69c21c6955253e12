package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/llmcall"
	"github.com/jackzampolin/lumina/internal/svcctx"
)

// defaultLLMCallLimit caps the list when no limit is given.
const defaultLLMCallLimit = 100

// LLMCallsResponse contains a list of LLM calls, newest first.
type LLMCallsResponse struct {
	Calls []*llmcall.Call `json:"calls"`
	Total int             `json:"total"`
}

// ListLLMCallsEndpoint handles GET /api/llmcalls.
type ListLLMCallsEndpoint struct{}

func (e *ListLLMCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/llmcalls", e.handler
}

func (e *ListLLMCallsEndpoint) RequiresInit() bool { return true }
func (e *ListLLMCallsEndpoint) RequiresAuth() bool { return true }

// handler godoc
//
//	@Summary		List LLM calls
//	@Description	Recent segmentation and translation calls kept in memory
//	@Tags			llmcalls
//	@Produce		json
//	@Security		BearerAuth
//	@Param			prompt_key	query		string	false	"Filter by prompt key"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			success		query		bool	false	"Filter by success status (true or false)"
//	@Param			limit		query		int		false	"Max results (default 100)"
//	@Success		200			{object}	LLMCallsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/api/llmcalls [get]
func (e *ListLLMCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultLLMCallLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var success *bool
	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "success must be true or false")
			return
		}
		success = &b
	}

	promptKey, provider := q.Get("prompt_key"), q.Get("provider")
	recent := svcctx.LLMCallsFrom(r.Context()).Recent()

	calls := make([]*llmcall.Call, 0, limit)
	for i := len(recent) - 1; i >= 0 && len(calls) < limit; i-- {
		c := recent[i]
		if promptKey != "" && c.PromptKey != promptKey {
			continue
		}
		if provider != "" && c.Provider != provider {
			continue
		}
		if success != nil && c.Success != *success {
			continue
		}
		calls = append(calls, c)
	}

	writeJSON(w, http.StatusOK, LLMCallsResponse{Calls: calls, Total: len(calls)})
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		promptKey string
		provider  string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "llmcalls",
		Short: "List recent LLM calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if promptKey != "" {
				params.Set("prompt_key", promptKey)
			}
			if provider != "" {
				params.Set("provider", provider)
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/llmcalls"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			client := api.NewClient(getServerURL())
			var resp LLMCallsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&promptKey, "prompt-key", "", "Filter by prompt key")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")
	return cmd
}
