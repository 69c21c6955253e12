package endpoints

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/auth"
	"github.com/jackzampolin/lumina/internal/svcctx"
	"github.com/jackzampolin/lumina/internal/types"
)

// LoginRequest opens a session from an OpenID identity token or as guest.
type LoginRequest struct {
	IDToken string `json:"id_token,omitempty" validate:"required_without=Guest"`
	Guest   bool   `json:"guest,omitempty"`
}

// LoginResponse carries the session token for later requests.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Guest     bool       `json:"guest"`
	User      types.User `json:"user"`
}

// LoginEndpoint handles POST /api/auth/login.
type LoginEndpoint struct{}

func (e *LoginEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/login", e.handler
}

func (e *LoginEndpoint) RequiresInit() bool { return true }
func (e *LoginEndpoint) RequiresAuth() bool { return false }
func (e *LoginEndpoint) Group() string      { return "auth" }

// handler godoc
//
//	@Summary		Log in
//	@Description	Open a session from an OpenID identity token, or as the guest user
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	LoginResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Router			/api/auth/login [post]
func (e *LoginEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	svc := svcctx.AuthFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "auth not initialized")
		return
	}

	var (
		sess  *auth.Session
		token string
		err   error
	)
	if req.Guest {
		sess, token, err = svc.LoginGuest()
	} else {
		sess, token, err = svc.Login(r.Context(), req.IDToken)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		Guest:     sess.Guest,
		User:      sess.User,
	})
}

func (e *LoginEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		guest   bool
		idToken string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Open a session and print its token",
		Long: `Open a session and print its token.

Export the token to authenticate later commands:
  export LUMINA_TOKEN=$(lumina api auth login --guest -o json | jq -r .token)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !guest && idToken == "" {
				return fmt.Errorf("either --guest or --id-token is required")
			}
			client := api.NewClient(getServerURL())
			var resp LoginResponse
			req := LoginRequest{IDToken: idToken, Guest: guest}
			if err := client.Post(cmd.Context(), "/api/auth/login", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&guest, "guest", false, "Log in as the guest user")
	cmd.Flags().StringVar(&idToken, "id-token", "", "OpenID identity token")
	return cmd
}

// LogoutEndpoint handles POST /api/auth/logout.
type LogoutEndpoint struct{}

func (e *LogoutEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/auth/logout", e.handler
}

func (e *LogoutEndpoint) RequiresInit() bool { return true }
func (e *LogoutEndpoint) RequiresAuth() bool { return true }
func (e *LogoutEndpoint) Group() string      { return "auth" }

// handler godoc
//
//	@Summary		Log out
//	@Description	End the current session; its token stops working
//	@Tags			auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	ErrorResponse
//	@Router			/api/auth/logout [post]
func (e *LogoutEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	if svc := svcctx.AuthFrom(r.Context()); svc != nil {
		svc.Logout(sess.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *LogoutEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Post(cmd.Context(), "/api/auth/logout", nil, nil); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

// MeResponse describes the current session.
type MeResponse struct {
	User      types.User `json:"user"`
	Guest     bool       `json:"guest"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// MeEndpoint handles GET /api/auth/me.
type MeEndpoint struct{}

func (e *MeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/auth/me", e.handler
}

func (e *MeEndpoint) RequiresInit() bool { return true }
func (e *MeEndpoint) RequiresAuth() bool { return true }
func (e *MeEndpoint) Group() string      { return "auth" }

// handler godoc
//
//	@Summary		Current user
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	MeResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/api/auth/me [get]
func (e *MeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{User: sess.User, Guest: sess.Guest, ExpiresAt: sess.ExpiresAt})
}

func (e *MeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp MeResponse
			if err := client.Get(cmd.Context(), "/api/auth/me", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
