package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux.
// initMiddleware wraps handlers that require full server initialization;
// authMiddleware wraps handlers that require a session. Auth runs after init.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware, authMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresAuth() {
			handler = authMiddleware(handler)
		}
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// Commands are organized by their URL path structure.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running Lumina server via HTTP.

These commands require a running server (lumina serve).
Use --server to specify a custom server URL and --token (or
LUMINA_TOKEN) for the session token printed by "lumina api auth login".

Examples:
  lumina api health                              # Check server health
  lumina api auth login --guest                  # Open a guest session
  lumina api books upload ./novel.pdf            # Import a book
  lumina api books generate <book> <chapter>     # Narrate a chapter`,
	}

	groups := make(map[string]*cobra.Command)
	for _, ep := range r.endpoints {
		cmd := ep.Command(getServerURL)
		if cmd == nil {
			continue
		}
		group := ""
		if g, ok := ep.(Grouped); ok {
			group = g.Group()
		}
		if group == "" {
			apiCmd.AddCommand(cmd)
			continue
		}
		parent, ok := groups[group]
		if !ok {
			parent = &cobra.Command{Use: group, Short: group + " commands"}
			groups[group] = parent
			apiCmd.AddCommand(parent)
		}
		parent.AddCommand(cmd)
	}

	return apiCmd
}

// Grouped is implemented by endpoints whose command belongs under a
// subcommand such as "books" or "auth".
type Grouped interface {
	Group() string
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
