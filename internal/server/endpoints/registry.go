package endpoints

import (
	"github.com/jackzampolin/lumina/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// AllowedOrigins restricts websocket origins for /api/events.
	AllowedOrigins []string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Auth endpoints
		&LoginEndpoint{},
		&LogoutEndpoint{},
		&MeEndpoint{},

		// Catalog
		&CatalogEndpoint{},

		// Book endpoints
		&UploadBookEndpoint{},
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&DeleteBookEndpoint{},

		// Chapter endpoints
		&GenerateChapterEndpoint{},
		&PartAudioEndpoint{},
		&UpdatePositionEndpoint{},

		// Progress events
		&EventsEndpoint{AllowedOrigins: cfg.AllowedOrigins},

		// LLM call history
		&ListLLMCallsEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}
