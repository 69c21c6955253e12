package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/api"
	"github.com/jackzampolin/lumina/internal/events"
	"github.com/jackzampolin/lumina/internal/svcctx"
)

const (
	// wsReadTimeout closes connections that stop answering pings.
	wsReadTimeout = 120 * time.Second

	// wsPingInterval must be shorter than wsReadTimeout.
	wsPingInterval = 30 * time.Second

	wsWriteTimeout = 10 * time.Second
)

// WSMessage is a client to server websocket message.
type WSMessage struct {
	Type string `json:"type"` // "ping"
}

// WSResponse is a server to client websocket message.
type WSResponse struct {
	Type    string `json:"type"` // Event type, "pong" or "error"
	Payload any    `json:"payload,omitempty"`
}

// EventsEndpoint handles GET /api/events as a websocket stream of the
// current user's progress events.
type EventsEndpoint struct {
	// AllowedOrigins limits browser origins; empty or "*" allows any.
	AllowedOrigins []string
}

func (e *EventsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/events", e.handler
}

func (e *EventsEndpoint) RequiresInit() bool { return true }
func (e *EventsEndpoint) RequiresAuth() bool { return true }

func (e *EventsEndpoint) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     e.checkOrigin,
	}
}

func (e *EventsEndpoint) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(e.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range e.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// handler godoc
//
//	@Summary		Progress events
//	@Description	Websocket stream of chapter progress and status events for the current user. Browsers pass the session token as ?token=.
//	@Tags			events
//	@Security		BearerAuth
//	@Param			token	query	string	false	"Session token"
//	@Success		101
//	@Failure		401	{object}	ErrorResponse
//	@Router			/api/events [get]
func (e *EventsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess := sessionOrReject(w, r)
	if sess == nil {
		return
	}
	broker := svcctx.EventsFrom(r.Context())
	if broker == nil {
		writeError(w, http.StatusServiceUnavailable, "event broker not initialized")
		return
	}
	logger := svcctx.LoggerFrom(r.Context())

	sub, unsubscribe, err := broker.Subscribe(sess.User.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer unsubscribe()

	conn, err := e.upgrader().Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	// Reader: only the writer loop below writes to conn
	replies := make(chan WSResponse, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debug("websocket read error", "subscriber_id", sub.ID, "error", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

			var reply WSResponse
			switch msg.Type {
			case "ping":
				reply = WSResponse{Type: "pong"}
			default:
				reply = WSResponse{Type: "error", Payload: "unknown message type: " + msg.Type}
			}
			select {
			case replies <- reply:
			default:
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		var out WSResponse
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			out = WSResponse{Type: string(ev.Type), Payload: ev}
		case out = <-replies:
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			logger.Debug("websocket write failed", "subscriber_id", sub.ID, "error", err)
			return
		}
	}
}

// EventFrame is a decoded server message as seen by the CLI.
type EventFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (e *EventsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var showHeartbeats bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream progress events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := url.Parse(getServerURL() + "/api/events")
			if err != nil {
				return err
			}
			switch u.Scheme {
			case "https":
				u.Scheme = "wss"
			default:
				u.Scheme = "ws"
			}

			header := http.Header{}
			if token := api.Token(); token != "" {
				header.Set("Authorization", "Bearer "+token)
			}
			conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
			if err != nil {
				if resp != nil {
					return fmt.Errorf("connect events: %s", resp.Status)
				}
				return fmt.Errorf("connect events: %w", err)
			}
			defer conn.Close()

			go func() {
				<-ctx.Done()
				conn.Close()
			}()

			for {
				var frame EventFrame
				if err := conn.ReadJSON(&frame); err != nil {
					if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						return nil
					}
					return err
				}
				if frame.Type == string(events.TypeHeartbeat) && !showHeartbeats {
					continue
				}
				var ev events.Event
				if err := json.Unmarshal(frame.Payload, &ev); err != nil {
					return fmt.Errorf("decode event: %w", err)
				}
				if err := api.Output(ev); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().BoolVar(&showHeartbeats, "heartbeats", false, "Print heartbeat events")
	return cmd
}
