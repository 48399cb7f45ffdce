// internal/handlers/server.go
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/events"
	"github.com/jason-s-yu/cardbbang/internal/game"
	"github.com/jason-s-yu/cardbbang/internal/lobby"
	"github.com/jason-s-yu/cardbbang/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Server bundles the services the HTTP handlers call into.
type Server struct {
	Rooms   *lobby.Manager
	Games   *game.Coordinator
	Referee *game.Referee // optional; nil disables the automatic finish
	Bus     events.Bus
	Logger  *logrus.Logger
}

// Routes registers every endpoint on a fresh mux and wraps it with request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", PingHandler)

	mux.HandleFunc("POST /rooms", CreateRoomHandler(s))
	mux.HandleFunc("GET /codes/{code}", GetRoomByCodeHandler(s))
	mux.HandleFunc("POST /rooms/join", JoinRoomHandler(s))
	mux.HandleFunc("GET /rooms/{id}/players", ListPlayersHandler(s))
	mux.HandleFunc("POST /players/{id}/ready", UpdateReadyHandler(s))
	mux.HandleFunc("DELETE /players/{id}", LeaveRoomHandler(s))

	mux.HandleFunc("POST /rooms/{id}/start", StartGameHandler(s))
	mux.HandleFunc("GET /rooms/{id}/round", CurrentRoundHandler(s))
	mux.HandleFunc("GET /rooms/{id}/progress", ProgressHandler(s))
	mux.HandleFunc("POST /rounds/{id}/draw", DrawCardHandler(s))
	mux.HandleFunc("GET /rounds/{id}/draws", ListDrawsHandler(s))
	mux.HandleFunc("POST /rooms/{id}/finish", FinishGameHandler(s))
	mux.HandleFunc("POST /rooms/{id}/reset", ResetGameHandler(s))

	mux.HandleFunc("GET /subscribe", SubscribeHandler(s))

	return middleware.LogMiddleware(s.Logger)(mux)
}

// observe asks the referee to look at the room after a change that may complete a round.
func (s *Server) observe(ctx context.Context, roomID uuid.UUID) {
	if s.Referee == nil {
		return
	}
	if _, err := s.Referee.Observe(ctx, roomID); err != nil {
		s.Logger.WithField("room_id", roomID).Warnf("referee: %v", err)
	}
}

// PingHandler answers liveness checks.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
