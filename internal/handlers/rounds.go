// internal/handlers/rounds.go
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/lobby"
	"github.com/jason-s-yu/cardbbang/internal/models"
)

// requireHost loads the room and checks that the acting player hosts it.
func requireHost(ctx context.Context, s *Server, r *http.Request, roomID uuid.UUID) (*models.Room, error) {
	actor, err := actingPlayer(r)
	if err != nil {
		return nil, err
	}
	room, err := s.Rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(actor) {
		return nil, errNotHost
	}
	return room, nil
}

// StartGameHandler lets the host deal a new round once everyone is ready.
func StartGameHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		roomID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		room, err := requireHost(ctx, s, r, roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		if room.Status == models.StatusWaiting {
			players, err := s.Rooms.ListPlayers(ctx, roomID)
			if err != nil {
				writeError(w, err)
				return
			}
			if !lobby.CanStart(players) {
				writeError(w, errNotReady)
				return
			}
		}
		round, err := s.Games.StartGame(ctx, roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, round)
	}
}

// CurrentRoundHandler returns the room's latest round.
func CurrentRoundHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		round, err := s.Games.CurrentRound(r.Context(), roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, round)
	}
}

// ProgressHandler reports draws so far and, once everyone drew, the loser.
func ProgressHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		p, err := s.Games.Progress(r.Context(), roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// DrawCardHandler deals the acting player a card.
func DrawCardHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		roundID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		actor, err := actingPlayer(r)
		if err != nil {
			writeError(w, err)
			return
		}
		draw, err := s.Games.DrawCard(ctx, roundID, actor)
		if err != nil {
			writeError(w, err)
			return
		}
		if player, err := s.Rooms.GetPlayer(ctx, actor); err == nil {
			s.observe(ctx, player.RoomID)
		}
		writeJSON(w, http.StatusOK, draw)
	}
}

// ListDrawsHandler returns the round's draws, earliest first.
func ListDrawsHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roundID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		draws, err := s.Games.ListDraws(r.Context(), roundID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, draws)
	}
}

// FinishGameHandler ends the game in a playing room.
func FinishGameHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		room, err := s.Games.FinishGame(r.Context(), roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// ResetGameHandler lets the host send the room back to the lobby.
func ResetGameHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		roomID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := requireHost(ctx, s, r, roomID); err != nil {
			writeError(w, err)
			return
		}
		room, err := s.Games.ResetGame(ctx, roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}
