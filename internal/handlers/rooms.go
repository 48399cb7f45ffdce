// internal/handlers/rooms.go
package handlers

import (
	"net/http"
)

type joinRequest struct {
	Code     string `json:"room_code"`
	Nickname string `json:"nickname"`
}

type readyRequest struct {
	Ready *bool `json:"ready"`
}

// CreateRoomHandler opens a new waiting room.
func CreateRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := s.Rooms.CreateRoom(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	}
}

// GetRoomByCodeHandler looks a room up by its share code.
func GetRoomByCodeHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := s.Rooms.GetRoomByCode(r.Context(), r.PathValue("code"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// JoinRoomHandler seats a player and hands the new player id back as a cookie.
func JoinRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		room, player, err := s.Rooms.JoinRoom(r.Context(), req.Code, req.Nickname)
		if err != nil {
			writeError(w, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     PlayerCookie,
			Value:    player.ID.String(),
			HttpOnly: true,
			Path:     "/",
		})
		writeJSON(w, http.StatusCreated, map[string]any{
			"room":   room,
			"player": player,
		})
	}
}

// ListPlayersHandler returns the room's players in join order.
func ListPlayersHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := s.Rooms.GetRoom(r.Context(), roomID); err != nil {
			writeError(w, err)
			return
		}
		players, err := s.Rooms.ListPlayers(r.Context(), roomID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	}
}

// UpdateReadyHandler sets a player's ready flag from {"ready": bool}.
func UpdateReadyHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		var req readyRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.Ready == nil {
			writeError(w, errBadBody)
			return
		}
		player, err := s.Rooms.UpdateReady(r.Context(), playerID, *req.Ready)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, player)
	}
}

// LeaveRoomHandler removes a player. A departure mid-round can leave everyone else drawn,
// so the referee gets a look at the room.
func LeaveRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := pathID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		player, err := s.Rooms.LeaveRoom(r.Context(), playerID)
		if err != nil {
			writeError(w, err)
			return
		}
		s.observe(r.Context(), player.RoomID)
		writeJSON(w, http.StatusOK, player)
	}
}
