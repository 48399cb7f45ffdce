package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/middleware"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/sirupsen/logrus"
)

// PlayerCookie holds the player id handed out by JoinRoom.
const PlayerCookie = "player_id"

var (
	errNotHost       = errors.New("only the host may do this")
	errNotReady      = errors.New("need at least two players, all ready")
	errMissingPlayer = errors.New("missing player id")
	errBadID         = errors.New("malformed id")
	errBadBody       = errors.New("bad request payload")
)

// statusFor maps an operation error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrRoomFull),
		errors.Is(err, models.ErrGameAlreadyStarted),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrDeckExhausted),
		errors.Is(err, errNotReady):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidNickname),
		errors.Is(err, errMissingPlayer),
		errors.Is(err, errBadID),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, errNotHost):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encode response: %v", err)
	}
}

// writeError writes {"error": msg} with the status mapped from err. Store failures are not
// described to the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

// pathID parses the named path segment as a uuid.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, errBadID
	}
	return id, nil
}

// actingPlayer returns the caller's player id from the X-Player-ID header, falling back to
// the player_id cookie.
func actingPlayer(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(middleware.PlayerHeader))
	if raw == "" {
		if c, err := r.Cookie(PlayerCookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return uuid.Nil, errMissingPlayer
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errBadID
	}
	return id, nil
}
