// internal/handlers/subscribe.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/cardbbang/internal/events"
	"github.com/jason-s-yu/cardbbang/internal/middleware"
	"github.com/sirupsen/logrus"
)

// EventsSubprotocol is the WebSocket subprotocol clients must request on /subscribe.
const EventsSubprotocol = "events"

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// SubscribeHandler streams the mutations of one collection, optionally filtered by
// ?field=&value=, to a WebSocket client as JSON text frames.
func SubscribeHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		collection := q.Get("collection")
		filter := events.Filter{Field: q.Get("field"), Value: q.Get("value")}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{EventsSubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != EventsSubprotocol {
			c.Close(BadSubprotocolError, "client must speak the events subprotocol")
			return
		}
		if !events.ValidCollection(collection) {
			c.Close(InvalidCollectionError, "unknown collection")
			return
		}

		// the client only ever listens; CloseRead cancels ctx when it goes away
		ctx := c.CloseRead(r.Context())
		sub, err := s.Bus.Subscribe(ctx, collection, filter)
		if err != nil {
			s.Logger.WithField("collection", collection).Warnf("subscribe: %v", err)
			c.Close(SubscribeFailedError, "subscription failed")
			return
		}
		defer sub.Close()

		middleware.LogSubscribe(s.Logger, r.RemoteAddr, collection, filter.Field, filter.Value)
		err = writePump(ctx, c, sub, s.Logger)
		middleware.LogUnsubscribe(s.Logger, r.RemoteAddr, collection, err)
		if err == nil {
			c.Close(websocket.StatusNormalClosure, "")
		}
	}
}

// writePump forwards events until the subscription closes, the client leaves or a write
// fails. A clean stop returns nil.
func writePump(ctx context.Context, c *websocket.Conn, sub *events.Subscription, logger *logrus.Logger) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("marshal event: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
