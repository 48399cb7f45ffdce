// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the subscription handler.
const (
	BadSubprotocolError    = 3000 // Client connected with an unsupported subprotocol.
	InvalidCollectionError = 3001 // Requested collection does not exist.
	SubscribeFailedError   = 3002 // The event bus refused the subscription.
)
