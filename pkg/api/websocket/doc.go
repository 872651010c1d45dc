// Package websocket provides real-time design event streaming via WebSocket.
//
// Clients connect to /api/v1/events/ws and receive every event published
// on the design topic as a JSON text message. The optional type query
// parameter restricts the stream to a comma-separated set of event types.
// The first message is a stream.ready marker sent once the subscription
// is in place.
package websocket
