// Package http provides HTTP handlers and middleware for the court rotation API.
//
// The router exposes the following endpoints:
//   - GET /players, POST /players, POST /players/import, PUT /players/{id}/level,
//     GET /players/scores: roster management exchanging the `playerDTO` payload
//     defined in player_handler.go. The roster listing carries status badges and
//     the scores listing previews matchmaking priority.
//   - GET /courts, GET /courts/{id}, POST /courts/{id}/players, /start, /complete,
//     /reset, /queue, /magic-queue and DELETE /courts/{id}/queue/{index}: court
//     operations exchanging the `courtDTO` payload defined in court_handler.go.
//     POST /magic-queue runs the magic queue on the first empty court.
//   - GET /history, GET /state, POST /reset: game history, a snapshot export in
//     the stored JSON shape, and a full reset (state_handler.go).
//   - GET /events: websocket stream of engine notifications (hub.go). Clients
//     may send {"type":"subscribe","kinds":[...]} to filter by event kind.
//   - GET /metrics: Prometheus exposition when configured.
//
// Errors are reported as {"error_code","message","errors"}. Unknown ids map to
// 404, validation failures to 422 and state conflicts to 409.
package http
