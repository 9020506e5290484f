// Package api provides the HTTP REST API for the Stick Carrier game.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session, optionally {"level_id": "..."}
//   - GET /api/sessions - List sessions
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Gameplay:
//   - GET /api/sessions/{id}/state - Level snapshot
//   - POST /api/sessions/{id}/intent - Send one intent
//   - POST /api/sessions/{id}/level - Load {"level_id": "next|replay|<id>"}
//   - GET /api/sessions/{id}/history?page=&limit=&order= - Event history
//
// Levels:
//   - GET /api/levels - List levels in play order
//   - GET /api/levels/{name} - Get a level definition
//   - POST|PUT /api/levels/{name} - Validate and store a level
//
// Realtime:
//   - GET /ws?session={id} - WebSocket events and intents
//
// Intents are JSON objects:
//
//	{"intent": "move", "direction": "north|east|south|west|forward|back"}
//	{"intent": "rotate", "direction": "left|right"}
//	{"intent": "interact"}
//
// Errors are returned as {"error": "message"} with 400 for bad input, 404
// for unknown sessions or levels, 409 once a level is over and 500 otherwise.
package api
