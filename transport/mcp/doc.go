// Package mcp exposes the game to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a REST request against a
// running API server, and the JSON answer is rendered as plain text with an
// ASCII map of the level.
//
// MCP Tools:
//   - create_session, get_session, list_sessions
//   - game_state: level, actor and sticks with a map
//   - move, rotate, interact: send one intent
//   - load_level: "next", "replay" or a level id
//   - event_history: paginated gameplay events
//   - list_levels, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
