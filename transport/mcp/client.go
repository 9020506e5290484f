package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/stickcarrier/game/config"
	"github.com/wricardo/stickcarrier/game/level"
	"github.com/wricardo/stickcarrier/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Stick Carrier",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Stick Carrier - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Pick up the stick, carry it through the level without hitting walls, and step onto the goal (X) before time runs out.

AVAILABLE TOOLS:
- create_session: Create a new game session
- get_session / list_sessions: Inspect sessions and progress
- game_state: Current level, actor and stick state with a map
- move: Step one cell north/south/east/west
- rotate: Turn 90 degrees clockwise or counterclockwise
- interact: Pick up a nearby stick, or drop the carried one
- load_level: Switch level ("next", "replay" or a level id)
- event_history: Past gameplay events
- list_levels: Available levels
- game_instructions: Full rules

Motions take time. After an accepted intent, call game_state to see where the actor ended up.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

func reasonProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Brief explanation of why you are doing this (serves as a rubber duck to help explain your reasoning)",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally on a specific level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"level_id": map[string]any{
					"type":        "string",
					"description": "Level to start on (optional, defaults to the first level)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details and progress of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current level state with a map",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Step one cell in a world direction. A carried stick comes along; if it would hit something the move is undone.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"direction": map[string]any{
					"type":        "string",
					"enum":        []string{"north", "south", "east", "west"},
					"description": "Direction to move",
				},
				"reason": reasonProperty(),
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate",
		Description: "Turn 90 degrees in place. A carried stick swings with you; if it would hit something the turn is undone.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"direction": map[string]any{
					"type":        "string",
					"enum":        []string{"cw", "ccw"},
					"description": "cw turns clockwise (north to east), ccw counterclockwise",
				},
				"reason": reasonProperty(),
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleRotate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "interact",
		Description: "Pick up the nearest stick in reach, or drop the carried stick",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"reason":     reasonProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleInteract)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "load_level",
		Description: "Switch the session to another level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"level_id": map[string]any{
					"type":        "string",
					"description": `Level id, "next" for the following level or "replay" to restart`,
				},
			},
			Required: []string{"session_id", "level_id"},
		},
	}, c.handleLoadLevel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_history",
		Description: "Get gameplay events for a session, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEventHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func sessionPath(args map[string]any, suffix string) (string, error) {
	id := stringArg(args, "session_id")
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if levelID := stringArg(arguments(request), "level_id"); levelID != "" {
		body["level_id"] = levelID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLevel: %s (%s)\n", session.ID, session.LevelName, session.LevelID)
	if session.State != nil {
		result += "\n" + formatSnapshot(session.State)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Level: %s, Status: %s, Wins: %d, Created: %s)\n",
			s.ID, s.LevelID, s.Status, s.Progress.Wins, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state level.Snapshot
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSnapshot(&state)), nil
}

func (c *Client) sendIntent(ctx context.Context, request mcp.CallToolRequest, body map[string]any) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/intent")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// reason is a rubber duck for the caller; the server does not need it
	_ = stringArg(args, "reason")

	var result service.IntentResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatIntentResult(&result)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	direction := stringArg(arguments(request), "direction")
	return c.sendIntent(ctx, request, map[string]any{"intent": "move", "direction": direction})
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	direction := stringArg(arguments(request), "direction")
	return c.sendIntent(ctx, request, map[string]any{"intent": "rotate", "direction": direction})
}

func (c *Client) handleInteract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.sendIntent(ctx, request, map[string]any{"intent": "interact"})
}

func (c *Client) handleLoadLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/level")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	body := map[string]string{"level_id": stringArg(args, "level_id")}
	if err := c.apiCall(ctx, "POST", path, body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Loaded level %s (%s)\n", session.LevelName, session.LevelID)
	if session.State != nil {
		result += "\n" + formatSnapshot(session.State)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleEventHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := args["page"].(float64); ok {
		query.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []config.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, l := range levels {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Grid: %dx%d, Sticks: %d, Time: %.0fs\n\n",
			l.Name, l.LevelID, l.Description, l.Width, l.Depth, l.Sticks, l.TimeLimitSeconds)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Stick Carrier - Complete Instructions

GAME OBJECTIVE:
Carry a stick across the level and reach the goal (X) before the timer runs out.

MAP LEGEND:
  G  ground
  S  spawn (ground)
  X  goal
  #  wall (blocks you and the stick)
  b  post (blocks the stick only)
  .  void (nothing to stand on)
  @  you
  s  a stick end resting on a cell

MOVEMENT COMMANDS:
• move north/south/east/west: one cell in world space, whatever way you face
• rotate cw/ccw: a quarter turn in place
• interact: pick up a stick in reach, or drop the carried one one cell ahead

CARRYING:
• Picking up aligns the stick with your heading, so it takes a moment
• The stick sticks out ahead and behind; both ends must stay clear of walls and posts
• If an end would hit something mid-motion, the motion is undone and you slide back
• You cannot step onto void

VICTORY CONDITIONS:
• Reaching the goal starts a short celebration; the win is final after it
• Score is the share of time left, from 0 to 100
• If the timer runs out first, the level is lost; use load_level "replay"

TIPS:
• Motions take a fraction of a second; check game_state after each accepted intent
• Rotating with a long stick needs clear space on both sides
• Use load_level "next" after a win

Good luck!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nLevel: %s (%s)\nStatus: %s\n", session.ID, session.LevelName, session.LevelID, session.Status)
	p := session.Progress
	fmt.Fprintf(&b, "Progress: %d wins, %d losses, high score %d, last score %d\n", p.Wins, p.Losses, p.HighScore, p.LastScore)
	if len(p.LevelsCompleted) > 0 {
		fmt.Fprintf(&b, "Completed: %s\n", strings.Join(p.LevelsCompleted, ", "))
	}
	fmt.Fprintf(&b, "Created: %s\nLast Accessed: %s\n",
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.State != nil {
		b.WriteString("\n" + formatSnapshot(session.State))
	}
	return b.String()
}

func formatSnapshot(state *level.Snapshot) string {
	if state == nil {
		return "State: unavailable\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s (%s)\n", state.Name, state.Level)

	switch state.Status {
	case level.StatusWon:
		fmt.Fprintf(&b, "🎉 VICTORY! Score: %d\n", state.Score)
	case level.StatusLost:
		b.WriteString("💀 TIME UP\n")
	default:
		fmt.Fprintf(&b, "Time Left: %.1fs / %.0fs\n", state.TimeLeft, state.TimeLimit)
	}

	a := state.Actor
	fmt.Fprintf(&b, "Position: (%d,%d) Heading: %s State: %s\n",
		cell(a.Position.X), cell(a.Position.Z), headingName(int(a.Heading)), a.State)
	if a.Carrying != "" {
		fmt.Fprintf(&b, "Carrying: %s\n", a.Carrying)
	} else {
		b.WriteString("Carrying: nothing\n")
	}

	b.WriteString("\nMap (north is up):\n")
	b.WriteString(formatMap(state))
	return b.String()
}

func formatIntentResult(result *service.IntentResult) string {
	var b strings.Builder
	if result.Accepted {
		fmt.Fprintf(&b, "✓ %s\n", result.Message)
	} else {
		fmt.Fprintf(&b, "✗ %s\n", result.Message)
	}
	for _, e := range result.Events {
		fmt.Fprintf(&b, "  event: %s\n", describeEvent(e))
	}
	if result.State != nil {
		b.WriteString("\n" + formatSnapshot(result.State))
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event History (Page %d/%d), Total: %d\n\n", history.Page, history.TotalPages, history.TotalEvents)
	for i, e := range history.Events {
		num := (history.Page-1)*history.PageSize + i + 1
		fmt.Fprintf(&b, "%d. [%.2fs] %s\n", num, e.Time, describeEvent(e))
	}
	return b.String()
}

func describeEvent(e level.Event) string {
	parts := []string{string(e.Type)}
	if e.Object != "" {
		parts = append(parts, "object="+e.Object)
	}
	if e.From != "" {
		parts = append(parts, "from="+e.From)
	}
	if e.To != "" {
		parts = append(parts, "to="+e.To)
	}
	if e.Type == level.EventWinFinalized {
		parts = append(parts, fmt.Sprintf("score=%d", e.Score))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, " ")
}

// formatMap renders the layout with the actor and stick ends drawn over it.
func formatMap(state *level.Snapshot) string {
	layout := state.World.Layout
	rows := make([][]rune, len(layout))
	for i, line := range layout {
		rows[i] = []rune(line)
	}
	depth := len(rows)
	mark := func(x, z float64, r rune) {
		cx, cz := cell(x), cell(z)
		row := depth - 1 - cz
		if row < 0 || row >= depth || cx < 0 || cx >= len(rows[row]) {
			return
		}
		rows[row][cx] = r
	}

	for _, s := range state.World.Sticks {
		if s.EndA != nil {
			mark(s.EndA.X, s.EndA.Z, 's')
		}
		if s.EndB != nil {
			mark(s.EndB.X, s.EndB.Z, 's')
		}
	}
	mark(state.Actor.Position.X, state.Actor.Position.Z, '@')

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func cell(v float64) int {
	return int(math.Round(v))
}

func headingName(deg int) string {
	switch ((deg % 360) + 360) % 360 {
	case 0:
		return "north"
	case 90:
		return "east"
	case 180:
		return "south"
	case 270:
		return "west"
	}
	return fmt.Sprintf("%d°", deg)
}
