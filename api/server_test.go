package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/stickcarrier/game/config"
	"github.com/wricardo/stickcarrier/game/engine"
	"github.com/wricardo/stickcarrier/game/level"
	"github.com/wricardo/stickcarrier/game/service"
	"github.com/wricardo/stickcarrier/game/session"
	"github.com/wricardo/stickcarrier/game/world"
	"github.com/wricardo/stickcarrier/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateSessionFunc func(ctx context.Context, levelID string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	SendIntentFunc func(ctx context.Context, sessionID string, intent level.Intent) (*service.IntentResult, error)
	LoadLevelFunc  func(ctx context.Context, sessionID, levelID string) (*service.SessionInfo, error)

	GetStateFunc   func(ctx context.Context, sessionID string) (*level.Snapshot, error)
	GetHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	ListLevelsFunc      func(ctx context.Context) ([]*config.LevelInfo, error)
	GetLevelConfigFunc  func(ctx context.Context, levelID string) (*config.LevelConfig, error)
	SaveLevelConfigFunc func(ctx context.Context, levelID string, cfg *config.LevelConfig) error
}

func (m *MockGameService) CreateSession(ctx context.Context, levelID string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, levelID)
	}
	return &service.SessionInfo{ID: "test", LevelID: levelID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, LevelID: "level1", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) SendIntent(ctx context.Context, sessionID string, intent level.Intent) (*service.IntentResult, error) {
	if m.SendIntentFunc != nil {
		return m.SendIntentFunc(ctx, sessionID, intent)
	}
	return &service.IntentResult{Accepted: true, Message: string(intent.Action) + " accepted"}, nil
}

func (m *MockGameService) LoadLevel(ctx context.Context, sessionID, levelID string) (*service.SessionInfo, error) {
	if m.LoadLevelFunc != nil {
		return m.LoadLevelFunc(ctx, sessionID, levelID)
	}
	return &service.SessionInfo{ID: sessionID, LevelID: levelID}, nil
}

func (m *MockGameService) GetState(ctx context.Context, sessionID string) (*level.Snapshot, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, sessionID)
	}
	return &level.Snapshot{Level: "level1", Status: level.StatusPlaying}, nil
}

func (m *MockGameService) GetHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockGameService) ListLevels(ctx context.Context) ([]*config.LevelInfo, error) {
	if m.ListLevelsFunc != nil {
		return m.ListLevelsFunc(ctx)
	}
	return []*config.LevelInfo{}, nil
}

func (m *MockGameService) GetLevelConfig(ctx context.Context, levelID string) (*config.LevelConfig, error) {
	if m.GetLevelConfigFunc != nil {
		return m.GetLevelConfigFunc(ctx, levelID)
	}
	return &config.LevelConfig{Name: levelID}, nil
}

func (m *MockGameService) SaveLevelConfig(ctx context.Context, levelID string, cfg *config.LevelConfig) error {
	if m.SaveLevelConfigFunc != nil {
		return m.SaveLevelConfigFunc(ctx, levelID, cfg)
	}
	return nil
}

func (m *MockGameService) Tick(time.Duration) {}

func setupTestServer(svc service.GameService) *Server {
	return NewServer(svc, websocket.NewHub(nil), nil)
}

func makeRequest(method, path string, body any) *http.Request {
	var bodyBytes []byte
	switch b := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(b)
	default:
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), w.Body.String())
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		err            error
		wantLevel      string
		expectedStatus int
	}{
		{name: "default level", body: nil, expectedStatus: http.StatusCreated},
		{name: "named level", body: map[string]string{"level_id": "level2"}, wantLevel: "level2", expectedStatus: http.StatusCreated},
		{name: "unknown level", body: map[string]string{"level_id": "nope"}, err: fmt.Errorf("failed to load level nope: %w", config.ErrLevelNotFound), wantLevel: "nope", expectedStatus: http.StatusNotFound},
		{name: "service failure", err: errors.New("disk full"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLevel string
			mock := &MockGameService{
				CreateSessionFunc: func(ctx context.Context, levelID string) (*service.SessionInfo, error) {
					gotLevel = levelID
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.SessionInfo{ID: "ab12", LevelID: levelID}, nil
				},
			}

			w := serve(setupTestServer(mock), makeRequest("POST", "/api/sessions", tt.body))
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.wantLevel, gotLevel)

			if tt.err != nil {
				var resp map[string]string
				parseResponse(t, w, &resp)
				assert.Equal(t, tt.err.Error(), resp["error"])
				return
			}
			var resp service.SessionInfo
			parseResponse(t, w, &resp)
			assert.Equal(t, "ab12", resp.ID)
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
				{ID: "mid", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-time.Hour)},
				{ID: "new", CreatedAt: now, LastAccessedAt: now.Add(-2 * time.Hour)},
			}, nil
		},
	}
	server := setupTestServer(mock)

	ids := func(w *httptest.ResponseRecorder) []string {
		var resp struct {
			Count    int                    `json:"count"`
			Total    int                    `json:"total"`
			Sessions []*service.SessionInfo `json:"sessions"`
		}
		parseResponse(t, w, &resp)
		out := make([]string, 0, len(resp.Sessions))
		for _, s := range resp.Sessions {
			out = append(out, s.ID)
		}
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, len(out), resp.Count)
		return out
	}

	w := serve(server, makeRequest("GET", "/api/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"old", "mid", "new"}, ids(w))

	w = serve(server, makeRequest("GET", "/api/sessions?sort=created&order=asc", nil))
	assert.Equal(t, []string{"old", "mid", "new"}, ids(w))

	w = serve(server, makeRequest("GET", "/api/sessions?sort=created&limit=2", nil))
	assert.Equal(t, []string{"new", "mid"}, ids(w))
}

func TestGetAndDeleteSession(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			if id != "ab12" {
				return nil, fmt.Errorf("session %s: %w", id, service.ErrSessionNotFound)
			}
			return &service.SessionInfo{ID: id, LevelID: "level1"}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, id string) error {
			if id != "ab12" {
				return service.ErrSessionNotFound
			}
			return nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(server, makeRequest("GET", "/api/sessions/zz99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(server, makeRequest("DELETE", "/api/sessions/ab12", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Session ab12 deleted")

	w = serve(server, makeRequest("DELETE", "/api/sessions/zz99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntent(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		err            error
		want           level.Intent
		expectedStatus int
	}{
		{name: "move", body: map[string]any{"intent": "move", "direction": "north"}, want: level.Intent{Action: level.ActionMove, Direction: "north"}, expectedStatus: http.StatusOK},
		{name: "rotate by sign", body: map[string]any{"intent": "rotate", "sign": -1}, want: level.Intent{Action: level.ActionRotate, Sign: -1}, expectedStatus: http.StatusOK},
		{name: "rotate by word", body: map[string]any{"intent": "rotate", "direction": "cw"}, want: level.Intent{Action: level.ActionRotate, Sign: 1}, expectedStatus: http.StatusOK},
		{name: "interact", body: map[string]any{"intent": "interact"}, want: level.Intent{Action: level.ActionInteract}, expectedStatus: http.StatusOK},
		{name: "unknown intent", body: map[string]any{"intent": "jump"}, expectedStatus: http.StatusBadRequest},
		{name: "bad body", body: "{not json", expectedStatus: http.StatusBadRequest},
		{name: "bad direction", body: map[string]any{"intent": "move", "direction": "up-ish"}, err: level.ErrUnknownIntent, want: level.Intent{Action: level.ActionMove, Direction: "up-ish"}, expectedStatus: http.StatusBadRequest},
		{name: "level over", body: map[string]any{"intent": "interact"}, err: level.ErrLevelOver, want: level.Intent{Action: level.ActionInteract}, expectedStatus: http.StatusConflict},
		{name: "missing session", body: map[string]any{"intent": "interact"}, err: service.ErrSessionNotFound, want: level.Intent{Action: level.ActionInteract}, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got level.Intent
			mock := &MockGameService{
				SendIntentFunc: func(ctx context.Context, id string, in level.Intent) (*service.IntentResult, error) {
					got = in
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.IntentResult{Accepted: true, Message: string(in.Action) + " accepted"}, nil
				},
			}

			w := serve(setupTestServer(mock), makeRequest("POST", "/api/sessions/ab12/intent", tt.body))
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadLevel(t *testing.T) {
	var got string
	mock := &MockGameService{
		LoadLevelFunc: func(ctx context.Context, id, levelID string) (*service.SessionInfo, error) {
			got = levelID
			if levelID == "next" {
				return nil, fmt.Errorf("%w after level9", service.ErrNoNextLevel)
			}
			return &service.SessionInfo{ID: id, LevelID: levelID}, nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("POST", "/api/sessions/ab12/level", map[string]string{"level_id": "level2"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "level2", got)

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/level", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", got)

	w = serve(server, makeRequest("POST", "/api/sessions/ab12/level", map[string]string{"level_id": "next"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetHistory(t *testing.T) {
	var got service.HistoryOptions
	mock := &MockGameService{
		GetHistoryFunc: func(ctx context.Context, id string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			got = opts
			return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/history", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}, got)

	w = serve(server, makeRequest("GET", "/api/sessions/ab12/history?page=3&limit=5&order=asc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}, got)

	w = serve(server, makeRequest("GET", "/api/sessions/ab12/history?page=-1&order=sideways", nil))
	assert.Equal(t, service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}, got)
}

func TestGetState(t *testing.T) {
	mock := &MockGameService{
		GetStateFunc: func(ctx context.Context, id string) (*level.Snapshot, error) {
			if id == "gone" {
				return nil, service.ErrSessionNotFound
			}
			return &level.Snapshot{Level: "level1", Status: level.StatusPlaying, TimeLeft: 12.5}, nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/sessions/ab12/state", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap level.Snapshot
	parseResponse(t, w, &snap)
	assert.Equal(t, 12.5, snap.TimeLeft)

	w = serve(server, makeRequest("GET", "/api/sessions/gone/state", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLevels(t *testing.T) {
	var saved string
	mock := &MockGameService{
		ListLevelsFunc: func(ctx context.Context) ([]*config.LevelInfo, error) {
			return []*config.LevelInfo{{LevelID: "level1", Name: "First"}}, nil
		},
		GetLevelConfigFunc: func(ctx context.Context, id string) (*config.LevelConfig, error) {
			if id != "level1" {
				return nil, config.ErrLevelNotFound
			}
			return &config.LevelConfig{Name: "First"}, nil
		},
		SaveLevelConfigFunc: func(ctx context.Context, id string, cfg *config.LevelConfig) error {
			if cfg.Name == "" {
				return fmt.Errorf("%w: name is required", config.ErrInvalidLevel)
			}
			saved = id
			return nil
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/api/levels", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var levels []config.LevelInfo
	parseResponse(t, w, &levels)
	require.Len(t, levels, 1)
	assert.Equal(t, "level1", levels[0].LevelID)

	w = serve(server, makeRequest("GET", "/api/levels/level1.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(server, makeRequest("GET", "/api/levels/other", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(server, makeRequest("POST", "/api/levels/custom", config.LevelConfig{Name: "Custom"}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "custom", saved)

	w = serve(server, makeRequest("POST", "/api/levels/broken", config.LevelConfig{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	w := serve(setupTestServer(&MockGameService{}), makeRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestWebSocketRequiresSession(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			return nil, service.ErrSessionNotFound
		},
	}
	server := setupTestServer(mock)

	w := serve(server, makeRequest("GET", "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(server, makeRequest("GET", "/ws?session=zz99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("x: %w", config.ErrLevelNotFound)))
	assert.Equal(t, http.StatusBadRequest, statusFor(config.ErrInvalidLevelID))
	assert.Equal(t, http.StatusConflict, statusFor(level.ErrLevelOver))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

// TestEndToEnd drives a real service through the HTTP surface.
func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.LevelConfig{
		Name:     "Corridor",
		Order:    1,
		Layout:   []string{".....", "GGGGG", "SGGGX"},
		Sticks:   []world.StickSpec{{ID: "s", X: 1, Z: 0}},
		SpawnYaw: 90,
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corridor.json"), data, 0644))

	configs, err := config.NewManager(dir, nil)
	require.NoError(t, err)
	svc := service.NewGameService(session.NewManager(nil), configs)
	server := NewServer(svc, nil, nil)

	w := serve(server, makeRequest("POST", "/api/sessions", map[string]string{"level_id": "corridor"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var info service.SessionInfo
	parseResponse(t, w, &info)
	require.Len(t, info.ID, 4)

	w = serve(server, makeRequest("POST", "/api/sessions/"+info.ID+"/intent", map[string]string{"intent": "interact"}))
	require.Equal(t, http.StatusOK, w.Code)
	var res service.IntentResult
	parseResponse(t, w, &res)
	assert.True(t, res.Accepted)
	assert.Equal(t, engine.StatePickingUp, res.State.Actor.State)

	// a second interact while picking up is ignored, not an error
	w = serve(server, makeRequest("POST", "/api/sessions/"+info.ID+"/intent", map[string]string{"intent": "interact"}))
	require.Equal(t, http.StatusOK, w.Code)
	parseResponse(t, w, &res)
	assert.False(t, res.Accepted)

	for i := 0; i < 30; i++ {
		svc.Tick(10 * time.Millisecond)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/"+info.ID+"/state", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var snap level.Snapshot
	parseResponse(t, w, &snap)
	assert.Equal(t, engine.StateIdle, snap.Actor.State)
	assert.Equal(t, "s", snap.Actor.Carrying)

	w = serve(server, makeRequest("GET", "/api/sessions/"+info.ID+"/history?order=asc&limit=100", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history service.HistoryResponse
	parseResponse(t, w, &history)
	assert.NotZero(t, history.TotalEvents)

	w = serve(server, makeRequest("POST", "/api/sessions/"+info.ID+"/level", map[string]string{"level_id": "next"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
