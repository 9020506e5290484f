package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wricardo/stickcarrier/game/level"
	"github.com/wricardo/stickcarrier/game/session"
)

const testLevel = `{
  "name": "Corridor",
  "description": "Walk east",
  "order": 1,
  "layout": ["GGGGG", "SGGGX"],
  "sticks": [{"id": "s", "x": 1, "z": 0}],
  "spawn_yaw": 90
}`

func testOptions(t *testing.T) options {
	t.Helper()
	dir := t.TempDir()
	levels := filepath.Join(dir, "levels")
	require.NoError(t, os.Mkdir(levels, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(levels, "corridor.json"), []byte(testLevel), 0644))
	return options{
		Host:        "127.0.0.1",
		Port:        0,
		ConfigDir:   levels,
		TuningPath:  filepath.Join(dir, "missing.yaml"),
		SessionsDir: filepath.Join(dir, "sessions"),
		JournalDir:  filepath.Join(dir, "journal"),
		TickRate:    defaultTickRate,
		SessionTTL:  time.Hour,
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Stick Carrier Server", AppName)
}

func TestNewApp(t *testing.T) {
	app := newApp()
	assert.Equal(t, Version, app.Version)
	assert.NotNil(t, app.Action, "serve is the default action")

	names := make([]string, 0, len(app.Commands))
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"serve", "mcp", "validate", "journal"}, names)
}

func TestFlagDefaults(t *testing.T) {
	defaults := map[string]bool{}
	for _, f := range appFlags() {
		for _, name := range f.Names() {
			defaults[name] = true
		}
	}
	for _, name := range []string{"host", "port", "config-dir", "tuning", "sessions-dir", "journal-dir", "tick-rate", "session-ttl", "debug", "ngrok", "ngrok-auth", "ngrok-domain"} {
		assert.True(t, defaults[name], "missing flag %s", name)
	}
}

func TestInitializeServices(t *testing.T) {
	o := testOptions(t)
	svc, err := initializeServices(o, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, svc.game)
	require.NotNil(t, svc.hub)
	require.NotNil(t, svc.journal)

	info, err := svc.game.CreateSession(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "corridor", info.LevelID)

	require.NoError(t, svc.Close())
	_, err = os.Stat(filepath.Join(o.SessionsDir, info.ID+".json"))
	assert.NoError(t, err, "sessions are saved on close")
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	o := testOptions(t)
	o.ConfigDir = "/non/existent/path"
	_, err := initializeServices(o, zap.NewNop())
	assert.Error(t, err)
}

func TestInitializeServices_BadTuning(t *testing.T) {
	o := testOptions(t)
	require.NoError(t, os.WriteFile(o.TuningPath, []byte("actor: [not, a, map]"), 0644))
	_, err := initializeServices(o, zap.NewNop())
	assert.Error(t, err)
}

func TestInitializeServices_NoJournal(t *testing.T) {
	o := testOptions(t)
	o.JournalDir = ""
	svc, err := initializeServices(o, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, svc.journal)
	assert.NoError(t, svc.Close())
}

func TestNewHandler(t *testing.T) {
	svc, err := initializeServices(testOptions(t), zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	handler := newHandler(svc, "http://127.0.0.1:0", zap.NewNop())

	t.Run("health", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("mcp rejects GET", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("mcp ping", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/mcp", body))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Body.String(), `"jsonrpc":"2.0"`)
	})
}

func TestRunTicker_StopsOnCancel(t *testing.T) {
	svc, err := initializeServices(testOptions(t), zap.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runTicker(ctx, svc.game, 200) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.json"), []byte(testLevel), 0644))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(context.Background(), []string{"stickcarrier", "validate", "--config-dir", dir}))
	assert.Contains(t, out.String(), "✓ ")
	assert.Contains(t, out.String(), "1 file(s), 0 invalid")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name": "Bad", "layout": ["GG"]}`), 0644))

	out.Reset()
	app = newApp()
	app.Writer = &out
	err := app.Run(context.Background(), []string{"stickcarrier", "validate", bad})
	require.Error(t, err)
	assert.Contains(t, out.String(), "✗ ")
}

func TestRunValidate_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(path, []byte(testLevel), 0644))

	var out bytes.Buffer
	require.NoError(t, runValidate(&out, "", []string{path}, true))
	assert.Contains(t, out.String(), `"valid": true`)
}

func TestRunJournal(t *testing.T) {
	dir := t.TempDir()
	j := session.NewJournal(dir)
	require.NoError(t, j.Record("ab12", level.Event{Type: level.EventMove, Level: "corridor", Time: 1.5, To: "east"}))
	require.NoError(t, j.Record("cd34", level.Event{Type: level.EventWinFinalized, Level: "corridor", Time: 9, Score: 87}))
	require.NoError(t, j.Close())

	var out bytes.Buffer
	require.NoError(t, runJournal(&out, dir, nil, journalFilter{}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ab12 move level=corridor t=1.50 to=east")
	assert.Contains(t, lines[1], "cd34 win_finalized level=corridor t=9.00 score=87")

	out.Reset()
	require.NoError(t, runJournal(&out, dir, nil, journalFilter{Session: "cd34"}))
	assert.NotContains(t, out.String(), "ab12")
	assert.Contains(t, out.String(), "cd34")

	out.Reset()
	require.NoError(t, runJournal(&out, dir, nil, journalFilter{Type: level.EventMove}))
	assert.Contains(t, out.String(), "ab12")
	assert.NotContains(t, out.String(), "cd34")
}

func TestSampleLevelsAreValid(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("configs directory not found")
	}
	var out bytes.Buffer
	assert.NoError(t, runValidate(&out, "configs", nil, false), out.String())
}
