package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wricardo/stickcarrier/game/world"
)

var (
	ErrLevelNotFound  = errors.New("level not found")
	ErrInvalidLevel   = errors.New("invalid level")
	ErrInvalidLevelID = errors.New("invalid level id")
)

// DefaultLevelID is tried first when choosing the default level.
const DefaultLevelID = "level1"

// LevelInfo summarises a level file for listings.
type LevelInfo struct {
	Filename         string  `json:"filename"`
	LevelID          string  `json:"level_id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Order            int     `json:"order"`
	Width            int     `json:"width"`
	Depth            int     `json:"depth"`
	Sticks           int     `json:"sticks"`
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	Checksum         string  `json:"checksum,omitempty"`
}

// Manager handles level loading and caching
type Manager struct {
	configDir    string
	defaultLevel *LevelConfig
	defaultID    string
	levels       map[string]*LevelConfig
	sums         map[string]uint64 // xxhash of each level file as last read
	mu           sync.RWMutex
	log          *zap.Logger
}

// NewManager creates a level manager over configDir.
func NewManager(configDir string, logger *zap.Logger) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		configDir: configDir,
		levels:    make(map[string]*LevelConfig),
		sums:      make(map[string]uint64),
		log:       logger.Named("config"),
	}
	m.loadDefaultLevel()
	return m, nil
}

// Dir returns the directory levels are read from.
func (m *Manager) Dir() string { return m.configDir }

func checkLevelID(id string) error {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidLevelID, id)
	}
	return nil
}

// LoadLevel loads a level by id (its file name without extension).
func (m *Manager) LoadLevel(id string) (*LevelConfig, error) {
	id = strings.TrimSuffix(id, ".json")
	if err := checkLevelID(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if cfg, ok := m.levels[id]; ok {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg, ok := m.levels[id]; ok {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, id)
		}
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	var cfg LevelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse level %s: %w", id, err)
	}
	if err := checkSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLevel, id, err)
	}
	if err := ValidateLevelConfig(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLevel, id, err)
	}

	m.levels[id] = &cfg
	m.sums[id] = xxhash.Sum64(data)
	return &cfg, nil
}

// ListLevels returns every valid level sorted by order, then id.
func (m *Manager) ListLevels() ([]*LevelInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var levels []*LevelInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")

		cfg, err := m.LoadLevel(id)
		if err != nil {
			m.log.Debug("skipping level", zap.String("level", id), zap.Error(err))
			continue
		}

		levels = append(levels, &LevelInfo{
			Filename:         entry.Name(),
			LevelID:          id,
			Name:             cfg.Name,
			Description:      cfg.Description,
			Order:            cfg.Order,
			Width:            len(cfg.Layout[0]),
			Depth:            len(cfg.Layout),
			Sticks:           len(cfg.Sticks),
			TimeLimitSeconds: cfg.TimeLimit(),
			Checksum:         m.checksum(id),
		})
	}

	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].Order != levels[j].Order {
			return levels[i].Order < levels[j].Order
		}
		return levels[i].LevelID < levels[j].LevelID
	})
	return levels, nil
}

func (m *Manager) checksum(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sum, ok := m.sums[id]; ok {
		return fmt.Sprintf("%016x", sum)
	}
	return ""
}

// NextLevel returns the level that follows id in list order.
func (m *Manager) NextLevel(id string) (string, bool) {
	levels, err := m.ListLevels()
	if err != nil {
		return "", false
	}
	for i, l := range levels {
		if l.LevelID == id && i+1 < len(levels) {
			return levels[i+1].LevelID, true
		}
	}
	return "", false
}

// GetDefault returns the default level and its id.
func (m *Manager) GetDefault() (*LevelConfig, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLevel, m.defaultID
}

// SetDefault sets the default level by id.
func (m *Manager) SetDefault(id string) error {
	cfg, err := m.LoadLevel(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel, m.defaultID = cfg, id
	return nil
}

// RefreshCache drops every cached level and reloads the default.
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.levels = make(map[string]*LevelConfig)
	m.mu.Unlock()

	m.loadDefaultLevel()
}

// Invalidate drops one cached level so the next load reads the file again.
func (m *Manager) Invalidate(id string) {
	m.mu.Lock()
	delete(m.levels, id)
	isDefault := id == m.defaultID
	m.mu.Unlock()

	if isDefault {
		m.loadDefaultLevel()
	}
}

func (m *Manager) loadDefaultLevel() {
	cfg, err := m.LoadLevel(DefaultLevelID)
	id := DefaultLevelID
	if err != nil {
		levels, listErr := m.ListLevels()
		if listErr != nil || len(levels) == 0 {
			cfg, id = minimalLevel(), "default"
		} else if cfg, err = m.LoadLevel(levels[0].LevelID); err != nil {
			cfg, id = minimalLevel(), "default"
		} else {
			id = levels[0].LevelID
		}
	}

	m.mu.Lock()
	m.defaultLevel, m.defaultID = cfg, id
	m.mu.Unlock()
}

// SaveLevel validates cfg and writes it to disk.
func (m *Manager) SaveLevel(id string, cfg *LevelConfig) error {
	id = strings.TrimSuffix(id, ".json")
	if err := checkLevelID(id); err != nil {
		return err
	}
	if err := ValidateLevelConfig(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.configDir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	m.mu.Lock()
	m.levels[id] = cfg
	m.sums[id] = xxhash.Sum64(data)
	m.mu.Unlock()
	return nil
}

// refresh compares the level file on disk with the content last read and
// invalidates the cached level when it differs. It reports whether it did.
func (m *Manager) refresh(id string) bool {
	data, err := os.ReadFile(filepath.Join(m.configDir, id+".json"))
	if err != nil {
		m.mu.Lock()
		delete(m.sums, id)
		m.mu.Unlock()
		m.Invalidate(id)
		return true
	}

	sum := xxhash.Sum64(data)
	m.mu.Lock()
	prev, seen := m.sums[id]
	m.sums[id] = sum
	m.mu.Unlock()
	if seen && prev == sum {
		return false
	}
	m.Invalidate(id)
	return true
}

// Watch invalidates cached levels when their files change and calls
// onChange with the level id. It blocks until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context, onChange func(id string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create level watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(m.configDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.configDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			id := strings.TrimSuffix(filepath.Base(event.Name), filepath.Ext(event.Name))
			if !m.refresh(id) {
				continue
			}
			m.log.Info("level file changed", zap.String("level", id), zap.String("op", event.Op.String()))
			if onChange != nil {
				onChange(id)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("level watcher error", zap.Error(err))
		}
	}
}

// minimalLevel is served when the directory holds no valid level.
func minimalLevel() *LevelConfig {
	return &LevelConfig{
		Name:        "default",
		Description: "Carry the stick to the goal",
		Layout: []string{
			"GGGGG",
			"GGGGX",
			"SGGGG",
		},
		Sticks:   []world.StickSpec{{ID: "stick", X: 1, Z: 0}},
		SpawnYaw: 90,
	}
}
