package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/stickcarrier/game/config"
	"github.com/wricardo/stickcarrier/game/engine"
	"github.com/wricardo/stickcarrier/game/level"
)

// gameServiceImpl implements the GameService interface. One mutex serialises
// every level: the engine core is single-threaded.
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	tuning    config.Tuning
	publisher Publisher
	recorder  Recorder
	log       *zap.Logger

	pending map[string][]level.Event
	mu      sync.Mutex
}

// Option configures the game service.
type Option func(*gameServiceImpl)

// WithTuning sets the tuning every level is loaded with.
func WithTuning(t config.Tuning) Option {
	return func(s *gameServiceImpl) { s.tuning = t }
}

// WithPublisher sets where session updates are pushed.
func WithPublisher(p Publisher) Option {
	return func(s *gameServiceImpl) { s.publisher = p }
}

// WithRecorder sets where gameplay events are journaled.
func WithRecorder(r Recorder) Option {
	return func(s *gameServiceImpl) { s.recorder = r }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if l != nil {
			s.log = l
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		tuning:   config.DefaultTuning(),
		log:      zap.NewNop(),
		pending:  make(map[string][]level.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("service")
	return s
}

type publication struct {
	sessionID string
	events    []level.Event
	state     *level.Snapshot
}

// flush publishes outside the service lock.
func (s *gameServiceImpl) flush(pubs *[]publication) {
	if s.publisher == nil {
		return
	}
	for _, p := range *pubs {
		s.publisher.Publish(p.sessionID, p.events, p.state)
	}
}

// levelConfig resolves a level id, including the built-in default level.
func (s *gameServiceImpl) levelConfig(id string) (*config.LevelConfig, error) {
	if def, defID := s.configs.GetDefault(); def != nil && id == defID {
		return def, nil
	}
	cfg, err := s.configs.LoadLevel(id)
	if err != nil {
		if errors.Is(err, config.ErrLevelNotFound) {
			if levels, listErr := s.configs.ListLevels(); listErr == nil && len(levels) > 0 {
				ids := make([]string, 0, len(levels))
				for _, l := range levels {
					ids = append(ids, l.LevelID)
				}
				return nil, fmt.Errorf("%w. Available levels: %v", err, ids)
			}
		}
		return nil, err
	}
	return cfg, nil
}

func (s *gameServiceImpl) sink(sessionID string) level.EventSink {
	return func(e level.Event) {
		s.pending[sessionID] = append(s.pending[sessionID], e)
	}
}

// attach loads levelID into sess, unloading whatever ran before.
func (s *gameServiceImpl) attach(sess *Session, levelID string, cfg *config.LevelConfig) error {
	lvl, err := level.Load(levelID, cfg, s.tuning, s.log.With(zap.String("session", sess.ID)), s.sink(sess.ID))
	if err != nil {
		return err
	}
	if sess.Level != nil {
		sess.Level.Unload()
	}
	delete(s.pending, sess.ID)
	sess.Level = lvl
	sess.LevelID = levelID
	return nil
}

// ensureLevel loads the session's level if it has none, as happens after a
// restore from disk.
func (s *gameServiceImpl) ensureLevel(sess *Session) error {
	if sess.Level != nil {
		return nil
	}
	cfg, err := s.levelConfig(sess.LevelID)
	if err != nil {
		return fmt.Errorf("failed to load level %s: %w", sess.LevelID, err)
	}
	return s.attach(sess, sess.LevelID, cfg)
}

// drain takes the events a session's level produced since the last drain,
// books outcomes into its progress and journals them.
func (s *gameServiceImpl) drain(sess *Session) []level.Event {
	events := s.pending[sess.ID]
	if len(events) == 0 {
		return nil
	}
	delete(s.pending, sess.ID)

	outcome := false
	for _, e := range events {
		switch e.Type {
		case level.EventWinFinalized:
			sess.Progress.RecordWin(sess.LevelID, e.Score)
			outcome = true
		case level.EventTimeUp:
			sess.Progress.RecordLoss()
			outcome = true
		}
		if s.recorder != nil {
			if err := s.recorder.Record(sess.ID, e); err != nil {
				s.log.Warn("failed to journal event", zap.String("session", sess.ID), zap.Error(err))
			}
		}
	}

	sess.History = append(sess.History, events...)
	if over := len(sess.History) - MaxHistory; over > 0 {
		sess.History = append([]level.Event(nil), sess.History[over:]...)
	}

	if outcome {
		if err := s.sessions.Save(sess.ID); err != nil {
			s.log.Warn("failed to persist session", zap.String("session", sess.ID), zap.Error(err))
		}
	}
	return events
}

func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.LevelID,
		Progress:       sess.Progress,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
	}
	if sess.Level != nil {
		snap := sess.Level.Snapshot()
		info.LevelName = sess.Level.Name()
		info.Status = sess.Level.Status()
		info.State = &snap
	}
	return info
}

func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err := s.sessions.UpdateLastAccessed(id); err != nil {
		s.log.Debug("failed to touch session", zap.String("session", id), zap.Error(err))
	}
	return sess, nil
}

// CreateSession creates a new game session on levelID, or on the default
// level when levelID is empty.
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cfg *config.LevelConfig
	if levelID == "" {
		cfg, levelID = s.configs.GetDefault()
		if cfg == nil {
			return nil, fmt.Errorf("no default level: %w", config.ErrLevelNotFound)
		}
	} else {
		var err error
		if cfg, err = s.levelConfig(levelID); err != nil {
			return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
		}
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.attach(sess, levelID, cfg); err != nil {
		_ = s.sessions.Delete(sess.ID)
		return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
	}

	s.log.Info("session created", zap.String("session", sess.ID), zap.String("level", levelID))
	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureLevel(sess); err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}
	return result, nil
}

// DeleteSession unloads the session's level and removes it
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, err := s.sessions.Get(sessionID); err == nil && sess.Level != nil {
		sess.Level.Unload()
		delete(s.pending, sess.ID)
	}
	return s.sessions.Delete(sessionID)
}

// SendIntent forwards one player intent to the session's level. Intents the
// actor is not ready for are ignored, not errors.
func (s *gameServiceImpl) SendIntent(ctx context.Context, sessionID string, intent level.Intent) (*IntentResult, error) {
	var pubs []publication
	defer s.flush(&pubs)
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureLevel(sess); err != nil {
		return nil, err
	}

	accepted, err := sess.Level.Apply(intent)
	if err != nil {
		return nil, err
	}

	events := s.drain(sess)
	snap := sess.Level.Snapshot()
	result := &IntentResult{
		Accepted: accepted,
		Message:  intentMessage(intent, accepted, snap.Actor.State),
		Events:   events,
		State:    &snap,
	}
	pubs = append(pubs, publication{sessionID: sess.ID, events: events, state: &snap})
	return result, nil
}

func intentMessage(in level.Intent, accepted bool, state engine.MotionState) string {
	if accepted {
		return fmt.Sprintf("%s accepted", in.Action)
	}
	return fmt.Sprintf("%s ignored while %s", in.Action, state)
}

// LoadLevel switches the session to another level
func (s *gameServiceImpl) LoadLevel(ctx context.Context, sessionID, levelID string) (*SessionInfo, error) {
	var pubs []publication
	defer s.flush(&pubs)
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	target := levelID
	switch levelID {
	case "", "replay":
		target = sess.LevelID
	case "next":
		next, ok := s.configs.NextLevel(sess.LevelID)
		if !ok {
			return nil, fmt.Errorf("%w after %s", ErrNoNextLevel, sess.LevelID)
		}
		target = next
	}

	cfg, err := s.levelConfig(target)
	if err != nil {
		return nil, fmt.Errorf("failed to load level %s: %w", target, err)
	}
	if err := s.attach(sess, target, cfg); err != nil {
		return nil, fmt.Errorf("failed to load level %s: %w", target, err)
	}
	if err := s.sessions.Save(sess.ID); err != nil {
		s.log.Warn("failed to persist session", zap.String("session", sess.ID), zap.Error(err))
	}

	s.log.Info("level loaded", zap.String("session", sess.ID), zap.String("level", target))
	info := s.info(sess)
	pubs = append(pubs, publication{sessionID: sess.ID, state: info.State})
	return info, nil
}

// GetState retrieves the current level snapshot
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*level.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureLevel(sess); err != nil {
		return nil, err
	}
	snap := sess.Level.Snapshot()
	return &snap, nil
}

// GetHistory returns paginated event history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.History
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	events := []level.Event{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = append(events, history[start:end]...)
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListLevels returns available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*config.LevelInfo, error) {
	return s.configs.ListLevels()
}

// GetLevelConfig loads a specific level configuration
func (s *gameServiceImpl) GetLevelConfig(ctx context.Context, levelID string) (*config.LevelConfig, error) {
	return s.levelConfig(levelID)
}

// SaveLevelConfig saves a level configuration to disk
func (s *gameServiceImpl) SaveLevelConfig(ctx context.Context, levelID string, cfg *config.LevelConfig) error {
	return s.configs.SaveLevel(levelID, cfg)
}

// Tick advances every loaded level by dt and publishes what changed.
func (s *gameServiceImpl) Tick(dt time.Duration) {
	var pubs []publication
	defer s.flush(&pubs)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions.List() {
		if sess.Level == nil {
			continue
		}
		sess.Level.Tick(dt)
		events := s.drain(sess)

		state := sess.Level.Actor().State()
		inMotion := state == engine.StateMoving || state == engine.StateRotating
		if len(events) == 0 && !inMotion {
			continue
		}
		snap := sess.Level.Snapshot()
		pubs = append(pubs, publication{sessionID: sess.ID, events: events, state: &snap})
	}
}
