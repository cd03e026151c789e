package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/domain"
	"github.com/mediflash/mediflash-api/internal/domain/srs"
	"github.com/mediflash/mediflash-api/internal/events"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/mediflash/mediflash-api/internal/store"
)

// CardRatedPayload is the payload of events.TypeCardRated.
type CardRatedPayload struct {
	SessionID uuid.UUID     `json:"session_id"`
	UserID    uuid.UUID     `json:"user_id"`
	DeckID    uuid.UUID     `json:"deck_id"`
	CardID    uuid.UUID     `json:"card_id"`
	Rating    domain.Rating `json:"rating"`
	WasNew    bool          `json:"was_new"`
	Day       string        `json:"day"`
	RatedAt   time.Time     `json:"rated_at"`
}

// SessionFinishedPayload is the payload of events.TypeSessionFinished.
type SessionFinishedPayload struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	DeckID    uuid.UUID `json:"deck_id"`
	Phase     Phase     `json:"phase"`
	Counters  Counters  `json:"counters"`
}

// Limits are the new-card limits applied when a session starts.
type Limits struct {
	// NewCardsPerDay is the daily new-card cap per user.
	NewCardsPerDay int
	// NewCardsPerSession bounds the new cards queued per session;
	// zero means whatever remains of the daily cap.
	NewCardsPerSession int
}

type sessionKey struct {
	userID uuid.UUID
	deckID uuid.UUID
}

// Manager owns the live study sessions of all users.
//
// Starting a session for a user and deck that already has a live session
// supersedes the older one, which is exited. Finished sessions are dropped
// from the registry after their final view has been returned.
type Manager struct {
	decks    store.DeckStore
	progress store.ProgressStore
	rater    srs.Service
	emitter  events.EventEmitter
	limits   Limits
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	active   map[sessionKey]uuid.UUID
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerClock replaces time.Now as the manager's time source.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithEmitter publishes study events to emitter.
func WithEmitter(emitter events.EventEmitter) ManagerOption {
	return func(m *Manager) {
		m.emitter = emitter
	}
}

// NewManager creates a session Manager.
func NewManager(
	decks store.DeckStore,
	progress store.ProgressStore,
	rater srs.Service,
	limits Limits,
	logger *slog.Logger,
	opts ...ManagerOption,
) *Manager {
	if decks == nil {
		panic("decks cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if rater == nil {
		panic("rater cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		decks:    decks,
		progress: progress,
		rater:    rater,
		limits:   limits,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "study_manager")),
		sessions: make(map[uuid.UUID]*Session),
		active:   make(map[sessionKey]uuid.UUID),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a study session for userID on deckID and returns its first view.
//
// The session's new-card cap is what remains of today's daily cap for the
// user. Returns store.ErrDeckNotFound for unknown decks and ErrDeckNotOwned
// when the deck belongs to someone else. An empty queue is not an error: the
// returned view is already PhaseCompleted.
func (m *Manager) Start(ctx context.Context, userID, deckID uuid.UUID) (View, error) {
	log := logger.FromContextOrDefault(ctx, m.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("deck_id", deckID.String()))

	deck, err := m.decks.GetDeck(ctx, deckID)
	if err != nil {
		if !errors.Is(err, store.ErrDeckNotFound) {
			log.Error("failed to load deck", slog.String("error", err.Error()))
		}
		return View{}, fmt.Errorf("failed to load deck: %w", err)
	}
	if deck.UserID != userID {
		log.Warn("user does not own deck", slog.String("owner_id", deck.UserID.String()))
		return View{}, ErrDeckNotOwned
	}

	cards, err := m.decks.GetCards(ctx, deckID)
	if err != nil {
		log.Error("failed to load cards", slog.String("error", err.Error()))
		return View{}, fmt.Errorf("failed to load cards: %w", err)
	}

	now := m.now()
	progress, err := m.progress.GetDailyProgress(ctx, userID, domain.DayOf(now))
	if err != nil {
		log.Error("failed to load daily progress", slog.String("error", err.Error()))
		return View{}, fmt.Errorf("failed to load daily progress: %w", err)
	}

	newCardCap := progress.RemainingNew(m.limits.NewCardsPerDay)
	queueLimit := m.limits.NewCardsPerSession
	if queueLimit == 0 {
		queueLimit = newCardCap
	}

	queue := srs.BuildQueue(cards, now, queueLimit)
	session := NewSession(userID, deckID, queue, newCardCap, m.rater, m.decks,
		WithClock(m.now),
		WithOnRated(m.cardRated(deckID)),
	)

	superseded := m.register(session)
	if superseded != nil {
		log.Info("superseding previous study session",
			slog.String("previous_session_id", superseded.ID().String()))
		m.finished(ctx, superseded, superseded.Exit())
	}

	view := session.View()
	log.Info("study session started",
		slog.String("session_id", session.ID().String()),
		slog.Int("queue_length", view.QueueLength),
		slog.Int("new_card_cap", newCardCap),
		slog.Int("learned_today", progress.Learned))

	if view.Phase.Terminal() {
		m.unregister(session)
		m.finished(ctx, session, view)
	}
	return view, nil
}

// Get returns the current view of a session.
func (m *Manager) Get(ctx context.Context, userID, sessionID uuid.UUID) (View, error) {
	session, err := m.lookup(userID, sessionID)
	if err != nil {
		return View{}, err
	}
	return session.View(), nil
}

// Reveal shows the answer of the current card.
func (m *Manager) Reveal(ctx context.Context, userID, sessionID uuid.UUID) (View, error) {
	return m.do(ctx, userID, sessionID, func(s *Session) (View, error) {
		return s.Reveal()
	})
}

// Rate applies a rating to the current card of a session.
func (m *Manager) Rate(
	ctx context.Context,
	userID, sessionID uuid.UUID,
	rating domain.Rating,
) (View, error) {
	return m.do(ctx, userID, sessionID, func(s *Session) (View, error) {
		return s.Rate(ctx, rating)
	})
}

// Retry re-attempts persistence of a session's failed rating.
func (m *Manager) Retry(ctx context.Context, userID, sessionID uuid.UUID) (View, error) {
	return m.do(ctx, userID, sessionID, func(s *Session) (View, error) {
		return s.Retry(ctx)
	})
}

// Decide resolves a session's limit decision.
func (m *Manager) Decide(
	ctx context.Context,
	userID, sessionID uuid.UUID,
	decision Decision,
) (View, error) {
	return m.do(ctx, userID, sessionID, func(s *Session) (View, error) {
		return s.Decide(decision)
	})
}

// Exit ends a session.
func (m *Manager) Exit(ctx context.Context, userID, sessionID uuid.UUID) (View, error) {
	return m.do(ctx, userID, sessionID, func(s *Session) (View, error) {
		return s.Exit(), nil
	})
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ExpireIdle exits sessions without activity for longer than maxIdle and
// returns how many were removed.
func (m *Manager) ExpireIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*Session
	for _, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.unregister(s)
		m.finished(ctx, s, s.Exit())
	}
	if len(idle) > 0 {
		m.logger.InfoContext(ctx, "expired idle study sessions", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// do runs op against a live session and drops the session once it is finished.
func (m *Manager) do(
	ctx context.Context,
	userID, sessionID uuid.UUID,
	op func(s *Session) (View, error),
) (View, error) {
	session, err := m.lookup(userID, sessionID)
	if err != nil {
		return View{}, err
	}

	view, err := op(session)
	if err != nil {
		log := logger.FromContextOrDefault(ctx, m.logger)
		switch {
		case errors.Is(err, ErrPersistenceFailure):
			log.Error("failed to persist rated card",
				slog.String("session_id", sessionID.String()),
				slog.String("error", err.Error()))
		default:
			log.Debug("study action rejected",
				slog.String("session_id", sessionID.String()),
				slog.String("error", err.Error()))
		}
		return view, err
	}

	if view.Phase.Terminal() && m.unregister(session) {
		m.finished(ctx, session, view)
	}
	return view, nil
}

func (m *Manager) lookup(userID, sessionID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.UserID() != userID {
		return nil, ErrSessionNotOwned
	}
	return session, nil
}

// register adds session and returns the live session it supersedes, if any.
func (m *Manager) register(session *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{userID: session.UserID(), deckID: session.DeckID()}
	var previous *Session
	if id, ok := m.active[key]; ok {
		previous = m.sessions[id]
		delete(m.sessions, id)
	}

	m.sessions[session.ID()] = session
	m.active[key] = session.ID()
	return previous
}

// unregister removes session and reports whether it was still registered.
func (m *Manager) unregister(session *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID()]; !ok {
		return false
	}
	delete(m.sessions, session.ID())

	key := sessionKey{userID: session.UserID(), deckID: session.DeckID()}
	if m.active[key] == session.ID() {
		delete(m.active, key)
	}
	return true
}

func (m *Manager) cardRated(deckID uuid.UUID) func(ctx context.Context, rated RatedCard) {
	return func(ctx context.Context, rated RatedCard) {
		m.emit(ctx, events.TypeCardRated, CardRatedPayload{
			SessionID: rated.SessionID,
			UserID:    rated.UserID,
			DeckID:    deckID,
			CardID:    rated.Card.ID,
			Rating:    rated.Rating,
			WasNew:    rated.WasNew,
			Day:       domain.DayOf(rated.RatedAt),
			RatedAt:   rated.RatedAt,
		})
	}
}

func (m *Manager) finished(ctx context.Context, session *Session, view View) {
	logger.FromContextOrDefault(ctx, m.logger).Info("study session finished",
		slog.String("session_id", session.ID().String()),
		slog.String("phase", string(view.Phase)),
		slog.Int("new_learned", view.Counters.NewLearned),
		slog.Int("reviewed", view.Counters.Reviewed))

	m.emit(ctx, events.TypeSessionFinished, SessionFinishedPayload{
		SessionID: session.ID(),
		UserID:    session.UserID(),
		DeckID:    session.DeckID(),
		Phase:     view.Phase,
		Counters:  view.Counters,
	})
}

// emit publishes an event. Failures are logged and never undo the rating
// that caused them.
func (m *Manager) emit(ctx context.Context, eventType string, payload any) {
	if m.emitter == nil {
		return
	}

	log := logger.FromContextOrDefault(ctx, m.logger)
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		log.Error("failed to create event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := m.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("event handler failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
