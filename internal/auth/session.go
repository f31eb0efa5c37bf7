package auth

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the transient authenticated principal. It is never
// persisted: it lives exactly as long as the process considers the
// user present.
type Session struct {
	ID           string
	UserID       string
	TenantID     string
	Email        string
	Name         string
	Role         string
	CreatedAt    time.Time
	LastActivity time.Time
}

type sessionState struct {
	Session

	// warning flips when the idle window elapses. From then on plain
	// activity no longer resets the countdown; only an explicit
	// confirmation does. A stray background event must not be able to
	// suppress the presence prompt.
	warning   bool
	idleTimer *time.Timer
	warnTimer *time.Timer
}

type SessionConfig struct {
	// IdleTimeout is how long after the last tracked activity the
	// presence prompt opens.
	IdleTimeout time.Duration
	// WarningWindow is how long the prompt stays up before forced
	// logout.
	WarningWindow time.Duration
}

// SessionManager owns every live session and its idle countdown. Timer
// callbacks and user actions race on the same sessions; all paths are
// safe to run concurrently and ending a session twice is a no-op.
type SessionManager struct {
	cfg    SessionConfig
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState

	// onExpire runs outside the manager lock when an unconfirmed
	// warning window elapses. The auth service wires it to the forced
	// logout path.
	onExpire func(s Session)
}

func NewSessionManager(cfg SessionConfig, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*sessionState),
	}
}

// SetExpireHandler wires the forced-logout callback. Must be called
// before any session is created.
func (m *SessionManager) SetExpireHandler(fn func(s Session)) {
	m.onExpire = fn
}

func (m *SessionManager) Create(userID, tenantID, email, name, role string) *Session {
	now := time.Now()
	st := &sessionState{
		Session: Session{
			ID:           uuid.NewString(),
			UserID:       userID,
			TenantID:     tenantID,
			Email:        email,
			Name:         name,
			Role:         role,
			CreatedAt:    now,
			LastActivity: now,
		},
	}

	m.mu.Lock()
	m.sessions[st.ID] = st
	m.armIdleTimer(st)
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", st.ID, "user_id", userID, "tenant_id", tenantID)
	return &st.Session
}

// armIdleTimer (re)starts the idle countdown. Caller holds m.mu.
func (m *SessionManager) armIdleTimer(st *sessionState) {
	if st.idleTimer != nil {
		st.idleTimer.Stop()
	}
	if st.warnTimer != nil {
		st.warnTimer.Stop()
		st.warnTimer = nil
	}
	st.warning = false

	id := st.ID
	st.idleTimer = time.AfterFunc(m.cfg.IdleTimeout, func() {
		m.openWarning(id)
	})
}

func (m *SessionManager) openWarning(sessionID string) {
	m.mu.Lock()
	st, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	st.warning = true
	st.warnTimer = time.AfterFunc(m.cfg.WarningWindow, func() {
		m.expire(sessionID)
	})
	m.mu.Unlock()

	m.logger.Info("session idle warning opened", "session_id", sessionID)
}

func (m *SessionManager) expire(sessionID string) {
	m.mu.Lock()
	st, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		stopTimers(st)
	}
	m.mu.Unlock()

	if !ok {
		// Lost the race against an explicit logout; nothing to do.
		return
	}

	m.logger.Info("session expired after unconfirmed warning", "session_id", sessionID)
	if m.onExpire != nil {
		m.onExpire(st.Session)
	}
}

func (m *SessionManager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	copied := st.Session
	return &copied, true
}

// Touch records tracked activity. Before the warning opens it resets
// the idle countdown; once the warning is showing it deliberately does
// nothing.
func (m *SessionManager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok || st.warning {
		return
	}
	st.LastActivity = time.Now()
	m.armIdleTimer(st)
}

// ConfirmPresence dismisses an open warning and restarts the idle
// countdown. Returns false when the session is already gone, meaning
// the confirmation arrived too late.
func (m *SessionManager) ConfirmPresence(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	st.LastActivity = time.Now()
	m.armIdleTimer(st)
	return true
}

// WarningOpen reports whether the session is in its warning window.
func (m *SessionManager) WarningOpen(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	return ok && st.warning
}

// Destroy tears the session down. Idempotent: the second of two racing
// teardowns finds nothing and reports false.
func (m *SessionManager) Destroy(sessionID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	delete(m.sessions, sessionID)
	stopTimers(st)
	return st.Session, true
}

func stopTimers(st *sessionState) {
	if st.idleTimer != nil {
		st.idleTimer.Stop()
	}
	if st.warnTimer != nil {
		st.warnTimer.Stop()
	}
}
