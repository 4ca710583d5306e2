package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	identityDomain "github.com/davicafu/hexatodo/internal/identity/domain"
)

// SessionManager es el proveedor de identidad de la aplicación: guarda la sesión activa
// y notifica cada cambio de principal a los suscriptores.
type SessionManager struct {
	verifier identityDomain.TokenVerifier
	log      *zap.Logger
	now      func() time.Time

	mu          sync.RWMutex
	session     *identityDomain.Session
	subscribers map[int]chan identityDomain.PrincipalChange
	nextSub     int
	closed      bool
}

func NewSessionManager(verifier identityDomain.TokenVerifier, log *zap.Logger) *SessionManager {
	return &SessionManager{
		verifier:    verifier,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		subscribers: make(map[int]chan identityDomain.PrincipalChange),
	}
}

// SignIn valida el token y abre la sesión. Sustituye a cualquier sesión anterior.
func (m *SessionManager) SignIn(ctx context.Context, accessToken string) (identityDomain.Session, error) {
	if err := ctx.Err(); err != nil {
		return identityDomain.Session{}, err
	}
	session, err := m.verifier.Verify(accessToken)
	if err != nil {
		m.log.Info("Sign in rejected", zap.Error(err))
		return identityDomain.Session{}, err
	}
	if session.Expired(m.now()) {
		return identityDomain.Session{}, identityDomain.ErrExpiredToken
	}

	m.mu.Lock()
	previous := m.currentLocked()
	m.session = &session
	current := session.Principal
	m.mu.Unlock()

	m.log.Info("Signed in", zap.String("owner_id", current.ID.String()))
	if previous == nil || previous.ID != current.ID {
		m.notify(identityDomain.PrincipalChange{Previous: previous, Current: &current})
	}
	return session, nil
}

// SignOut cierra la sesión activa.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	previous := m.currentLocked()
	m.session = nil
	m.mu.Unlock()

	if previous == nil {
		return identityDomain.ErrNoSession
	}
	m.log.Info("Signed out", zap.String("owner_id", previous.ID.String()))
	m.notify(identityDomain.PrincipalChange{Previous: previous})
	return nil
}

// Current devuelve el principal activo o false si no hay sesión (o ha caducado).
func (m *SessionManager) Current() (identityDomain.Principal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.currentLocked()
	if p == nil {
		return identityDomain.Principal{}, false
	}
	return *p, true
}

// Session devuelve la sesión activa.
func (m *SessionManager) Session() (identityDomain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.currentLocked() == nil {
		return identityDomain.Session{}, false
	}
	return *m.session, true
}

// AccessToken permite a los adapters reenviar el token al store remoto.
func (m *SessionManager) AccessToken() (string, bool) {
	s, ok := m.Session()
	if !ok {
		return "", false
	}
	return s.AccessToken, true
}

// Subscribe registra un oyente de cambios de principal. La función devuelta lo da de baja.
func (m *SessionManager) Subscribe(bufferSize int) (<-chan identityDomain.PrincipalChange, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan identityDomain.PrincipalChange, bufferSize)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subscribers[id]; ok {
				delete(m.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close cierra todas las suscripciones.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
}

func (m *SessionManager) currentLocked() *identityDomain.Principal {
	if m.session == nil || m.session.Expired(m.now()) {
		return nil
	}
	p := m.session.Principal
	return &p
}

func (m *SessionManager) notify(change identityDomain.PrincipalChange) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- change:
		default:
			m.log.Warn("Principal change dropped, subscriber buffer full")
		}
	}
}

// IsAuthError indica si err procede de la verificación del token.
func IsAuthError(err error) bool {
	return errors.Is(err, identityDomain.ErrInvalidToken) || errors.Is(err, identityDomain.ErrExpiredToken)
}
