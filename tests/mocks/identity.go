package mocks

import (
	"sync"

	"github.com/google/uuid"

	identityDomain "github.com/davicafu/hexatodo/internal/identity/domain"
)

// FakeIdentity es un proveedor de identidad controlado por el test.
type FakeIdentity struct {
	mu        sync.RWMutex
	principal *identityDomain.Principal
	subs      []chan identityDomain.PrincipalChange
}

// NewFakeIdentity arranca sin principal.
func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{}
}

// NewSignedInIdentity arranca con un principal nuevo ya autenticado.
func NewSignedInIdentity() (*FakeIdentity, identityDomain.Principal) {
	p := identityDomain.Principal{ID: uuid.New(), Email: "test@example.com"}
	f := &FakeIdentity{principal: &p}
	return f, p
}

func (f *FakeIdentity) Current() (identityDomain.Principal, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.principal == nil {
		return identityDomain.Principal{}, false
	}
	return *f.principal, true
}

func (f *FakeIdentity) Subscribe(bufferSize int) (<-chan identityDomain.PrincipalChange, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan identityDomain.PrincipalChange, bufferSize)
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

// Set cambia el principal (nil = ninguno) y notifica a los suscriptores.
func (f *FakeIdentity) Set(p *identityDomain.Principal) {
	f.mu.Lock()
	previous := f.principal
	f.principal = p
	subs := append([]chan identityDomain.PrincipalChange(nil), f.subs...)
	f.mu.Unlock()

	for _, ch := range subs {
		ch <- identityDomain.PrincipalChange{Previous: previous, Current: p}
	}
}
