package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	identityDomain "github.com/davicafu/hexatodo/internal/identity/domain"
)

type fakeSessions struct {
	session *identityDomain.Session
}

func (f *fakeSessions) SignIn(ctx context.Context, token string) (identityDomain.Session, error) {
	if token != "valido" {
		return identityDomain.Session{}, identityDomain.ErrInvalidToken
	}
	f.session = &identityDomain.Session{Principal: identityDomain.Principal{ID: uuid.New(), Email: "ana@example.com"}, AccessToken: token}
	return *f.session, nil
}

func (f *fakeSessions) SignOut(ctx context.Context) error {
	if f.session == nil {
		return identityDomain.ErrNoSession
	}
	f.session = nil
	return nil
}

func (f *fakeSessions) Session() (identityDomain.Session, bool) {
	if f.session == nil {
		return identityDomain.Session{}, false
	}
	return *f.session, true
}

func setupRouter() (*gin.Engine, *fakeSessions) {
	gin.SetMode(gin.TestMode)
	fake := &fakeSessions{}
	r := gin.New()
	RegisterSessionRoutes(r, NewSessionHandler(fake, zap.NewNop()))
	return r, fake
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionRoutes_Lifecycle(t *testing.T) {
	r, _ := setupRouter()

	w := do(r, http.MethodGet, "/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/session", gin.H{"accessToken": "valido"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "valido", "el token no se devuelve")
	assert.Contains(t, w.Body.String(), "ana@example.com")

	w = do(r, http.MethodGet, "/session", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodDelete, "/session", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionRoutes_BadInput(t *testing.T) {
	r, _ := setupRouter()

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/session", gin.H{}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/session", gin.H{"accessToken": "otro"}).Code)
}
