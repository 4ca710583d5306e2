package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identityApp "github.com/davicafu/hexatodo/internal/identity/application"
	identityDomain "github.com/davicafu/hexatodo/internal/identity/domain"
	"github.com/davicafu/hexatodo/pkg/utils"
)

// SessionService es lo que el handler necesita del proveedor de identidad.
type SessionService interface {
	SignIn(ctx context.Context, accessToken string) (identityDomain.Session, error)
	SignOut(ctx context.Context) error
	Session() (identityDomain.Session, bool)
}

type SessionHandler struct {
	service SessionService
	log     *zap.Logger
}

func NewSessionHandler(service SessionService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{service: service, log: log}
}

type signInRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

func (h *SessionHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, "accessToken is required")
		return
	}

	session, err := h.service.SignIn(c.Request.Context(), req.AccessToken)
	if err != nil {
		if identityApp.IsAuthError(err) {
			utils.SendUnauthorized(c, err.Error())
			return
		}
		h.log.Error("Sign in failed", zap.Error(err))
		utils.SendInternalServerError(c, "could not sign in")
		return
	}
	utils.SendSuccess(c, http.StatusOK, session)
}

func (h *SessionHandler) Current(c *gin.Context) {
	session, ok := h.service.Session()
	if !ok {
		utils.SendUnauthorized(c, identityDomain.ErrNoSession.Error())
		return
	}
	utils.SendSuccess(c, http.StatusOK, session)
}

func (h *SessionHandler) SignOut(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context()); err != nil {
		if errors.Is(err, identityDomain.ErrNoSession) {
			utils.SendUnauthorized(c, err.Error())
			return
		}
		utils.SendInternalServerError(c, "could not sign out")
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterSessionRoutes monta /session en el router.
func RegisterSessionRoutes(r gin.IRouter, h *SessionHandler) {
	group := r.Group("/session")
	{
		group.POST("", h.SignIn)
		group.GET("", h.Current)
		group.DELETE("", h.SignOut)
	}
}
