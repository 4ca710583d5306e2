package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identityDomain "github.com/davicafu/hexatodo/internal/identity/domain"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
	"github.com/davicafu/hexatodo/pkg/utils"
)

const maxTrendDays = 90

// CurrentPrincipal es lo único que el handler necesita de la identidad.
type CurrentPrincipal interface {
	Current() (identityDomain.Principal, bool)
}

// AnalyticsHandler expone la tendencia diaria del principal activo.
type AnalyticsHandler struct {
	analytics taskDomain.TaskAnalyticsRepository
	identity  CurrentPrincipal
	log       *zap.Logger
	now       func() time.Time
}

func NewAnalyticsHandler(analytics taskDomain.TaskAnalyticsRepository, identity CurrentPrincipal, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		identity:  identity,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DailyTrend endpoint GET /analytics/trend?days=7
func (h *AnalyticsHandler) DailyTrend(c *gin.Context) {
	principal, ok := h.identity.Current()
	if !ok {
		utils.SendUnauthorized(c, taskDomain.ErrUnauthenticated.Error())
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > maxTrendDays {
		utils.SendBadRequest(c, "days must be between 1 and 90")
		return
	}

	end := h.now()
	start := taskDomain.NormalizeDate(end).AddDate(0, 0, -(days - 1))
	trend, err := h.analytics.GetDailyTrend(c.Request.Context(), principal.ID, start, end)
	if err != nil {
		h.log.Error("Failed to load task trend", zap.String("owner_id", principal.ID.String()), zap.Error(err))
		utils.SendError(c, http.StatusBadGateway, "could not load analytics")
		return
	}
	utils.SendSuccess(c, http.StatusOK, trend)
}
