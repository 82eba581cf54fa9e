package admin

import (
	"errors"
	"strconv"
	"strings"

	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// GetDashboardStats 获取用户与模型统计
func (h *Handler) GetDashboardStats(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	data, err := h.DashboardService.GetStats(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.dashboard_fetch_failed", err)
		return
	}
	response.Success(c, data)
}

func parseDashboardQuery(c *gin.Context) (service.DashboardQueryInput, error) {
	from, err := handlershared.ParseTimeNullable(c.Query("from"))
	if err != nil {
		return service.DashboardQueryInput{}, err
	}
	to, err := handlershared.ParseTimeNullable(c.Query("to"))
	if err != nil {
		return service.DashboardQueryInput{}, err
	}

	forceRefresh := false
	if raw := strings.TrimSpace(c.Query("force_refresh")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return service.DashboardQueryInput{}, err
		}
		forceRefresh = parsed
	}

	return service.DashboardQueryInput{
		Range:        strings.TrimSpace(c.DefaultQuery("range", "7d")),
		From:         from,
		To:           to,
		Timezone:     strings.TrimSpace(c.Query("tz")),
		ForceRefresh: forceRefresh,
	}, nil
}
