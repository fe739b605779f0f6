package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

// statusFor 业务错误对应的 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotRegistered),
		errors.Is(err, models.ErrChallengeNotFound),
		errors.Is(err, models.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyRegistered),
		errors.Is(err, models.ErrSessionAlreadyActive),
		errors.Is(err, models.ErrNoActiveSession),
		errors.Is(err, models.ErrSoldOut):
		return http.StatusConflict
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrInvalidChoice),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrSelfTarget),
		errors.Is(err, models.ErrEmptyParty),
		errors.Is(err, models.ErrPartyTooLarge),
		errors.Is(err, models.ErrUnitNotOwned),
		errors.Is(err, models.ErrLevelRequirementNotMet),
		errors.Is(err, models.ErrUnknownEffect):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError 写错误响应。500 只返回笼统信息，细节写日志。
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	c.Error(err)

	if status == http.StatusInternalServerError {
		h.logger.Error("处理请求出错", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "服务器内部错误"})
		return
	}

	body := gin.H{"error": err.Error()}
	var cooldown *models.CooldownError
	if errors.As(err, &cooldown) {
		seconds := int(math.Ceil(cooldown.Remaining.Seconds()))
		c.Header("Retry-After", strconv.Itoa(seconds))
		body["retry_after"] = seconds
	}
	c.JSON(status, body)
}
