package public

import (
	"errors"

	handlershared "github.com/uplink-rewards/internal/http/handlers/shared"
	"github.com/uplink-rewards/internal/http/response"
	"github.com/uplink-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var bonusClaimErrorRules = []mappedHandlerError{
	{target: service.ErrUserIDInvalid, code: response.CodeBadRequest, key: "error.user_id_invalid"},
	{target: service.ErrRewardDisabled, code: response.CodeForbidden, key: "error.reward_disabled"},
	{target: service.ErrBonusLevelNotFound, code: response.CodeNotFound, key: "error.bonus_level_not_found"},
	{target: service.ErrNotAchieved, code: response.CodeBadRequest, key: "error.bonus_not_achieved"},
	{target: service.ErrAlreadyClaimed, code: response.CodeConflict, key: "error.bonus_already_claimed"},
}

var statsErrorRules = []mappedHandlerError{
	{target: service.ErrUserIDInvalid, code: response.CodeBadRequest, key: "error.user_id_invalid"},
}

func respondBonusClaimError(c *gin.Context, err error) {
	respondWithMappedError(c, err, bonusClaimErrorRules, response.CodeInternal, "error.bonus_claim_failed")
}

func respondStatsError(c *gin.Context, err error) {
	respondWithMappedError(c, err, statsErrorRules, response.CodeInternal, "error.stats_fetch_failed")
}
