package admin

import (
	"errors"

	"github.com/uplink-rewards/internal/http/response"
	"github.com/uplink-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// GetRewardSettings 获取奖励配置
func (h *Handler) GetRewardSettings(c *gin.Context) {
	setting, err := h.SettingService.GetRewardSetting()
	if err != nil {
		respondError(c, response.CodeInternal, "error.setting_fetch_failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateRewardSettings 更新奖励配置
func (h *Handler) UpdateRewardSettings(c *gin.Context) {
	var req service.RewardSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	setting, err := h.SettingService.UpdateRewardSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrRewardConfigInvalid) {
			respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "error.setting_save_failed", err)
		return
	}
	requestLog(c).Infow("reward_setting_updated", "enabled", setting.Enabled)
	response.Success(c, setting)
}
