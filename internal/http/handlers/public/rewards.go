package public

import (
	"strconv"
	"strings"

	handlershared "github.com/uplink-rewards/internal/http/handlers/shared"
	"github.com/uplink-rewards/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCommissions 分页查询我的佣金，可按层级筛选
func (h *Handler) GetCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	level := 0
	if raw := strings.TrimSpace(c.Query("level")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(c, response.CodeBadRequest, "error.level_invalid", nil)
			return
		}
		level = parsed
	}
	page, pageSize := handlershared.ParsePagination(c)

	records, total, err := h.StatsService.GetUserCommissions(uid, level, page, pageSize)
	if err != nil {
		respondStatsError(c, err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}

// GetCommissionStats 我的佣金汇总
func (h *Handler) GetCommissionStats(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	stats, err := h.StatsService.GetCommissionStats(c.Request.Context(), uid)
	if err != nil {
		respondStatsError(c, err)
		return
	}
	response.Success(c, stats)
}

// GetTurnoverStats 我的团队业绩与等级进度
func (h *Handler) GetTurnoverStats(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	stats, err := h.StatsService.GetTurnoverStats(c.Request.Context(), uid)
	if err != nil {
		respondStatsError(c, err)
		return
	}
	response.Success(c, stats)
}

// GetLevels 全部等级的达成与领取状态
func (h *Handler) GetLevels(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	statuses, err := h.StatsService.GetLevelStatuses(uid)
	if err != nil {
		respondStatsError(c, err)
		return
	}
	response.Success(c, statuses)
}

// ClaimLevelBonus 领取等级奖励
func (h *Handler) ClaimLevelBonus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	levelID := strings.TrimSpace(c.Param("level_id"))
	if levelID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	claim, err := h.BonusService.Claim(c.Request.Context(), uid, levelID)
	if err != nil {
		respondBonusClaimError(c, err)
		return
	}
	h.StatsService.InvalidateUser(c.Request.Context(), uid)
	response.Success(c, claim)
}

// GetTeam 团队概览
func (h *Handler) GetTeam(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	overview, err := h.ReferralService.GetTeamOverview(uid)
	if err != nil {
		respondWithMappedError(c, err, statsErrorRules, response.CodeInternal, "error.team_fetch_failed")
		return
	}
	response.Success(c, overview)
}

// GetDirectReferrals 分页查询直推下级
func (h *Handler) GetDirectReferrals(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	rows, total, err := h.ReferralService.ListDirectReferrals(uid, page, pageSize)
	if err != nil {
		respondWithMappedError(c, err, statsErrorRules, response.CodeInternal, "error.team_fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
