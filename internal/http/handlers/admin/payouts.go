package admin

import (
	"errors"

	"github.com/uplink-rewards/internal/http/response"
	"github.com/uplink-rewards/internal/service"

	"github.com/gin-gonic/gin"
)

// MarkCommissionPaid 发放服务回写佣金已发放
func (h *Handler) MarkCommissionPaid(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	record, err := h.CommissionService.MarkCommissionPaid(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCommissionNotFound):
			respondError(c, response.CodeNotFound, "error.commission_not_found", nil)
		case errors.Is(err, service.ErrCommissionStatusInvalid):
			respondError(c, response.CodeConflict, "error.commission_status", nil)
		default:
			respondError(c, response.CodeInternal, "error.commission_update", err)
		}
		return
	}
	h.StatsService.InvalidateUser(c.Request.Context(), record.BeneficiaryUserID)
	requestLog(c).Infow("commission_marked_paid",
		"commission_id", record.ID,
		"beneficiary_user_id", record.BeneficiaryUserID,
	)
	response.Success(c, record)
}

// MarkBonusSettled 发放服务回写等级奖励已到账
func (h *Handler) MarkBonusSettled(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	claim, err := h.BonusService.MarkBonusSettled(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBonusClaimNotFound):
			respondError(c, response.CodeNotFound, "error.bonus_claim_not_found", nil)
		case errors.Is(err, service.ErrBonusClaimStatusInvalid):
			respondError(c, response.CodeConflict, "error.bonus_claim_status", nil)
		default:
			respondError(c, response.CodeInternal, "error.bonus_claim_failed", err)
		}
		return
	}
	h.StatsService.InvalidateUser(c.Request.Context(), claim.UserID)
	response.Success(c, claim)
}
