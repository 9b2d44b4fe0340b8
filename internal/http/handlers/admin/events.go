package admin

import (
	"strings"
	"time"

	"github.com/uplink-rewards/internal/http/response"
	"github.com/uplink-rewards/internal/queue"
	"github.com/uplink-rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PnLEventRequest 盈亏事件请求
type PnLEventRequest struct {
	EventID    string          `json:"event_id" binding:"required"`
	UserID     uint            `json:"user_id" binding:"required"`
	PnLAmount  decimal.Decimal `json:"pnl_amount"`
	Currency   string          `json:"currency"`
	OccurredAt *time.Time      `json:"occurred_at"`
}

// InvestmentEventRequest 投资事件请求
type InvestmentEventRequest struct {
	EventID    string          `json:"event_id" binding:"required"`
	UserID     uint            `json:"user_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	OccurredAt *time.Time      `json:"occurred_at"`
}

// ReferralSignupRequest 注册绑定事件请求
type ReferralSignupRequest struct {
	EventID      string     `json:"event_id" binding:"required"`
	UserID       uint       `json:"user_id" binding:"required"`
	ParentUserID uint       `json:"parent_user_id"`
	OccurredAt   *time.Time `json:"occurred_at"`
}

// IngestPnLEvent 接收盈亏事件
func (h *Handler) IngestPnLEvent(c *gin.Context) {
	var req PnLEventRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.EventID) == "" {
		respondError(c, response.CodeBadRequest, "error.event_invalid", err)
		return
	}
	payload := queue.PnLEventPayload{
		EventID:    strings.TrimSpace(req.EventID),
		UserID:     req.UserID,
		PnLAmount:  req.PnLAmount,
		Currency:   req.Currency,
		OccurredAt: occurredAtOrNow(req.OccurredAt),
	}
	err := h.Dispatcher.DispatchPnLEvent(c.Request.Context(), payload)
	h.respondDispatch(c, "pnl", payload.EventID, err)
}

// IngestInvestmentEvent 接收投资事件
func (h *Handler) IngestInvestmentEvent(c *gin.Context) {
	var req InvestmentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.EventID) == "" {
		respondError(c, response.CodeBadRequest, "error.event_invalid", err)
		return
	}
	payload := queue.InvestmentEventPayload{
		EventID:    strings.TrimSpace(req.EventID),
		UserID:     req.UserID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		OccurredAt: occurredAtOrNow(req.OccurredAt),
	}
	err := h.Dispatcher.DispatchInvestmentEvent(c.Request.Context(), payload)
	h.respondDispatch(c, "investment", payload.EventID, err)
}

// IngestReferralSignup 接收注册绑定事件
func (h *Handler) IngestReferralSignup(c *gin.Context) {
	var req ReferralSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.EventID) == "" {
		respondError(c, response.CodeBadRequest, "error.event_invalid", err)
		return
	}
	payload := queue.ReferralSignupPayload{
		EventID:      strings.TrimSpace(req.EventID),
		UserID:       req.UserID,
		ParentUserID: req.ParentUserID,
		OccurredAt:   occurredAtOrNow(req.OccurredAt),
	}
	err := h.Dispatcher.DispatchReferralSignup(c.Request.Context(), payload)
	h.respondDispatch(c, "signup", payload.EventID, err)
}

// respondDispatch 同步处理模式下业务拒绝返回 400，其余失败由调用方重试
func (h *Handler) respondDispatch(c *gin.Context, kind, eventID string, err error) {
	if err == nil {
		response.Success(c, gin.H{"accepted": true, "event_id": eventID})
		return
	}
	if service.IsPermanentEventError(err) {
		requestLog(c).Warnw("internal_event_rejected",
			"kind", kind,
			"event_id", eventID,
			"error", err,
		)
		respondErrorWithMsg(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	respondError(c, response.CodeInternal, "error.event_enqueue_failed", err)
}

func occurredAtOrNow(value *time.Time) time.Time {
	if value == nil || value.IsZero() {
		return time.Now()
	}
	return *value
}
