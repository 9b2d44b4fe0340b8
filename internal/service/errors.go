package service

import "errors"

// 推荐关系
var (
	ErrUserIDInvalid    = errors.New("用户ID无效")
	ErrDuplicateParent  = errors.New("用户已绑定推荐人")
	ErrCycleDetected    = errors.New("推荐关系形成环")
	ErrGraphIntegrity   = errors.New("推荐链数据异常")
	ErrReferralNotFound = errors.New("推荐关系不存在")
)

// 事件处理
var (
	ErrEventInvalid        = errors.New("事件参数无效")
	ErrSourceUserNotFound  = errors.New("事件来源用户不存在")
	ErrCurrencyUnsupported = errors.New("不支持的币种")
)

// 佣金
var (
	ErrCommissionNotFound      = errors.New("佣金记录不存在")
	ErrCommissionStatusInvalid = errors.New("佣金状态不允许该操作")
)

// 等级奖励
var (
	ErrBonusLevelNotFound      = errors.New("奖励等级不存在")
	ErrNotAchieved             = errors.New("团队业绩未达到等级门槛")
	ErrAlreadyClaimed          = errors.New("该等级奖励已领取")
	ErrBonusClaimNotFound      = errors.New("奖励领取记录不存在")
	ErrBonusClaimStatusInvalid = errors.New("奖励领取状态不允许该操作")
)

// 配置
var (
	ErrRewardDisabled      = errors.New("奖励功能未开启")
	ErrRewardConfigInvalid = errors.New("奖励配置无效")
)

// IsPermanentEventError 判断事件错误是否重试也无法成功
func IsPermanentEventError(err error) bool {
	switch {
	case errors.Is(err, ErrEventInvalid),
		errors.Is(err, ErrUserIDInvalid),
		errors.Is(err, ErrSourceUserNotFound),
		errors.Is(err, ErrCurrencyUnsupported),
		errors.Is(err, ErrDuplicateParent),
		errors.Is(err, ErrCycleDetected):
		return true
	default:
		return false
	}
}
