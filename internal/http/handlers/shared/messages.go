package shared

import "fmt"

// 错误提示文案
var messages = map[string]string{
	"error.unauthorized":           "未授权",
	"error.forbidden":              "无权访问",
	"error.bad_request":            "请求参数错误",
	"error.internal":               "服务器内部错误",
	"error.jwt_secret_missing":     "鉴权密钥未配置",
	"error.auth_header_missing":    "缺少 Authorization 请求头",
	"error.auth_header_invalid":    "Authorization 格式错误",
	"error.token_invalid":          "令牌无效",
	"error.user_id_invalid":        "用户ID无效",
	"error.user_id_type_invalid":   "用户ID类型错误",
	"error.rate_limited":           "请求过于频繁，请 %d 秒后再试",
	"error.claim_too_many":         "领取过于频繁，请 %d 秒后再试",
	"error.level_invalid":          "层级参数无效",
	"error.id_invalid":             "ID 无效",
	"error.event_enqueue_failed":   "事件投递失败",
	"error.event_invalid":          "事件参数无效",
	"error.setting_invalid":        "奖励配置无效",
	"error.setting_fetch_failed":   "读取奖励配置失败",
	"error.setting_save_failed":    "保存奖励配置失败",
	"error.stats_fetch_failed":     "读取统计失败",
	"error.commission_not_found":   "佣金记录不存在",
	"error.commission_status":      "佣金状态不允许该操作",
	"error.commission_update":      "更新佣金状态失败",
	"error.bonus_level_not_found":  "奖励等级不存在",
	"error.bonus_not_achieved":     "团队业绩未达到等级门槛",
	"error.bonus_already_claimed":  "该等级奖励已领取",
	"error.bonus_claim_failed":     "领取奖励失败",
	"error.bonus_claim_not_found":  "奖励领取记录不存在",
	"error.bonus_claim_status":     "奖励领取状态不允许该操作",
	"error.reward_disabled":        "奖励功能未开启",
	"error.team_fetch_failed":      "读取团队信息失败",
}

// Message 按 key 取提示文案，未登记的 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

// Messagef 带参数的提示文案
func Messagef(key string, args ...interface{}) string {
	return fmt.Sprintf(Message(key), args...)
}
