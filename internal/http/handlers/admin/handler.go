package admin

import "github.com/uplink-rewards/internal/provider"

// Handler 内部服务接口处理器入口
// 说明：仅供事件生产方、发放服务与运营后台调用，鉴权走服务令牌 + RBAC。
type Handler struct {
	*provider.Container
}

// New 创建内部接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
