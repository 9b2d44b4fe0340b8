package shared

import (
	"github.com/uplink-rewards/internal/http/response"

	"github.com/gin-gonic/gin"
)

// UserIDContextKey 用户鉴权中间件写入的上下文 key
const UserIDContextKey = "user_id"

// CurrentUserID 读取已鉴权用户 ID，缺失或为 0 时直接写回错误响应
func CurrentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(UserIDContextKey)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	userID, ok := value.(uint)
	if !ok {
		RespondError(c, response.CodeInternal, "error.user_id_type_invalid", nil)
		return 0, false
	}
	if userID == 0 {
		RespondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return 0, false
	}
	return userID, true
}
