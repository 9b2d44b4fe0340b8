package admin

import (
	handlershared "github.com/uplink-rewards/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestLog 内部接口日志统一带上调用方服务名
func requestLog(c *gin.Context) *zap.SugaredLogger {
	log := handlershared.RequestLog(c)
	if name := getServiceName(c); name != "" {
		log = log.With("caller", name)
	}
	return log
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondErrorWithMsg(c, code, msg, err)
}
