package public

import (
	handlershared "github.com/uplink-rewards/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.CurrentUserID(c)
}
