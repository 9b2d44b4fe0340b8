package admin

import (
	"strconv"
	"strings"

	"github.com/uplink-rewards/internal/http/response"

	"github.com/gin-gonic/gin"
)

const serviceNameContextKey = "service_name"

func getServiceName(c *gin.Context) string {
	value, ok := c.Get(serviceNameContextKey)
	if !ok {
		return ""
	}
	name, _ := value.(string)
	return name
}

func parsePathID(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}
