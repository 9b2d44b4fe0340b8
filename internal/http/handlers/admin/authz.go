package admin

import (
	"errors"
	"strings"

	"github.com/uplink-rewards/internal/authz"
	"github.com/uplink-rewards/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListAuthzRoles 列出全部角色
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 查看角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	policies, err := h.AuthzService.GetRolePolicies(c.Param("role"))
	if err != nil {
		if errors.Is(err, authz.ErrRoleInvalid) {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, policies)
}

// GetAuthzServiceRoles 查看调用方服务的角色
func (h *Handler) GetAuthzServiceRoles(c *gin.Context) {
	name := strings.TrimSpace(c.Param("service"))
	roles, err := h.AuthzService.GetServiceRoles(name)
	if err != nil {
		if errors.Is(err, authz.ErrSubjectInvalid) {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"service": strings.ToLower(name), "roles": roles})
}
