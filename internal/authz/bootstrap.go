package authz

import "fmt"

// 内置角色
const (
	RoleEventProducer = "event_producer"
	RolePayout        = "payout"
	RoleOperator      = "operator"
)

// RoleSeed 内置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 内置角色矩阵：事件上报、发放回写、运营
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role:     RoleEventProducer,
			Policies: []Policy{{Object: "/internal/events/*", Action: "POST"}},
		},
		{
			Role: RolePayout,
			Policies: []Policy{
				{Object: "/internal/commissions/:id/paid", Action: "POST"},
				{Object: "/internal/bonus-claims/:id/settled", Action: "POST"},
			},
		},
		{
			Role:     RoleOperator,
			Inherits: []string{RoleEventProducer, RolePayout},
			Policies: []Policy{
				{Object: "/internal/settings/reward", Action: "*"},
				{Object: "/internal/authz/*", Action: "GET"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入内置角色，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	for _, seed := range BuiltinRoleSeeds() {
		for _, parent := range seed.Inherits {
			if err := s.InheritRole(seed.Role, parent); err != nil {
				return err
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(seed.Role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("seed role %s: %w", seed.Role, err)
			}
		}
	}
	return nil
}

// ApplyServiceRoles 按配置覆盖调用方服务的角色
func (s *Service) ApplyServiceRoles(assignments map[string][]string) error {
	for name, roles := range assignments {
		if err := s.SetServiceRoles(name, roles); err != nil {
			return fmt.Errorf("apply roles for %s: %w", name, err)
		}
	}
	return nil
}
