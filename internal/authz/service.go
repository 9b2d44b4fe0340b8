package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	servicePrefix   = "service:"
	rolePrefix      = "role:"
)

// 内部接口授权模型：service:<name> 经 g 继承 role:<name>，路由按 keyMatch2 匹配
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrSubjectInvalid = errors.New("service name is required")
	ErrRoleInvalid    = errors.New("role is required")
	ErrActionInvalid  = errors.New("action is required")
	ErrUnavailable    = errors.New("authz service unavailable")
)

// Policy 角色对某个路由的授权
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 内部服务调用的授权判定，策略持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并加载已有策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// EnforceService 判定调用方服务能否以 act 访问 obj
func (s *Service) EnforceService(serviceName, obj, act string) (bool, error) {
	subject, err := SubjectForService(serviceName)
	if err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(subject, NormalizeObject(obj), NormalizeAction(act))
}

// ListRoles 列出出现在策略或分配关系中的全部角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	subjects, err := s.enforcer.GetAllSubjects()
	if err != nil {
		return nil, fmt.Errorf("list policy subjects: %w", err)
	}
	for _, subject := range subjects {
		if strings.HasPrefix(subject, rolePrefix) {
			set[subject] = struct{}{}
		}
	}
	groupings, err := s.enforcer.GetNamedGroupingPolicy("g")
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	for _, rule := range groupings {
		for _, item := range rule {
			if strings.HasPrefix(item, rolePrefix) {
				set[item] = struct{}{}
			}
		}
	}
	return sortedKeys(set), nil
}

// GrantRolePolicy 为角色授予路由权限，重复授予无副作用
func (s *Service) GrantRolePolicy(role, object, action string) error {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return ErrActionInvalid
	}
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(normalizedRole, NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("grant policy: %w", err)
	}
	return nil
}

// InheritRole 让 role 拥有 parent 的全部权限
func (s *Service) InheritRole(role, parent string) error {
	child, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	base, err := NormalizeRole(parent)
	if err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", child, base); err != nil {
		return fmt.Errorf("link role %s to %s: %w", child, base, err)
	}
	return nil
}

// GetRolePolicies 查询角色直接持有的策略，不含继承
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, normalizedRole)
	if err != nil {
		return nil, fmt.Errorf("get role policies: %w", err)
	}
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{Subject: rule[0], Object: rule[1], Action: rule[2]})
	}
	return policies, nil
}

// SetServiceRoles 覆盖调用方服务的角色分配
func (s *Service) SetServiceRoles(serviceName string, roles []string) error {
	subject, err := SubjectForService(serviceName)
	if err != nil {
		return err
	}
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		r, err := NormalizeRole(role)
		if err != nil {
			return err
		}
		normalized = append(normalized, r)
	}
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear roles of %s: %w", subject, err)
	}
	for _, role := range normalized {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("assign %s to %s: %w", role, subject, err)
		}
	}
	return nil
}

// GetServiceRoles 查询调用方服务直接分配的角色
func (s *Service) GetServiceRoles(serviceName string) ([]string, error) {
	subject, err := SubjectForService(serviceName)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(subject)
	if err != nil {
		return nil, fmt.Errorf("get roles of %s: %w", subject, err)
	}
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if strings.HasPrefix(role, rolePrefix) {
			set[role] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SubjectForService 调用方服务名转授权主体，名称不区分大小写
func SubjectForService(serviceName string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(serviceName))
	if name == "" {
		return "", ErrSubjectInvalid
	}
	return servicePrefix + name, nil
}

// NormalizeRole 补齐 role: 前缀，空白替换为下划线
func NormalizeRole(role string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	normalized = strings.TrimPrefix(normalized, rolePrefix)
	if normalized == "" {
		return "", ErrRoleInvalid
	}
	return rolePrefix + normalized, nil
}

// NormalizeObject 去掉 /api/v1 前缀，策略里只存内部路径
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	return normalized
}

// NormalizeAction HTTP 方法统一大写
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
