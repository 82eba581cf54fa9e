package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
// 管理员继承普通用户的全部权限，并拥有 /admin 下的全部接口
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleUser,
			Policies: []Policy{
				{Object: "/me", Action: "*"},
				{Object: "/me/*", Action: "*"},
				{Object: "/models", Action: "GET"},
				{Object: "/models/:id", Action: "*"},
				{Object: "/models/:id/share", Action: "*"},
				{Object: "/generate/text", Action: "POST"},
				{Object: "/generate/image", Action: "POST"},
				{Object: "/generate/jobs/:id", Action: "GET"},
				{Object: "/upload", Action: "POST"},
			},
		},
		{
			Role:     RoleAdmin,
			Inherits: []string{RoleUser},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
