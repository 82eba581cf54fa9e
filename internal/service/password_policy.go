package service

import (
	"strings"
	"unicode"

	"github.com/polyva-3d/internal/config"
)

// bcryptMaxPasswordBytes bcrypt 只接受前 72 字节，超出部分会被 GenerateFromPassword 拒绝
const bcryptMaxPasswordBytes = 72

// minEmailNameForCheck 邮箱用户名过短时不做包含校验
const minEmailNameForCheck = 3

type passwordPolicyError struct {
	key  string
	args []interface{}
}

func (e passwordPolicyError) Error() string {
	return e.key
}

func (e passwordPolicyError) Is(target error) bool {
	return target == ErrWeakPassword
}

func (e passwordPolicyError) Key() string {
	return e.key
}

func (e passwordPolicyError) Args() []interface{} {
	return e.args
}

// validatePassword 字节上限始终校验；其余规则按策略开启
func validatePassword(policy config.PasswordPolicyConfig, email, password string) error {
	if len(password) > bcryptMaxPasswordBytes {
		return passwordPolicyError{key: "error.password_max_length", args: []interface{}{bcryptMaxPasswordBytes}}
	}
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return passwordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}
	if policy.RejectEmailName && containsEmailName(email, password) {
		return passwordPolicyError{key: "error.password_contains_email"}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}
	switch {
	case policy.RequireUpper && !hasUpper:
		return passwordPolicyError{key: "error.password_require_upper"}
	case policy.RequireLower && !hasLower:
		return passwordPolicyError{key: "error.password_require_lower"}
	case policy.RequireNumber && !hasNumber:
		return passwordPolicyError{key: "error.password_require_number"}
	case policy.RequireSpecial && !hasSpecial:
		return passwordPolicyError{key: "error.password_require_special"}
	}
	return nil
}

func containsEmailName(email, password string) bool {
	name, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if len([]rune(name)) < minEmailNameForCheck {
		return false
	}
	return strings.Contains(strings.ToLower(password), name)
}
