package service

import (
	"strings"
	"testing"

	"github.com/polyva-3d/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	strict := config.PasswordPolicyConfig{
		MinLength:       8,
		RequireUpper:    true,
		RequireLower:    true,
		RequireNumber:   true,
		RequireSpecial:  true,
		RejectEmailName: true,
	}
	tests := []struct {
		name     string
		policy   config.PasswordPolicyConfig
		email    string
		password string
		wantKey  string
	}{
		{name: "empty_policy_accepts_short", email: "a@b.com", password: "p"},
		{name: "bcrypt_limit_always_applies", email: "a@b.com", password: strings.Repeat("x", 73), wantKey: "error.password_max_length"},
		{name: "multibyte_counts_bytes", email: "a@b.com", password: strings.Repeat("密", 25), wantKey: "error.password_max_length"},
		{name: "min_length", policy: strict, email: "a@b.com", password: "Ab1!", wantKey: "error.password_min_length"},
		{name: "contains_email_name", policy: strict, email: "Alice@Polyva.io", password: "xxALICE1!x", wantKey: "error.password_contains_email"},
		{name: "short_email_name_ignored", policy: strict, email: "al@polyva.io", password: "Al12345!x"},
		{name: "require_upper", policy: strict, email: "a@b.com", password: "abcdef1!", wantKey: "error.password_require_upper"},
		{name: "require_number", policy: strict, email: "a@b.com", password: "Abcdefg!", wantKey: "error.password_require_number"},
		{name: "require_special", policy: strict, email: "a@b.com", password: "Abcdefg1", wantKey: "error.password_require_special"},
		{name: "strict_ok", policy: strict, email: "a@b.com", password: "Abcdefg1!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.policy, tt.email, tt.password)
			if tt.wantKey == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrWeakPassword)
			var policyErr passwordPolicyError
			require.ErrorAs(t, err, &policyErr)
			assert.Equal(t, tt.wantKey, policyErr.Key())
		})
	}
}

func TestAuthServiceValidatePasswordWithoutConfig(t *testing.T) {
	var svc *AuthService
	assert.NoError(t, svc.ValidatePassword("a@b.com", "p"))
	assert.ErrorIs(t, svc.ValidatePassword("a@b.com", strings.Repeat("x", 80)), ErrWeakPassword)
}
