package security

import (
	"github.com/ndk123-web/backend-structure/internal/core/domain"
)

const (
	defaultMinPasswordLength = 8
	maxPasswordBytes         = 72
)

// PolicySettings tunes the password policy.
type PolicySettings struct {
	MinLength        int
	MinStrengthScore int
}

// PasswordPolicy adapts the rule validator to the domain-level policy interface.
type PasswordPolicy struct {
	settings PolicySettings
}

// NewPasswordPolicy builds a policy from settings; zero values fall back to defaults.
func NewPasswordPolicy(settings PolicySettings) *PasswordPolicy {
	if settings.MinLength <= 0 {
		settings.MinLength = defaultMinPasswordLength
	}
	return &PasswordPolicy{settings: settings}
}

// Validate ensures the password meets policy requirements for the given identity.
func (p *PasswordPolicy) Validate(password string, ctx domain.PasswordContext) error {
	if p == nil {
		p = NewPasswordPolicy(PolicySettings{})
	}

	inputs := make([]string, 0, 3)
	for _, v := range []string{ctx.Username, ctx.Email, ctx.FullName} {
		if v != "" {
			inputs = append(inputs, v)
		}
	}

	validator := NewPasswordValidator(
		MinLengthRule(p.settings.MinLength),
		MaxLengthRule(maxPasswordBytes),
		NoWhitespaceEdgesRule(),
		RequireDifferentFrom(ctx.Current),
		RejectIdentityEcho(inputs...),
		RequirePasswordStrengthRule(p.settings.MinStrengthScore, inputs...),
	)
	return validator.Validate(password)
}
