package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
)

func violationCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	return vErr.Code
}

func TestPasswordPolicyDefaultsAcceptPlainPasswords(t *testing.T) {
	policy := NewPasswordPolicy(PolicySettings{})

	if err := policy.Validate("secret123", domain.PasswordContext{Username: "alice"}); err != nil {
		t.Fatalf("expected password to pass default policy, got %v", err)
	}
}

func TestPasswordPolicyViolations(t *testing.T) {
	policy := NewPasswordPolicy(PolicySettings{MinLength: 8, MinStrengthScore: 3})
	ctx := domain.PasswordContext{Username: "alice", Email: "alice@example.com", Current: "C0mplex!Passphrase#2024"}

	cases := []struct {
		password string
		code     string
	}{
		{"short", "min_length"},
		{strings.Repeat("x", 73), "max_length"},
		{" padded-password", "whitespace"},
		{"C0mplex!Passphrase#2024", "different"},
		{"ALICE@example.com", "identity_echo"},
		{"password", "weak_password"},
	}
	for _, tc := range cases {
		if got := violationCode(t, policy.Validate(tc.password, ctx)); got != tc.code {
			t.Fatalf("password %q: expected %s, got %s", tc.password, tc.code, got)
		}
	}

	if err := policy.Validate("C0mplex!Passphrase#2025", ctx); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireDifferentFrom("existing"),
	)

	if err := validator.Validate("existing"); err == nil {
		t.Fatalf("expected validation error when new password equals comparator")
	}
	if err := validator.Validate("abc"); err == nil {
		t.Fatalf("expected validation error for short password")
	}
	if err := validator.Validate("diff!"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}
