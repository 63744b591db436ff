package auth

import (
	"testing"

	apperrors "github.com/cartercloud/cartercloud/errors"
)

func TestVerifyPlaintext(t *testing.T) {
	cfg := Config{Users: []Credential{{
		Username: "carte1", Password: "C@rter!23", Role: "member", StorageLimit: 100,
	}}}
	v := NewStaticVerifier(cfg)

	user, err := v.Verify("carte1", "C@rter!23")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.Username != "carte1" || user.Role != "member" || user.StorageLimit != 100 {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestVerifyBcryptHash(t *testing.T) {
	hasher := NewBcryptHasher(WithCost(4))
	hash, err := hasher.Hash("supersecret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	v := NewStaticVerifier(Config{Users: []Credential{{
		Username: "admin", PasswordHash: hash, Role: "admin",
	}}})

	if _, err := v.Verify("admin", "supersecret"); err != nil {
		t.Errorf("Verify with hash: %v", err)
	}
	if _, err := v.Verify("admin", "wrong-password"); err == nil {
		t.Error("expected error for wrong password")
	}
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	v := NewStaticVerifier(Config{Users: []Credential{{
		Username: "carte1", Password: "C@rter!23",
	}}})

	_, unknownUserErr := v.Verify("nobody", "x")
	_, wrongPassErr := v.Verify("carte1", "x")

	for _, err := range []error{unknownUserErr, wrongPassErr} {
		appErr, ok := apperrors.AsAppError(err)
		if !ok {
			t.Fatalf("expected AppError, got %v", err)
		}
		if appErr.Code != apperrors.ErrCodeUnauthorized {
			t.Errorf("expected UNAUTHORIZED, got %s", appErr.Code)
		}
	}
	if unknownUserErr.Error() != wrongPassErr.Error() {
		t.Error("unknown-user and wrong-password must be indistinguishable")
	}
}

func TestConfigDefaultsSeedUser(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if len(cfg.Users) != 1 || cfg.Users[0].Username != "carte1" {
		t.Errorf("expected seeded default user, got %+v", cfg.Users)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidateRejectsDuplicates(t *testing.T) {
	cfg := Config{Users: []Credential{
		{Username: "a", Password: "x"},
		{Username: "a", Password: "y"},
	}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for duplicate usernames")
	}
}

func TestHasherRejectsShortPasswords(t *testing.T) {
	if _, err := NewBcryptHasher(WithCost(4)).Hash("short"); err == nil {
		t.Error("expected error for short password")
	}
}
