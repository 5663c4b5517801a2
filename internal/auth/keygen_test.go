package auth

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestGenerateAdminKey_Live(t *testing.T) {
	t.Parallel()

	key, err := GenerateAdminKey(EnvLive)
	if err != nil {
		t.Fatalf("GenerateAdminKey failed: %v", err)
	}

	if !strings.HasPrefix(key.Plaintext, "ak_live_") {
		t.Errorf("Key should start with ak_live_, got: %s", key.Plaintext)
	}
	if len(key.Prefix) != KeyPrefixLen {
		t.Errorf("Prefix should be %d chars, got: %d", KeyPrefixLen, len(key.Prefix))
	}
	if !strings.HasPrefix(key.Hash, "$argon2id$v=") {
		t.Errorf("Hash should be in PHC format, got: %s", key.Hash)
	}
	if _, err := ulid.Parse(key.ID); err != nil {
		t.Errorf("ID should be a ULID, got %q: %v", key.ID, err)
	}
	if !ValidateKeyFormat(key.Plaintext) {
		t.Errorf("generated key does not match its own format: %s", key.Plaintext)
	}

	ok, err := VerifySecret(key.Plaintext, key.Hash)
	if err != nil || !ok {
		t.Errorf("generated key should verify against its hash, ok=%v err=%v", ok, err)
	}
}

func TestGenerateAdminKey_DefaultsToLive(t *testing.T) {
	t.Parallel()

	for _, env := range []string{"", "prod", "staging"} {
		key, err := GenerateAdminKey(env)
		if err != nil {
			t.Fatalf("GenerateAdminKey failed: %v", err)
		}
		if !strings.HasPrefix(key.Plaintext, "ak_live_") {
			t.Errorf("Expected ak_live_ prefix for env %q, got: %s", env, key.Plaintext)
		}
	}
}

func TestGenerateAdminKey_Test(t *testing.T) {
	t.Parallel()

	key, err := GenerateAdminKey(EnvTest)
	if err != nil {
		t.Fatalf("GenerateAdminKey failed: %v", err)
	}
	if !strings.HasPrefix(key.Plaintext, "ak_test_") {
		t.Errorf("Key should start with ak_test_, got: %s", key.Plaintext)
	}
}

func TestParseAdminKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		key        string
		wantEnv    string
		wantPrefix string
		wantErr    error
	}{
		{"valid live key", "ak_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", "live", "abc123", nil},
		{"valid test key", "ak_test_def456_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", "test", "def456", nil},
		{"wrong prefix", "pk_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", "", "", ErrInvalidKeyFormat},
		{"wrong env", "ak_prod_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", "", "", ErrInvalidKeyFormat},
		{"short secret", "ak_live_abc123_4f8d2e1b", "", "", ErrInvalidKeyFormat},
		{"uppercase hex", "ak_live_ABC123_4F8D2E1B9C7A5F3D2E1B9C7A5F3D2E1B", "", "", ErrInvalidKeyFormat},
		{"empty", "", "", "", ErrInvalidKeyFormat},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parsed, err := ParseAdminKey(tt.key)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("ParseAdminKey(%q) error = %v, want %v", tt.key, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAdminKey(%q) unexpected error: %v", tt.key, err)
			}
			if parsed.Env != tt.wantEnv || parsed.Prefix != tt.wantPrefix {
				t.Errorf("got env=%s prefix=%s, want env=%s prefix=%s", parsed.Env, parsed.Prefix, tt.wantEnv, tt.wantPrefix)
			}
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	pw, err := GeneratePassword(16)
	if err != nil {
		t.Fatalf("GeneratePassword failed: %v", err)
	}
	if len(pw) != 16 {
		t.Errorf("expected 16 chars, got %d", len(pw))
	}
	for _, r := range pw {
		if !strings.ContainsRune(passwordAlphabet, r) {
			t.Errorf("unexpected character %q", r)
		}
	}

	short, err := GeneratePassword(2)
	if err != nil {
		t.Fatalf("GeneratePassword failed: %v", err)
	}
	if len(short) != MinPasswordLength {
		t.Errorf("expected length raised to %d, got %d", MinPasswordLength, len(short))
	}

	other, _ := GeneratePassword(16)
	if other == pw {
		t.Error("two passwords should differ")
	}
}
