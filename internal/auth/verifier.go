package auth

import (
	"errors"
	"sync"
)

var (
	// ErrNoKeysConfigured is returned when no admin key hashes are configured.
	ErrNoKeysConfigured = errors.New("no admin keys configured")
	// ErrInvalidKey is returned when a key matches no configured hash.
	ErrInvalidKey = errors.New("invalid admin key")
)

// Verifier checks admin keys against a fixed set of argon2id hashes.
// Successful verifications are remembered by digest so argon2 runs once per key.
type Verifier struct {
	hashes   []string
	verified sync.Map // QuickHash(key) -> *Admin
}

// NewVerifier creates a Verifier. Malformed hashes are rejected up front.
func NewVerifier(hashes []string) (*Verifier, error) {
	for _, h := range hashes {
		if _, err := decodeHash(h); err != nil {
			return nil, err
		}
	}
	return &Verifier{hashes: hashes}, nil
}

// Configured reports whether at least one hash is set.
func (v *Verifier) Configured() bool {
	return v != nil && len(v.hashes) > 0
}

// Verify returns the admin identity for key.
func (v *Verifier) Verify(key string) (*Admin, error) {
	if !v.Configured() {
		return nil, ErrNoKeysConfigured
	}

	parsed, err := ParseAdminKey(key)
	if err != nil {
		return nil, err
	}

	digest := QuickHash(key)
	if cached, ok := v.verified.Load(digest); ok {
		return cached.(*Admin), nil
	}

	for _, h := range v.hashes {
		ok, err := VerifySecret(key, h)
		if err != nil {
			return nil, err
		}
		if ok {
			admin := &Admin{KeyPrefix: parsed.Prefix, Env: parsed.Env}
			v.verified.Store(digest, admin)
			return admin, nil
		}
	}
	return nil, ErrInvalidKey
}
