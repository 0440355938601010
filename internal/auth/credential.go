package auth

import (
	"encoding/base64"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// CredentialVerifier hashes passwords and checks them against stored hashes.
type CredentialVerifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// Argon2Verifier is the Argon2id CredentialVerifier.
type Argon2Verifier struct {
	params *argon2id.Params
}

// NewArgon2Verifier creates a verifier. nil params selects argon2id.DefaultParams.
func NewArgon2Verifier(params *argon2id.Params) *Argon2Verifier {
	if params == nil {
		params = argon2id.DefaultParams
	}

	return &Argon2Verifier{params: params}
}

// Hash returns the encoded Argon2id hash of plaintext.
func (v *Argon2Verifier) Hash(plaintext string) (string, error) {
	hash, err := argon2id.CreateHash(plaintext, v.params)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return hash, nil
}

// Verify compares plaintext with hash in constant time.
// A malformed hash never matches.
func (v *Argon2Verifier) Verify(plaintext, hash string) bool {
	match, err := argon2id.ComparePasswordAndHash(plaintext, hash)
	if err != nil {
		log.Error().Err(err).Msg("failed to verify password")

		return false
	}

	return match
}

// FallbackHash returns a well-formed hash under the verifier's parameters that no
// password is expected to match. Verifying against it costs the same as a real hash.
func (v *Argon2Verifier) FallbackHash() string {
	return encodeFallbackHash(v.params)
}

func encodeFallbackHash(p *argon2id.Params) string {
	salt := make([]byte, p.SaltLength)
	key := make([]byte, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}
