package security

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ndk123-web/backend-structure/internal/core/domain"
)

const (
	// MinBcryptCost matches the lowest work factor accepted for stored hashes.
	MinBcryptCost     = 8
	MaxBcryptCost     = 12
	DefaultBcryptCost = 10
)

// ErrUnsupportedAlgorithm is returned when the configured hashing algorithm is unknown.
var ErrUnsupportedAlgorithm = errors.New("security: unsupported password algorithm")

// HasherSettings configures NewPasswordHasher.
type HasherSettings struct {
	Algorithm  string
	BcryptCost int
	Argon2     Argon2Config
}

// PasswordHasher hashes with the configured algorithm and verifies any
// supported encoding, dispatching on the stored hash prefix.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
	argon      *argon2Hasher
}

// NewPasswordHasher validates settings and returns a ready hasher.
func NewPasswordHasher(settings HasherSettings) (*PasswordHasher, error) {
	algo := strings.ToLower(strings.TrimSpace(settings.Algorithm))
	if algo == "" {
		algo = domain.PasswordAlgoBcrypt
	}
	if algo != domain.PasswordAlgoBcrypt && algo != domain.PasswordAlgoArgon2id {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, settings.Algorithm)
	}

	cost := settings.BcryptCost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		return nil, fmt.Errorf("security: bcrypt cost %d outside [%d,%d]", cost, MinBcryptCost, MaxBcryptCost)
	}

	argonCfg := settings.Argon2
	if argonCfg == (Argon2Config{}) {
		argonCfg = DefaultArgon2Config()
	}
	argon, err := newArgon2Hasher(argonCfg)
	if err != nil {
		return nil, err
	}

	return &PasswordHasher{algorithm: algo, bcryptCost: cost, argon: argon}, nil
}

// Algorithm reports the algorithm used for new hashes.
func (h *PasswordHasher) Algorithm() string {
	return h.algorithm
}

// Hash produces a salted, self-describing hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == domain.PasswordAlgoArgon2id {
		return h.argon.hash(password)
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(out), nil
}

// Verify reports whether password matches encoded. Unknown or malformed
// encodings never match.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}

	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		ok, err := h.argon.verify(password, encoded)
		return err == nil && ok
	case isBcryptHash(encoded):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	default:
		return false
	}
}

func isBcryptHash(encoded string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}
