package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Variant = "argon2id"
	argon2Prefix  = "$" + argon2Variant + "$"
	// phcFormat is the PHC string layout shared with libsodium and passlib.
	phcFormat = "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
)

var (
	errInvalidHashFormat = errors.New("argon2: invalid encoded hash format")
	errInvalidConfig     = errors.New("argon2: invalid configuration")
)

// Argon2Config defines tunable parameters for Argon2id password hashing.
type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config returns the library default Argon2id configuration.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (cfg Argon2Config) validate() error {
	if cfg.Memory < 8*1024 {
		return fmt.Errorf("%w: memory must be at least 8192", errInvalidConfig)
	}
	if cfg.Iterations == 0 {
		return fmt.Errorf("%w: iterations must be greater than zero", errInvalidConfig)
	}
	if cfg.Parallelism == 0 {
		return fmt.Errorf("%w: parallelism must be greater than zero", errInvalidConfig)
	}
	if cfg.SaltLength < 8 {
		return fmt.Errorf("%w: salt length must be at least 8 bytes", errInvalidConfig)
	}
	if cfg.KeyLength < 16 {
		return fmt.Errorf("%w: key length must be at least 16 bytes", errInvalidConfig)
	}
	return nil
}

// argon2Hasher produces PHC strings:
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>
type argon2Hasher struct {
	cfg Argon2Config
}

func newArgon2Hasher(cfg Argon2Config) (*argon2Hasher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &argon2Hasher{cfg: cfg}, nil
}

func (h *argon2Hasher) hash(password string) (string, error) {
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.cfg.Iterations, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)
	b64 := base64.RawStdEncoding
	return fmt.Sprintf(phcFormat, argon2.Version, h.cfg.Memory, h.cfg.Iterations, h.cfg.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// verify recomputes using the parameters embedded in encoded, so hashes made
// under older settings keep verifying after a config change.
func (h *argon2Hasher) verify(password, encoded string) (bool, error) {
	stored, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), stored.salt, stored.cfg.Iterations, stored.cfg.Memory, stored.cfg.Parallelism, stored.cfg.KeyLength)
	return subtle.ConstantTimeCompare(key, stored.key) == 1, nil
}

type phcHash struct {
	cfg  Argon2Config
	salt []byte
	key  []byte
}

func parsePHC(encoded string) (phcHash, error) {
	// "", variant, version, params, salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != argon2Variant {
		return phcHash{}, errInvalidHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return phcHash{}, fmt.Errorf("%w: version: %v", errInvalidHashFormat, err)
	}
	if version != argon2.Version {
		return phcHash{}, fmt.Errorf("argon2: unsupported version %d", version)
	}

	var out phcHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &out.cfg.Memory, &out.cfg.Iterations, &out.cfg.Parallelism); err != nil {
		return phcHash{}, fmt.Errorf("%w: params: %v", errInvalidHashFormat, err)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return phcHash{}, fmt.Errorf("argon2: decode salt: %w", err)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return phcHash{}, fmt.Errorf("argon2: decode hash: %w", err)
	}
	out.cfg.SaltLength = uint32(len(out.salt))
	out.cfg.KeyLength = uint32(len(out.key))

	if err := out.cfg.validate(); err != nil {
		return phcHash{}, err
	}
	return out, nil
}
