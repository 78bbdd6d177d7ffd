package usecase

import (
	"sync"
	"time"

	"github.com/ndk123-web/backend-structure/internal/core/port"
)

const dummyPassword = "videotube-timing-equalizer"

// passwordCheck wraps the hasher with duration metrics and a lazily built
// dummy hash used to equalize timing for unknown identifiers.
type passwordCheck struct {
	hasher  port.PasswordHasher
	metrics port.AuthMetrics

	dummyOnce sync.Once
	dummyHash string
}

func (p *passwordCheck) hash(password string) (string, error) {
	started := time.Now()
	encoded, err := p.hasher.Hash(password)
	p.metrics.ObservePasswordHash("hash", time.Since(started))
	return encoded, err
}

func (p *passwordCheck) verify(password, encoded string) bool {
	started := time.Now()
	ok := p.hasher.Verify(password, encoded)
	p.metrics.ObservePasswordHash("verify", time.Since(started))
	return ok
}

// burn runs a verification against a throwaway hash.
func (p *passwordCheck) burn(password string) {
	p.dummyOnce.Do(func() {
		p.dummyHash, _ = p.hasher.Hash(dummyPassword)
	})
	if p.dummyHash == "" {
		return
	}
	p.hasher.Verify(password, p.dummyHash)
}
