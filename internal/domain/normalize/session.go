package normalize

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// DefaultSessionPrefix prefixes generated session ids.
const DefaultSessionPrefix = "analysis"

// SessionFunc derives a session id for a batch that was given none.
type SessionFunc func(o Observations) string

// ContentSession fingerprints the whole input, so identical content yields
// the same id every time. Distinct batches with identical content collide.
func ContentSession(prefix string) SessionFunc {
	return func(o Observations) string {
		return fmt.Sprintf("%s_%016x", prefix, Fingerprint(o))
	}
}

// TimestampSession uses the current unix time in seconds.
func TimestampSession(prefix string, now func() time.Time) SessionFunc {
	if now == nil {
		now = time.Now
	}
	return func(Observations) string {
		return fmt.Sprintf("%s_%d", prefix, now().Unix())
	}
}

// RandomSession uses a random UUID.
func RandomSession(prefix string) SessionFunc {
	return func(Observations) string {
		return prefix + "_" + uuid.NewString()
	}
}

// SessionStrategy resolves a strategy name from configuration:
// "content" (default), "timestamp" or "random".
func SessionStrategy(name, prefix string) (SessionFunc, error) {
	if prefix == "" {
		prefix = DefaultSessionPrefix
	}
	switch name {
	case "", "content":
		return ContentSession(prefix), nil
	case "timestamp":
		return TimestampSession(prefix, nil), nil
	case "random":
		return RandomSession(prefix), nil
	default:
		return nil, fmt.Errorf("unknown session strategy %q", name)
	}
}

// Fingerprint hashes the canonical encoding of o.
func Fingerprint(o Observations) uint64 {
	d := xxhash.New()
	o.writeCanonical(d)
	return d.Sum64()
}
