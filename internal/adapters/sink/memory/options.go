package memory

import "time"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock sets the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFailure makes every call fail with err.
func WithFailure(err error) Option {
	return func(s *Store) {
		s.fail = err
	}
}
