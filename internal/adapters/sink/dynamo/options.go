package dynamo

import "time"

// Option configures a Client.
type Option func(*Client)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator replaces the shortuuid item ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithEnvLookup replaces os.LookupEnv for table name overrides.
func WithEnvLookup(fn func(string) (string, bool)) Option {
	return func(c *Client) {
		if fn != nil {
			c.lookup = fn
		}
	}
}
