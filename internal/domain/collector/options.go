package collector

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithLocation sets the location stamped on every flushed record.
func WithLocation(location string) Option {
	return func(c *Collector) {
		c.location = location
	}
}

// WithSessionID fixes the session id instead of generating one per flush.
func WithSessionID(id string) Option {
	return func(c *Collector) {
		c.sessionID = id
	}
}
