package normalize

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithSessionFunc sets how missing session ids are generated.
func WithSessionFunc(fn SessionFunc) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.session = fn
		}
	}
}

// WithNameCleanup applies Unicode NFC and trims surrounding space on names and
// locations. Off by default, so names reach the sink exactly as given.
func WithNameCleanup() Option {
	return func(n *Normalizer) {
		n.cleanup = true
	}
}
