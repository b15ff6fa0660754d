package pipelet

import (
	"github.com/go-logr/logr"

	"github.com/l7mp/pipelet/pkg/key"
)

// Option configures a pipelet at construction.
type Option func(*Options)

// Options holds the configuration shared by all pipelets.
type Options struct {
	// Key identifies values. Defaults to key.Default.
	Key key.Key
	// Logger is the logger used by the pipelet. Defaults to logr.Discard().
	Logger logr.Logger
	// StrictKeys makes a Set drop added values whose key is already held.
	StrictKeys bool
}

// WithKey sets the key of a pipelet.
func WithKey(k key.Key) Option {
	return func(o *Options) { o.Key = append(key.Key(nil), k...) }
}

// WithLogger sets the logger of a pipelet.
func WithLogger(log logr.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

// WithStrictKeys makes a Set reject added values with a key that is already held.
func WithStrictKeys() Option {
	return func(o *Options) { o.StrictKeys = true }
}

func newOptions(opts []Option) (Options, error) {
	o := Options{Key: key.Default, Logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Key.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
