package worker

import "github.com/okian/vigil/pkg/logger"

// Option applies a configuration option to a Pool.
type Option func(*Pool)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}
