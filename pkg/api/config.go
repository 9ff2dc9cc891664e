package api

import "time"

// APIConfig configures the HTTP server started by 'ormkit serve'.
type APIConfig struct {
	// Port is the HTTP listen port. Zero picks a free port in tests.
	// Default: 8080 (applied by pkg/config)
	Port int `mapstructure:"port" validate:"omitempty,min=0,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum keep-alive idle time.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// ApplyDefaults fills in zero timeouts. The port is left alone so that zero
// can mean "any free port".
func (c *APIConfig) ApplyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
