package api

import "time"

// APIConfig configures the health and metrics HTTP server.
type APIConfig struct {
	// BindAddress empty listens on all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port 0 picks a free port; see Server.Addr.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

func (c *APIConfig) applyDefaults() {
	for _, d := range []struct {
		field *time.Duration
		value time.Duration
	}{
		{&c.ReadTimeout, 10 * time.Second},
		{&c.WriteTimeout, 10 * time.Second},
		{&c.IdleTimeout, time.Minute},
	} {
		if *d.field == 0 {
			*d.field = d.value
		}
	}
}
