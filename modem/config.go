package modem

import (
	"time"
)

// Config configures a Modem (bring-up behavior and the transport it runs
// over). Most callers should build one with ConfigBuilder rather than
// constructing Config directly.
type Config struct {
	Dialer          Dialer
	SimPIN          string
	MinSendInterval time.Duration
	MaxRetries      int
	EchoOn          bool
	ATTimeout       time.Duration
	InitTimeout     time.Duration
}

func (c *Config) setDefaults() {
	if c.MinSendInterval == 0 {
		c.MinSendInterval = time.Minute / 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.ATTimeout == 0 {
		c.ATTimeout = 5 * time.Second
	}
	if c.InitTimeout == 0 {
		c.InitTimeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

// ConfigBuilder assembles a Config through chained With* calls, validating
// and applying defaults only once, at Build.
type ConfigBuilder struct {
	cfg Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.cfg.Dialer = d
	return b
}

func (b *ConfigBuilder) WithSimPIN(pin string) *ConfigBuilder {
	b.cfg.SimPIN = pin
	return b
}

func (b *ConfigBuilder) WithEchoOn(on bool) *ConfigBuilder {
	b.cfg.EchoOn = on
	return b
}

func (b *ConfigBuilder) WithATTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.ATTimeout = d
	return b
}

func (b *ConfigBuilder) WithInitTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.InitTimeout = d
	return b
}

func (b *ConfigBuilder) WithMinSendInterval(d time.Duration) *ConfigBuilder {
	b.cfg.MinSendInterval = d
	return b
}

func (b *ConfigBuilder) WithMaxRetries(n int) *ConfigBuilder {
	b.cfg.MaxRetries = n
	return b
}

// Build validates the accumulated options and applies defaults, returning
// ErrNoDialer if WithDialer was never called.
func (b *ConfigBuilder) Build() (Config, error) {
	cfg := b.cfg
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}
