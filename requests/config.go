package requests

import (
	"fmt"
	"time"
)

// Config is the plain configuration record a Worker is constructed with,
// mirroring spec §6's table and Design Note "Configuration via framework
// config facade → a plain configuration record". It is loaded by the
// config package from either a JSON file or a Rigel/etcd schema; the
// Worker itself knows nothing about either source.
type Config struct {
	// Enabled: if false, Worker.Run returns immediately without starting
	// the tick loop.
	Enabled bool `json:"enabled"`

	// BatchSize is N in claim_ready_batch(limit N).
	BatchSize int32 `json:"batchSize"`

	// TickInterval is the minimum cycle period (spec's
	// microSecondsToWait, held here as a time.Duration).
	TickInterval       time.Duration `json:"-"`
	MicroSecondsToWait int64         `json:"microSecondsToWait"`

	// Timeout bounds each transport.Transport.Send call.
	Timeout        time.Duration `json:"-"`
	TimeoutSeconds int64         `json:"timeoutInSeconds"`

	// MaxRetries is the retry cap before a retryable outcome becomes
	// failed instead of waiting.
	MaxRetries int32 `json:"maximumNumberOfRetries"`

	// KeepAlive is passed through to the transport.
	KeepAlive bool `json:"keepAlive"`

	// UseDBReconnect enables the Worker's per-tick reconnect hook (spec
	// §4.B step 1). NewWorker installs no hook, so this flag does not
	// re-establish any database connection.
	UseDBReconnect bool `json:"useDbReconnect"`

	// BaseRetryDelay is the base of the exponential backoff formula
	// (spec §4.D step 4); the spec leaves this to configuration.
	BaseRetryDelay   time.Duration `json:"-"`
	BaseRetryDelayMs int64         `json:"baseRetryDelayMs"`

	// RetryCeiling caps the computed backoff delay (default 1 hour).
	RetryCeiling        time.Duration `json:"-"`
	RetryCeilingSeconds int64         `json:"retryCeilingSeconds"`

	// PauseRetryDelay is the short fixed retry used when the processor
	// itself misbehaves (spec §4.D step 5, the "pause" behavior).
	PauseRetryDelay        time.Duration `json:"-"`
	PauseRetryDelaySeconds int64         `json:"pauseRetryDelaySeconds"`
}

// DefaultConfig returns the configuration record populated with every
// default named in spec §6.
func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		BatchSize:              100,
		TickInterval:           2 * time.Second,
		MicroSecondsToWait:     2_000_000,
		Timeout:                5 * time.Second,
		TimeoutSeconds:         5,
		MaxRetries:             10,
		KeepAlive:              true,
		UseDBReconnect:         true,
		BaseRetryDelay:         time.Second,
		BaseRetryDelayMs:       1000,
		RetryCeiling:           time.Hour,
		RetryCeilingSeconds:    3600,
		PauseRetryDelay:        30 * time.Second,
		PauseRetryDelaySeconds: 30,
	}
}

// Normalize fills in duration fields derived from the wire-format integer
// fields (the shape config.File/config.Rigel decode JSON/etcd values
// into) and applies spec defaults for any numeric field left at zero.
// Boolean fields are left as they are.
func (c *Config) Normalize() error {
	def := DefaultConfig()
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("requests: batchSize must be positive, got %d", c.BatchSize)
	}
	if c.MicroSecondsToWait == 0 {
		c.MicroSecondsToWait = def.MicroSecondsToWait
	}
	c.TickInterval = time.Duration(c.MicroSecondsToWait) * time.Microsecond

	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
	c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second

	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}

	if c.BaseRetryDelayMs == 0 {
		c.BaseRetryDelayMs = def.BaseRetryDelayMs
	}
	c.BaseRetryDelay = time.Duration(c.BaseRetryDelayMs) * time.Millisecond

	if c.RetryCeilingSeconds == 0 {
		c.RetryCeilingSeconds = def.RetryCeilingSeconds
	}
	c.RetryCeiling = time.Duration(c.RetryCeilingSeconds) * time.Second

	if c.PauseRetryDelaySeconds == 0 {
		c.PauseRetryDelaySeconds = def.PauseRetryDelaySeconds
	}
	c.PauseRetryDelay = time.Duration(c.PauseRetryDelaySeconds) * time.Second

	return nil
}
