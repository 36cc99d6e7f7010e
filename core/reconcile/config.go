package reconcile

import "time"

// Config holds the scheduling settings of the reconciliation loop.
type Config struct {
	// MappingsFile is the YAML file declaring the mappings.
	MappingsFile string `mapstructure:"mappings_file" default:"mappings.yaml"`
	// IntervalSeconds is the delay between two rounds of the polling loop.
	IntervalSeconds int `mapstructure:"interval_seconds" default:"60"`
	// Concurrency bounds how many mappings run at the same time.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// RetryMarginMillis is kept before the earliest failed observation when a
	// cycle holds its window back.
	RetryMarginMillis int `mapstructure:"retry_margin_ms" default:"1000"`
}

// Interval returns the polling interval, one minute when unset.
func (c Config) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RunnerOptions translates the configuration into Runner options.
func (c Config) RunnerOptions() []RunnerOption {
	opts := []RunnerOption{WithConcurrency(c.Concurrency)}
	if c.RetryMarginMillis > 0 {
		opts = append(opts, WithRetryMargin(time.Duration(c.RetryMarginMillis)*time.Millisecond))
	}
	return opts
}
