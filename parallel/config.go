package parallel

import "github.com/tailored-agentic-units/transition/observability"

// Config controls a ProcessParallel batch.
type Config struct {
	// MaxWorkers fixes the number of concurrent tasks. Zero runs every item
	// at once.
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// Observer receives batch and worker events. Nil discards them.
	Observer observability.Observer `json:"-" yaml:"-"`
}

// DefaultConfig returns an unbounded configuration.
func DefaultConfig() Config {
	return Config{}
}

func (c *Config) Merge(source *Config) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}
	if source.Observer != nil {
		c.Observer = source.Observer
	}
}

func workerCount(maxWorkers, itemCount int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}
	return max(itemCount, 1)
}
