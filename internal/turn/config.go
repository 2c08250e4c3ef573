package turn

import "time"

// Config tunes turn detection and the session timer.
type Config struct {
	// SilenceWindow is how long after the last partial transcript the
	// candidate is considered silent.
	SilenceWindow time.Duration `yaml:"silence_window"`

	// HardFallback ends a turn on silence alone when no agreeing
	// completeness judgment arrived within this long after silence began.
	HardFallback time.Duration `yaml:"hard_fallback"`

	// JudgeInterval is the minimum spacing between completeness judgments.
	JudgeInterval time.Duration `yaml:"judge_interval"`

	// JudgeMinWords is the minimum partial length, in words, before a
	// judgment is requested.
	JudgeMinWords int `yaml:"judge_min_words"`

	// EndMinWords is the minimum answer length for a turn to end on
	// silence. Shorter answers must be submitted or skipped explicitly.
	EndMinWords int `yaml:"end_min_words"`

	// CompleteThreshold is the confidence a judgment must exceed to count
	// as agreeing that the answer is finished.
	CompleteThreshold float64 `yaml:"complete_threshold"`

	// PersistTimeout bounds each store write made by the controller.
	PersistTimeout time.Duration `yaml:"persist_timeout"`
}

// DefaultConfig returns the standard turn detection settings.
func DefaultConfig() Config {
	return Config{
		SilenceWindow:     1600 * time.Millisecond,
		HardFallback:      4 * time.Second,
		JudgeInterval:     800 * time.Millisecond,
		JudgeMinWords:     5,
		EndMinWords:       3,
		CompleteThreshold: 0.72,
		PersistTimeout:    10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SilenceWindow <= 0 {
		c.SilenceWindow = d.SilenceWindow
	}
	if c.HardFallback <= 0 {
		c.HardFallback = d.HardFallback
	}
	if c.JudgeInterval <= 0 {
		c.JudgeInterval = d.JudgeInterval
	}
	if c.JudgeMinWords <= 0 {
		c.JudgeMinWords = d.JudgeMinWords
	}
	if c.EndMinWords <= 0 {
		c.EndMinWords = d.EndMinWords
	}
	if c.CompleteThreshold <= 0 {
		c.CompleteThreshold = d.CompleteThreshold
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = d.PersistTimeout
	}
	return c
}
