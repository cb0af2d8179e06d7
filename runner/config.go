/*
DESCRIPTION
  config.go defines the script runner's configuration: the tick rate,
  lookahead horizon, and per-loader housekeeping numbers, with defaults
  applied and logged the way revid/config.Config does.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package runner

import "github.com/ausocean/utils/logging"

const (
	defaultMainLoopHz      = 30
	defaultHorizon         = 2.0
	defaultDecoderIdleTime = 5.0
	defaultSeekScanTime    = 0.5
)

// Config carries the script runner's tunables.
type Config struct {
	// MainLoopHz is the tick rate; if <= 0, defaultMainLoopHz is used.
	MainLoopHz float64

	// Horizon is how far ahead of now, in seconds, the runner evaluates
	// the script on each tick; if <= 0, defaultHorizon is used.
	Horizon float64

	// DecoderIdleTime and SeekScanTime are passed through to every
	// loader's Request; see loader.Request for their meaning.
	DecoderIdleTime float64
	SeekScanTime    float64

	Logger logging.Logger
}

// LogInvalidField logs that a config field was unset or invalid and what
// default was substituted, matching revid/config.Config's own convention.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// withDefaults returns a copy of c with every unset/invalid field replaced
// by its default, logging each substitution.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logging.New(-1, nil, false)
	}
	if c.MainLoopHz <= 0 {
		c.LogInvalidField("MainLoopHz", defaultMainLoopHz)
		c.MainLoopHz = defaultMainLoopHz
	}
	if c.Horizon <= 0 {
		c.LogInvalidField("Horizon", defaultHorizon)
		c.Horizon = defaultHorizon
	}
	if c.DecoderIdleTime <= 0 {
		c.LogInvalidField("DecoderIdleTime", defaultDecoderIdleTime)
		c.DecoderIdleTime = defaultDecoderIdleTime
	}
	if c.SeekScanTime <= 0 {
		c.LogInvalidField("SeekScanTime", defaultSeekScanTime)
		c.SeekScanTime = defaultSeekScanTime
	}
	return c
}

// tickPeriod returns the duration between ticks at MainLoopHz.
func (c Config) tickPeriod() float64 { return 1 / c.MainLoopHz }
