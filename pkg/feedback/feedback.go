// Package feedback turns workflow statuses into indicator patterns on the sensor.
package feedback

import (
	"context"
	"log/slog"

	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/status"
)

// Palette holds one indicator mode per feedback situation.
type Palette struct {
	Ready   sensor.Mode `mapstructure:"ready" yaml:"ready"`
	Place   sensor.Mode `mapstructure:"place" yaml:"place"`
	Remove  sensor.Mode `mapstructure:"remove" yaml:"remove"`
	Process sensor.Mode `mapstructure:"process" yaml:"process"`
	Success sensor.Mode `mapstructure:"success" yaml:"success"`
	Error   sensor.Mode `mapstructure:"error" yaml:"error"`
	Off     sensor.Mode `mapstructure:"off" yaml:"off"`
}

// DefaultPalette matches the stock R503 aura colors used on the kiosks.
var DefaultPalette = Palette{
	Ready:   sensor.Mode{Color: sensor.ColorWhite, Pattern: sensor.PatternBreathing, Cycles: 0, Speed: 250},
	Place:   sensor.Mode{Color: sensor.ColorBlue, Pattern: sensor.PatternOn, Cycles: 0, Speed: 128},
	Remove:  sensor.Mode{Color: sensor.ColorCyan, Pattern: sensor.PatternFlashing, Cycles: 0, Speed: 128},
	Process: sensor.Mode{Color: sensor.ColorPurple, Pattern: sensor.PatternBreathing, Cycles: 0, Speed: 128},
	Success: sensor.Mode{Color: sensor.ColorGreen, Pattern: sensor.PatternOn, Cycles: 20, Speed: 128},
	Error:   sensor.Mode{Color: sensor.ColorRed, Pattern: sensor.PatternFlashing, Cycles: 20, Speed: 128},
	Off:     sensor.ModeOff,
}

// Mode returns the indicator mode for st.
func (p Palette) Mode(st status.Status) sensor.Mode {
	switch st {
	case status.Start:
		return p.Ready
	case status.PlaceFinger, status.PlaceSameFinger:
		return p.Place
	case status.RemoveFinger:
		return p.Remove
	case status.Processing:
		return p.Process
	case status.Success:
		return p.Success
	case status.EnrollMismatch, status.Fail, status.StorageFull, status.LocationOccupied, status.NotFound:
		return p.Error
	default:
		return p.Off
	}
}

// Indicator is a status.Subscriber actuating the sensor indicator.
type Indicator struct {
	drv     sensor.Driver
	palette Palette
	logger  *slog.Logger
}

func NewIndicator(drv sensor.Driver, palette Palette, logger *slog.Logger) *Indicator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Indicator{
		drv:     drv,
		palette: palette,
		logger:  logger,
	}
}

// HandleStatus implements status.Subscriber. Indicator failures never reach the workflow.
func (i *Indicator) HandleStatus(_ context.Context, event status.Event) {
	mode := i.palette.Mode(event.Status)
	if err := i.drv.SetFeedback(mode); err != nil {
		i.logger.Warn("cannot configure indicator", "status", event.Status.String(), "error", err)
		return
	}
	i.logger.Debug("indicator configured", "status", event.Status.String(), "color", mode.Color, "pattern", mode.Pattern)
}
