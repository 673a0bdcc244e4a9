package sensor

import "fmt"

// CaptureResult is the outcome of CaptureImage.
type CaptureResult int

const (
	CaptureReady CaptureResult = iota
	CaptureNoFinger
	CaptureImagingError
)

func (r CaptureResult) String() string {
	switch r {
	case CaptureReady:
		return "Ready"
	case CaptureNoFinger:
		return "NoFinger"
	case CaptureImagingError:
		return "ImagingError"
	default:
		return fmt.Sprintf("CaptureResult(%d)", int(r))
	}
}

// ConvertResult is the outcome of ImageToTemplate.
type ConvertResult int

const (
	ConvertOK ConvertResult = iota
	ConvertMessyImage
	ConvertFeatureFail
	ConvertInvalidImage
)

func (r ConvertResult) String() string {
	switch r {
	case ConvertOK:
		return "Ok"
	case ConvertMessyImage:
		return "MessyImage"
	case ConvertFeatureFail:
		return "FeatureFail"
	case ConvertInvalidImage:
		return "InvalidImage"
	default:
		return fmt.Sprintf("ConvertResult(%d)", int(r))
	}
}

// CombineResult is the outcome of CombineTemplates.
type CombineResult int

const (
	CombineOK CombineResult = iota
	CombineMismatch
	CombineError
)

func (r CombineResult) String() string {
	switch r {
	case CombineOK:
		return "Ok"
	case CombineMismatch:
		return "Mismatch"
	case CombineError:
		return "Error"
	default:
		return fmt.Sprintf("CombineResult(%d)", int(r))
	}
}

// SearchResult is the outcome of SearchAll. Slot and Confidence are only
// meaningful when Found is set.
type SearchResult struct {
	Found      bool
	Slot       int
	Confidence int
}

// Color is an indicator color index.
type Color byte

const (
	ColorRed    Color = 1
	ColorBlue   Color = 2
	ColorPurple Color = 3
	ColorGreen  Color = 4
	ColorYellow Color = 5
	ColorCyan   Color = 6
	ColorWhite  Color = 7
)

// Pattern is an indicator animation.
type Pattern byte

const (
	PatternBreathing    Pattern = 1
	PatternFlashing     Pattern = 2
	PatternOn           Pattern = 3
	PatternOff          Pattern = 4
	PatternGraduallyOn  Pattern = 5
	PatternGraduallyOff Pattern = 6
)

// Mode is one indicator configuration. Cycles of 0 repeats forever.
type Mode struct {
	Color   Color   `mapstructure:"color" yaml:"color"`
	Pattern Pattern `mapstructure:"pattern" yaml:"pattern"`
	Cycles  byte    `mapstructure:"cycles" yaml:"cycles"`
	Speed   byte    `mapstructure:"speed" yaml:"speed"`
}

// ModeOff turns the indicator off.
var ModeOff = Mode{Color: ColorYellow, Pattern: PatternOff, Speed: 128}
