// Package status carries workflow progress from the enrollment and identification
// state machines to UI, indicator and log subscribers.
package status

import "fmt"

// Status is the closed set of workflow states and outcomes.
type Status int

const (
	Start Status = iota
	PlaceFinger
	RemoveFinger
	PlaceSameFinger
	Processing
	Success
	EnrollMismatch
	Fail
	StorageFull
	LocationOccupied
	NotFound
)

// All lists every Status in declaration order.
var All = []Status{
	Start,
	PlaceFinger,
	RemoveFinger,
	PlaceSameFinger,
	Processing,
	Success,
	EnrollMismatch,
	Fail,
	StorageFull,
	LocationOccupied,
	NotFound,
}

func (s Status) String() string {
	switch s {
	case Start:
		return "Start"
	case PlaceFinger:
		return "PlaceFinger"
	case RemoveFinger:
		return "RemoveFinger"
	case PlaceSameFinger:
		return "PlaceSameFinger"
	case Processing:
		return "Processing"
	case Success:
		return "Success"
	case EnrollMismatch:
		return "EnrollMismatch"
	case Fail:
		return "Fail"
	case StorageFull:
		return "StorageFull"
	case LocationOccupied:
		return "LocationOccupied"
	case NotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal reports whether s ends a workflow invocation.
func (s Status) Terminal() bool {
	switch s {
	case Start, PlaceFinger, RemoveFinger, PlaceSameFinger, Processing:
		return false
	case Success, EnrollMismatch, Fail, StorageFull, LocationOccupied, NotFound:
		return true
	default:
		return false
	}
}
