package workflow

import (
	"errors"

	"github.com/go-ctap/fingerprint/pkg/status"
)

var (
	ErrCaptureTimeout   = errors.New("workflow: no usable finger image within the capture window")
	ErrFingerNotRemoved = errors.New("workflow: finger was not removed within the capture window")
	ErrEnrollMismatch   = errors.New("workflow: the two captures do not belong to the same finger")
	ErrCombineFailed    = errors.New("workflow: cannot combine captures into a model")
	ErrStorageFull      = errors.New("workflow: sensor library is full")
	ErrLocationOccupied = errors.New("workflow: slot already holds a template")
	ErrInvalidSlot      = errors.New("workflow: slot outside of the sensor library")
	ErrEmptyTemplate    = errors.New("workflow: empty template")
	ErrUnusableTemplate = errors.New("workflow: sensor rejected the uploaded template")
	ErrNotFound         = errors.New("workflow: no matching template")
)

// StatusOf maps the error returned by a workflow operation to its terminal status.
func StatusOf(err error) status.Status {
	switch {
	case err == nil:
		return status.Success
	case errors.Is(err, ErrEnrollMismatch):
		return status.EnrollMismatch
	case errors.Is(err, ErrStorageFull):
		return status.StorageFull
	case errors.Is(err, ErrLocationOccupied):
		return status.LocationOccupied
	case errors.Is(err, ErrNotFound):
		return status.NotFound
	default:
		return status.Fail
	}
}

// Retryable reports whether the caller may simply run the whole workflow again.
func Retryable(err error) bool {
	return errors.Is(err, ErrCaptureTimeout) ||
		errors.Is(err, ErrFingerNotRemoved) ||
		errors.Is(err, ErrEnrollMismatch)
}
