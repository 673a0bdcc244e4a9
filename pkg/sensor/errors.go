package sensor

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("sensor: handle closed")

// TransportError means the sensor could not be reached. It is fatal to the session.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{
		Op:  op,
		Err: err,
	}
}

func (e *TransportError) Error() string {
	return "sensor: " + e.Op + ": transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports an unexpected confirmation code from the sensor.
type ProtocolError struct {
	Op   string
	Code byte
}

func NewProtocolError(op string, code byte) *ProtocolError {
	return &ProtocolError{
		Op:   op,
		Code: code,
	}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("sensor: %s failed (code 0x%02x)", e.Op, e.Code)
}
