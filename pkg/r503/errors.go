package r503

import (
	"errors"
)

var (
	ErrPacketTooLarge   = errors.New("r503: packet payload too large")
	ErrBadStartCode     = errors.New("r503: invalid start code")
	ErrMalformedPacket  = errors.New("r503: malformed packet")
	ErrChecksum         = errors.New("r503: checksum mismatch")
	ErrUnexpectedPacket = errors.New("r503: unexpected packet type")
	ErrReadTimeout      = errors.New("r503: read timeout")
	ErrWrongPassword    = errors.New("r503: wrong module password")
	ErrEmptyTransfer    = errors.New("r503: nothing to transfer")
)
