package r503

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Address is the 32-bit module address.
type Address [4]byte

// Packet is one frame on the wire:
//
//	start(2) | address(4) | pid(1) | length(2) | payload | checksum(2)
//
// length counts payload plus checksum. The checksum is the low 16 bits of the
// sum of pid, length and payload bytes.
type Packet struct {
	Address Address
	PID     PID
	Payload []byte
}

func NewPacket(addr Address, pid PID, payload []byte) (*Packet, error) {
	if len(payload) > 0xffff-checksumSize {
		return nil, ErrPacketTooLarge
	}

	return &Packet{
		Address: addr,
		PID:     pid,
		Payload: payload,
	}, nil
}

func (p *Packet) length() uint16 {
	return uint16(len(p.Payload) + checksumSize)
}

func (p *Packet) checksum() uint16 {
	length := p.length()
	sum := uint16(p.PID) + length>>8 + length&0xff
	for _, b := range p.Payload {
		sum += uint16(b)
	}
	return sum
}

// WriteTo writes the packet as a single write, so the frame is never split
// across UART bursts.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	buf := bufio.NewWriterSize(w, headerSize+len(p.Payload)+checksumSize)

	// START: offset 0; length 2
	if err := binary.Write(buf, binary.BigEndian, startCode); err != nil {
		return 0, err
	}
	// ADDER: offset 2; length 4
	if _, err := buf.Write(p.Address[:]); err != nil {
		return 0, err
	}
	// PID: offset 6; length 1
	if err := buf.WriteByte(byte(p.PID)); err != nil {
		return 0, err
	}
	// LENGTH: offset 7; length 2
	if err := binary.Write(buf, binary.BigEndian, p.length()); err != nil {
		return 0, err
	}
	// DATA: offset 9
	if _, err := buf.Write(p.Payload); err != nil {
		return 0, err
	}
	// SUM
	if err := binary.Write(buf, binary.BigEndian, p.checksum()); err != nil {
		return 0, err
	}

	total := int64(buf.Buffered())
	if err := buf.Flush(); err != nil {
		return 0, err
	}

	return total, nil
}

// ReadFrom reads exactly one packet and validates its framing and checksum.
func (p *Packet) ReadFrom(r io.Reader) (int64, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}
	if binary.BigEndian.Uint16(header[0:2]) != startCode {
		return int64(headerSize), ErrBadStartCode
	}
	copy(p.Address[:], header[2:6])
	p.PID = PID(header[6])

	length := binary.BigEndian.Uint16(header[7:9])
	if length < checksumSize {
		return int64(headerSize), ErrMalformedPacket
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return int64(headerSize), err
	}
	p.Payload = body[:len(body)-checksumSize]

	if binary.BigEndian.Uint16(body[len(body)-checksumSize:]) != p.checksum() {
		return int64(headerSize) + int64(length), ErrChecksum
	}

	return int64(headerSize) + int64(length), nil
}
