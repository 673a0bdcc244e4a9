// Package r503 drives R503/R307-class fingerprint modules over a UART link.
package r503

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/go-ctap/fingerprint/pkg/sensor"
)

// SystemParameters is the ReadSysPara response.
type SystemParameters struct {
	StatusRegister uint16
	SystemID       uint16
	Capacity       int
	SecurityLevel  uint16
	Address        Address
	PacketSize     int
	BaudRate       int
}

// Device is an open module. It implements sensor.Driver and is not safe for
// concurrent use.
type Device struct {
	port     io.ReadWriteCloser
	address  Address
	logger   *slog.Logger
	transfer TransferKind
	params   *SystemParameters
	// staged marks buffers that received features from the host since the
	// last capture.
	staged map[sensor.Buffer]bool
	closed bool
}

var _ sensor.Driver = (*Device)(nil)

// New performs the password handshake on port and reads the module's system
// parameters.
func New(port io.ReadWriteCloser, opts ...Option) (*Device, error) {
	oo := NewOptions(opts...)

	d := &Device{
		port:     port,
		address:  oo.Address,
		logger:   oo.Logger,
		transfer: oo.Transfer,
		staged:   make(map[sensor.Buffer]bool),
	}

	if err := d.VerifyPassword(oo.Password); err != nil {
		return nil, err
	}

	params, err := d.ReadSystemParameters()
	if err != nil {
		return nil, err
	}
	d.params = params
	d.logger.Info("sensor ready",
		"capacity", params.Capacity,
		"packet_size", params.PacketSize,
		"security_level", params.SecurityLevel,
		"transfer", d.transfer.String(),
	)

	return d, nil
}

// Parameters returns the system parameters read on open.
func (d *Device) Parameters() SystemParameters {
	return *d.params
}

func (d *Device) VerifyPassword(password uint32) error {
	pwd := make([]byte, 4)
	binary.BigEndian.PutUint32(pwd, password)

	code, _, err := d.command(CommandVerifyPwd, pwd...)
	if err != nil {
		return err
	}
	switch code {
	case CodeOK:
		return nil
	case CodePassFail:
		return ErrWrongPassword
	default:
		return d.protocolError(CommandVerifyPwd, code)
	}
}

func (d *Device) ReadSystemParameters() (*SystemParameters, error) {
	data, err := d.expectOK(CommandReadSysParams)
	if err != nil {
		return nil, err
	}
	if len(data) < 16 {
		return nil, sensor.NewTransportError(CommandReadSysParams.String(), ErrMalformedPacket)
	}

	p := &SystemParameters{
		StatusRegister: binary.BigEndian.Uint16(data[0:2]),
		SystemID:       binary.BigEndian.Uint16(data[2:4]),
		Capacity:       int(binary.BigEndian.Uint16(data[4:6])),
		SecurityLevel:  binary.BigEndian.Uint16(data[6:8]),
		Address:        Address(data[8:12]),
		BaudRate:       int(binary.BigEndian.Uint16(data[14:16])) * 9600,
	}

	size := int(binary.BigEndian.Uint16(data[12:14]))
	if size >= len(packetSizes) {
		return nil, sensor.NewTransportError(CommandReadSysParams.String(), fmt.Errorf("%w: packet size code %d", ErrMalformedPacket, size))
	}
	p.PacketSize = packetSizes[size]

	return p, nil
}

func (d *Device) CaptureImage() (sensor.CaptureResult, error) {
	code, _, err := d.command(CommandGetImage)
	if err != nil {
		return 0, err
	}
	clear(d.staged)

	switch code {
	case CodeOK:
		return sensor.CaptureReady, nil
	case CodeNoFinger:
		return sensor.CaptureNoFinger, nil
	case CodeImageFail:
		return sensor.CaptureImagingError, nil
	default:
		return 0, d.protocolError(CommandGetImage, code)
	}
}

func (d *Device) ImageToTemplate(buf sensor.Buffer) (sensor.ConvertResult, error) {
	if d.staged[buf] {
		// Features were downloaded straight into the buffer.
		delete(d.staged, buf)
		return sensor.ConvertOK, nil
	}

	code, _, err := d.command(CommandImage2Tz, byte(buf))
	if err != nil {
		return 0, err
	}

	switch code {
	case CodeOK:
		return sensor.ConvertOK, nil
	case CodeImageMess:
		return sensor.ConvertMessyImage, nil
	case CodeFeatureFail:
		return sensor.ConvertFeatureFail, nil
	case CodeInvalidImage:
		return sensor.ConvertInvalidImage, nil
	default:
		return 0, d.protocolError(CommandImage2Tz, code)
	}
}

func (d *Device) CombineTemplates() (sensor.CombineResult, error) {
	code, _, err := d.command(CommandRegModel)
	if err != nil {
		return 0, err
	}

	switch code {
	case CodeOK:
		return sensor.CombineOK, nil
	case CodeEnrollMismatch:
		return sensor.CombineMismatch, nil
	case CodePacketRecvErr:
		return 0, d.protocolError(CommandRegModel, code)
	default:
		d.logger.Error("model combination failed", "code", byte(code), "reason", code.String())
		return sensor.CombineError, nil
	}
}

// UploadTemplate reads the transfer buffer from the module. In image mode buf
// is ignored and the last captured image is returned.
func (d *Device) UploadTemplate(buf sensor.Buffer) ([]byte, error) {
	cmd, params := d.transferCommand(CommandUpImage, CommandUpChar, buf)
	if _, err := d.expectOK(cmd, params...); err != nil {
		return nil, err
	}

	var data []byte
	for {
		p, err := d.read(cmd)
		if err != nil {
			return nil, err
		}

		switch p.PID {
		case PIDData:
			data = slices.Concat(data, p.Payload)
		case PIDEndData:
			data = slices.Concat(data, p.Payload)
			d.logger.Debug("transfer received", "command", cmd.String(), "length", len(data))
			return data, nil
		default:
			return nil, sensor.NewTransportError(cmd.String(), fmt.Errorf("%w: %s", ErrUnexpectedPacket, p.PID))
		}
	}
}

// DownloadTemplate sends data into the module's transfer buffer, split into
// data packets of the module's packet size.
func (d *Device) DownloadTemplate(buf sensor.Buffer, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyTransfer
	}

	cmd, params := d.transferCommand(CommandDownImage, CommandDownChar, buf)
	if _, err := d.expectOK(cmd, params...); err != nil {
		return err
	}

	chunks := lo.Chunk(data, d.params.PacketSize)
	for i, chunk := range chunks {
		pid := PIDData
		if i == len(chunks)-1 {
			pid = PIDEndData
		}
		if err := d.write(cmd, pid, chunk); err != nil {
			return err
		}
	}
	d.logger.Debug("transfer sent", "command", cmd.String(), "length", len(data), "packets", len(chunks))

	if d.transfer == TransferCharacter {
		d.staged[buf] = true
	}

	return nil
}

func (d *Device) transferCommand(image, char Command, buf sensor.Buffer) (Command, []byte) {
	if d.transfer == TransferCharacter {
		return char, []byte{byte(buf)}
	}
	return image, nil
}

func (d *Device) StoreAtSlot(slot int, buf sensor.Buffer) error {
	_, err := d.expectOK(CommandStore, byte(buf), byte(slot>>8), byte(slot))
	return err
}

func (d *Device) DeleteAtSlot(slot int) error {
	_, err := d.expectOK(CommandDelete, byte(slot>>8), byte(slot), 0x00, 0x01)
	return err
}

func (d *Device) ClearLibrary() error {
	_, err := d.expectOK(CommandEmpty)
	return err
}

// OccupiedSlots walks the index table pages covering the library.
func (d *Device) OccupiedSlots() ([]int, error) {
	pages := (d.params.Capacity + indexPageSlots - 1) / indexPageSlots

	slots := make([]int, 0)
	for page := range pages {
		table, err := d.expectOK(CommandReadIndex, byte(page))
		if err != nil {
			return nil, err
		}

		for i, b := range table {
			for bit := range 8 {
				if b&(1<<bit) != 0 {
					slots = append(slots, page*indexPageSlots+i*8+bit)
				}
			}
		}
	}

	return lo.Filter(slots, func(s int, _ int) bool { return s < d.params.Capacity }), nil
}

func (d *Device) LibrarySize() (int, error) {
	if d.closed {
		return 0, sensor.ErrClosed
	}
	return d.params.Capacity, nil
}

func (d *Device) SearchAll(buf sensor.Buffer) (sensor.SearchResult, error) {
	capacity := d.params.Capacity
	code, data, err := d.command(CommandSearch, byte(buf), 0x00, 0x00, byte(capacity>>8), byte(capacity))
	if err != nil {
		return sensor.SearchResult{}, err
	}

	switch code {
	case CodeOK:
		if len(data) < 4 {
			return sensor.SearchResult{}, sensor.NewTransportError(CommandSearch.String(), ErrMalformedPacket)
		}
		return sensor.SearchResult{
			Found:      true,
			Slot:       int(binary.BigEndian.Uint16(data[0:2])),
			Confidence: int(binary.BigEndian.Uint16(data[2:4])),
		}, nil
	case CodeNotFound:
		return sensor.SearchResult{}, nil
	default:
		return sensor.SearchResult{}, d.protocolError(CommandSearch, code)
	}
}

func (d *Device) SetFeedback(mode sensor.Mode) error {
	_, err := d.expectOK(CommandAuraLED, byte(mode.Pattern), mode.Speed, byte(mode.Color), mode.Cycles)
	return err
}

// SoftReset restarts the module firmware. The library is kept.
func (d *Device) SoftReset() error {
	_, err := d.expectOK(CommandSoftReset)
	return err
}

// Close releases the serial port. It is safe to call more than once.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	return d.port.Close()
}

// command sends one instruction and reads its acknowledge packet.
func (d *Device) command(cmd Command, params ...byte) (Code, []byte, error) {
	if d.closed {
		return 0, nil, sensor.ErrClosed
	}

	if err := d.write(cmd, PIDCommand, slices.Concat([]byte{byte(cmd)}, params)); err != nil {
		return 0, nil, err
	}

	p, err := d.read(cmd)
	if err != nil {
		return 0, nil, err
	}
	if p.PID != PIDAck || len(p.Payload) < 1 {
		return 0, nil, sensor.NewTransportError(cmd.String(), fmt.Errorf("%w: %s", ErrUnexpectedPacket, p.PID))
	}

	return Code(p.Payload[0]), p.Payload[1:], nil
}

// expectOK is command for instructions where anything but CodeOK is a failure.
func (d *Device) expectOK(cmd Command, params ...byte) ([]byte, error) {
	code, data, err := d.command(cmd, params...)
	if err != nil {
		return nil, err
	}
	if code != CodeOK {
		return nil, d.protocolError(cmd, code)
	}
	return data, nil
}

func (d *Device) write(cmd Command, pid PID, payload []byte) error {
	p, err := NewPacket(d.address, pid, payload)
	if err != nil {
		return err
	}

	d.logger.Debug(cmd.String()+" request", "pid", pid.String(), "hex", hex.EncodeToString(payload))
	if _, err := p.WriteTo(d.port); err != nil {
		return sensor.NewTransportError(cmd.String(), err)
	}

	return nil
}

func (d *Device) read(cmd Command) (*Packet, error) {
	p := new(Packet)
	if _, err := p.ReadFrom(d.port); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, sensor.NewTransportError(cmd.String(), err)
	}
	d.logger.Debug(cmd.String()+" response", "pid", p.PID.String(), "hex", hex.EncodeToString(p.Payload))

	return p, nil
}

func (d *Device) protocolError(cmd Command, code Code) error {
	d.logger.Error("unexpected confirmation code", "command", cmd.String(), "code", byte(code), "reason", code.String())
	return sensor.NewProtocolError(cmd.String(), byte(code))
}
