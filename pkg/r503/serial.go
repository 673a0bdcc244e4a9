package r503

import (
	"go.bug.st/serial"

	"github.com/go-ctap/fingerprint/pkg/sensor"
)

// Open opens the module on a serial port such as /dev/ttyUSB0 or COM3.
func Open(portName string, opts ...Option) (*Device, error) {
	oo := NewOptions(opts...)

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: oo.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, sensor.NewTransportError("open "+portName, err)
	}

	if err := port.SetReadTimeout(oo.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, sensor.NewTransportError("open "+portName, err)
	}
	// Drop anything the module sent before we were listening.
	_ = port.ResetInputBuffer()

	dev, err := New(&timeoutPort{Port: port}, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	oo.Logger.Debug("serial port opened", "port", portName, "baudrate", oo.BaudRate)

	return dev, nil
}

// Opener returns a sensor.Opener for portName.
func Opener(portName string, opts ...Option) sensor.Opener {
	return sensor.OpenerFunc(func() (sensor.Driver, error) {
		dev, err := Open(portName, opts...)
		if err != nil {
			return nil, err
		}
		return dev, nil
	})
}

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// timeoutPort turns the (0, nil) read a serial port returns on timeout into
// ErrReadTimeout, so callers blocked in io.ReadFull give up.
type timeoutPort struct {
	serial.Port
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, ErrReadTimeout
	}
	return n, err
}
