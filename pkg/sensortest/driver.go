// Package sensortest provides a scriptable in-memory sensor.Driver.
package sensortest

import (
	"slices"
	"sync"

	"github.com/go-ctap/fingerprint/pkg/sensor"
)

// DefaultTemplate is returned by UploadTemplate when no Template was set.
var DefaultTemplate = []byte{0x03, 0x03, 0x5a, 0x1e, 0x00, 0x00, 0xff, 0xfe, 0x81, 0x42}

// Driver is a sensor.Driver double. Scripted results are consumed in order;
// once a script is exhausted the matching default applies.
type Driver struct {
	mu sync.Mutex

	Captures       []sensor.CaptureResult
	CaptureDefault sensor.CaptureResult
	Converts       []sensor.ConvertResult
	ConvertDefault sensor.ConvertResult
	Combine        sensor.CombineResult
	Search         sensor.SearchResult
	Template       []byte

	Size  int
	Slots map[int][]byte

	// Injected failures.
	CaptureErr  error
	DownloadErr error
	StoreErr    error
	SearchErr   error
	OccupiedErr error
	FeedbackErr error

	Buffers map[sensor.Buffer][]byte
	Modes   []sensor.Mode
	Calls   []string
	Closed  bool
}

// New returns a Driver with an empty library of size slots where every capture
// succeeds and every conversion is clean.
func New(size int) *Driver {
	return &Driver{
		CaptureDefault: sensor.CaptureReady,
		ConvertDefault: sensor.ConvertOK,
		Combine:        sensor.CombineOK,
		Size:           size,
		Slots:          make(map[int][]byte),
		Buffers:        make(map[sensor.Buffer][]byte),
	}
}

// Fill marks the given slots as occupied.
func (d *Driver) Fill(slots ...int) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range slots {
		d.Slots[s] = slices.Clone(DefaultTemplate)
	}
	return d
}

// Count returns how many times op was called.
func (d *Driver) Count(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, c := range d.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (d *Driver) record(op string) {
	d.Calls = append(d.Calls, op)
}

func (d *Driver) CaptureImage() (sensor.CaptureResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CaptureImage")

	if d.CaptureErr != nil {
		return 0, d.CaptureErr
	}
	if len(d.Captures) > 0 {
		r := d.Captures[0]
		d.Captures = d.Captures[1:]
		return r, nil
	}
	return d.CaptureDefault, nil
}

func (d *Driver) ImageToTemplate(buf sensor.Buffer) (sensor.ConvertResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ImageToTemplate")

	r := d.ConvertDefault
	if len(d.Converts) > 0 {
		r = d.Converts[0]
		d.Converts = d.Converts[1:]
	}
	if r == sensor.ConvertOK {
		if _, ok := d.Buffers[buf]; !ok {
			d.Buffers[buf] = slices.Clone(d.template())
		}
	}
	return r, nil
}

func (d *Driver) CombineTemplates() (sensor.CombineResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CombineTemplates")

	if d.Combine == sensor.CombineOK {
		d.Buffers[sensor.Buffer1] = slices.Clone(d.template())
		d.Buffers[sensor.Buffer2] = slices.Clone(d.template())
	}
	return d.Combine, nil
}

func (d *Driver) UploadTemplate(buf sensor.Buffer) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UploadTemplate")

	if b, ok := d.Buffers[buf]; ok {
		return slices.Clone(b), nil
	}
	return slices.Clone(d.template()), nil
}

func (d *Driver) DownloadTemplate(buf sensor.Buffer, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DownloadTemplate")

	if d.DownloadErr != nil {
		return d.DownloadErr
	}
	d.Buffers[buf] = slices.Clone(data)
	return nil
}

func (d *Driver) StoreAtSlot(slot int, buf sensor.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("StoreAtSlot")

	if d.StoreErr != nil {
		return d.StoreErr
	}
	if slot < 0 || slot >= d.Size {
		return sensor.NewProtocolError("store", 0x0b)
	}
	d.Slots[slot] = slices.Clone(d.Buffers[buf])
	return nil
}

func (d *Driver) DeleteAtSlot(slot int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DeleteAtSlot")

	if _, ok := d.Slots[slot]; !ok && (slot < 0 || slot >= d.Size) {
		return sensor.NewProtocolError("delete", 0x10)
	}
	delete(d.Slots, slot)
	return nil
}

func (d *Driver) ClearLibrary() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ClearLibrary")

	d.Slots = make(map[int][]byte)
	return nil
}

func (d *Driver) OccupiedSlots() ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("OccupiedSlots")

	if d.OccupiedErr != nil {
		return nil, d.OccupiedErr
	}
	slots := make([]int, 0, len(d.Slots))
	for s := range d.Slots {
		slots = append(slots, s)
	}
	slices.Sort(slots)
	return slots, nil
}

func (d *Driver) LibrarySize() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("LibrarySize")

	return d.Size, nil
}

func (d *Driver) SearchAll(sensor.Buffer) (sensor.SearchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SearchAll")

	if d.SearchErr != nil {
		return sensor.SearchResult{}, d.SearchErr
	}
	return d.Search, nil
}

func (d *Driver) SetFeedback(mode sensor.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("SetFeedback")

	if d.FeedbackErr != nil {
		return d.FeedbackErr
	}
	d.Modes = append(d.Modes, mode)
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Close")

	d.Closed = true
	return nil
}

func (d *Driver) template() []byte {
	if d.Template != nil {
		return d.Template
	}
	return DefaultTemplate
}
