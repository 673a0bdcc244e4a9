// Package sensor defines the capability set the workflows consume from a single
// physical fingerprint sensor. Every method is a blocking primitive; none of them
// may be aborted once issued.
package sensor

// Buffer is one of the sensor's feature buffers (CharBuffer1 / CharBuffer2).
type Buffer byte

const (
	Buffer1 Buffer = 1
	Buffer2 Buffer = 2
)

// Driver represents an open handle to a sensor.
type Driver interface {
	// CaptureImage takes one image from the optical window.
	CaptureImage() (CaptureResult, error)
	// ImageToTemplate extracts a feature template from the last captured image into buf.
	ImageToTemplate(buf Buffer) (ConvertResult, error)
	// CombineTemplates merges Buffer1 and Buffer2 into one model.
	CombineTemplates() (CombineResult, error)
	// UploadTemplate reads buf content from the sensor to the host.
	UploadTemplate(buf Buffer) ([]byte, error)
	// DownloadTemplate pushes data from the host into the sensor's transfer buffer buf.
	DownloadTemplate(buf Buffer, data []byte) error
	// StoreAtSlot commits buf to the library at slot.
	StoreAtSlot(slot int, buf Buffer) error
	// DeleteAtSlot removes the template stored at slot.
	DeleteAtSlot(slot int) error
	// ClearLibrary removes every template from the library.
	ClearLibrary() error
	// OccupiedSlots reports the slots currently holding a template, in ascending order.
	OccupiedSlots() ([]int, error)
	// LibrarySize reports the number of slots of the library.
	LibrarySize() (int, error)
	// SearchAll runs a 1:N search of buf against every resident template.
	SearchAll(buf Buffer) (SearchResult, error)
	// SetFeedback configures the sensor's indicator.
	SetFeedback(mode Mode) error
	// Close releases the transport.
	Close() error
}

// Opener acquires a Driver.
type Opener interface {
	Open() (Driver, error)
}

// OpenerFunc is a function adapter for Opener.
type OpenerFunc func() (Driver, error)

// Open implements Opener.
func (f OpenerFunc) Open() (Driver, error) {
	return f()
}
