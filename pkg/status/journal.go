package status

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

type journalRecord struct {
	RunID       []byte `cbor:"1,keyasint"`
	Status      Status `cbor:"2,keyasint"`
	Message     string `cbor:"3,keyasint,omitempty"`
	Time        int64  `cbor:"4,keyasint"`
	Slot        *int   `cbor:"5,keyasint,omitempty"`
	Confidence  *int   `cbor:"6,keyasint,omitempty"`
	TemplateLen *int   `cbor:"7,keyasint,omitempty"`
}

// Journal is a Subscriber appending every event to w as a CBOR sequence.
type Journal struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	err error
}

// NewJournal creates a Journal writing to w.
func NewJournal(w io.Writer) (*Journal, error) {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}

	return &Journal{enc: encMode.NewEncoder(w)}, nil
}

// HandleStatus implements Subscriber. The first write error sticks and is
// reported by Err.
func (j *Journal) HandleStatus(_ context.Context, event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return
	}

	rec := journalRecord{
		RunID:       event.RunID[:],
		Status:      event.Status,
		Message:     event.Message,
		Time:        event.Timestamp.UnixNano(),
		Slot:        optionPtr(event.Slot),
		Confidence:  optionPtr(event.Confidence),
		TemplateLen: optionPtr(event.TemplateLen),
	}

	j.err = j.enc.Encode(rec)
}

// Err returns the first error encountered while writing.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// ReadJournal iterates over the events of a journal stream.
func ReadJournal(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		dec := cbor.NewDecoder(r)
		for {
			var rec journalRecord
			if err := dec.Decode(&rec); err != nil {
				if !errors.Is(err, io.EOF) {
					yield(Event{}, err)
				}
				return
			}

			id, err := uuid.FromBytes(rec.RunID)
			if err != nil {
				yield(Event{}, err)
				return
			}

			event := Event{
				RunID:       id,
				Status:      rec.Status,
				Message:     rec.Message,
				Timestamp:   time.Unix(0, rec.Time),
				Slot:        ptrOption(rec.Slot),
				Confidence:  ptrOption(rec.Confidence),
				TemplateLen: ptrOption(rec.TemplateLen),
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

func optionPtr(o mo.Option[int]) *int {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	return &v
}

func ptrOption(p *int) mo.Option[int] {
	if p == nil {
		return mo.None[int]()
	}
	return mo.Some(*p)
}
