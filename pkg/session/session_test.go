package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ctap/fingerprint/pkg/feedback"
	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/sensortest"
	"github.com/go-ctap/fingerprint/pkg/status"
	"github.com/go-ctap/fingerprint/pkg/workflow"
)

func opener(drv sensor.Driver) sensor.Opener {
	return sensor.OpenerFunc(func() (sensor.Driver, error) {
		return drv, nil
	})
}

func testOptions(extra ...options.Option) []options.Option {
	return append([]options.Option{
		options.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		options.WithCaptureTimeout(time.Second),
		options.WithPollInterval(time.Millisecond),
	}, extra...)
}

func TestOpen(t *testing.T) {
	drv := sensortest.New(10)

	s, err := Open(context.Background(), opener(drv), testOptions()...)
	require.NoError(t, err)
	assert.Equal(t, []sensor.Mode{feedback.DefaultPalette.Ready}, drv.Modes)

	require.NoError(t, s.Close())
	assert.True(t, drv.Closed)
	assert.Equal(t, feedback.DefaultPalette.Off, drv.Modes[len(drv.Modes)-1])
}

func TestOpen_ConnectionError(t *testing.T) {
	cause := errors.New("no such file or directory")

	_, err := Open(context.Background(), sensor.OpenerFunc(func() (sensor.Driver, error) {
		return nil, cause
	}), testOptions()...)

	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, cause)
}

func TestOpen_SensorNotResponding(t *testing.T) {
	drv := sensortest.New(10)
	drv.FeedbackErr = sensor.NewTransportError("AuraLedConfig", io.ErrUnexpectedEOF)

	_, err := Open(context.Background(), opener(drv), testOptions()...)

	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.True(t, drv.Closed)
}

func TestClose_Idempotent(t *testing.T) {
	drv := sensortest.New(10)
	s, err := Open(context.Background(), opener(drv), testOptions()...)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, drv.Count("Close"))

	_, err = s.Enroll(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	_, err = s.Info(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestWith_ClosesOnError(t *testing.T) {
	drv := sensortest.New(10)
	drv.Search = sensor.SearchResult{}

	err := With(context.Background(), opener(drv), func(s *Session) error {
		_, err := s.Authenticate(context.Background())
		return err
	}, testOptions()...)

	require.ErrorIs(t, err, workflow.ErrNotFound)
	assert.True(t, drv.Closed)
}

func TestSession_Feedback(t *testing.T) {
	drv := sensortest.New(10)
	drv.Captures = []sensor.CaptureResult{sensor.CaptureReady, sensor.CaptureNoFinger, sensor.CaptureReady}

	var events []status.Event
	sub := status.SubscriberFunc(func(_ context.Context, e status.Event) {
		events = append(events, e)
	})

	err := With(context.Background(), opener(drv), func(s *Session) error {
		_, err := s.Enroll(context.Background())
		return err
	}, testOptions(options.WithSubscribers(sub), options.WithFeedback(feedback.DefaultPalette))...)
	require.NoError(t, err)

	p := feedback.DefaultPalette
	assert.Equal(t, []sensor.Mode{
		p.Ready,   // open
		p.Ready,   // Start
		p.Place,   // PlaceFinger
		p.Remove,  // RemoveFinger
		p.Place,   // PlaceSameFinger
		p.Process, // Processing
		p.Success, // Success
		p.Off,     // close
	}, drv.Modes)
	assert.Len(t, events, 6)
}

func TestSession_AuthenticateTemplate(t *testing.T) {
	drv := sensortest.New(10).Fill(0, 1)
	drv.Search = sensor.SearchResult{Found: true, Slot: 2, Confidence: 120}

	s, err := Open(context.Background(), opener(drv), testOptions()...)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	match, err := s.AuthenticateTemplate(context.Background(), []byte("sealed-then-opened"))
	require.NoError(t, err)
	assert.Equal(t, 2, match.Slot)

	info, err := s.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, info.Occupied, "staged template must be discarded")
}

func TestSession_AuthenticateTemplate_OnlyAuthenticationIsReported(t *testing.T) {
	drv := sensortest.New(10)
	drv.Search = sensor.SearchResult{Found: true, Slot: 0, Confidence: 70}

	var seen []status.Status
	sub := status.SubscriberFunc(func(_ context.Context, e status.Event) {
		seen = append(seen, e.Status)
	})

	err := With(context.Background(), opener(drv), func(s *Session) error {
		_, err := s.AuthenticateTemplate(context.Background(), []byte("tpl"))
		return err
	}, testOptions(options.WithSubscribers(sub), options.WithFeedback(feedback.DefaultPalette))...)
	require.NoError(t, err)

	assert.Equal(t, []status.Status{status.Start, status.PlaceFinger, status.Processing, status.Success}, seen)

	p := feedback.DefaultPalette
	assert.Equal(t, []sensor.Mode{p.Ready, p.Ready, p.Place, p.Process, p.Success, p.Off}, drv.Modes)
}

func TestSession_AuthenticateTemplate_StagingFails(t *testing.T) {
	drv := sensortest.New(2).Fill(0, 1)

	var seen []status.Status
	sub := status.SubscriberFunc(func(_ context.Context, e status.Event) {
		seen = append(seen, e.Status)
	})

	s, err := Open(context.Background(), opener(drv), testOptions(options.WithSubscribers(sub))...)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.AuthenticateTemplate(context.Background(), []byte("tpl"))
	require.ErrorIs(t, err, workflow.ErrStorageFull)
	assert.Equal(t, []status.Status{status.Start, status.StorageFull}, seen)
	assert.Zero(t, drv.Count("CaptureImage"))
}

func TestSession_AuthenticateTemplate_NotFoundStillDiscards(t *testing.T) {
	drv := sensortest.New(10)

	s, err := Open(context.Background(), opener(drv), testOptions()...)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.AuthenticateTemplate(context.Background(), []byte("tpl"))
	require.ErrorIs(t, err, workflow.ErrNotFound)
	assert.Empty(t, drv.Slots)
	assert.Equal(t, 1, drv.Count("DeleteAtSlot"))
}

func TestSession_StoreDeleteClear(t *testing.T) {
	drv := sensortest.New(3)
	drv.Captures = []sensor.CaptureResult{sensor.CaptureReady, sensor.CaptureNoFinger, sensor.CaptureReady}

	s, err := Open(context.Background(), opener(drv), testOptions()...)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	slot, err := s.Store(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	staged, err := s.Upload(context.Background(), []byte("tpl"))
	require.NoError(t, err)
	assert.Equal(t, 0, staged)

	require.NoError(t, s.Delete(context.Background(), 1))
	require.NoError(t, s.Clear(context.Background()))

	info, err := s.Info(context.Background())
	require.NoError(t, err)
	assert.Zero(t, info.Count())
}

// exclusive fails the test when two driver calls overlap.
type exclusive struct {
	*sensortest.Driver
	t        *testing.T
	inFlight atomic.Int32
}

func (e *exclusive) enter() func() {
	if e.inFlight.Add(1) != 1 {
		e.t.Error("concurrent driver access")
	}
	time.Sleep(100 * time.Microsecond)
	return func() { e.inFlight.Add(-1) }
}

func (e *exclusive) CaptureImage() (sensor.CaptureResult, error) {
	defer e.enter()()
	return e.Driver.CaptureImage()
}

func (e *exclusive) OccupiedSlots() ([]int, error) {
	defer e.enter()()
	return e.Driver.OccupiedSlots()
}

func (e *exclusive) LibrarySize() (int, error) {
	defer e.enter()()
	return e.Driver.LibrarySize()
}

func TestSession_Exclusive(t *testing.T) {
	drv := &exclusive{Driver: sensortest.New(10), t: t}
	drv.Search = sensor.SearchResult{Found: true, Slot: 0, Confidence: 50}
	drv.Fill(0)

	s, err := Open(context.Background(), opener(drv), testOptions()...)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Authenticate(context.Background())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.Info(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
