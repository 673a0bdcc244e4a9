package workflow

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-ctap/fingerprint/pkg/options"
	"github.com/go-ctap/fingerprint/pkg/sensor"
	"github.com/go-ctap/fingerprint/pkg/sensortest"
	"github.com/go-ctap/fingerprint/pkg/status"
)

// Placement, removal, second placement.
var oneEnrollment = []sensor.CaptureResult{sensor.CaptureReady, sensor.CaptureNoFinger, sensor.CaptureReady}

func TestEnroller_Enroll(t *testing.T) {
	drv := sensortest.New(200)
	drv.Captures = append(drv.Captures, oneEnrollment...)
	ch, rec := testChannel()

	tpl, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Enroll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sensortest.DefaultTemplate, tpl)

	assert.Equal(t, []status.Status{
		status.Start,
		status.PlaceFinger,
		status.RemoveFinger,
		status.PlaceSameFinger,
		status.Processing,
		status.Success,
	}, rec.statuses())
	assert.Equal(t, len(tpl), rec.last().TemplateLen.MustGet())

	runID := rec.events[0].RunID
	for _, e := range rec.events {
		assert.Equal(t, runID, e.RunID)
	}
	assert.Zero(t, drv.Count("StoreAtSlot"))
}

func TestEnroller_Enroll_Mismatch(t *testing.T) {
	drv := sensortest.New(200)
	drv.Captures = append(drv.Captures, oneEnrollment...)
	drv.Combine = sensor.CombineMismatch
	ch, rec := testChannel()

	tpl, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Enroll(context.Background())
	assert.Nil(t, tpl)
	require.ErrorIs(t, err, ErrEnrollMismatch)
	assert.Equal(t, status.EnrollMismatch, StatusOf(err))
	assert.True(t, Retryable(err))
	assert.Equal(t, status.EnrollMismatch, rec.last().Status)
	assert.Zero(t, drv.Count("UploadTemplate"))
}

func TestEnroller_Enroll_CombineError(t *testing.T) {
	drv := sensortest.New(200)
	drv.Captures = append(drv.Captures, oneEnrollment...)
	drv.Combine = sensor.CombineError
	ch, rec := testChannel()

	_, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Enroll(context.Background())
	require.ErrorIs(t, err, ErrCombineFailed)
	assert.Equal(t, status.Fail, StatusOf(err))
	assert.Equal(t, status.Fail, rec.last().Status)
}

func TestEnroller_Enroll_RejectedImagesAreRetried(t *testing.T) {
	drv := sensortest.New(200)
	drv.Captures = []sensor.CaptureResult{
		sensor.CaptureNoFinger,
		sensor.CaptureImagingError,
		sensor.CaptureReady, // messy
		sensor.CaptureReady, // no features
		sensor.CaptureReady, // ok
		sensor.CaptureNoFinger,
		sensor.CaptureReady,
	}
	drv.Converts = []sensor.ConvertResult{sensor.ConvertMessyImage, sensor.ConvertFeatureFail}
	ch, rec := testChannel()

	_, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Enroll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, drv.Count("ImageToTemplate"))
	assert.Equal(t, 7, drv.Count("CaptureImage"))
	assert.Equal(t, status.Success, rec.last().Status)
}

func TestEnroller_Enroll_CaptureTimeout(t *testing.T) {
	drv := sensortest.New(200)
	drv.CaptureDefault = sensor.CaptureNoFinger
	ch, rec := testChannel()

	timeout := 150 * time.Millisecond
	start := time.Now()
	_, err := NewEnroller(drv, ch, fastOptions(timeout)...).Enroll(context.Background())
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrCaptureTimeout)
	assert.True(t, Retryable(err))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+250*time.Millisecond)
	assert.Equal(t, []status.Status{status.Start, status.PlaceFinger, status.Fail}, rec.statuses())
}

func TestEnroller_Enroll_FingerNeverRemoved(t *testing.T) {
	drv := sensortest.New(200)
	ch, rec := testChannel()

	_, err := NewEnroller(drv, ch, fastOptions(100*time.Millisecond)...).Enroll(context.Background())
	require.ErrorIs(t, err, ErrFingerNotRemoved)
	assert.Equal(t, []status.Status{status.Start, status.PlaceFinger, status.RemoveFinger, status.Fail}, rec.statuses())
}

func TestEnroller_Enroll_TransportError(t *testing.T) {
	drv := sensortest.New(200)
	drv.CaptureErr = sensor.NewTransportError("get image", io.ErrUnexpectedEOF)
	ch, _ := testChannel()

	_, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Enroll(context.Background())

	var terr *sensor.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, status.Fail, StatusOf(err))
	assert.False(t, Retryable(err))
	assert.Equal(t, 1, drv.Count("CaptureImage"))
}

func TestEnroller_Enroll_Canceled(t *testing.T) {
	drv := sensortest.New(200)
	drv.CaptureDefault = sensor.CaptureNoFinger
	ch, _ := testChannel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEnroller(drv, ch, fastOptions(time.Minute)...).Enroll(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, drv.Count("CaptureImage"))
}

func TestEnroller_NilLogger(t *testing.T) {
	drv := sensortest.New(200)
	drv.Captures = append(drv.Captures, oneEnrollment...)

	opts := append(fastOptions(time.Second), options.WithLogger(nil))
	assert.NotPanics(t, func() {
		_, err := NewEnroller(drv, status.NewChannel(nil), opts...).Enroll(context.Background())
		assert.NoError(t, err)
	})
	assert.NotPanics(t, func() {
		_, err := NewIdentifier(drv, nil, opts...).Upload(context.Background(), []byte{0x01})
		assert.NoError(t, err)
	})
}

func TestEnroller_Store(t *testing.T) {
	t.Run("next free slot", func(t *testing.T) {
		drv := sensortest.New(5).Fill(0, 1, 3)
		drv.Captures = append(drv.Captures, oneEnrollment...)
		ch, rec := testChannel()

		slot, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Store(context.Background(), -1)
		require.NoError(t, err)
		assert.Equal(t, 2, slot)
		assert.Contains(t, drv.Slots, 2)
		assert.Equal(t, 2, rec.last().Slot.MustGet())
	})

	t.Run("chosen slot", func(t *testing.T) {
		drv := sensortest.New(5).Fill(0)
		drv.Captures = append(drv.Captures, oneEnrollment...)
		ch, _ := testChannel()

		slot, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Store(context.Background(), 4)
		require.NoError(t, err)
		assert.Equal(t, 4, slot)
	})

	t.Run("occupied slot is not overwritten", func(t *testing.T) {
		drv := sensortest.New(5).Fill(0, 1)
		ch, rec := testChannel()

		_, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Store(context.Background(), 1)
		require.ErrorIs(t, err, ErrLocationOccupied)
		assert.Equal(t, status.LocationOccupied, rec.last().Status)
		assert.Zero(t, drv.Count("CaptureImage"))
		assert.Zero(t, drv.Count("StoreAtSlot"))
		assert.Zero(t, drv.Count("DeleteAtSlot"))
	})

	t.Run("full library", func(t *testing.T) {
		drv := sensortest.New(3).Fill(0, 1, 2)
		ch, rec := testChannel()

		_, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Store(context.Background(), -1)
		require.ErrorIs(t, err, ErrStorageFull)
		assert.Equal(t, []status.Status{status.Start, status.StorageFull}, rec.statuses())
	})

	t.Run("slot outside library", func(t *testing.T) {
		drv := sensortest.New(3)
		ch, _ := testChannel()

		_, err := NewEnroller(drv, ch, fastOptions(time.Second)...).Store(context.Background(), 3)
		require.ErrorIs(t, err, ErrInvalidSlot)
		assert.Equal(t, status.Fail, StatusOf(err))
	})
}
