package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/go-ctap/fingerprint/pkg/sensor"
)

// Info is a snapshot of the sensor library.
type Info struct {
	LibrarySize int
	Occupied    []int
}

// Count returns the number of stored templates.
func (i *Info) Count() int {
	return len(i.Occupied)
}

// Free returns the unoccupied slots in ascending order.
func (i *Info) Free() []int {
	free, _ := lo.Difference(lo.Range(i.LibrarySize), i.Occupied)
	return free
}

// Library exposes the slot namespace of the sensor. Nothing is cached: every
// call asks the sensor.
type Library struct {
	drv    sensor.Driver
	logger *slog.Logger
}

func NewLibrary(drv sensor.Driver, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}

	return &Library{
		drv:    drv,
		logger: logger,
	}
}

// Info reads the current library occupancy.
func (l *Library) Info(context.Context) (*Info, error) {
	size, err := l.drv.LibrarySize()
	if err != nil {
		return nil, fmt.Errorf("workflow: read library size: %w", err)
	}

	occupied, err := l.drv.OccupiedSlots()
	if err != nil {
		return nil, fmt.Errorf("workflow: read occupied slots: %w", err)
	}

	return &Info{
		LibrarySize: size,
		// Ignore anything the sensor reports outside of its own library.
		Occupied: lo.Filter(occupied, func(s int, _ int) bool { return s >= 0 && s < size }),
	}, nil
}

// Allocate picks a slot for a new template. A negative slot asks for the first
// free one.
func (l *Library) Allocate(ctx context.Context, slot int) (int, error) {
	info, err := l.Info(ctx)
	if err != nil {
		return 0, err
	}

	free := info.Free()
	if len(free) == 0 {
		return 0, ErrStorageFull
	}

	if slot < 0 {
		l.logger.Info("allocated next free slot", "slot", free[0], "free", len(free))
		return free[0], nil
	}

	if slot >= info.LibrarySize {
		return 0, fmt.Errorf("%w: %d (library size %d)", ErrInvalidSlot, slot, info.LibrarySize)
	}
	if lo.Contains(info.Occupied, slot) {
		return 0, fmt.Errorf("%w: %d", ErrLocationOccupied, slot)
	}

	return slot, nil
}

// Delete removes the template at slot.
func (l *Library) Delete(ctx context.Context, slot int) error {
	size, err := l.drv.LibrarySize()
	if err != nil {
		return fmt.Errorf("workflow: read library size: %w", err)
	}
	if slot < 0 || slot >= size {
		return fmt.Errorf("%w: %d (library size %d)", ErrInvalidSlot, slot, size)
	}

	if err := l.drv.DeleteAtSlot(slot); err != nil {
		return fmt.Errorf("workflow: delete slot %d: %w", slot, err)
	}
	l.logger.Info("template deleted", "slot", slot)

	return nil
}

// Clear empties the whole library.
func (l *Library) Clear(context.Context) error {
	if err := l.drv.ClearLibrary(); err != nil {
		return fmt.Errorf("workflow: clear library: %w", err)
	}
	l.logger.Info("sensor library cleared")

	return nil
}
