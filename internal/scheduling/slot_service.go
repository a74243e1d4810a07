package scheduling

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/25f1002229/schedula-backend/internal/observability/metrics"
	"github.com/25f1002229/schedula-backend/internal/timeutil"
)

// SlotService owns structural slot operations: creation, resize, merge,
// mode/capacity changes, cancellation, pattern-based generation and window
// redistribution. Mutations that depend on booking state lock the affected
// slot rows for the whole check-and-write.
type SlotService struct {
	store   Store
	metrics *metrics.SchedulingMetrics
}

func NewSlotService(store Store, m *metrics.SchedulingMetrics) *SlotService {
	return &SlotService{store: store, metrics: m}
}

type CreateSlotRequest struct {
	Date        string
	StartMinute int
	EndMinute   int
	Mode        SlotMode
	MaxBookings *int
}

// CreateSlot creates a single slot for a doctor directly, outside any
// availability pattern.
func (s *SlotService) CreateSlot(ctx context.Context, doctorID uuid.UUID, req CreateSlotRequest) (*Slot, error) {
	if _, err := s.store.Doctors().GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	if _, err := timeutil.ParseDate(req.Date); err != nil {
		return nil, badRequest("%v", err)
	}
	if err := validateWindow(req.StartMinute, req.EndMinute); err != nil {
		return nil, err
	}
	maxBookings, err := normalizeMaxBookings(req.Mode, req.MaxBookings)
	if err != nil {
		return nil, err
	}

	slot := &Slot{
		ID:          uuid.New(),
		DoctorID:    doctorID,
		Date:        req.Date,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		Duration:    req.EndMinute - req.StartMinute,
		Mode:        req.Mode,
		MaxBookings: maxBookings,
		Status:      SlotAvailable,
	}
	if err := s.store.Slots().Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return slot, nil
}

// GetSlot returns one slot scoped to the doctor.
func (s *SlotService) GetSlot(ctx context.Context, doctorID, slotID uuid.UUID) (*Slot, error) {
	return s.store.Slots().GetForDoctor(ctx, doctorID, slotID)
}

// ListSlots returns the doctor's slots for a date, ordered by start time.
func (s *SlotService) ListSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]Slot, error) {
	if _, err := timeutil.ParseDate(date); err != nil {
		return nil, badRequest("%v", err)
	}
	return s.store.Slots().ListForDoctorDate(ctx, doctorID, date, nil)
}

type ResizeSlotRequest struct {
	NewStartMinute *int
	NewEndMinute   *int
	NewDate        *string
}

// ResizeSlot changes a slot's time window and/or date. Time changes require
// both bounds, refuse slots with active bookings, and refuse overlap with
// any other slot of the same doctor and date.
func (s *SlotService) ResizeSlot(ctx context.Context, doctorID, slotID uuid.UUID, req ResizeSlotRequest) (*Slot, error) {
	if (req.NewStartMinute == nil) != (req.NewEndMinute == nil) {
		return nil, badRequest("both start and end must be provided when changing time")
	}
	if req.NewDate != nil {
		if _, err := timeutil.ParseDate(*req.NewDate); err != nil {
			return nil, badRequest("%v", err)
		}
	}

	var updated *Slot
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		slot, err := tx.Slots().GetForDoctorForUpdate(ctx, doctorID, slotID)
		if err != nil {
			return err
		}

		if req.NewStartMinute != nil {
			newStart, newEnd := *req.NewStartMinute, *req.NewEndMinute
			if err := validateWindow(newStart, newEnd); err != nil {
				return err
			}

			active, err := tx.Appointments().CountActiveForSlot(ctx, slot.ID)
			if err != nil {
				return fmt.Errorf("count active appointments: %w", err)
			}
			if active > 0 {
				return fmt.Errorf("%w: cannot resize slot %s", ErrSlotHasBookings, slot.ID)
			}

			date := slot.Date
			if req.NewDate != nil {
				date = *req.NewDate
			}
			siblings, err := tx.Slots().ListForDoctorDate(ctx, doctorID, date, nil)
			if err != nil {
				return fmt.Errorf("list slots: %w", err)
			}
			for _, other := range siblings {
				if other.ID == slot.ID || other.Status == SlotCancelled {
					continue
				}
				if timeutil.Overlaps(other.StartMinute, other.EndMinute, newStart, newEnd) {
					return conflict("new time window overlaps slot %s (%s-%s)",
						other.ID, timeutil.FormatClock(other.StartMinute), timeutil.FormatClock(other.EndMinute))
				}
			}

			slot.StartMinute = newStart
			slot.EndMinute = newEnd
			slot.Duration = newEnd - newStart
		}
		if req.NewDate != nil {
			slot.Date = *req.NewDate
		}

		if err := tx.Slots().Update(ctx, slot); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MergeSlots replaces two or more exactly contiguous unbooked slots with one
// slot spanning their union. For wave slots the merged maxBookings is the
// max of the inputs. The deletions and the insertion commit together or not
// at all.
func (s *SlotService) MergeSlots(ctx context.Context, doctorID uuid.UUID, slotIDs []uuid.UUID) (*Slot, error) {
	if len(slotIDs) < 2 {
		return nil, badRequest("provide at least two slot ids to merge")
	}

	var merged *Slot
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		slots, err := tx.Slots().GetByIDsForUpdate(ctx, slotIDs)
		if err != nil {
			return err
		}
		if len(slots) != len(uniqueIDs(slotIDs)) {
			return notFound("one or more slots not found")
		}

		date := slots[0].Date
		mode := slots[0].Mode
		for i := range slots {
			slot := &slots[i]
			if slot.DoctorID != doctorID || slot.Date != date || slot.Mode != mode || slot.Status != SlotAvailable {
				return conflict("slots must be available, on the same date, same doctor and same mode")
			}
		}

		active, err := tx.Appointments().ListActiveForSlots(ctx, slotIDs)
		if err != nil {
			return fmt.Errorf("list active appointments: %w", err)
		}
		if len(active) > 0 {
			return fmt.Errorf("%w: cannot merge", ErrSlotHasBookings)
		}

		sort.Slice(slots, func(i, j int) bool { return slots[i].StartMinute < slots[j].StartMinute })
		for i := 0; i < len(slots)-1; i++ {
			if slots[i].EndMinute != slots[i+1].StartMinute {
				return conflict("slots must be consecutive with no gaps or overlaps")
			}
		}

		var maxBookings *int
		if mode == ModeWave {
			max := 0
			for i := range slots {
				if slots[i].MaxBookings != nil && *slots[i].MaxBookings > max {
					max = *slots[i].MaxBookings
				}
			}
			maxBookings = &max
		}

		merged = &Slot{
			ID:          uuid.New(),
			DoctorID:    doctorID,
			Date:        date,
			StartMinute: slots[0].StartMinute,
			EndMinute:   slots[len(slots)-1].EndMinute,
			Duration:    slots[len(slots)-1].EndMinute - slots[0].StartMinute,
			Mode:        mode,
			MaxBookings: maxBookings,
			Status:      SlotAvailable,
		}
		if err := tx.Slots().Create(ctx, merged); err != nil {
			return fmt.Errorf("create merged slot: %w", err)
		}
		if err := tx.Slots().Delete(ctx, slotIDs); err != nil {
			return fmt.Errorf("delete merged-away slots: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// UpdateSlotMode switches a slot between stream and wave. The change is
// validated against the slot's current active bookings: the new capacity
// limit must still cover them.
func (s *SlotService) UpdateSlotMode(ctx context.Context, doctorID, slotID uuid.UUID, newMode SlotMode, maxBookings *int) (*Slot, error) {
	normalized, err := normalizeMaxBookings(newMode, maxBookings)
	if err != nil {
		return nil, err
	}

	var updated *Slot
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		slot, err := tx.Slots().GetForDoctorForUpdate(ctx, doctorID, slotID)
		if err != nil {
			return err
		}

		active, err := tx.Appointments().CountActiveForSlot(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("count active appointments: %w", err)
		}
		newLimit := 1
		if newMode == ModeWave {
			newLimit = *normalized
		}
		if active > newLimit {
			return conflict("cannot switch slot %s to %s: %d active bookings exceed the new limit %d",
				slot.ID, newMode, active, newLimit)
		}

		slot.Mode = newMode
		slot.MaxBookings = normalized
		if err := tx.Slots().Update(ctx, slot); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateMaxBookings changes a wave slot's capacity. Reducing it below the
// current active booking count is refused.
func (s *SlotService) UpdateMaxBookings(ctx context.Context, doctorID, slotID uuid.UUID, newMax int) (*Slot, error) {
	if newMax <= 0 {
		return nil, badRequest("maxBookings must be positive")
	}

	var updated *Slot
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		slot, err := tx.Slots().GetForDoctorForUpdate(ctx, doctorID, slotID)
		if err != nil {
			return err
		}
		if slot.Mode != ModeWave {
			return badRequest("only wave slots support maxBookings updates")
		}

		active, err := tx.Appointments().CountActiveForSlot(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("count active appointments: %w", err)
		}
		if newMax < active {
			return conflict("cannot reduce maxBookings below current booked patients (%d)", active)
		}

		slot.MaxBookings = &newMax
		if err := tx.Slots().Update(ctx, slot); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelSlots marks every listed slot cancelled, atomically. Any slot with
// an active appointment aborts the whole set.
func (s *SlotService) CancelSlots(ctx context.Context, doctorID uuid.UUID, slotIDs []uuid.UUID) (int, error) {
	if len(slotIDs) == 0 {
		return 0, badRequest("no slot ids given")
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		slots, err := tx.Slots().GetByIDsForUpdate(ctx, slotIDs)
		if err != nil {
			return err
		}
		if len(slots) != len(uniqueIDs(slotIDs)) {
			return notFound("one or more slots not found for this doctor")
		}
		for i := range slots {
			if slots[i].DoctorID != doctorID {
				return notFound("one or more slots not found for this doctor")
			}
		}

		active, err := tx.Appointments().ListActiveForSlots(ctx, slotIDs)
		if err != nil {
			return fmt.Errorf("list active appointments: %w", err)
		}
		if len(active) > 0 {
			return badRequest("slot %s has existing booked appointments and cannot be cancelled", *active[0].SlotID)
		}

		if err := tx.Slots().SetStatus(ctx, slotIDs, SlotCancelled); err != nil {
			return fmt.Errorf("cancel slots: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(slotIDs), nil
}

func validateWindow(start, end int) error {
	if start < 0 || end > timeutil.MinutesPerDay {
		return badRequest("time window out of range")
	}
	if end <= start {
		return badRequest("end time must be after start time")
	}
	return nil
}

// normalizeMaxBookings enforces the mode/capacity pairing: wave requires a
// positive maxBookings, stream must not carry one.
func normalizeMaxBookings(mode SlotMode, maxBookings *int) (*int, error) {
	switch mode {
	case ModeWave:
		if maxBookings == nil || *maxBookings <= 0 {
			return nil, badRequest("maxBookings is required and must be positive for wave mode")
		}
		return maxBookings, nil
	case ModeStream:
		return nil, nil
	default:
		return nil, badRequest("unknown slot mode %q", mode)
	}
}
