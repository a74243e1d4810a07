package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/25f1002229/schedula-backend/internal/timeutil"
)

// AvailabilityService manages the weekly recurring patterns that slot
// generation expands, plus per-date window adjustments that do not
// redistribute bookings.
type AvailabilityService struct {
	store Store
	now   func() time.Time
}

func NewAvailabilityService(store Store) *AvailabilityService {
	return &AvailabilityService{store: store, now: time.Now}
}

type CreateAvailabilityRequest struct {
	DayOfWeek           string
	StartMinute         int
	EndMinute           int
	DefaultSlotDuration int
	MaxBookings         *int
}

// Create adds a weekly pattern. Only one pattern may exist per doctor and
// weekday.
func (s *AvailabilityService) Create(ctx context.Context, doctorID uuid.UUID, req CreateAvailabilityRequest) (*Availability, error) {
	if _, err := s.store.Doctors().GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	if _, ok := timeutil.WeekdayNumber(req.DayOfWeek); !ok {
		return nil, badRequest("unknown weekday %q", req.DayOfWeek)
	}
	if err := validateWindow(req.StartMinute, req.EndMinute); err != nil {
		return nil, err
	}
	if req.DefaultSlotDuration <= 0 {
		return nil, badRequest("defaultSlotDuration must be positive")
	}

	existing, err := s.store.Availabilities().GetForDoctorWeekday(ctx, doctorID, req.DayOfWeek)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("availability for this weekday already exists")
	}

	av := &Availability{
		ID:                  uuid.New(),
		DoctorID:            doctorID,
		DayOfWeek:           req.DayOfWeek,
		StartMinute:         req.StartMinute,
		EndMinute:           req.EndMinute,
		DefaultSlotDuration: req.DefaultSlotDuration,
		MaxBookings:         req.MaxBookings,
	}
	if err := s.store.Availabilities().Create(ctx, av); err != nil {
		return nil, fmt.Errorf("create availability: %w", err)
	}
	return av, nil
}

// ListForDoctor returns the doctor's weekly patterns.
func (s *AvailabilityService) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Availability, error) {
	return s.store.Availabilities().ListForDoctor(ctx, doctorID)
}

// Delete removes a pattern and force-cancels every future slot generated
// from it, booked or not. Unlike the other slot-mutating operations this
// deliberately ignores active bookings: removing the pattern is the doctor
// withdrawing the service.
func (s *AvailabilityService) Delete(ctx context.Context, doctorID, availabilityID uuid.UUID) (int, error) {
	av, err := s.store.Availabilities().GetForDoctor(ctx, doctorID, availabilityID)
	if err != nil {
		return 0, err
	}

	today := timeutil.FormatDate(s.now().UTC())
	var cancelled int
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		n, err := tx.Slots().CancelFutureForAvailability(ctx, av.ID, today)
		if err != nil {
			return fmt.Errorf("cancel future slots: %w", err)
		}
		cancelled = n
		if err := tx.Availabilities().Delete(ctx, av.ID); err != nil {
			return fmt.Errorf("delete availability: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

// ShrinkWindowResult reports a per-date window shrink that cancels unbooked
// slots rather than redistributing.
type ShrinkWindowResult struct {
	CancelledSlots int `json:"cancelled_slots"`
}

// ShrinkWindow narrows one date's offered window to [newStart, newEnd):
// unbooked slots falling outside are cancelled; an actively booked slot
// outside the window aborts the shrink.
func (s *AvailabilityService) ShrinkWindow(ctx context.Context, doctorID uuid.UUID, date string, newStart, newEnd int) (*ShrinkWindowResult, error) {
	if _, err := timeutil.ParseDate(date); err != nil {
		return nil, badRequest("%v", err)
	}
	if err := validateWindow(newStart, newEnd); err != nil {
		return nil, err
	}

	var result *ShrinkWindowResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		slots, err := tx.Slots().ListForDoctorDate(ctx, doctorID, date, nil)
		if err != nil {
			return fmt.Errorf("list slots: %w", err)
		}

		var outside []uuid.UUID
		for i := range slots {
			slot := &slots[i]
			if slot.Status == SlotCancelled {
				continue
			}
			if slot.StartMinute >= newStart && slot.EndMinute <= newEnd {
				continue
			}
			active, err := tx.Appointments().CountActiveForSlot(ctx, slot.ID)
			if err != nil {
				return fmt.Errorf("count active appointments: %w", err)
			}
			if active > 0 {
				return conflict("cannot shrink window: slot %s outside the new range has active bookings", slot.ID)
			}
			outside = append(outside, slot.ID)
		}

		if len(outside) > 0 {
			if err := tx.Slots().SetStatus(ctx, outside, SlotCancelled); err != nil {
				return fmt.Errorf("cancel slots: %w", err)
			}
		}
		result = &ShrinkWindowResult{CancelledSlots: len(outside)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
