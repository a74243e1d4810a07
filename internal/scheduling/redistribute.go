package scheduling

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/25f1002229/schedula-backend/internal/timeutil"
)

// RedistributeResult reports the outcome of a window shrink. Appointments
// that did not fit keep their status and are listed for manual rescheduling;
// no automatic retry is attempted.
type RedistributeResult struct {
	Reassigned          int         `json:"reassigned"`
	ManualReschedule    int         `json:"manual_reschedule"`
	ManualRescheduleIDs []uuid.UUID `json:"manual_reschedule_ids,omitempty"`
	NewSlotCount        int         `json:"new_slot_count"`
	SlotDurationMinutes int         `json:"slot_duration_minutes"`
}

// ShrinkAndRedistribute shrinks the doctor's stream-slot grid for a date to
// [newStart, newEnd) and redistributes the existing bookings into a
// recomputed grid. Earliest-created appointments win seats; the overflow is
// returned for manual follow-up. The old-slot deletion, new-slot creation
// and reassignments commit as one transaction.
func (s *SlotService) ShrinkAndRedistribute(ctx context.Context, doctorID uuid.UUID, date string, newStart, newEnd, minDuration int) (*RedistributeResult, error) {
	if _, err := timeutil.ParseDate(date); err != nil {
		return nil, badRequest("%v", err)
	}
	if err := validateWindow(newStart, newEnd); err != nil {
		return nil, err
	}
	if minDuration <= 0 {
		return nil, badRequest("minDuration must be positive")
	}

	windowDuration := newEnd - newStart
	if windowDuration < minDuration {
		return nil, badRequest("availability window is too small")
	}

	var result *RedistributeResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		mode := ModeStream
		slots, err := tx.Slots().ListForDoctorDate(ctx, doctorID, date, &mode)
		if err != nil {
			return fmt.Errorf("list stream slots: %w", err)
		}
		if len(slots) == 0 {
			result = &RedistributeResult{}
			return nil
		}

		slotIDs := make([]uuid.UUID, len(slots))
		for i := range slots {
			slotIDs[i] = slots[i].ID
		}
		// Lock the whole grid before reading booking state.
		if _, err := tx.Slots().GetByIDsForUpdate(ctx, slotIDs); err != nil {
			return err
		}

		appointments, err := tx.Appointments().ListActiveForSlots(ctx, slotIDs)
		if err != nil {
			return fmt.Errorf("list appointments: %w", err)
		}
		if len(appointments) == 0 {
			result = &RedistributeResult{}
			return nil
		}

		slotDuration := windowDuration / len(appointments)
		if slotDuration < minDuration {
			slotDuration = minDuration
		}
		maxFit := windowDuration / slotDuration
		if maxFit == 0 {
			return conflict("availability too small to accommodate any appointment")
		}

		if err := tx.Appointments().UnassignSlots(ctx, slotIDs); err != nil {
			return fmt.Errorf("unassign appointments: %w", err)
		}
		if err := tx.Slots().Delete(ctx, slotIDs); err != nil {
			return fmt.Errorf("delete old slots: %w", err)
		}

		newSlots := make([]Slot, 0, maxFit)
		for cur := newStart; len(newSlots) < maxFit && cur < newEnd; cur += slotDuration {
			end := cur + slotDuration
			if end > newEnd {
				end = newEnd
			}
			newSlots = append(newSlots, Slot{
				ID:          uuid.New(),
				DoctorID:    doctorID,
				Date:        date,
				StartMinute: cur,
				EndMinute:   end,
				Duration:    end - cur,
				Mode:        ModeStream,
				Status:      SlotAvailable,
			})
		}
		if err := tx.Slots().CreateBatch(ctx, newSlots); err != nil {
			return fmt.Errorf("create new slots: %w", err)
		}

		// FIFO by booking order: the earliest-created appointments keep
		// their place in the shrunk window.
		sort.SliceStable(appointments, func(i, j int) bool {
			return appointments[i].CreatedAt.Before(appointments[j].CreatedAt)
		})

		fit := len(appointments)
		if fit > len(newSlots) {
			fit = len(newSlots)
		}
		for i := 0; i < fit; i++ {
			appt := appointments[i]
			appt.SlotID = &newSlots[i].ID
			appt.Status = StatusConfirmed
			if err := tx.Appointments().Update(ctx, &appt); err != nil {
				return fmt.Errorf("reassign appointment %s: %w", appt.ID, err)
			}
		}

		overflow := appointments[fit:]
		overflowIDs := make([]uuid.UUID, 0, len(overflow))
		for _, appt := range overflow {
			overflowIDs = append(overflowIDs, appt.ID)
		}

		result = &RedistributeResult{
			Reassigned:          fit,
			ManualReschedule:    len(overflow),
			ManualRescheduleIDs: overflowIDs,
			NewSlotCount:        len(newSlots),
			SlotDurationMinutes: slotDuration,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveRedistribution(result.Reassigned, result.ManualReschedule)
	return result, nil
}
