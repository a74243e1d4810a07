package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Bulk operations extend the single-booking capacity logic to many
// appointments and slots at once. All of them are all-or-nothing: every id
// must resolve and the whole simulated outcome must satisfy capacity before
// any write happens. A failure anywhere rolls back the transaction, so no
// partial result is ever observable.

// BulkCancel cancels every listed appointment, or none.
func (s *BookingService) BulkCancel(ctx context.Context, appointmentIDs []uuid.UUID) (int, error) {
	if len(appointmentIDs) == 0 {
		return 0, badRequest("no appointment ids given")
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		appts, err := tx.Appointments().GetByIDsForUpdate(ctx, appointmentIDs)
		if err != nil {
			return err
		}
		if len(appts) != len(uniqueIDs(appointmentIDs)) {
			return notFound("one or more appointments not found")
		}
		for i := range appts {
			appts[i].Status = StatusCancelled
			if err := tx.Appointments().Update(ctx, &appts[i]); err != nil {
				return fmt.Errorf("cancel appointment %s: %w", appts[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(appointmentIDs), nil
}

// BulkReschedule moves every listed appointment to one target slot, or —
// when newSlotID is nil — unbinds them all back to pending.
func (s *BookingService) BulkReschedule(ctx context.Context, appointmentIDs []uuid.UUID, newSlotID *uuid.UUID) (int, error) {
	if len(appointmentIDs) == 0 {
		return 0, badRequest("no appointment ids given")
	}

	apply := func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
			appts, err := tx.Appointments().GetByIDsForUpdate(ctx, appointmentIDs)
			if err != nil {
				return err
			}
			if len(appts) != len(uniqueIDs(appointmentIDs)) {
				return notFound("one or more appointments not found")
			}

			var slot *Slot
			if newSlotID != nil {
				slots, err := tx.Slots().GetByIDsForUpdate(ctx, []uuid.UUID{*newSlotID})
				if err != nil {
					return err
				}
				if len(slots) == 0 {
					return fmt.Errorf("%w: %s", ErrSlotNotFound, *newSlotID)
				}
				slot = &slots[0]
				// The listed appointments are not yet on the slot, so the
				// current active count plus the whole batch must fit.
				if err := checkCapacity(ctx, tx, slot, len(appts)); err != nil {
					return err
				}
			}

			for i := range appts {
				if slot != nil {
					appts[i].SlotID = &slot.ID
					appts[i].Status = StatusConfirmed
					appts[i].ConfirmLater = false
					appts[i].RequestedWindow = nil
				} else {
					appts[i].SlotID = nil
					appts[i].Status = StatusPending
					appts[i].ConfirmLater = true
				}
				if err := tx.Appointments().Update(ctx, &appts[i]); err != nil {
					return fmt.Errorf("reschedule appointment %s: %w", appts[i].ID, err)
				}
			}
			return nil
		})
	}

	var err error
	if newSlotID != nil {
		err = s.withSlotLock(ctx, *newSlotID, apply)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		s.observeFailure("bulk_reschedule", err)
		return 0, err
	}
	return len(appointmentIDs), nil
}

// ReschedulePair maps one appointment to its new slot.
type ReschedulePair struct {
	AppointmentID uuid.UUID
	NewSlotID     uuid.UUID
}

// BulkRescheduleMultiple validates every (appointment, slot) pair against a
// simulated running booked-count per slot, in input order, and commits all
// bindings only when every pair passes. Input order is the defined
// tie-break: when two pairs compete for a slot's last seat, the earlier
// listed pair wins and the later one fails the whole call.
func (s *BookingService) BulkRescheduleMultiple(ctx context.Context, pairs []ReschedulePair) (int, error) {
	if len(pairs) == 0 {
		return 0, badRequest("no reschedule pairs given")
	}

	apptIDs := make([]uuid.UUID, 0, len(pairs))
	slotIDs := make([]uuid.UUID, 0, len(pairs))
	for _, p := range pairs {
		apptIDs = append(apptIDs, p.AppointmentID)
		slotIDs = append(slotIDs, p.NewSlotID)
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		appts, err := tx.Appointments().GetByIDsForUpdate(ctx, apptIDs)
		if err != nil {
			return err
		}
		if len(appts) != len(uniqueIDs(apptIDs)) {
			return notFound("one or more appointments not found")
		}

		// Row locks on the distinct slot set are taken in id order inside
		// the repository, so concurrent bulk calls cannot deadlock.
		slots, err := tx.Slots().GetByIDsForUpdate(ctx, slotIDs)
		if err != nil {
			return err
		}
		if len(slots) != len(uniqueIDs(slotIDs)) {
			return notFound("one or more target slots not found")
		}

		apptsByID := make(map[uuid.UUID]*Appointment, len(appts))
		for i := range appts {
			apptsByID[appts[i].ID] = &appts[i]
		}
		slotsByID := make(map[uuid.UUID]*Slot, len(slots))
		running := make(map[uuid.UUID]int, len(slots))
		for i := range slots {
			slot := &slots[i]
			slotsByID[slot.ID] = slot
			active, err := tx.Appointments().CountActiveForSlot(ctx, slot.ID)
			if err != nil {
				return fmt.Errorf("count active appointments: %w", err)
			}
			running[slot.ID] = active
		}

		// Simulation pass: no writes until every pair validates.
		for _, p := range pairs {
			appt := apptsByID[p.AppointmentID]
			slot := slotsByID[p.NewSlotID]

			if appt.SlotID != nil && slot.DoctorID != appt.DoctorID {
				return badRequest("slot %s does not belong to the same doctor as appointment %s", slot.ID, appt.ID)
			}
			if slot.Status == SlotCancelled {
				return conflict("slot %s is cancelled", slot.ID)
			}

			count := running[slot.ID]
			switch slot.Mode {
			case ModeStream:
				if count >= 1 {
					return fmt.Errorf("%w: slot %s", ErrSlotFull, slot.ID)
				}
			case ModeWave:
				if slot.MaxBookings == nil {
					return badRequest("wave slot %s is missing maxBookings", slot.ID)
				}
				if count+1 > *slot.MaxBookings {
					return fmt.Errorf("%w: slot %s cannot take appointment %s", ErrSlotFull, slot.ID, appt.ID)
				}
			default:
				return badRequest("unknown slot mode %q on slot %s", slot.Mode, slot.ID)
			}
			running[slot.ID] = count + 1
		}

		// Commit pass.
		for _, p := range pairs {
			appt := apptsByID[p.AppointmentID]
			slotID := p.NewSlotID
			appt.SlotID = &slotID
			appt.Status = StatusConfirmed
			appt.ConfirmLater = false
			appt.RequestedWindow = nil
			if err := tx.Appointments().Update(ctx, appt); err != nil {
				return fmt.Errorf("reschedule appointment %s: %w", appt.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.observeFailure("bulk_reschedule_multiple", err)
		return 0, err
	}
	return len(pairs), nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
