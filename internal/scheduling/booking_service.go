package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/25f1002229/schedula-backend/internal/observability/metrics"
	redislock "github.com/25f1002229/schedula-backend/internal/redis"
)

// BookingService validates and commits appointment-to-slot assignments.
// Every capacity decision is check-then-act, so it always runs inside a
// Store.WithTx scope with the slot row locked; the Redis slot lock
// additionally serializes single-slot booking sections across processes.
type BookingService struct {
	store   Store
	locker  redislock.Locker
	metrics *metrics.SchedulingMetrics
}

func NewBookingService(store Store, locker redislock.Locker, m *metrics.SchedulingMetrics) *BookingService {
	return &BookingService{store: store, locker: locker, metrics: m}
}

type BookRequest struct {
	DoctorID        uuid.UUID
	PatientID       uuid.UUID
	SlotID          *uuid.UUID
	Reason          string
	PatientType     PatientType
	ConfirmLater    bool
	RequestedWindow *RequestedWindow
}

// Book creates an appointment. With a slot id the appointment is confirmed
// into that slot if capacity allows; without one it is stored as pending
// with the requested window kept verbatim for later manual assignment.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if _, err := s.store.Patients().GetByID(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if _, err := s.store.Doctors().GetByID(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	patientType := req.PatientType
	if patientType == "" {
		patientType = PatientNew
	}

	appt := &Appointment{
		ID:          uuid.New(),
		DoctorID:    req.DoctorID,
		PatientID:   req.PatientID,
		Reason:      req.Reason,
		PatientType: patientType,
	}

	if req.SlotID == nil {
		// Deferred booking: pending until a slot is manually assigned.
		appt.Status = StatusPending
		appt.ConfirmLater = true
		appt.RequestedWindow = req.RequestedWindow
		if err := s.store.Appointments().Create(ctx, appt); err != nil {
			return nil, fmt.Errorf("create pending appointment: %w", err)
		}
		s.metrics.ObserveBooking("pending")
		return appt, nil
	}

	err := s.withSlotLock(ctx, *req.SlotID, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
			slot, err := tx.Slots().GetForDoctorForUpdate(ctx, req.DoctorID, *req.SlotID)
			if err != nil {
				return err
			}
			if err := checkCapacity(ctx, tx, slot, 1); err != nil {
				return err
			}
			appt.Status = StatusConfirmed
			appt.ConfirmLater = false
			appt.SlotID = &slot.ID
			if err := tx.Appointments().Create(ctx, appt); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		s.observeFailure("book", err)
		return nil, err
	}
	s.metrics.ObserveBooking("confirmed")
	return appt, nil
}

type RescheduleRequest struct {
	NewSlotID       *uuid.UUID
	ConfirmLater    *bool
	RequestedWindow *RequestedWindow
}

// Reschedule moves an appointment to another slot of the same doctor, or
// unbinds it back to pending when no slot is given.
func (s *BookingService) Reschedule(ctx context.Context, appointmentID uuid.UUID, req RescheduleRequest) (*Appointment, error) {
	var updated *Appointment

	apply := func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
			appt, err := tx.Appointments().GetByID(ctx, appointmentID)
			if err != nil {
				return err
			}

			if req.NewSlotID != nil {
				// Doctor-scoped lookup: a cross-doctor reschedule reads as
				// the slot not existing.
				slot, err := tx.Slots().GetForDoctorForUpdate(ctx, appt.DoctorID, *req.NewSlotID)
				if err != nil {
					return err
				}
				if err := checkCapacity(ctx, tx, slot, 1); err != nil {
					return err
				}
				appt.SlotID = &slot.ID
				appt.Status = StatusConfirmed
				appt.ConfirmLater = false
				appt.RequestedWindow = nil
			} else {
				appt.SlotID = nil
				appt.Status = StatusPending
				if req.ConfirmLater != nil {
					appt.ConfirmLater = *req.ConfirmLater
				} else {
					appt.ConfirmLater = true
				}
				appt.RequestedWindow = req.RequestedWindow
			}

			if err := tx.Appointments().Update(ctx, appt); err != nil {
				return fmt.Errorf("update appointment: %w", err)
			}
			updated = appt
			return nil
		})
	}

	var err error
	if req.NewSlotID != nil {
		err = s.withSlotLock(ctx, *req.NewSlotID, apply)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		s.observeFailure("reschedule", err)
		return nil, err
	}
	return updated, nil
}

// Cancel transitions an appointment to cancelled. The row is kept; slot
// availability is derived from active-appointment counts, so nothing else
// changes.
func (s *BookingService) Cancel(ctx context.Context, appointmentID uuid.UUID, reason *string) (*Appointment, error) {
	var updated *Appointment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		appt, err := tx.Appointments().GetByID(ctx, appointmentID)
		if err != nil {
			return err
		}
		appt.Status = StatusCancelled
		if reason != nil {
			appt.CancellationReason = reason
		}
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetAppointment retrieves a fully hydrated appointment by id.
func (s *BookingService) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	return s.store.Appointments().GetDetail(ctx, id)
}

// ListForPatient returns the patient's appointments with slot and doctor
// attached.
func (s *BookingService) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	return s.store.Appointments().ListForPatient(ctx, patientID)
}

// ListForDoctor returns the doctor's appointments with slot and patient
// attached.
func (s *BookingService) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	return s.store.Appointments().ListForDoctor(ctx, doctorID)
}

// checkCapacity verifies the slot can take `adding` more active bookings.
// Must be called with the slot row locked.
func checkCapacity(ctx context.Context, tx Store, slot *Slot, adding int) error {
	if slot.Status == SlotCancelled {
		return conflict("slot %s is cancelled", slot.ID)
	}
	if slot.Mode == ModeWave && slot.MaxBookings == nil {
		return badRequest("wave slot %s is missing maxBookings", slot.ID)
	}
	active, err := tx.Appointments().CountActiveForSlot(ctx, slot.ID)
	if err != nil {
		return fmt.Errorf("count active appointments: %w", err)
	}
	if active+adding > slot.CapacityLimit() {
		return fmt.Errorf("%w: slot %s", ErrSlotFull, slot.ID)
	}
	return nil
}

func (s *BookingService) withSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithSlotLock(ctx, slotID, fn)
}

func (s *BookingService) observeFailure(op string, err error) {
	switch {
	case isConflict(err):
		s.metrics.ObserveCapacityConflict(op)
		s.metrics.ObserveBooking("conflict")
	default:
		s.metrics.ObserveBooking("error")
	}
}
