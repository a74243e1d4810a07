package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// SlotRepository contains the slot DB interactions needed by the services.
// The ForUpdate variants take row locks and are only meaningful inside a
// Store.WithTx scope; multi-id locks are acquired in ascending id order so
// concurrent bulk operations cannot deadlock.
type SlotRepository interface {
	GetForDoctor(ctx context.Context, doctorID, slotID uuid.UUID) (*Slot, error)
	GetForDoctorForUpdate(ctx context.Context, doctorID, slotID uuid.UUID) (*Slot, error)
	GetByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Slot, error)
	ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string, mode *SlotMode) ([]Slot, error)
	Create(ctx context.Context, slot *Slot) error
	CreateBatch(ctx context.Context, slots []Slot) error
	Update(ctx context.Context, slot *Slot) error
	Delete(ctx context.Context, ids []uuid.UUID) error
	SetStatus(ctx context.Context, ids []uuid.UUID, status SlotStatus) error
	// CancelFutureForAvailability cancels every slot generated from the
	// pattern whose date is on or after the given date.
	CancelFutureForAvailability(ctx context.Context, availabilityID uuid.UUID, fromDate string) (int, error)
	ExistsForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) (bool, error)
}

// AppointmentRepository contains the appointment DB interactions.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Appointment, error)
	Create(ctx context.Context, appt *Appointment) error
	Update(ctx context.Context, appt *Appointment) error
	// CountActiveForSlot counts appointments on the slot whose status is
	// neither cancelled nor no_show.
	CountActiveForSlot(ctx context.Context, slotID uuid.UUID) (int, error)
	ListActiveForSlots(ctx context.Context, slotIDs []uuid.UUID) ([]Appointment, error)
	// UnassignSlots clears the slot reference on every appointment bound to
	// one of the given slots.
	UnassignSlots(ctx context.Context, slotIDs []uuid.UUID) error
	GetDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error)
}

// AvailabilityRepository contains the weekly-pattern DB interactions.
type AvailabilityRepository interface {
	GetForDoctor(ctx context.Context, doctorID, availabilityID uuid.UUID) (*Availability, error)
	GetForDoctorWeekday(ctx context.Context, doctorID uuid.UUID, dayOfWeek string) (*Availability, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Availability, error)
	Create(ctx context.Context, av *Availability) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type DoctorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context) ([]Doctor, error)
	Create(ctx context.Context, d *Doctor) error
}

type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
}

// Store is the unit-of-work boundary. Repository handles obtained from a
// Store are bound to its scope: on the root store they autocommit, inside
// WithTx they share one transaction which commits iff fn returns nil.
type Store interface {
	Slots() SlotRepository
	Appointments() AppointmentRepository
	Availabilities() AvailabilityRepository
	Doctors() DoctorRepository
	Patients() PatientRepository

	// WithTx runs fn inside a transaction with row-level locking support.
	// The store passed to fn must be used for every access in the scope.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
