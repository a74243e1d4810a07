package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Active reports whether the status counts toward slot capacity.
func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type SlotMode string

const (
	// ModeStream accepts at most one active booking.
	ModeStream SlotMode = "stream"
	// ModeWave accepts up to MaxBookings concurrent active bookings.
	ModeWave SlotMode = "wave"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
)

type PatientType string

const (
	PatientNew      PatientType = "new"
	PatientFollowUp PatientType = "follow_up"
)

type PartOfDay string

const (
	Morning   PartOfDay = "morning"
	Afternoon PartOfDay = "afternoon"
	Evening   PartOfDay = "evening"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Availability is a recurring weekly pattern from which dated slots are
// generated. One record per (doctor, weekday).
type Availability struct {
	ID                  uuid.UUID
	DoctorID            uuid.UUID
	DayOfWeek           string // "Monday" .. "Sunday"
	StartMinute         int
	EndMinute           int
	DefaultSlotDuration int
	MaxBookings         *int // default for generated wave slots
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Slot is a bookable time interval for one doctor on one date.
// StartMinute/EndMinute are minutes from midnight; the store persists them
// as "HH:MM" text.
type Slot struct {
	ID             uuid.UUID
	DoctorID       uuid.UUID
	AvailabilityID *uuid.UUID // provenance link when generated from a pattern
	Date           string     // YYYY-MM-DD
	StartMinute    int
	EndMinute      int
	Duration       int // minutes; always EndMinute - StartMinute
	Mode           SlotMode
	MaxBookings    *int // required and > 0 iff Mode == ModeWave
	Status         SlotStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CapacityLimit is 1 for stream slots and MaxBookings for wave slots.
func (s *Slot) CapacityLimit() int {
	if s.Mode == ModeWave && s.MaxBookings != nil {
		return *s.MaxBookings
	}
	return 1
}

// RequestedWindow is a soft preference carried by a confirm-later booking
// until a slot is manually assigned.
type RequestedWindow struct {
	Date      string     `json:"date"`
	PartOfDay *PartOfDay `json:"part_of_day,omitempty"`
	Urgent    bool       `json:"urgent,omitempty"`
}

type Appointment struct {
	ID                 uuid.UUID
	DoctorID           uuid.UUID
	PatientID          uuid.UUID
	SlotID             *uuid.UUID // nil iff Status == StatusPending
	Reason             string
	Status             AppointmentStatus
	ConfirmLater       bool
	RequestedWindow    *RequestedWindow
	PatientType        PatientType
	CancellationReason *string
	CreatedAt          time.Time // booking-order key for redistribution
	UpdatedAt          time.Time
}

// AppointmentDetail joins an appointment with its related rows for read
// projections.
type AppointmentDetail struct {
	Appointment
	Slot    *Slot
	Doctor  *Doctor
	Patient *Patient
}
