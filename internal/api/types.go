package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/25f1002229/schedula-backend/internal/scheduling"
	"github.com/25f1002229/schedula-backend/internal/timeutil"
)

// Request bodies. Times of day cross the wire as "HH:MM" text and dates as
// "YYYY-MM-DD", matching the storage format.

type BookAppointmentRequest struct {
	DoctorID        string                      `json:"doctor_id"`
	PatientID       string                      `json:"patient_id"`
	SlotID          *string                     `json:"slot_id,omitempty"`
	Reason          string                      `json:"reason"`
	PatientType     string                      `json:"patient_type,omitempty"`
	RequestedWindow *scheduling.RequestedWindow `json:"requested_window,omitempty"`
}

type RescheduleAppointmentRequest struct {
	NewSlotID       *string                     `json:"new_slot_id,omitempty"`
	ConfirmLater    *bool                       `json:"confirm_later,omitempty"`
	RequestedWindow *scheduling.RequestedWindow `json:"requested_window,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type BulkCancelRequest struct {
	AppointmentIDs []uuid.UUID `json:"appointment_ids"`
}

type BulkRescheduleRequest struct {
	AppointmentIDs []uuid.UUID `json:"appointment_ids"`
	NewSlotID      *uuid.UUID  `json:"new_slot_id,omitempty"`
}

type ReschedulePairRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	NewSlotID     uuid.UUID `json:"new_slot_id"`
}

type BulkRescheduleMultipleRequest struct {
	Pairs []ReschedulePairRequest `json:"pairs"`
}

type CreateSlotRequest struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Mode        string `json:"mode"`
	MaxBookings *int   `json:"max_bookings,omitempty"`
}

type ResizeSlotRequest struct {
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Date      *string `json:"date,omitempty"`
}

type MergeSlotsRequest struct {
	SlotIDs []uuid.UUID `json:"slot_ids"`
}

type UpdateSlotModeRequest struct {
	Mode        string `json:"mode"`
	MaxBookings *int   `json:"max_bookings,omitempty"`
}

type UpdateMaxBookingsRequest struct {
	MaxBookings int `json:"max_bookings"`
}

type CancelSlotsRequest struct {
	SlotIDs []uuid.UUID `json:"slot_ids"`
}

type GenerateSlotsRequest struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Mode         string `json:"mode"`
	SlotDuration *int   `json:"slot_duration,omitempty"`
	MaxBookings  *int   `json:"max_bookings,omitempty"`
}

type ElasticSlotsRequest struct {
	AvailabilityID uuid.UUID `json:"availability_id"`
	Date           string    `json:"date"`
	SlotDuration   int       `json:"slot_duration"`
	Mode           string    `json:"mode"`
	MaxBookings    *int      `json:"max_bookings,omitempty"`
}

type ShrinkScheduleRequest struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	MinDuration int    `json:"min_duration"`
}

type CreateAvailabilityRequest struct {
	DayOfWeek           string `json:"day_of_week"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	DefaultSlotDuration int    `json:"default_slot_duration"`
	MaxBookings         *int   `json:"max_bookings,omitempty"`
}

type ShrinkWindowRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Responses.

type AppointmentResponse struct {
	ID                 uuid.UUID                   `json:"id"`
	DoctorID           uuid.UUID                   `json:"doctor_id"`
	PatientID          uuid.UUID                   `json:"patient_id"`
	SlotID             *uuid.UUID                  `json:"slot_id,omitempty"`
	Reason             string                      `json:"reason,omitempty"`
	Status             string                      `json:"status"`
	ConfirmLater       bool                        `json:"confirm_later"`
	RequestedWindow    *scheduling.RequestedWindow `json:"requested_window,omitempty"`
	PatientType        string                      `json:"patient_type,omitempty"`
	CancellationReason *string                     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

type SlotResponse struct {
	ID             uuid.UUID  `json:"id"`
	DoctorID       uuid.UUID  `json:"doctor_id"`
	AvailabilityID *uuid.UUID `json:"availability_id,omitempty"`
	Date           string     `json:"date"`
	StartTime      string     `json:"start_time"`
	EndTime        string     `json:"end_time"`
	Duration       int        `json:"duration"`
	Mode           string     `json:"mode"`
	MaxBookings    *int       `json:"max_bookings,omitempty"`
	Status         string     `json:"status"`
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type PatientResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Slot    *SlotResponse    `json:"slot,omitempty"`
	Doctor  *DoctorResponse  `json:"doctor,omitempty"`
	Patient *PatientResponse `json:"patient,omitempty"`
}

type AvailabilityResponse struct {
	ID                  uuid.UUID `json:"id"`
	DoctorID            uuid.UUID `json:"doctor_id"`
	DayOfWeek           string    `json:"day_of_week"`
	StartTime           string    `json:"start_time"`
	EndTime             string    `json:"end_time"`
	DefaultSlotDuration int       `json:"default_slot_duration"`
	MaxBookings         *int      `json:"max_bookings,omitempty"`
}

type BulkResultResponse struct {
	Updated int `json:"updated"`
}

type CancelSlotsResponse struct {
	Cancelled int `json:"cancelled"`
}

type DeleteAvailabilityResponse struct {
	CancelledSlots int `json:"cancelled_slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		DoctorID:           a.DoctorID,
		PatientID:          a.PatientID,
		SlotID:             a.SlotID,
		Reason:             a.Reason,
		Status:             string(a.Status),
		ConfirmLater:       a.ConfirmLater,
		RequestedWindow:    a.RequestedWindow,
		PatientType:        string(a.PatientType),
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func toSlotResponse(s *scheduling.Slot) SlotResponse {
	return SlotResponse{
		ID:             s.ID,
		DoctorID:       s.DoctorID,
		AvailabilityID: s.AvailabilityID,
		Date:           s.Date,
		StartTime:      timeutil.FormatClock(s.StartMinute),
		EndTime:        timeutil.FormatClock(s.EndMinute),
		Duration:       s.Duration,
		Mode:           string(s.Mode),
		MaxBookings:    s.MaxBookings,
		Status:         string(s.Status),
	}
}

func toSlotResponses(slots []scheduling.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, toSlotResponse(&slots[i]))
	}
	return out
}

func toAvailabilityResponse(a *scheduling.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		ID:                  a.ID,
		DoctorID:            a.DoctorID,
		DayOfWeek:           a.DayOfWeek,
		StartTime:           timeutil.FormatClock(a.StartMinute),
		EndTime:             timeutil.FormatClock(a.EndMinute),
		DefaultSlotDuration: a.DefaultSlotDuration,
		MaxBookings:         a.MaxBookings,
	}
}

func toDetailResponse(d *scheduling.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{AppointmentResponse: toAppointmentResponse(&d.Appointment)}
	if d.Slot != nil {
		slot := toSlotResponse(d.Slot)
		resp.Slot = &slot
	}
	if d.Doctor != nil {
		resp.Doctor = &DoctorResponse{ID: d.Doctor.ID, Name: d.Doctor.Name, Specialty: d.Doctor.Specialty}
	}
	if d.Patient != nil {
		resp.Patient = &PatientResponse{ID: d.Patient.ID, Name: d.Patient.Name, Email: d.Patient.Email}
	}
	return resp
}

func toDetailResponses(details []scheduling.AppointmentDetail) []AppointmentDetailResponse {
	out := make([]AppointmentDetailResponse, 0, len(details))
	for i := range details {
		out = append(out, toDetailResponse(&details[i]))
	}
	return out
}
