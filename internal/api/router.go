package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/25f1002229/schedula-backend/internal/scheduling"
)

// Service interfaces consumed by the handlers. The concrete scheduling
// services satisfy them; tests substitute stubs.

type BookingService interface {
	Book(ctx context.Context, req scheduling.BookRequest) (*scheduling.Appointment, error)
	Reschedule(ctx context.Context, appointmentID uuid.UUID, req scheduling.RescheduleRequest) (*scheduling.Appointment, error)
	Cancel(ctx context.Context, appointmentID uuid.UUID, reason *string) (*scheduling.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*scheduling.AppointmentDetail, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]scheduling.AppointmentDetail, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]scheduling.AppointmentDetail, error)
	BulkCancel(ctx context.Context, appointmentIDs []uuid.UUID) (int, error)
	BulkReschedule(ctx context.Context, appointmentIDs []uuid.UUID, newSlotID *uuid.UUID) (int, error)
	BulkRescheduleMultiple(ctx context.Context, pairs []scheduling.ReschedulePair) (int, error)
}

type SlotService interface {
	CreateSlot(ctx context.Context, doctorID uuid.UUID, req scheduling.CreateSlotRequest) (*scheduling.Slot, error)
	GetSlot(ctx context.Context, doctorID, slotID uuid.UUID) (*scheduling.Slot, error)
	ListSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]scheduling.Slot, error)
	ResizeSlot(ctx context.Context, doctorID, slotID uuid.UUID, req scheduling.ResizeSlotRequest) (*scheduling.Slot, error)
	MergeSlots(ctx context.Context, doctorID uuid.UUID, slotIDs []uuid.UUID) (*scheduling.Slot, error)
	UpdateSlotMode(ctx context.Context, doctorID, slotID uuid.UUID, newMode scheduling.SlotMode, maxBookings *int) (*scheduling.Slot, error)
	UpdateMaxBookings(ctx context.Context, doctorID, slotID uuid.UUID, newMax int) (*scheduling.Slot, error)
	CancelSlots(ctx context.Context, doctorID uuid.UUID, slotIDs []uuid.UUID) (int, error)
	GenerateSlots(ctx context.Context, doctorID uuid.UUID, req scheduling.GenerateSlotsRequest) (*scheduling.GenerateSlotsResult, error)
	GenerateElasticSlots(ctx context.Context, doctorID, availabilityID uuid.UUID, date string, slotDuration int, mode scheduling.SlotMode, maxBookings *int) ([]scheduling.Slot, error)
	ShrinkAndRedistribute(ctx context.Context, doctorID uuid.UUID, date string, newStart, newEnd, minDuration int) (*scheduling.RedistributeResult, error)
}

type AvailabilityService interface {
	Create(ctx context.Context, doctorID uuid.UUID, req scheduling.CreateAvailabilityRequest) (*scheduling.Availability, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]scheduling.Availability, error)
	Delete(ctx context.Context, doctorID, availabilityID uuid.UUID) (int, error)
	ShrinkWindow(ctx context.Context, doctorID uuid.UUID, date string, newStart, newEnd int) (*scheduling.ShrinkWindowResult, error)
}

type RouterConfig struct {
	Booking      BookingService
	Slots        SlotService
	Availability AvailabilityService
	Logger       *slog.Logger
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookAppointmentHandler(cfg.Booking))
		r.Post("/bulk-cancel", bulkCancelHandler(cfg.Booking))
		r.Post("/bulk-reschedule", bulkRescheduleHandler(cfg.Booking))
		r.Post("/bulk-reschedule-multiple", bulkRescheduleMultipleHandler(cfg.Booking))
		r.Get("/{id}", getAppointmentHandler(cfg.Booking))
		r.Patch("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Booking))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Booking))
	})

	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Booking))

	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/appointments", listDoctorAppointmentsHandler(cfg.Booking))

		r.Route("/slots", func(r chi.Router) {
			r.Post("/", createSlotHandler(cfg.Slots))
			r.Get("/", listSlotsHandler(cfg.Slots))
			r.Post("/merge", mergeSlotsHandler(cfg.Slots))
			r.Post("/cancel", cancelSlotsHandler(cfg.Slots))
			r.Post("/generate", generateSlotsHandler(cfg.Slots))
			r.Post("/generate-elastic", generateElasticSlotsHandler(cfg.Slots))
			r.Post("/shrink", shrinkScheduleHandler(cfg.Slots))
			r.Get("/{slotID}", getSlotHandler(cfg.Slots))
			r.Patch("/{slotID}", resizeSlotHandler(cfg.Slots))
			r.Patch("/{slotID}/mode", updateSlotModeHandler(cfg.Slots))
			r.Patch("/{slotID}/max-bookings", updateMaxBookingsHandler(cfg.Slots))
		})

		r.Route("/availabilities", func(r chi.Router) {
			r.Post("/", createAvailabilityHandler(cfg.Availability))
			r.Get("/", listAvailabilitiesHandler(cfg.Availability))
			r.Post("/shrink-window", shrinkWindowHandler(cfg.Availability))
			r.Delete("/{availabilityID}", deleteAvailabilityHandler(cfg.Availability))
		})
	})

	return r
}
