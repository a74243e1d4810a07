package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/25f1002229/schedula-backend/internal/timeutil"
)

// DB is the subset of pgxpool.Pool the store needs. pgx.Tx satisfies it
// too, which is what lets one PgStore type serve both the root scope and a
// transaction scope.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgStore implements Store on Postgres.
type PgStore struct {
	db DB
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{db: pool}
}

// NewPgStoreWithDB allows injecting pgxmock in tests.
func NewPgStoreWithDB(db DB) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Slots() SlotRepository                  { return &pgSlotRepo{db: s.db} }
func (s *PgStore) Appointments() AppointmentRepository    { return &pgAppointmentRepo{db: s.db} }
func (s *PgStore) Availabilities() AvailabilityRepository { return &pgAvailabilityRepo{db: s.db} }
func (s *PgStore) Doctors() DoctorRepository              { return &pgDoctorRepo{db: s.db} }
func (s *PgStore) Patients() PatientRepository            { return &pgPatientRepo{db: s.db} }

// WithTx runs fn inside a transaction. Nested calls open a savepoint, so a
// service composing other service logic still commits exactly once at the
// outermost scope.
func (s *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &PgStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Slots

type pgSlotRepo struct {
	db DB
}

const slotColumns = `id, doctor_id, availability_id, date, start_time, end_time, duration, mode, max_bookings, status, created_at, updated_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var startTime, endTime string

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.AvailabilityID,
		&s.Date,
		&startTime,
		&endTime,
		&s.Duration,
		&s.Mode,
		&s.MaxBookings,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	if s.StartMinute, err = timeutil.ParseClock(startTime); err != nil {
		return nil, fmt.Errorf("slot %s: %w", s.ID, err)
	}
	if s.EndMinute, err = timeutil.ParseClock(endTime); err != nil {
		return nil, fmt.Errorf("slot %s: %w", s.ID, err)
	}
	return &s, nil
}

func (r *pgSlotRepo) GetForDoctor(ctx context.Context, doctorID, slotID uuid.UUID) (*Slot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1 AND doctor_id = $2
	`, slotID, doctorID)
	return scanSlot(row)
}

func (r *pgSlotRepo) GetForDoctorForUpdate(ctx context.Context, doctorID, slotID uuid.UUID) (*Slot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1 AND doctor_id = $2
		FOR UPDATE
	`, slotID, doctorID)
	return scanSlot(row)
}

func (r *pgSlotRepo) GetByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Slot, error) {
	// Locks are taken in ascending id order so concurrent bulk operations
	// cannot deadlock against each other.
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSlots(rows)
}

func (r *pgSlotRepo) ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string, mode *SlotMode) ([]Slot, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if mode != nil {
		rows, err = r.db.Query(ctx, `
			SELECT `+slotColumns+`
			FROM slots
			WHERE doctor_id = $1 AND date = $2 AND mode = $3
		`, doctorID, date, *mode)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT `+slotColumns+`
			FROM slots
			WHERE doctor_id = $1 AND date = $2
		`, doctorID, date)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots, err := collectSlots(rows)
	if err != nil {
		return nil, err
	}
	// Clock values are stored as text; order by parsed minutes, never
	// lexically.
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartMinute < slots[j].StartMinute })
	return slots, nil
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *pgSlotRepo) Create(ctx context.Context, slot *Slot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO slots (id, doctor_id, availability_id, date, start_time, end_time, duration, mode, max_bookings, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
	`, slot.ID, slot.DoctorID, slot.AvailabilityID, slot.Date,
		timeutil.FormatClock(slot.StartMinute), timeutil.FormatClock(slot.EndMinute),
		slot.Duration, slot.Mode, slot.MaxBookings, slot.Status)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (r *pgSlotRepo) CreateBatch(ctx context.Context, slots []Slot) error {
	for i := range slots {
		if err := r.Create(ctx, &slots[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgSlotRepo) Update(ctx context.Context, slot *Slot) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE slots
		SET date = $2,
		    start_time = $3,
		    end_time = $4,
		    duration = $5,
		    mode = $6,
		    max_bookings = $7,
		    status = $8,
		    updated_at = now()
		WHERE id = $1
	`, slot.ID, slot.Date,
		timeutil.FormatClock(slot.StartMinute), timeutil.FormatClock(slot.EndMinute),
		slot.Duration, slot.Mode, slot.MaxBookings, slot.Status)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *pgSlotRepo) Delete(ctx context.Context, ids []uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM slots WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("delete slots: %w", err)
	}
	return nil
}

func (r *pgSlotRepo) SetStatus(ctx context.Context, ids []uuid.UUID, status SlotStatus) error {
	_, err := r.db.Exec(ctx, `
		UPDATE slots SET status = $2, updated_at = now() WHERE id = ANY($1)
	`, ids, status)
	if err != nil {
		return fmt.Errorf("set slot status: %w", err)
	}
	return nil
}

func (r *pgSlotRepo) CancelFutureForAvailability(ctx context.Context, availabilityID uuid.UUID, fromDate string) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE slots
		SET status = $3, updated_at = now()
		WHERE availability_id = $1 AND date >= $2
	`, availabilityID, fromDate, SlotCancelled)
	if err != nil {
		return 0, fmt.Errorf("cancel future slots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgSlotRepo) ExistsForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM slots WHERE doctor_id = $1 AND date = $2)
	`, doctorID, date).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Appointments

type pgAppointmentRepo struct {
	db DB
}

const appointmentColumns = `id, doctor_id, patient_id, slot_id, reason, status, confirm_later, requested_window, patient_type, cancellation_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.SlotID,
		&a.Reason,
		&a.Status,
		&a.ConfirmLater,
		&a.RequestedWindow,
		&a.PatientType,
		&a.CancellationReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *pgAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *pgAppointmentRepo) GetByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *pgAppointmentRepo) Create(ctx context.Context, appt *Appointment) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, slot_id, reason, status, confirm_later, requested_window, patient_type, cancellation_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING created_at, updated_at
	`, appt.ID, appt.DoctorID, appt.PatientID, appt.SlotID, appt.Reason, appt.Status,
		appt.ConfirmLater, appt.RequestedWindow, appt.PatientType, appt.CancellationReason)
	if err := row.Scan(&appt.CreatedAt, &appt.UpdatedAt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *pgAppointmentRepo) Update(ctx context.Context, appt *Appointment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET slot_id = $2,
		    status = $3,
		    confirm_later = $4,
		    requested_window = $5,
		    cancellation_reason = $6,
		    updated_at = now()
		WHERE id = $1
	`, appt.ID, appt.SlotID, appt.Status, appt.ConfirmLater, appt.RequestedWindow, appt.CancellationReason)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *pgAppointmentRepo) CountActiveForSlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE slot_id = $1 AND status NOT IN ($2, $3)
	`, slotID, StatusCancelled, StatusNoShow).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *pgAppointmentRepo) ListActiveForSlots(ctx context.Context, slotIDs []uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE slot_id = ANY($1) AND status NOT IN ($2, $3)
		ORDER BY created_at
	`, slotIDs, StatusCancelled, StatusNoShow)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *pgAppointmentRepo) UnassignSlots(ctx context.Context, slotIDs []uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE appointments SET slot_id = NULL, updated_at = now() WHERE slot_id = ANY($1)
	`, slotIDs)
	if err != nil {
		return fmt.Errorf("unassign appointments: %w", err)
	}
	return nil
}

const detailColumns = `
	a.id, a.doctor_id, a.patient_id, a.slot_id, a.reason, a.status, a.confirm_later,
	a.requested_window, a.patient_type, a.cancellation_reason, a.created_at, a.updated_at,
	s.id, s.doctor_id, s.availability_id, s.date, s.start_time, s.end_time, s.duration, s.mode, s.max_bookings, s.status, s.created_at, s.updated_at,
	d.id, d.name, d.specialty, d.created_at, d.updated_at,
	p.id, p.name, p.email, p.created_at, p.updated_at`

const detailJoins = `
	FROM appointments a
	LEFT JOIN slots s ON s.id = a.slot_id
	JOIN doctors d ON d.id = a.doctor_id
	JOIN patients p ON p.id = a.patient_id`

func scanDetail(row pgx.Row) (*AppointmentDetail, error) {
	var (
		det       AppointmentDetail
		slot      Slot
		doctor    Doctor
		patient   Patient
		slotID    *uuid.UUID
		slotDocID *uuid.UUID
		availID   *uuid.UUID
		date      *string
		startT    *string
		endT      *string
		duration  *int
		mode      *SlotMode
		maxB      *int
		status    *SlotStatus
		createdAt *time.Time
		updatedAt *time.Time
	)

	err := row.Scan(
		&det.ID, &det.DoctorID, &det.PatientID, &det.SlotID, &det.Reason, &det.Status,
		&det.ConfirmLater, &det.RequestedWindow, &det.PatientType, &det.CancellationReason,
		&det.CreatedAt, &det.UpdatedAt,
		&slotID, &slotDocID, &availID, &date, &startT, &endT, &duration, &mode, &maxB, &status,
		&createdAt, &updatedAt,
		&doctor.ID, &doctor.Name, &doctor.Specialty, &doctor.CreatedAt, &doctor.UpdatedAt,
		&patient.ID, &patient.Name, &patient.Email, &patient.CreatedAt, &patient.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if slotID != nil {
		slot.ID = *slotID
		slot.DoctorID = *slotDocID
		slot.AvailabilityID = availID
		slot.Date = *date
		if slot.StartMinute, err = timeutil.ParseClock(*startT); err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}
		if slot.EndMinute, err = timeutil.ParseClock(*endT); err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot.ID, err)
		}
		slot.Duration = *duration
		slot.Mode = *mode
		slot.MaxBookings = maxB
		slot.Status = *status
		if createdAt != nil {
			slot.CreatedAt = *createdAt
		}
		if updatedAt != nil {
			slot.UpdatedAt = *updatedAt
		}
		det.Slot = &slot
	}
	det.Doctor = &doctor
	det.Patient = &patient
	return &det, nil
}

func (r *pgAppointmentRepo) GetDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.db.QueryRow(ctx, `SELECT `+detailColumns+detailJoins+` WHERE a.id = $1`, id)
	return scanDetail(row)
}

func (r *pgAppointmentRepo) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, `SELECT `+detailColumns+detailJoins+` WHERE a.patient_id = $1 ORDER BY a.created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func (r *pgAppointmentRepo) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, `SELECT `+detailColumns+detailJoins+` WHERE a.doctor_id = $1 ORDER BY a.created_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Availabilities

type pgAvailabilityRepo struct {
	db DB
}

const availabilityColumns = `id, doctor_id, day_of_week, start_time, end_time, default_slot_duration, max_bookings, created_at, updated_at`

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	var startTime, endTime string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.DayOfWeek,
		&startTime,
		&endTime,
		&a.DefaultSlotDuration,
		&a.MaxBookings,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAvailabilityNotFound
		}
		return nil, err
	}

	if a.StartMinute, err = timeutil.ParseClock(startTime); err != nil {
		return nil, fmt.Errorf("availability %s: %w", a.ID, err)
	}
	if a.EndMinute, err = timeutil.ParseClock(endTime); err != nil {
		return nil, fmt.Errorf("availability %s: %w", a.ID, err)
	}
	return &a, nil
}

func (r *pgAvailabilityRepo) GetForDoctor(ctx context.Context, doctorID, availabilityID uuid.UUID) (*Availability, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities
		WHERE id = $1 AND doctor_id = $2
	`, availabilityID, doctorID)
	return scanAvailability(row)
}

func (r *pgAvailabilityRepo) GetForDoctorWeekday(ctx context.Context, doctorID uuid.UUID, dayOfWeek string) (*Availability, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities
		WHERE doctor_id = $1 AND lower(day_of_week) = lower($2)
	`, doctorID, dayOfWeek)
	return scanAvailability(row)
}

func (r *pgAvailabilityRepo) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Availability, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities
		WHERE doctor_id = $1
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Availability
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *pgAvailabilityRepo) Create(ctx context.Context, av *Availability) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO availabilities (id, doctor_id, day_of_week, start_time, end_time, default_slot_duration, max_bookings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, av.ID, av.DoctorID, av.DayOfWeek,
		timeutil.FormatClock(av.StartMinute), timeutil.FormatClock(av.EndMinute),
		av.DefaultSlotDuration, av.MaxBookings)
	if err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

func (r *pgAvailabilityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAvailabilityNotFound
	}
	return nil
}

// Doctors / patients

type pgDoctorRepo struct {
	db DB
}

func (r *pgDoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *pgDoctorRepo) List(ctx context.Context) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM doctors
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *pgDoctorRepo) Create(ctx context.Context, d *Doctor) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO doctors (id, name, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, d.ID, d.Name, d.Specialty)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

type pgPatientRepo struct {
	db DB
}

func (r *pgPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *pgPatientRepo) Create(ctx context.Context, p *Patient) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO patients (id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
	`, p.ID, p.Name, p.Email)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}
