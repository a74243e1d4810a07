package scheduling

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for service tests. A single instance backs
// both the root scope and transaction scopes; WithTx snapshots the state and
// restores it when fn fails, which is enough to assert the all-or-nothing
// behavior of the bulk operations.
type memStore struct {
	doctors        map[uuid.UUID]Doctor
	patients       map[uuid.UUID]Patient
	availabilities map[uuid.UUID]Availability
	slots          map[uuid.UUID]Slot
	appointments   map[uuid.UUID]Appointment
	seq            int
}

func newMemStore() *memStore {
	return &memStore{
		doctors:        make(map[uuid.UUID]Doctor),
		patients:       make(map[uuid.UUID]Patient),
		availabilities: make(map[uuid.UUID]Availability),
		slots:          make(map[uuid.UUID]Slot),
		appointments:   make(map[uuid.UUID]Appointment),
	}
}

// tick returns a strictly increasing timestamp so created-at ordering is
// deterministic.
func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) snapshot() *memStore {
	cp := newMemStore()
	cp.seq = m.seq
	for k, v := range m.doctors {
		cp.doctors[k] = v
	}
	for k, v := range m.patients {
		cp.patients[k] = v
	}
	for k, v := range m.availabilities {
		cp.availabilities[k] = v
	}
	for k, v := range m.slots {
		cp.slots[k] = v
	}
	for k, v := range m.appointments {
		cp.appointments[k] = v
	}
	return cp
}

func (m *memStore) restore(snap *memStore) {
	m.doctors = snap.doctors
	m.patients = snap.patients
	m.availabilities = snap.availabilities
	m.slots = snap.slots
	m.appointments = snap.appointments
	m.seq = snap.seq
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) Slots() SlotRepository                  { return &memSlotRepo{m} }
func (m *memStore) Appointments() AppointmentRepository    { return &memAppointmentRepo{m} }
func (m *memStore) Availabilities() AvailabilityRepository { return &memAvailabilityRepo{m} }
func (m *memStore) Doctors() DoctorRepository              { return &memDoctorRepo{m} }
func (m *memStore) Patients() PatientRepository            { return &memPatientRepo{m} }

func sortIDs(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Slots

type memSlotRepo struct {
	m *memStore
}

func (r *memSlotRepo) GetForDoctor(ctx context.Context, doctorID, slotID uuid.UUID) (*Slot, error) {
	s, ok := r.m.slots[slotID]
	if !ok || s.DoctorID != doctorID {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}
	return &s, nil
}

func (r *memSlotRepo) GetForDoctorForUpdate(ctx context.Context, doctorID, slotID uuid.UUID) (*Slot, error) {
	return r.GetForDoctor(ctx, doctorID, slotID)
}

func (r *memSlotRepo) GetByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Slot, error) {
	var out []Slot
	seen := make(map[uuid.UUID]bool)
	for _, id := range sortIDs(ids) {
		if seen[id] {
			continue
		}
		seen[id] = true
		if s, ok := r.m.slots[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSlotRepo) ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string, mode *SlotMode) ([]Slot, error) {
	var out []Slot
	for _, s := range r.m.slots {
		if s.DoctorID != doctorID || s.Date != date {
			continue
		}
		if mode != nil && s.Mode != *mode {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMinute < out[j].StartMinute })
	return out, nil
}

func (r *memSlotRepo) Create(ctx context.Context, slot *Slot) error {
	now := r.m.tick()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	r.m.slots[slot.ID] = *slot
	return nil
}

func (r *memSlotRepo) CreateBatch(ctx context.Context, slots []Slot) error {
	for i := range slots {
		if err := r.Create(ctx, &slots[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *memSlotRepo) Update(ctx context.Context, slot *Slot) error {
	if _, ok := r.m.slots[slot.ID]; !ok {
		return ErrSlotNotFound
	}
	slot.UpdatedAt = r.m.tick()
	r.m.slots[slot.ID] = *slot
	return nil
}

func (r *memSlotRepo) Delete(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(r.m.slots, id)
	}
	return nil
}

func (r *memSlotRepo) SetStatus(ctx context.Context, ids []uuid.UUID, status SlotStatus) error {
	for _, id := range ids {
		if s, ok := r.m.slots[id]; ok {
			s.Status = status
			r.m.slots[id] = s
		}
	}
	return nil
}

func (r *memSlotRepo) CancelFutureForAvailability(ctx context.Context, availabilityID uuid.UUID, fromDate string) (int, error) {
	n := 0
	for id, s := range r.m.slots {
		if s.AvailabilityID != nil && *s.AvailabilityID == availabilityID && s.Date >= fromDate {
			s.Status = SlotCancelled
			r.m.slots[id] = s
			n++
		}
	}
	return n, nil
}

func (r *memSlotRepo) ExistsForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) (bool, error) {
	for _, s := range r.m.slots {
		if s.DoctorID == doctorID && s.Date == date {
			return true, nil
		}
	}
	return false, nil
}

// Appointments

type memAppointmentRepo struct {
	m *memStore
}

func (r *memAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := r.m.appointments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}
	return &a, nil
}

func (r *memAppointmentRepo) GetByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Appointment, error) {
	var out []Appointment
	seen := make(map[uuid.UUID]bool)
	for _, id := range sortIDs(ids) {
		if seen[id] {
			continue
		}
		seen[id] = true
		if a, ok := r.m.appointments[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAppointmentRepo) Create(ctx context.Context, appt *Appointment) error {
	now := r.m.tick()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.m.appointments[appt.ID] = *appt
	return nil
}

func (r *memAppointmentRepo) Update(ctx context.Context, appt *Appointment) error {
	if _, ok := r.m.appointments[appt.ID]; !ok {
		return ErrAppointmentNotFound
	}
	appt.UpdatedAt = r.m.tick()
	r.m.appointments[appt.ID] = *appt
	return nil
}

func (r *memAppointmentRepo) CountActiveForSlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	n := 0
	for _, a := range r.m.appointments {
		if a.SlotID != nil && *a.SlotID == slotID && a.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (r *memAppointmentRepo) ListActiveForSlots(ctx context.Context, slotIDs []uuid.UUID) ([]Appointment, error) {
	want := make(map[uuid.UUID]bool, len(slotIDs))
	for _, id := range slotIDs {
		want[id] = true
	}
	var out []Appointment
	for _, a := range r.m.appointments {
		if a.SlotID != nil && want[*a.SlotID] && a.Status.Active() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memAppointmentRepo) UnassignSlots(ctx context.Context, slotIDs []uuid.UUID) error {
	want := make(map[uuid.UUID]bool, len(slotIDs))
	for _, id := range slotIDs {
		want[id] = true
	}
	for id, a := range r.m.appointments {
		if a.SlotID != nil && want[*a.SlotID] {
			a.SlotID = nil
			r.m.appointments[id] = a
		}
	}
	return nil
}

func (r *memAppointmentRepo) GetDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	a, ok := r.m.appointments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}
	return r.detail(a), nil
}

func (r *memAppointmentRepo) detail(a Appointment) *AppointmentDetail {
	det := &AppointmentDetail{Appointment: a}
	if a.SlotID != nil {
		if s, ok := r.m.slots[*a.SlotID]; ok {
			det.Slot = &s
		}
	}
	if d, ok := r.m.doctors[a.DoctorID]; ok {
		det.Doctor = &d
	}
	if p, ok := r.m.patients[a.PatientID]; ok {
		det.Patient = &p
	}
	return det
}

func (r *memAppointmentRepo) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	var out []AppointmentDetail
	for _, a := range r.m.appointments {
		if a.PatientID == patientID {
			out = append(out, *r.detail(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memAppointmentRepo) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	var out []AppointmentDetail
	for _, a := range r.m.appointments {
		if a.DoctorID == doctorID {
			out = append(out, *r.detail(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Availabilities

type memAvailabilityRepo struct {
	m *memStore
}

func (r *memAvailabilityRepo) GetForDoctor(ctx context.Context, doctorID, availabilityID uuid.UUID) (*Availability, error) {
	a, ok := r.m.availabilities[availabilityID]
	if !ok || a.DoctorID != doctorID {
		return nil, ErrAvailabilityNotFound
	}
	return &a, nil
}

func (r *memAvailabilityRepo) GetForDoctorWeekday(ctx context.Context, doctorID uuid.UUID, dayOfWeek string) (*Availability, error) {
	for _, a := range r.m.availabilities {
		if a.DoctorID == doctorID && a.DayOfWeek == dayOfWeek {
			return &a, nil
		}
	}
	return nil, ErrAvailabilityNotFound
}

func (r *memAvailabilityRepo) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Availability, error) {
	var out []Availability
	for _, a := range r.m.availabilities {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (r *memAvailabilityRepo) Create(ctx context.Context, av *Availability) error {
	now := r.m.tick()
	av.CreatedAt = now
	av.UpdatedAt = now
	r.m.availabilities[av.ID] = *av
	return nil
}

func (r *memAvailabilityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.m.availabilities[id]; !ok {
		return ErrAvailabilityNotFound
	}
	delete(r.m.availabilities, id)
	return nil
}

// Doctors / patients

type memDoctorRepo struct {
	m *memStore
}

func (r *memDoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := r.m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *memDoctorRepo) List(ctx context.Context) ([]Doctor, error) {
	var out []Doctor
	for _, d := range r.m.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memDoctorRepo) Create(ctx context.Context, d *Doctor) error {
	now := r.m.tick()
	d.CreatedAt = now
	d.UpdatedAt = now
	r.m.doctors[d.ID] = *d
	return nil
}

type memPatientRepo struct {
	m *memStore
}

func (r *memPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := r.m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *memPatientRepo) Create(ctx context.Context, p *Patient) error {
	now := r.m.tick()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.m.patients[p.ID] = *p
	return nil
}
