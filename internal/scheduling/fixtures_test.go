package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store        *memStore
	booking      *BookingService
	slots        *SlotService
	availability *AvailabilityService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	return &testEnv{
		store:        store,
		booking:      NewBookingService(store, nil, nil),
		slots:        NewSlotService(store, nil),
		availability: NewAvailabilityService(store),
	}
}

func (e *testEnv) addDoctor(t *testing.T) uuid.UUID {
	t.Helper()
	d := &Doctor{ID: uuid.New(), Name: "Dr. Test"}
	require.NoError(t, e.store.Doctors().Create(context.Background(), d))
	return d.ID
}

func (e *testEnv) addPatient(t *testing.T) uuid.UUID {
	t.Helper()
	p := &Patient{ID: uuid.New(), Name: "Pat Test"}
	require.NoError(t, e.store.Patients().Create(context.Background(), p))
	return p.ID
}

type slotSpec struct {
	doctorID    uuid.UUID
	date        string
	start, end  int
	mode        SlotMode
	maxBookings int // wave only
	status      SlotStatus
}

func (e *testEnv) addSlot(t *testing.T, spec slotSpec) *Slot {
	t.Helper()
	if spec.date == "" {
		spec.date = "2025-07-01"
	}
	if spec.mode == "" {
		spec.mode = ModeStream
	}
	if spec.status == "" {
		spec.status = SlotAvailable
	}
	var maxBookings *int
	if spec.mode == ModeWave {
		mb := spec.maxBookings
		if mb == 0 {
			mb = 1
		}
		maxBookings = &mb
	}
	slot := &Slot{
		ID:          uuid.New(),
		DoctorID:    spec.doctorID,
		Date:        spec.date,
		StartMinute: spec.start,
		EndMinute:   spec.end,
		Duration:    spec.end - spec.start,
		Mode:        spec.mode,
		MaxBookings: maxBookings,
		Status:      spec.status,
	}
	require.NoError(t, e.store.Slots().Create(context.Background(), slot))
	return slot
}

// book confirms an appointment into the slot and fails the test on error.
func (e *testEnv) book(t *testing.T, doctorID, patientID, slotID uuid.UUID) *Appointment {
	t.Helper()
	appt, err := e.booking.Book(context.Background(), BookRequest{
		DoctorID:  doctorID,
		PatientID: patientID,
		SlotID:    &slotID,
		Reason:    "checkup",
	})
	require.NoError(t, err)
	return appt
}

// bookPending creates a slot-less pending appointment.
func (e *testEnv) bookPending(t *testing.T, doctorID, patientID uuid.UUID) *Appointment {
	t.Helper()
	appt, err := e.booking.Book(context.Background(), BookRequest{
		DoctorID:  doctorID,
		PatientID: patientID,
		Reason:    "checkup",
	})
	require.NoError(t, err)
	return appt
}

func (e *testEnv) getAppt(t *testing.T, id uuid.UUID) *Appointment {
	t.Helper()
	appt, err := e.store.Appointments().GetByID(context.Background(), id)
	require.NoError(t, err)
	return appt
}

func (e *testEnv) getSlot(t *testing.T, doctorID, id uuid.UUID) *Slot {
	t.Helper()
	slot, err := e.store.Slots().GetForDoctor(context.Background(), doctorID, id)
	require.NoError(t, err)
	return slot
}

func intPtr(n int) *int { return &n }
