package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookIntoStreamSlot(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	patientID := env.addPatient(t)
	slot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 570})

	appt := env.book(t, doctorID, patientID, slot.ID)

	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.False(t, appt.ConfirmLater)
	require.NotNil(t, appt.SlotID)
	assert.Equal(t, slot.ID, *appt.SlotID)
}

func TestBookStreamSlotAlreadyTaken(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	slot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 570})
	env.book(t, doctorID, env.addPatient(t), slot.ID)

	_, err := env.booking.Book(context.Background(), BookRequest{
		DoctorID:  doctorID,
		PatientID: env.addPatient(t),
		SlotID:    &slot.ID,
	})

	assert.ErrorIs(t, err, ErrSlotFull)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBookWaveSlotUpToCapacity(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	slot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 600, mode: ModeWave, maxBookings: 2})

	first := env.book(t, doctorID, env.addPatient(t), slot.ID)
	env.book(t, doctorID, env.addPatient(t), slot.ID)

	// Third booking exceeds maxBookings.
	_, err := env.booking.Book(context.Background(), BookRequest{
		DoctorID:  doctorID,
		PatientID: env.addPatient(t),
		SlotID:    &slot.ID,
	})
	assert.ErrorIs(t, err, ErrSlotFull)

	// Cancelling one frees a seat: the next booking succeeds.
	_, err = env.booking.Cancel(context.Background(), first.ID, nil)
	require.NoError(t, err)
	env.book(t, doctorID, env.addPatient(t), slot.ID)
}

func TestBookWithoutSlotIsPending(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	patientID := env.addPatient(t)

	afternoon := Afternoon
	appt, err := env.booking.Book(context.Background(), BookRequest{
		DoctorID:  doctorID,
		PatientID: patientID,
		Reason:    "follow up",
		RequestedWindow: &RequestedWindow{
			Date:      "2025-07-10",
			PartOfDay: &afternoon,
			Urgent:    true,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.True(t, appt.ConfirmLater)
	assert.Nil(t, appt.SlotID)
	require.NotNil(t, appt.RequestedWindow)
	assert.Equal(t, "2025-07-10", appt.RequestedWindow.Date)
	assert.True(t, appt.RequestedWindow.Urgent)
}

func TestBookUnknownPatientOrDoctor(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	patientID := env.addPatient(t)

	_, err := env.booking.Book(context.Background(), BookRequest{DoctorID: doctorID, PatientID: uuid.New()})
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = env.booking.Book(context.Background(), BookRequest{DoctorID: uuid.New(), PatientID: patientID})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBookSlotOfOtherDoctor(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	otherDoctor := env.addDoctor(t)
	slot := env.addSlot(t, slotSpec{doctorID: otherDoctor, start: 540, end: 570})

	_, err := env.booking.Book(context.Background(), BookRequest{
		DoctorID:  doctorID,
		PatientID: env.addPatient(t),
		SlotID:    &slot.ID,
	})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestRescheduleToNewSlot(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	patientID := env.addPatient(t)
	oldSlot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 570})
	newSlot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 600, end: 630})
	appt := env.book(t, doctorID, patientID, oldSlot.ID)

	updated, err := env.booking.Reschedule(context.Background(), appt.ID, RescheduleRequest{NewSlotID: &newSlot.ID})
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, updated.Status)
	require.NotNil(t, updated.SlotID)
	assert.Equal(t, newSlot.ID, *updated.SlotID)
	assert.Nil(t, updated.RequestedWindow)
}

func TestRescheduleToFullSlot(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	target := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 570})
	env.book(t, doctorID, env.addPatient(t), target.ID)

	other := env.addSlot(t, slotSpec{doctorID: doctorID, start: 600, end: 630})
	appt := env.book(t, doctorID, env.addPatient(t), other.ID)

	_, err := env.booking.Reschedule(context.Background(), appt.ID, RescheduleRequest{NewSlotID: &target.ID})
	assert.ErrorIs(t, err, ErrSlotFull)

	// Appointment still on its original slot.
	got := env.getAppt(t, appt.ID)
	require.NotNil(t, got.SlotID)
	assert.Equal(t, other.ID, *got.SlotID)
}

func TestRescheduleCrossDoctorRejected(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	otherDoctor := env.addDoctor(t)
	slot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 570})
	foreign := env.addSlot(t, slotSpec{doctorID: otherDoctor, start: 540, end: 570})
	appt := env.book(t, doctorID, env.addPatient(t), slot.ID)

	_, err := env.booking.Reschedule(context.Background(), appt.ID, RescheduleRequest{NewSlotID: &foreign.ID})
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestRescheduleUnbindsToPending(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	slot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 570})
	appt := env.book(t, doctorID, env.addPatient(t), slot.ID)

	window := &RequestedWindow{Date: "2025-07-15"}
	updated, err := env.booking.Reschedule(context.Background(), appt.ID, RescheduleRequest{RequestedWindow: window})
	require.NoError(t, err)

	assert.Nil(t, updated.SlotID)
	assert.Equal(t, StatusPending, updated.Status)
	assert.True(t, updated.ConfirmLater)
	assert.Equal(t, window, updated.RequestedWindow)

	// The vacated stream slot can be booked again.
	env.book(t, doctorID, env.addPatient(t), slot.ID)
}

func TestCancelKeepsRowAndFreesCapacity(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	slot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 570})
	appt := env.book(t, doctorID, env.addPatient(t), slot.ID)

	reason := "patient request"
	cancelled, err := env.booking.Cancel(context.Background(), appt.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, reason, *cancelled.CancellationReason)
	// Slot reference survives cancellation for audit history.
	assert.NotNil(t, cancelled.SlotID)

	// The seat is free again.
	env.book(t, doctorID, env.addPatient(t), slot.ID)
}

func TestCancelUnknownAppointment(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.booking.Cancel(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestListProjections(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.addDoctor(t)
	patientID := env.addPatient(t)
	slot := env.addSlot(t, slotSpec{doctorID: doctorID, start: 540, end: 570})
	appt := env.book(t, doctorID, patientID, slot.ID)
	env.bookPending(t, doctorID, patientID)

	detail, err := env.booking.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Slot)
	assert.Equal(t, slot.ID, detail.Slot.ID)
	require.NotNil(t, detail.Doctor)
	require.NotNil(t, detail.Patient)

	forPatient, err := env.booking.ListForPatient(context.Background(), patientID)
	require.NoError(t, err)
	assert.Len(t, forPatient, 2)

	forDoctor, err := env.booking.ListForDoctor(context.Background(), doctorID)
	require.NoError(t, err)
	assert.Len(t, forDoctor, 2)
}
