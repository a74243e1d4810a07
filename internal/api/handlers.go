package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/25f1002229/schedula-backend/internal/scheduling"
)

func bookAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		var slotID *uuid.UUID
		if req.SlotID != nil {
			id, err := uuid.Parse(*req.SlotID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
				return
			}
			slotID = &id
		}

		appt, err := svc.Book(r.Context(), scheduling.BookRequest{
			DoctorID:        doctorID,
			PatientID:       patientID,
			SlotID:          slotID,
			Reason:          req.Reason,
			PatientType:     scheduling.PatientType(req.PatientType),
			RequestedWindow: req.RequestedWindow,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}
		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponse(detail))
	}
}

func rescheduleAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}
		var req RescheduleAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		var newSlotID *uuid.UUID
		if req.NewSlotID != nil {
			slotID, err := uuid.Parse(*req.NewSlotID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_new_slot_id", "new_slot_id must be a valid UUID")
				return
			}
			newSlotID = &slotID
		}

		appt, err := svc.Reschedule(r.Context(), id, scheduling.RescheduleRequest{
			NewSlotID:       newSlotID,
			ConfirmLater:    req.ConfirmLater,
			RequestedWindow: req.RequestedWindow,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}
		var req CancelAppointmentRequest
		if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.Cancel(r.Context(), id, req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func bulkCancelHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkCancelRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		n, err := svc.BulkCancel(r.Context(), req.AppointmentIDs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, BulkResultResponse{Updated: n})
	}
}

func bulkRescheduleHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkRescheduleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		n, err := svc.BulkReschedule(r.Context(), req.AppointmentIDs, req.NewSlotID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, BulkResultResponse{Updated: n})
	}
}

func bulkRescheduleMultipleHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkRescheduleMultipleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		pairs := make([]scheduling.ReschedulePair, 0, len(req.Pairs))
		for _, p := range req.Pairs {
			pairs = append(pairs, scheduling.ReschedulePair{
				AppointmentID: p.AppointmentID,
				NewSlotID:     p.NewSlotID,
			})
		}
		n, err := svc.BulkRescheduleMultiple(r.Context(), pairs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, BulkResultResponse{Updated: n})
	}
}

func listPatientAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}
		details, err := svc.ListForPatient(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}

func listDoctorAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}
		details, err := svc.ListForDoctor(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDetailResponses(details))
	}
}
