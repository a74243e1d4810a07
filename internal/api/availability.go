package api

import (
	"net/http"

	"github.com/25f1002229/schedula-backend/internal/scheduling"
)

func createAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req CreateAvailabilityRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		start, ok := parseClock(w, "start_time", req.StartTime)
		if !ok {
			return
		}
		end, ok := parseClock(w, "end_time", req.EndTime)
		if !ok {
			return
		}

		av, err := svc.Create(r.Context(), doctorID, scheduling.CreateAvailabilityRequest{
			DayOfWeek:           req.DayOfWeek,
			StartMinute:         start,
			EndMinute:           end,
			DefaultSlotDuration: req.DefaultSlotDuration,
			MaxBookings:         req.MaxBookings,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAvailabilityResponse(av))
	}
}

func listAvailabilitiesHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		patterns, err := svc.ListForDoctor(r.Context(), doctorID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out := make([]AvailabilityResponse, 0, len(patterns))
		for i := range patterns {
			out = append(out, toAvailabilityResponse(&patterns[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		availabilityID, ok := parseIDParam(w, r, "availabilityID")
		if !ok {
			return
		}
		cancelled, err := svc.Delete(r.Context(), doctorID, availabilityID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, DeleteAvailabilityResponse{CancelledSlots: cancelled})
	}
}

func shrinkWindowHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req ShrinkWindowRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		start, ok := parseClock(w, "start_time", req.StartTime)
		if !ok {
			return
		}
		end, ok := parseClock(w, "end_time", req.EndTime)
		if !ok {
			return
		}
		result, err := svc.ShrinkWindow(r.Context(), doctorID, req.Date, start, end)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
