package api

import (
	"net/http"

	"github.com/25f1002229/schedula-backend/internal/scheduling"
	"github.com/25f1002229/schedula-backend/internal/timeutil"
)

// parseClock converts a "HH:MM" body field to minutes, writing a 400 on
// failure.
func parseClock(w http.ResponseWriter, field, value string) (int, bool) {
	minutes, err := timeutil.ParseClock(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, err.Error())
		return 0, false
	}
	return minutes, true
}

func createSlotHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req CreateSlotRequest
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

		slot, err := svc.CreateSlot(r.Context(), doctorID, scheduling.CreateSlotRequest{
			Date:        req.Date,
			StartMinute: start,
			EndMinute:   end,
			Mode:        scheduling.SlotMode(req.Mode),
			MaxBookings: req.MaxBookings,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSlotResponse(slot))
	}
}

func getSlotHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		slotID, ok := parseIDParam(w, r, "slotID")
		if !ok {
			return
		}
		slot, err := svc.GetSlot(r.Context(), doctorID, slotID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func listSlotsHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}
		slots, err := svc.ListSlots(r.Context(), doctorID, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func resizeSlotHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		slotID, ok := parseIDParam(w, r, "slotID")
		if !ok {
			return
		}
		var req ResizeSlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		var in scheduling.ResizeSlotRequest
		if req.StartTime != nil {
			start, ok := parseClock(w, "start_time", *req.StartTime)
			if !ok {
				return
			}
			in.NewStartMinute = &start
		}
		if req.EndTime != nil {
			end, ok := parseClock(w, "end_time", *req.EndTime)
			if !ok {
				return
			}
			in.NewEndMinute = &end
		}
		in.NewDate = req.Date

		slot, err := svc.ResizeSlot(r.Context(), doctorID, slotID, in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func mergeSlotsHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req MergeSlotsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		merged, err := svc.MergeSlots(r.Context(), doctorID, req.SlotIDs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(merged))
	}
}

func updateSlotModeHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		slotID, ok := parseIDParam(w, r, "slotID")
		if !ok {
			return
		}
		var req UpdateSlotModeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		slot, err := svc.UpdateSlotMode(r.Context(), doctorID, slotID, scheduling.SlotMode(req.Mode), req.MaxBookings)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func updateMaxBookingsHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		slotID, ok := parseIDParam(w, r, "slotID")
		if !ok {
			return
		}
		var req UpdateMaxBookingsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		slot, err := svc.UpdateMaxBookings(r.Context(), doctorID, slotID, req.MaxBookings)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func cancelSlotsHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req CancelSlotsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		n, err := svc.CancelSlots(r.Context(), doctorID, req.SlotIDs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CancelSlotsResponse{Cancelled: n})
	}
}

func generateSlotsHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req GenerateSlotsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err := svc.GenerateSlots(r.Context(), doctorID, scheduling.GenerateSlotsRequest{
			StartDate:    req.StartDate,
			EndDate:      req.EndDate,
			Mode:         scheduling.SlotMode(req.Mode),
			SlotDuration: req.SlotDuration,
			MaxBookings:  req.MaxBookings,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func generateElasticSlotsHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req ElasticSlotsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		slots, err := svc.GenerateElasticSlots(r.Context(), doctorID, req.AvailabilityID,
			req.Date, req.SlotDuration, scheduling.SlotMode(req.Mode), req.MaxBookings)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSlotResponses(slots))
	}
}

func shrinkScheduleHandler(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r, "doctorID")
		if !ok {
			return
		}
		var req ShrinkScheduleRequest
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
		result, err := svc.ShrinkAndRedistribute(r.Context(), doctorID, req.Date, start, end, req.MinDuration)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
