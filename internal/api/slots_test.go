package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/25f1002229/schedula-backend/internal/scheduling"
)

type stubSlots struct {
	createSlot            func(context.Context, uuid.UUID, scheduling.CreateSlotRequest) (*scheduling.Slot, error)
	getSlot               func(context.Context, uuid.UUID, uuid.UUID) (*scheduling.Slot, error)
	listSlots             func(context.Context, uuid.UUID, string) ([]scheduling.Slot, error)
	resizeSlot            func(context.Context, uuid.UUID, uuid.UUID, scheduling.ResizeSlotRequest) (*scheduling.Slot, error)
	mergeSlots            func(context.Context, uuid.UUID, []uuid.UUID) (*scheduling.Slot, error)
	updateSlotMode        func(context.Context, uuid.UUID, uuid.UUID, scheduling.SlotMode, *int) (*scheduling.Slot, error)
	updateMaxBookings     func(context.Context, uuid.UUID, uuid.UUID, int) (*scheduling.Slot, error)
	cancelSlots           func(context.Context, uuid.UUID, []uuid.UUID) (int, error)
	generateSlots         func(context.Context, uuid.UUID, scheduling.GenerateSlotsRequest) (*scheduling.GenerateSlotsResult, error)
	generateElasticSlots  func(context.Context, uuid.UUID, uuid.UUID, string, int, scheduling.SlotMode, *int) ([]scheduling.Slot, error)
	shrinkAndRedistribute func(context.Context, uuid.UUID, string, int, int, int) (*scheduling.RedistributeResult, error)
}

func (s *stubSlots) CreateSlot(ctx context.Context, doctorID uuid.UUID, req scheduling.CreateSlotRequest) (*scheduling.Slot, error) {
	return s.createSlot(ctx, doctorID, req)
}

func (s *stubSlots) GetSlot(ctx context.Context, doctorID, slotID uuid.UUID) (*scheduling.Slot, error) {
	return s.getSlot(ctx, doctorID, slotID)
}

func (s *stubSlots) ListSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]scheduling.Slot, error) {
	return s.listSlots(ctx, doctorID, date)
}

func (s *stubSlots) ResizeSlot(ctx context.Context, doctorID, slotID uuid.UUID, req scheduling.ResizeSlotRequest) (*scheduling.Slot, error) {
	return s.resizeSlot(ctx, doctorID, slotID, req)
}

func (s *stubSlots) MergeSlots(ctx context.Context, doctorID uuid.UUID, slotIDs []uuid.UUID) (*scheduling.Slot, error) {
	return s.mergeSlots(ctx, doctorID, slotIDs)
}

func (s *stubSlots) UpdateSlotMode(ctx context.Context, doctorID, slotID uuid.UUID, mode scheduling.SlotMode, maxBookings *int) (*scheduling.Slot, error) {
	return s.updateSlotMode(ctx, doctorID, slotID, mode, maxBookings)
}

func (s *stubSlots) UpdateMaxBookings(ctx context.Context, doctorID, slotID uuid.UUID, newMax int) (*scheduling.Slot, error) {
	return s.updateMaxBookings(ctx, doctorID, slotID, newMax)
}

func (s *stubSlots) CancelSlots(ctx context.Context, doctorID uuid.UUID, slotIDs []uuid.UUID) (int, error) {
	return s.cancelSlots(ctx, doctorID, slotIDs)
}

func (s *stubSlots) GenerateSlots(ctx context.Context, doctorID uuid.UUID, req scheduling.GenerateSlotsRequest) (*scheduling.GenerateSlotsResult, error) {
	return s.generateSlots(ctx, doctorID, req)
}

func (s *stubSlots) GenerateElasticSlots(ctx context.Context, doctorID, availabilityID uuid.UUID, date string, slotDuration int, mode scheduling.SlotMode, maxBookings *int) ([]scheduling.Slot, error) {
	return s.generateElasticSlots(ctx, doctorID, availabilityID, date, slotDuration, mode, maxBookings)
}

func (s *stubSlots) ShrinkAndRedistribute(ctx context.Context, doctorID uuid.UUID, date string, newStart, newEnd, minDuration int) (*scheduling.RedistributeResult, error) {
	return s.shrinkAndRedistribute(ctx, doctorID, date, newStart, newEnd, minDuration)
}

func newTestRouter(slots SlotService) http.Handler {
	return NewRouter(RouterConfig{
		Booking: &stubBooking{},
		Slots:   slots,
	})
}

func TestCreateSlotRoute(t *testing.T) {
	doctorID := uuid.New()
	svc := &stubSlots{
		createSlot: func(ctx context.Context, gotDoctor uuid.UUID, req scheduling.CreateSlotRequest) (*scheduling.Slot, error) {
			assert.Equal(t, doctorID, gotDoctor)
			assert.Equal(t, 540, req.StartMinute)
			assert.Equal(t, 570, req.EndMinute)
			return &scheduling.Slot{
				ID:          uuid.New(),
				DoctorID:    gotDoctor,
				Date:        req.Date,
				StartMinute: req.StartMinute,
				EndMinute:   req.EndMinute,
				Duration:    30,
				Mode:        req.Mode,
				Status:      scheduling.SlotAvailable,
			}, nil
		},
	}

	rec := postJSON(t, newTestRouter(svc), "/doctors/"+doctorID.String()+"/slots", CreateSlotRequest{
		Date:      "2025-07-01",
		StartTime: "09:00",
		EndTime:   "09:30",
		Mode:      "stream",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "09:00", resp.StartTime)
	assert.Equal(t, "09:30", resp.EndTime)
}

func TestCreateSlotRouteBadClock(t *testing.T) {
	rec := postJSON(t, newTestRouter(&stubSlots{}), "/doctors/"+uuid.New().String()+"/slots", CreateSlotRequest{
		Date:      "2025-07-01",
		StartTime: "25:99",
		EndTime:   "09:30",
		Mode:      "stream",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_start_time", resp.Error)
}

func TestListSlotsRouteRequiresDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/doctors/"+uuid.New().String()+"/slots", nil)
	rec := httptest.NewRecorder()
	newTestRouter(&stubSlots{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShrinkScheduleRoute(t *testing.T) {
	doctorID := uuid.New()
	svc := &stubSlots{
		shrinkAndRedistribute: func(ctx context.Context, gotDoctor uuid.UUID, date string, start, end, minDuration int) (*scheduling.RedistributeResult, error) {
			assert.Equal(t, "2025-07-01", date)
			assert.Equal(t, 540, start)
			assert.Equal(t, 600, end)
			assert.Equal(t, 10, minDuration)
			return &scheduling.RedistributeResult{Reassigned: 3, NewSlotCount: 3, SlotDurationMinutes: 20}, nil
		},
	}

	rec := postJSON(t, newTestRouter(svc), "/doctors/"+doctorID.String()+"/slots/shrink", ShrinkScheduleRequest{
		Date:        "2025-07-01",
		StartTime:   "09:00",
		EndTime:     "10:00",
		MinDuration: 10,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp scheduling.RedistributeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Reassigned)
}

func TestSlotRouteInvalidDoctorID(t *testing.T) {
	rec := postJSON(t, newTestRouter(&stubSlots{}), "/doctors/nope/slots", CreateSlotRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
