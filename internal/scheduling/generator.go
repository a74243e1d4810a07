package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/25f1002229/schedula-backend/internal/timeutil"
)

type GenerateSlotsRequest struct {
	StartDate    string
	EndDate      string
	Mode         SlotMode
	SlotDuration *int // overrides the pattern's default
	MaxBookings  *int // overrides the pattern's default for wave slots
}

// GenerateSlotsResult reports how many date-buckets were filled vs skipped.
type GenerateSlotsResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// GenerateSlots expands the doctor's weekly availability patterns into
// concrete dated slots over [StartDate, EndDate]. Dates that already carry
// slots for the doctor are skipped, so repeated runs are idempotent.
func (s *SlotService) GenerateSlots(ctx context.Context, doctorID uuid.UUID, req GenerateSlotsRequest) (*GenerateSlotsResult, error) {
	start, err := timeutil.ParseDate(req.StartDate)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	end, err := timeutil.ParseDate(req.EndDate)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	if end.Before(start) {
		return nil, badRequest("endDate must not be before startDate")
	}
	if req.SlotDuration != nil && *req.SlotDuration <= 0 {
		return nil, badRequest("slotDuration must be positive")
	}

	patterns, err := s.store.Availabilities().ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}

	result := &GenerateSlotsResult{}
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		for i := range patterns {
			pattern := &patterns[i]
			wd, ok := timeutil.WeekdayNumber(pattern.DayOfWeek)
			if !ok {
				return badRequest("availability %s has unknown weekday %q", pattern.ID, pattern.DayOfWeek)
			}

			for _, date := range timeutil.DatesForWeekday(start, end, wd) {
				dateStr := timeutil.FormatDate(date)
				exists, err := tx.Slots().ExistsForDoctorDate(ctx, doctorID, dateStr)
				if err != nil {
					return fmt.Errorf("check existing slots: %w", err)
				}
				if exists {
					result.Skipped++
					continue
				}

				slots := tileSlots(pattern, dateStr, req.Mode, req.SlotDuration, req.MaxBookings)
				if len(slots) == 0 {
					continue
				}
				if err := tx.Slots().CreateBatch(ctx, slots); err != nil {
					return fmt.Errorf("create slots for %s: %w", dateStr, err)
				}
				result.Created += len(slots)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSlotsGenerated(result.Created)
	return result, nil
}

// GenerateElasticSlots tiles one availability pattern into slots for a
// single date, regardless of other slots the doctor has that day.
func (s *SlotService) GenerateElasticSlots(ctx context.Context, doctorID, availabilityID uuid.UUID, date string, slotDuration int, mode SlotMode, maxBookings *int) ([]Slot, error) {
	if _, err := timeutil.ParseDate(date); err != nil {
		return nil, badRequest("%v", err)
	}
	if slotDuration <= 0 {
		return nil, badRequest("slotDuration must be positive")
	}

	pattern, err := s.store.Availabilities().GetForDoctor(ctx, doctorID, availabilityID)
	if err != nil {
		return nil, err
	}

	slots := tileSlots(pattern, date, mode, &slotDuration, maxBookings)
	if len(slots) == 0 {
		return nil, badRequest("availability window is smaller than the slot duration")
	}
	if err := s.store.Slots().CreateBatch(ctx, slots); err != nil {
		return nil, fmt.Errorf("create slots: %w", err)
	}
	s.metrics.ObserveSlotsGenerated(len(slots))
	return slots, nil
}

// tileSlots cuts a pattern's window into fixed-size slots for one date,
// dropping a trailing partial slot that would overflow the window.
func tileSlots(pattern *Availability, date string, mode SlotMode, slotDuration, maxBookings *int) []Slot {
	duration := pattern.DefaultSlotDuration
	if slotDuration != nil {
		duration = *slotDuration
	}
	if duration <= 0 {
		return nil
	}

	var waveMax *int
	if mode == ModeWave {
		switch {
		case maxBookings != nil:
			waveMax = maxBookings
		case pattern.MaxBookings != nil:
			waveMax = pattern.MaxBookings
		default:
			one := 1
			waveMax = &one
		}
	}

	availabilityID := pattern.ID
	var slots []Slot
	for cur := pattern.StartMinute; cur+duration <= pattern.EndMinute; cur += duration {
		slots = append(slots, Slot{
			ID:             uuid.New(),
			DoctorID:       pattern.DoctorID,
			AvailabilityID: &availabilityID,
			Date:           date,
			StartMinute:    cur,
			EndMinute:      cur + duration,
			Duration:       duration,
			Mode:           mode,
			MaxBookings:    waveMax,
			Status:         SlotAvailable,
		})
	}
	return slots
}
