package records

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	hourLayout = "15:04"

	// slotSearchDays bounds how far ahead NextAvailableSlot looks.
	slotSearchDays = 30
)

// clinicHours are the bookable starting times of a working day. 13:00 is lunch.
var clinicHours = []string{"09:00", "10:00", "11:00", "12:00", "14:00", "15:00", "16:00"}

// leadDays is how many days after today the first suggestion may fall,
// keyed by triage urgency. Unknown urgency is treated as MEDIA.
var leadDays = map[string]int{
	"ALTA":  0,
	"MEDIA": 1,
	"BAJA":  3,
}

func (s *SQLStore) NextAvailableSlot(ctx context.Context, doctorID int64, urgency string) (Slot, error) {
	doc, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return Slot{}, err
	}
	if !doc.Available {
		return Slot{}, fmt.Errorf("doctor %d unavailable: %w", doctorID, ErrNotFound)
	}

	now := s.now()
	lead, ok := leadDays[strings.ToUpper(strings.TrimSpace(urgency))]
	if !ok {
		lead = leadDays["MEDIA"]
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, lead)

	booked, err := s.bookedSlots(ctx, doctorID, start.Format(dateLayout))
	if err != nil {
		return Slot{}, err
	}

	slot, ok := firstFreeSlot(now, start, booked)
	if !ok {
		return Slot{}, fmt.Errorf("no free slot for doctor %d in %d days: %w", doctorID, slotSearchDays, ErrNotFound)
	}
	slot.DoctorID = doctorID
	return slot, nil
}

// firstFreeSlot walks weekdays from start and returns the first clinic hour
// that is not booked and not already past relative to now.
func firstFreeSlot(now, start time.Time, booked map[string]bool) (Slot, bool) {
	for d := 0; d < slotSearchDays; d++ {
		day := start.AddDate(0, 0, d)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		date := day.Format(dateLayout)
		for _, h := range clinicHours {
			if booked[date+" "+h] {
				continue
			}
			if date == now.Format(dateLayout) && h <= now.Format(hourLayout) {
				continue
			}
			return Slot{Date: date, Time: h}, true
		}
	}
	return Slot{}, false
}

// bookable reports whether date and hour name a clinic hour on a weekday
// that has not started yet.
func bookable(now time.Time, date, hour string) bool {
	day, err := time.ParseInLocation(dateLayout, date, now.Location())
	if err != nil {
		return false
	}
	if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		return false
	}
	if !slices.Contains(clinicHours, hour) {
		return false
	}
	today := now.Format(dateLayout)
	return date > today || (date == today && hour > now.Format(hourLayout))
}

func (s *SQLStore) bookedSlots(ctx context.Context, doctorID int64, fromDate string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT fecha, hora FROM citas WHERE doctor_id = ? AND estado = ? AND fecha >= ?`),
		doctorID, StatusScheduled, fromDate)
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	defer rows.Close()

	booked := map[string]bool{}
	for rows.Next() {
		var date, hour string
		if err := rows.Scan(&date, &hour); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		booked[date+" "+hour] = true
	}
	return booked, rows.Err()
}
