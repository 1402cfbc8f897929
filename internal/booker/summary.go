package booker

import (
	"fmt"
	"shiftbooker/lib/scrapers/betterimpact"
	"strings"
	"time"
)

// ShiftDuration is how long every bookable shift lasts. the signup response
// carries a start time too, but the start shown to the user is always derived
// from the end time minus this.
const ShiftDuration = 3 * time.Hour

// intervalLayout parses either half of a TimeIntervalString, the trailing
// fractional seconds ("15:00:00.0000000") are accepted by time.Parse without
// being spelled out in the layout.
const intervalLayout = "2006-01-02T15:04:05"

const (
	startLayout = "Monday, January 2, 2006 3:04 PM"
	endLayout   = "3:04 PM"
)

const NoShiftsMessage = "Sorry, the shifts are full or could not be found."

// intervalEnd returns the end timestamp of a "<start>/<end>" interval.
func intervalEnd(interval string) (time.Time, error) {
	parts := strings.Split(interval, "/")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("time interval %q has no end", interval)
	}
	end, err := time.Parse(intervalLayout, parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse end of time interval %q: %w", interval, err)
	}
	return end, nil
}

// Summarize renders the message shown after a booking run. rejected
// bookings are left out, if nothing was booked the whole message is
// NoShiftsMessage.
func Summarize(responses []betterimpact.SignupResponse) (string, error) {
	var lines []string
	for _, res := range responses {
		if !res.WasSuccessful {
			continue
		}
		end, err := intervalEnd(res.TimeIntervalString)
		if err != nil {
			return "", err
		}
		start := end.Add(-ShiftDuration)
		lines = append(lines, fmt.Sprintf(
			"- %s to %s",
			start.Format(startLayout),
			end.Format(endLayout),
		))
	}

	if len(lines) == 0 {
		return NoShiftsMessage, nil
	}
	return fmt.Sprintf(
		"Successfully signed up for %d shifts:\n%s",
		len(lines),
		strings.Join(lines, "\n"),
	), nil
}
