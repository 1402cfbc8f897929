package shifts

import (
	"fmt"
	"shiftbooker/lib/textutil"
	"shiftbooker/lib/timezone"
	"strings"
	"time"
)

// TimeCode is how a configuration names one of the three fixed shift
// ranges, by the hours it spans.
type TimeCode int

const (
	Morning   TimeCode = 912
	Afternoon TimeCode = 14
	Evening   TimeCode = 58
)

// Weeks is how many upcoming occurrences of a weekday get resolved.
const Weeks = 3

// DateLayout renders the date half of a shift label, "Saturday, October 24, 2026".
const DateLayout = "Monday, January 2, 2006"

var timeRanges = map[TimeCode]string{
	Morning:   "9:00 AM - 12:00 PM",
	Afternoon: "1:00 PM - 4:00 PM",
	Evening:   "5:00 PM - 8:00 PM",
}

// Range returns the human readable time range of the code,
// ok is false for codes that aren't one of the three known ranges.
func (c TimeCode) Range() (string, bool) {
	r, ok := timeRanges[c]
	return r, ok
}

func (c TimeCode) String() string {
	r, ok := c.Range()
	if !ok {
		return fmt.Sprintf("unknown(%d)", int(c))
	}
	return r
}

var weekdays = map[string]time.Weekday{}

func init() {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		weekdays[name] = d
		weekdays[name[:3]] = d
	}
}

// ParseWeekday accepts full english weekday names and their three letter
// abbreviations in any case, surrounding whitespace is ignored.
func ParseWeekday(name string) (time.Weekday, error) {
	d, ok := weekdays[textutil.NormalizeName(name)]
	if !ok {
		return 0, fmt.Errorf("unrecognized weekday name %q", name)
	}
	return d, nil
}

// monday based index, monday = 0 ... sunday = 6
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// DaysUntil is the number of days from today to the next target weekday,
// always in [1, 7]. when today is the target weekday the answer is 7, today
// itself is never a candidate.
func DaysUntil(today, target time.Weekday) int {
	diff := (mondayIndex(target) - 1 - mondayIndex(today)) % 7
	if diff < 0 {
		diff += 7
	}
	return diff + 1
}

// NextOccurrences returns the next `Weeks` dates falling on target, strictly
// after now, at midnight in now's location.
func NextOccurrences(now time.Time, target time.Weekday) []time.Time {
	today := timezone.StartOfDay(now)
	offset := DaysUntil(today.Weekday(), target)

	dates := make([]time.Time, Weeks)
	for i := range dates {
		dates[i] = today.AddDate(0, 0, offset+i*7)
	}
	return dates
}

// Label renders the string the shift listing uses to describe a shift,
// "Saturday, October 24, 2026 9:00 AM - 12:00 PM".
func Label(date time.Time, code TimeCode) (string, bool) {
	r, ok := code.Range()
	if !ok {
		return "", false
	}
	return date.Format(DateLayout) + " " + r, true
}

// Resolve turns a weekday name and its time codes into the labels of the
// next `Weeks` occurrences. labels are ordered by date, then by the order of
// codes. unknown codes produce no label.
func Resolve(now time.Time, weekday string, codes []TimeCode) ([]string, error) {
	target, err := ParseWeekday(weekday)
	if err != nil {
		return nil, err
	}

	var labels []string
	for _, date := range NextOccurrences(now, target) {
		for _, code := range codes {
			label, ok := Label(date, code)
			if !ok {
				continue
			}
			labels = append(labels, label)
		}
	}
	return labels, nil
}
