package timezone

import "time"

var Location = time.Local

// SetLocation pins the zone "today" is computed in. The booking site
// renders shift dates in its own local time, so running from a machine in
// another zone near midnight would otherwise pick the wrong day.
// an empty name keeps the current location.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Location = loc
	return nil
}

func Now() time.Time {
	return time.Now().In(Location)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
