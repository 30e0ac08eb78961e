package stats

import (
	"time"

	"bullshark-strava-sync/internal/apierr"
)

// civilDate is a calendar date with no zone attached
type civilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (d civilDate) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}

// weekOf returns the Monday on or before t's calendar date in t's location
func weekOf(t time.Time) civilDate {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := time.Date(t.Year(), t.Month(), t.Day()-daysSinceMonday, 0, 0, 0, 0, time.UTC)
	return civilDate{monday.Year(), monday.Month(), monday.Day()}
}

// localMidnight returns the single instant at which d begins in loc. A
// midnight skipped or repeated by a zone transition is an InternalConversion
// error.
func localMidnight(d civilDate, loc *time.Location) (time.Time, error) {
	wall := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)

	// Zone transitions are never closer together than a day, so the offsets
	// a day either side are the only ones midnight can have.
	var matches []time.Time
	for _, probe := range []time.Time{wall.Add(-24 * time.Hour), wall.Add(24 * time.Hour)} {
		_, offset := probe.In(loc).Zone()
		candidate := wall.Add(-time.Duration(offset) * time.Second).In(loc)
		if !sameWallClock(candidate, wall) {
			continue
		}
		if len(matches) == 0 || !matches[0].Equal(candidate) {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return time.Time{}, apierr.New(apierr.KindInternalConversion,
			"midnight of %s does not exist in %s", d, loc)
	default:
		return time.Time{}, apierr.New(apierr.KindInternalConversion,
			"midnight of %s is ambiguous in %s", d, loc)
	}
}

func sameWallClock(t, wall time.Time) bool {
	y, m, d := t.Date()
	return y == wall.Year() && m == wall.Month() && d == wall.Day() &&
		t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

// WeekWindow returns the bounds of the Monday-to-Sunday week containing now
// in loc. The end is the last second of Sunday.
func WeekWindow(now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	monday := weekOf(now.In(loc))
	start, err := localMidnight(monday, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	next := time.Date(monday.Year, monday.Month, monday.Day+7, 0, 0, 0, 0, time.UTC)
	end, err := localMidnight(civilDate{next.Year(), next.Month(), next.Day()}, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end.Add(-time.Second), nil
}

// MonthWindow returns the bounds of the calendar month containing now in
// loc. The end is the last second of the month.
func MonthWindow(now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	local := now.In(loc)
	start, err := localMidnight(civilDate{local.Year(), local.Month(), 1}, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	next := time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	end, err := localMidnight(civilDate{next.Year(), next.Month(), 1}, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end.Add(-time.Second), nil
}
