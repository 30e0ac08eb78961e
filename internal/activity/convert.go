// Package activity maps club feed entries to stored activities.
//
// The club feed carries no activity id, so each activity is identified by a
// SHA-256 digest of the athlete's name and the activity's distance and
// durations. Two activities by the same athlete with identical distance and
// times collide and are stored once.
package activity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"bullshark-strava-sync/internal/apierr"
	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/strava"
)

const (
	identifierDelimiter = "|"
	unknownName         = "Unknown"
)

// Identifier returns the hex-encoded digest identifying an activity
func Identifier(firstName, lastName string, distance float64, movingTime, elapsedTime int64) string {
	composite := strings.Join([]string{
		firstName,
		lastName,
		strconv.FormatFloat(distance, 'f', -1, 64),
		strconv.FormatInt(movingTime, 10),
		strconv.FormatInt(elapsedTime, 10),
	}, identifierDelimiter)

	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}

// Convert maps one club activity to a stored activity observed at batchTime.
// It fails with a Conversion error when any field needed for the identifier
// is missing.
func Convert(a strava.ClubActivity, batchTime time.Time) (database.Activity, error) {
	id, err := identify(a)
	if err != nil {
		return database.Activity{}, err
	}

	name := displayName(a.Athlete)
	return database.Activity{
		ID:                 id,
		Date:               batchTime.UTC(),
		ResourceState:      a.ResourceState,
		Name:               a.Name,
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		ElapsedTime:        a.ElapsedTime,
		TotalElevationGain: a.TotalElevationGain,
		SportType:          a.SportType,
		WorkoutType:        a.WorkoutType,
		DeviceName:         a.DeviceName,
		AthleteName:        &name,
	}, nil
}

// ConvertBatch converts every activity with one shared observation time.
// The first failure aborts the batch and nothing is returned.
func ConvertBatch(activities []strava.ClubActivity, batchTime time.Time) ([]database.Activity, error) {
	converted := make([]database.Activity, 0, len(activities))
	for i, a := range activities {
		c, err := Convert(a, batchTime)
		if err != nil {
			return nil, apierr.Wrap(apierr.KindConversion, err, "activity %d of %d", i+1, len(activities))
		}
		converted = append(converted, c)
	}
	return converted, nil
}

func identify(a strava.ClubActivity) (string, error) {
	if a.Athlete == nil {
		return "", apierr.New(apierr.KindConversion, "activity missing athlete")
	}
	if a.Athlete.FirstName == nil {
		return "", apierr.New(apierr.KindConversion, "athlete missing first name")
	}
	if a.Athlete.LastName == nil {
		return "", apierr.New(apierr.KindConversion, "athlete missing last name")
	}
	if a.Distance == nil {
		return "", apierr.New(apierr.KindConversion, "activity missing distance")
	}
	if a.MovingTime == nil {
		return "", apierr.New(apierr.KindConversion, "activity missing moving time")
	}
	if a.ElapsedTime == nil {
		return "", apierr.New(apierr.KindConversion, "activity missing elapsed time")
	}

	return Identifier(*a.Athlete.FirstName, *a.Athlete.LastName, *a.Distance, *a.MovingTime, *a.ElapsedTime), nil
}

// displayName never fails; missing parts become a placeholder
func displayName(athlete *strava.ClubAthlete) string {
	first, last := unknownName, unknownName
	if athlete != nil {
		if athlete.FirstName != nil {
			first = *athlete.FirstName
		}
		if athlete.LastName != nil {
			last = *athlete.LastName
		}
	}
	return first + " " + last
}
