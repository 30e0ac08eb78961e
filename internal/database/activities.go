package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"bullshark-strava-sync/internal/metrics"
)

// Activity is a club activity as persisted. Optional upstream fields stay nil
// when Strava omitted them.
type Activity struct {
	ID                 string    `json:"id"`
	Date               time.Time `json:"date"`
	ResourceState      *int64    `json:"resource_state"`
	Name               *string   `json:"name"`
	Distance           *float64  `json:"distance"`
	MovingTime         *int64    `json:"moving_time"`
	ElapsedTime        *int64    `json:"elapsed_time"`
	TotalElevationGain *float64  `json:"total_elevation_gain"`
	SportType          *string   `json:"sport_type"`
	WorkoutType        *int64    `json:"workout_type"`
	DeviceName         *string   `json:"device_name"`
	AthleteName        *string   `json:"athlete_name"`
}

const activityColumns = `id, date, resource_state, name, distance, moving_time, elapsed_time,
		       total_elevation_gain, sport_type, workout_type, device_name, athlete_name`

const activityColumnCount = 12

// InsertActivities writes the batch in one statement. Rows whose id already
// exists are skipped. Returns the number of rows actually inserted.
func (db *DB) InsertActivities(ctx context.Context, activities []Activity) (int64, error) {
	if len(activities) == 0 {
		return 0, nil
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", activityColumnCount), ", ") + ")"
	values := make([]string, 0, len(activities))
	args := make([]any, 0, len(activities)*activityColumnCount)
	for _, a := range activities {
		values = append(values, placeholder)
		args = append(args,
			a.ID, a.Date.Unix(), a.ResourceState, a.Name, a.Distance, a.MovingTime, a.ElapsedTime,
			a.TotalElevationGain, a.SportType, a.WorkoutType, a.DeviceName, a.AthleteName,
		)
	}

	query := `INSERT INTO activities (` + activityColumns + `) VALUES ` +
		strings.Join(values, ", ") + ` ON CONFLICT(id) DO NOTHING`

	var inserted int64
	err := observe(metrics.DBOpInsertActivities, func() error {
		result, err := db.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		inserted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListActivities returns every stored activity, newest first
func (db *DB) ListActivities(ctx context.Context) ([]Activity, error) {
	var activities []Activity
	err := observe(metrics.DBOpListActivities, func() error {
		rows, err := db.conn.QueryContext(ctx, `
			SELECT `+activityColumns+`
			FROM activities
			ORDER BY date DESC, id
		`)
		if err != nil {
			return err
		}
		activities, err = scanActivities(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// ListActivitiesInWindow returns activities with start <= date <= end, newest first.
// Dates are stored in whole seconds, so a fractional start rounds up and a
// fractional end rounds down.
func (db *DB) ListActivitiesInWindow(ctx context.Context, start, end time.Time) ([]Activity, error) {
	from := start.Unix()
	if start.Nanosecond() != 0 {
		from++
	}

	var activities []Activity
	err := observe(metrics.DBOpListActivitiesInWindow, func() error {
		rows, err := db.conn.QueryContext(ctx, `
			SELECT `+activityColumns+`
			FROM activities
			WHERE date >= ? AND date <= ?
			ORDER BY date DESC, id
		`, from, end.Unix())
		if err != nil {
			return err
		}
		activities, err = scanActivities(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// CountActivities returns the number of stored activities
func (db *DB) CountActivities(ctx context.Context) (int, error) {
	var count int
	err := observe(metrics.DBOpCountActivities, func() error {
		return db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	defer rows.Close()

	activities := []Activity{}
	for rows.Next() {
		var a Activity
		var date int64
		err := rows.Scan(
			&a.ID, &date, &a.ResourceState, &a.Name, &a.Distance, &a.MovingTime, &a.ElapsedTime,
			&a.TotalElevationGain, &a.SportType, &a.WorkoutType, &a.DeviceName, &a.AthleteName,
		)
		if err != nil {
			return nil, err
		}
		a.Date = time.Unix(date, 0).UTC()
		activities = append(activities, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}
