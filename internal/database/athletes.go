package database

import (
	"context"
	"strings"

	"bullshark-strava-sync/internal/metrics"
)

// Athlete is a roster entry attributing a display name to a team
type Athlete struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Team  string `json:"team" yaml:"team"`
	Event string `json:"event" yaml:"event"`
}

// InsertAthletes adds roster entries in one statement, skipping ids already
// present. Returns the number of rows inserted.
func (db *DB) InsertAthletes(ctx context.Context, athletes []Athlete) (int64, error) {
	if len(athletes) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(athletes))
	args := make([]any, 0, len(athletes)*4)
	for _, a := range athletes {
		values = append(values, "(?, ?, ?, ?)")
		args = append(args, a.ID, a.Name, a.Team, a.Event)
	}

	var inserted int64
	err := observe(metrics.DBOpInsertAthletes, func() error {
		result, err := db.conn.ExecContext(ctx,
			`INSERT INTO athletes (id, name, team, event) VALUES `+strings.Join(values, ", ")+
				` ON CONFLICT(id) DO NOTHING`,
			args...)
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

// ListAthletes returns the full roster ordered by name
func (db *DB) ListAthletes(ctx context.Context) ([]Athlete, error) {
	athletes := []Athlete{}
	err := observe(metrics.DBOpListAthletes, func() error {
		rows, err := db.conn.QueryContext(ctx, `
			SELECT id, name, team, event
			FROM athletes
			ORDER BY name ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a Athlete
			if err := rows.Scan(&a.ID, &a.Name, &a.Team, &a.Event); err != nil {
				return err
			}
			athletes = append(athletes, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return athletes, nil
}

// CountAthletesByTeam returns the roster size of every team with athletes
func (db *DB) CountAthletesByTeam(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := observe(metrics.DBOpCountAthletesByTeam, func() error {
		rows, err := db.conn.QueryContext(ctx, `SELECT team, COUNT(*) FROM athletes GROUP BY team`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var team string
			var n int
			if err := rows.Scan(&team, &n); err != nil {
				return err
			}
			counts[team] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
