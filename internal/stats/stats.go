// Package stats computes the team competition standings from stored
// activities and the roster.
package stats

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"bullshark-strava-sync/internal/database"
)

const (
	TeamBulls  = "bulls"
	TeamSharks = "sharks"

	sportRun = "Run"
)

// Teams lists every team in the competition
var Teams = []string{TeamBulls, TeamSharks}

// WeekData is one team's distance for a competition week
type WeekData struct {
	WeekStart               time.Time          `json:"weekStart"`
	WeeklyTeamKilometers    float64            `json:"weeklyTeamKilometers"`
	WeeklyRunningSum        float64            `json:"weeklyRunningSum"`
	WeeklyAthleteKilometers map[string]float64 `json:"weeklyAthleteKilometers"`
}

// TeamData is one team's totals, weeks in ascending order
type TeamData struct {
	AthleteKilometers map[string]float64 `json:"athleteKilometers"`
	WeeklyKilometers  []WeekData         `json:"weeklyKilometers"`
}

// TeamStats is the full standings response
type TeamStats struct {
	Bulls  TeamData `json:"bulls"`
	Sharks TeamData `json:"sharks"`
}

// Store is the read side of the database used for aggregation
type Store interface {
	ListAthletes(ctx context.Context) ([]database.Athlete, error)
	ListActivitiesInWindow(ctx context.Context, start, end time.Time) ([]database.Activity, error)
}

// Engine aggregates runs from the competition start up to the time of the
// call. Weeks start on Monday at midnight in loc.
type Engine struct {
	store  Store
	start  time.Time
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewEngine creates an Engine
func NewEngine(store Store, start time.Time, loc *time.Location) *Engine {
	return &Engine{
		store:  store,
		start:  start,
		loc:    loc,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// team accumulates one team's distances while activities are scanned
type team struct {
	athletes map[string]float64
	weeks    map[civilDate]*WeekData
}

func newTeam() *team {
	return &team{
		athletes: make(map[string]float64),
		weeks:    make(map[civilDate]*WeekData),
	}
}

// TeamStats returns per-athlete and per-week kilometers for both teams.
// Activities that are not runs, have no distance, or belong to an athlete
// missing from the roster are left out.
func (e *Engine) TeamStats(ctx context.Context) (*TeamStats, error) {
	rosterTeams, err := e.athleteTeams(ctx)
	if err != nil {
		return nil, err
	}

	end := e.now().UTC()
	e.logger.Debug("Computing team stats", "start", e.start, "end", end)

	activities, err := e.store.ListActivitiesInWindow(ctx, e.start, end)
	if err != nil {
		return nil, err
	}

	teams := make(map[string]*team, len(Teams))
	for _, name := range Teams {
		teams[name] = newTeam()
	}

	for _, a := range activities {
		if a.SportType == nil || *a.SportType != sportRun {
			continue
		}
		if a.AthleteName == nil || a.Distance == nil {
			continue
		}
		t, ok := teams[rosterTeams[*a.AthleteName]]
		if !ok {
			continue
		}

		name := *a.AthleteName
		km := *a.Distance / 1000.0
		t.athletes[name] += km

		key := weekOf(a.Date.In(e.loc))
		week, ok := t.weeks[key]
		if !ok {
			start, err := localMidnight(key, e.loc)
			if err != nil {
				return nil, err
			}
			week = &WeekData{
				WeekStart:               start,
				WeeklyAthleteKilometers: make(map[string]float64),
			}
			t.weeks[key] = week
		}
		week.WeeklyTeamKilometers += km
		week.WeeklyAthleteKilometers[name] += km
	}

	return &TeamStats{
		Bulls:  teams[TeamBulls].result(),
		Sharks: teams[TeamSharks].result(),
	}, nil
}

func (e *Engine) athleteTeams(ctx context.Context) (map[string]string, error) {
	athletes, err := e.store.ListAthletes(ctx)
	if err != nil {
		return nil, err
	}
	teams := make(map[string]string, len(athletes))
	for _, a := range athletes {
		teams[a.Name] = a.Team
	}
	return teams, nil
}

// result orders the weeks and fills in running sums
func (t *team) result() TeamData {
	weeks := make([]WeekData, 0, len(t.weeks))
	for _, w := range t.weeks {
		weeks = append(weeks, *w)
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].WeekStart.Before(weeks[j].WeekStart)
	})

	var running float64
	for i := range weeks {
		running += weeks[i].WeeklyTeamKilometers
		weeks[i].WeeklyRunningSum = running
	}

	return TeamData{
		AthleteKilometers: t.athletes,
		WeeklyKilometers:  weeks,
	}
}
