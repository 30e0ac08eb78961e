package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"bullshark-strava-sync/internal/database"
	"bullshark-strava-sync/internal/stats"
)

// rosterFile is the YAML layout accepted by import-roster:
//
//	athletes:
//	  - id: a1
//	    name: Jane Doe
//	    team: bulls
//	    event: half
type rosterFile struct {
	Athletes []database.Athlete `yaml:"athletes"`
}

func readRoster(path string) ([]database.Athlete, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return parseRoster(data)
}

// parseRoster decodes and validates a roster. Every entry needs an id, a name
// and a competition team; ids must be unique within the file.
func parseRoster(data []byte) ([]database.Athlete, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if len(file.Athletes) == 0 {
		return nil, fmt.Errorf("roster lists no athletes")
	}

	seen := make(map[string]bool, len(file.Athletes))
	for i := range file.Athletes {
		a := &file.Athletes[i]
		a.ID = strings.TrimSpace(a.ID)
		a.Name = strings.TrimSpace(a.Name)
		a.Team = strings.ToLower(strings.TrimSpace(a.Team))

		switch {
		case a.ID == "":
			return nil, fmt.Errorf("athlete %d: id is required", i+1)
		case a.Name == "":
			return nil, fmt.Errorf("athlete %s: name is required", a.ID)
		case !slices.Contains(stats.Teams, a.Team):
			return nil, fmt.Errorf("athlete %s: unknown team %q (expected one of %s)", a.ID, a.Team, strings.Join(stats.Teams, ", "))
		case seen[a.ID]:
			return nil, fmt.Errorf("athlete %s: duplicate id", a.ID)
		}
		seen[a.ID] = true
	}

	return file.Athletes, nil
}
