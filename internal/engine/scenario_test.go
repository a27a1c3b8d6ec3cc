package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mtarnawa/bnetlocal/internal/catalog"
	"github.com/mtarnawa/bnetlocal/internal/testutil"
)

// scenario is a declarative refresh-sequence test: each step lays out the
// local files, runs one refresh and states the transitions it must emit.
// Scenario files live in testdata/scenarios.
type scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps are executed in order against one engine.
	Steps []scenarioStep `yaml:"steps"`
}

// scenarioStep is one refresh pass. An omitted db or config means the file
// is absent for this step.
type scenarioStep struct {
	// Token is the fixed refresh token for this pass.
	Token string `yaml:"token"`

	// DB describes the product database, or nil for a missing file.
	DB *scenarioDB `yaml:"db,omitempty"`

	// Config describes the client config, or nil for a missing file.
	Config *scenarioConfig `yaml:"config,omitempty"`

	// Events are the transitions this step must emit, in order. Empty
	// means the step must emit nothing.
	Events []scenarioEvent `yaml:"events,omitempty"`
}

type scenarioDB struct {
	Products []scenarioProduct `yaml:"products"`
}

type scenarioProduct struct {
	Tag     string `yaml:"tag"`
	Code    string `yaml:"code"`
	Path    string `yaml:"path"`
	Version string `yaml:"version,omitempty"`
}

type scenarioConfig struct {
	// Locale and Region default to enUS / US when omitted.
	Locale string         `yaml:"locale,omitempty"`
	Region string         `yaml:"region,omitempty"`
	Games  []scenarioGame `yaml:"games,omitempty"`
}

type scenarioGame struct {
	UID        string `yaml:"uid"`
	Tag        string `yaml:"tag"`
	LastPlayed string `yaml:"last_played,omitempty"`
}

// scenarioEvent matches one emitted transition. State uses the string
// forms of game.State: "none", "installed", "installed,running".
type scenarioEvent struct {
	Game  string `yaml:"game"`
	State string `yaml:"state"`
}

// loadScenario reads and parses a scenario YAML file, rejecting unknown
// fields so typos fail loudly.
func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var sc scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

var scenarioStates = map[string]bool{
	"none":              true,
	"installed":         true,
	"installed,running": true,
}

func validateScenario(sc *scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range sc.Steps {
		if step.Token == "" {
			return fmt.Errorf("steps[%d]: token is required", i)
		}
		for j, ev := range step.Events {
			if ev.Game == "" {
				return fmt.Errorf("steps[%d].events[%d]: game is required", i, j)
			}
			if !scenarioStates[ev.State] {
				return fmt.Errorf("steps[%d].events[%d]: unknown state %q", i, j, ev.State)
			}
		}
	}
	return nil
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		sc, err := loadScenario(path)
		require.NoError(t, err, "loading %s", path)
		t.Run(sc.Name, func(t *testing.T) {
			runScenario(t, sc)
		})
	}
}

func runScenario(t *testing.T, sc *scenario) {
	t.Helper()

	src := testutil.NewSource()
	rec := &recorder{}
	tokens := make([]string, 0, len(sc.Steps))
	for _, step := range sc.Steps {
		tokens = append(tokens, step.Token)
	}

	// The hour-long watch delay keeps running-watch goroutines from waking
	// up mid-scenario; steps see exactly the refresh-emitted transitions.
	e := New(catalog.Default(), src,
		WithLocator(pathLocator{}),
		WithEnumerator(testutil.NewEnumerator()),
		WithNotifier(rec),
		WithTokenGenerator(NewFixedGenerator(tokens...)),
		WithWatchDelay(time.Hour),
	)
	defer e.Close()

	seen := 0
	for i, step := range sc.Steps {
		applyStep(src, step)
		e.Refresh(context.Background())

		all := rec.statuses()
		var got []scenarioEvent
		for _, st := range all[seen:] {
			got = append(got, scenarioEvent{Game: st.ID, State: st.State.String()})
		}
		seen = len(all)

		want := step.Events
		if len(want) == 0 {
			want = nil
		}
		assert.Equal(t, want, got, "step %d (token %s)", i+1, step.Token)
	}
}

func applyStep(src *testutil.Source, step scenarioStep) {
	if step.DB == nil {
		src.RemoveDB()
	} else {
		recs := make([]testutil.ProductRecord, 0, len(step.DB.Products))
		for _, p := range step.DB.Products {
			recs = append(recs, testutil.ProductRecord{Tag: p.Tag, Code: p.Code, Path: p.Path, Version: p.Version})
		}
		src.SetDB(testutil.BuildProductDB(recs...))
	}

	if step.Config == nil {
		src.RemoveConfig()
		return
	}
	locale, region := step.Config.Locale, step.Config.Region
	if locale == "" {
		locale = "enUS"
	}
	if region == "" {
		region = "US"
	}
	games := make([]testutil.ConfigGame, 0, len(step.Config.Games))
	for _, g := range step.Config.Games {
		games = append(games, testutil.ConfigGame{UID: g.UID, Tag: g.Tag, LastPlayed: g.LastPlayed})
	}
	src.SetConfig(testutil.BuildClientConfig(locale, region, games...))
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"name: bad\ndescription: typo in a field name\nstepss:\n  - token: t1\n"), 0o644))

	_, err := loadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenarioRejectsUnknownState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"name: bad\ndescription: invalid state name\nsteps:\n"+
			"  - token: t1\n    events:\n      - game: \"5730135\"\n        state: sleeping\n"), 0o644))

	_, err := loadScenario(path)
	assert.Error(t, err)
}
