package clientconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "User": {
    "Client": {"Language": "plPL", "Sound": "0"}
  },
  "Session": {
    "Services": {"LastLoginRegion": "EU", "LastLoginAddress": "eu.actual.battle.net"}
  },
  "Games": {
    "battle_net": {"ServerUid": "battle.net", "LastPlayed": "1580000000"},
    "wow": {"ServerUid": "battle.net.wow", "LastPlayed": 1581000000},
    "s2": {"ServerUid": "battle.net.s2"},
    "heroes": {}
  }
}`

func TestParseFullConfig(t *testing.T) {
	cfg := Parse([]byte(sampleConfig))

	assert.Equal(t, "plPL", cfg.Locale)
	assert.Equal(t, "EU", cfg.Region)

	require.Len(t, cfg.Games, 3)
	assert.Equal(t, GameRecord{UID: "heroes"}, cfg.Games[0])
	assert.Equal(t, GameRecord{UID: "s2", UninstallTag: "battle.net.s2"}, cfg.Games[1])
	assert.Equal(t, GameRecord{UID: "wow", UninstallTag: "battle.net.wow", LastPlayed: "1581000000"}, cfg.Games[2])
}

func TestParseAbsent(t *testing.T) {
	for _, data := range [][]byte{nil, {}} {
		cfg := Parse(data)
		assert.Equal(t, Defaults(), cfg)
	}
}

func TestParseBrokenJSON(t *testing.T) {
	cfg := Parse([]byte(`{"Games": {"wow"`))

	assert.Equal(t, DefaultLocale, cfg.Locale)
	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Empty(t, cfg.Games)
}

func TestParseClientWithoutLanguageDiscardsEverything(t *testing.T) {
	// A client section that cannot be decoded poisons the whole file:
	// the result is defaults with zero game records, even though the
	// Games map on its own would have decoded fine.
	cfg := Parse([]byte(`{
	  "User": {"Client": {"Sound": "0"}},
	  "Games": {"wow": {"ServerUid": "battle.net.wow"}}
	}`))

	assert.Equal(t, Defaults(), cfg)
}

func TestParseGamesNotAnObject(t *testing.T) {
	cfg := Parse([]byte(`{"Games": ["wow", "s2"]}`))

	assert.Equal(t, Defaults(), cfg)
}

func TestParseGameEntryNotAnObject(t *testing.T) {
	cfg := Parse([]byte(`{"Games": {"wow": "battle.net.wow"}}`))

	assert.Equal(t, Defaults(), cfg)
}

func TestParseNullAndMissingGameFields(t *testing.T) {
	cfg := Parse([]byte(`{
	  "Games": {
	    "wow": {"ServerUid": null, "LastPlayed": null},
	    "s2": {}
	  }
	}`))

	require.Len(t, cfg.Games, 2)
	for _, g := range cfg.Games {
		assert.Empty(t, g.UninstallTag)
		assert.Empty(t, g.LastPlayed)
	}
}

func TestParseOddlyTypedGameFieldsReadAsAbsent(t *testing.T) {
	cfg := Parse([]byte(`{
	  "Games": {
	    "wow": {"ServerUid": {"nested": true}, "LastPlayed": false}
	  }
	}`))

	require.Len(t, cfg.Games, 1)
	assert.Equal(t, GameRecord{UID: "wow"}, cfg.Games[0])
}

func TestParseGamesOnly(t *testing.T) {
	cfg := Parse([]byte(`{"Games": {"viper": {"ServerUid": "battle.net.viper"}}}`))

	assert.Equal(t, DefaultLocale, cfg.Locale)
	assert.Equal(t, DefaultRegion, cfg.Region)
	require.Len(t, cfg.Games, 1)
	assert.Equal(t, "viper", cfg.Games[0].UID)
}

func TestParseLauncherEntrySkipped(t *testing.T) {
	cfg := Parse([]byte(`{"Games": {"battle_net": {"ServerUid": "battle.net"}}}`))

	assert.Empty(t, cfg.Games)
}

func TestParseNonSectionValuesSkipped(t *testing.T) {
	cfg := Parse([]byte(`{
	  "Version": "2.1",
	  "Flags": [1, 2, 3],
	  "User": {"Client": {"Language": "deDE"}}
	}`))

	assert.Equal(t, "deDE", cfg.Locale)
	assert.Equal(t, DefaultRegion, cfg.Region)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "enUS", cfg.Locale)
	assert.Equal(t, "US", cfg.Region)
	assert.Empty(t, cfg.Games)
}
