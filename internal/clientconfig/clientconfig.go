// Package clientconfig decodes the desktop client's JSON configuration
// file. Only three things in it matter here: the UI locale, the login
// region and the per-game entries that carry each game's uninstall tag and
// last-played time. The file is written by a moving target, so decoding is
// deliberately forgiving: any structural failure falls back to defaults
// with zero game records rather than an error.
package clientconfig

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

// Defaults applied when the config is absent or unreadable.
const (
	DefaultLocale = "enUS"
	DefaultRegion = "US"
)

// launcherUID marks the client's own entry in the Games map. It is not a
// game and is never reported.
const launcherUID = "battle_net"

// GameRecord is one game's entry from the config's Games map. UninstallTag
// and LastPlayed are empty when the config does not carry them.
type GameRecord struct {
	UID          string
	UninstallTag string
	LastPlayed   string
}

// Config is the decoded slice of the client configuration.
type Config struct {
	Locale string
	Region string
	Games  []GameRecord
}

// Defaults returns the fallback configuration: default locale and region,
// no game records.
func Defaults() *Config {
	return &Config{Locale: DefaultLocale, Region: DefaultRegion}
}

// Parse decodes raw config JSON. Absent or undecodable input yields
// Defaults; Parse never fails.
func Parse(data []byte) *Config {
	if len(data) == 0 {
		return Defaults()
	}
	cfg := Defaults()
	if err := cfg.decode(data); err != nil {
		slog.Warn("failed to read client config, using default values", "err", err)
		return Defaults()
	}
	return cfg
}

func (c *Config) decode(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	// The locale and region hide inside sub-objects under opaque top-level
	// keys. Walk the sections in sorted order so repeated shapes resolve
	// deterministically.
	keys := make([]string, 0, len(top))
	for key := range top {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		var sub map[string]json.RawMessage
		if err := json.Unmarshal(top[key], &sub); err != nil {
			continue // not an object shaped like a section
		}
		if raw, ok := sub["Client"]; ok {
			var client struct {
				Language string `json:"Language"`
			}
			if err := json.Unmarshal(raw, &client); err != nil {
				return fmt.Errorf("section %q: %w", key, err)
			}
			if client.Language == "" {
				return fmt.Errorf("section %q: client settings carry no language", key)
			}
			c.Locale = client.Language
		} else if raw, ok := sub["Services"]; ok {
			var services struct {
				LastLoginRegion string `json:"LastLoginRegion"`
			}
			if err := json.Unmarshal(raw, &services); err != nil {
				return fmt.Errorf("section %q: %w", key, err)
			}
			if services.LastLoginRegion == "" {
				return fmt.Errorf("section %q: services carry no login region", key)
			}
			c.Region = services.LastLoginRegion
		}
	}

	raw, ok := top["Games"]
	if !ok {
		return nil
	}
	var games map[string]json.RawMessage
	if err := json.Unmarshal(raw, &games); err != nil {
		return fmt.Errorf("games map: %w", err)
	}
	for uid, props := range games {
		if uid == launcherUID {
			continue
		}
		var entry struct {
			ServerUID  looseString `json:"ServerUid"`
			LastPlayed looseString `json:"LastPlayed"`
		}
		if err := json.Unmarshal(props, &entry); err != nil {
			return fmt.Errorf("game %q: %w", uid, err)
		}
		c.Games = append(c.Games, GameRecord{
			UID:          uid,
			UninstallTag: string(entry.ServerUID),
			LastPlayed:   string(entry.LastPlayed),
		})
	}
	sort.Slice(c.Games, func(i, j int) bool { return c.Games[i].UID < c.Games[j].UID })
	return nil
}

// looseString accepts the value shapes the client has been seen writing:
// strings, bare numbers (LastPlayed is an epoch second count in newer
// configs), null, or nothing at all. Anything else reads as absent.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*s = looseString(num.String())
		return nil
	}
	*s = ""
	return nil
}
