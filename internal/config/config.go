// Package config loads the world server's YAML configuration, following
// la2go's Default()+Load(path) pattern: a file that doesn't exist yields
// defaults rather than an error, since a fresh checkout should still boot.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// World holds the zone-server-facing settings (§6 CLI surface table).
type World struct {
	Port                    int      `yaml:"port"`
	ListenAddress           string   `yaml:"listen_address"`
	WorldId                 int      `yaml:"world_id"`
	EnablePacketCompression bool     `yaml:"enable_packet_compression"`
	EnablePacketObfuscation bool     `yaml:"enable_packet_obfuscation"`
	GenerateNavmesh         bool     `yaml:"generate_navmesh"`
	ActiveFestivals         [4]int   `yaml:"active_festivals"`
	ScriptsLocation         string   `yaml:"scripts_location"`
}

// Lobby holds the Lobby-connection listener's settings. The Lobby socket
// carries the Blowfish-encrypted SecurityInitialize/LoginRequest handshake
// (§4.1, §8 scenario 1) and is served by a separate listener from World's.
type Lobby struct {
	Port          int    `yaml:"port"`
	ListenAddress string `yaml:"listen_address"`
}

// Chat holds the Chat-connection listener's settings. The client opens its
// chat socket alongside the zone socket; the dialect is cleartext and
// uncompressed (§4.1).
type Chat struct {
	Port          int    `yaml:"port"`
	ListenAddress string `yaml:"listen_address"`
}

// Filesystem holds paths to external data the server reads but does not own.
type Filesystem struct {
	GamePath string `yaml:"game_path"`
}

// Tweaks holds cosmetic/behavioral toggles with no protocol weight.
type Tweaks struct {
	HideWorldName bool `yaml:"hide_world_name"`
}

// Database holds Postgres connection parameters for internal/persist.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the connection string internal/persist hands to pgxpool.
func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// Config is the top-level config.yaml shape.
type Config struct {
	World      World      `yaml:"world"`
	Lobby      Lobby      `yaml:"lobby"`
	Chat       Chat       `yaml:"chat"`
	Filesystem Filesystem `yaml:"filesystem"`
	Tweaks     Tweaks     `yaml:"tweaks"`
	Database   Database   `yaml:"database"`
}

// Default returns a Config with the §6 CLI-surface defaults: compression
// on, obfuscation off.
func Default() Config {
	return Config{
		World: World{
			Port:                    7100,
			ListenAddress:           "0.0.0.0",
			WorldId:                 1,
			EnablePacketCompression: true,
			EnablePacketObfuscation: false,
			GenerateNavmesh:         false,
			ScriptsLocation:         "./scripts",
		},
		Lobby: Lobby{
			Port:          7000,
			ListenAddress: "0.0.0.0",
		},
		Chat: Chat{
			Port:          7101,
			ListenAddress: "0.0.0.0",
		},
		Filesystem: Filesystem{
			GamePath: "./gamedata",
		},
		Database: Database{
			Host:    "127.0.0.1",
			Port:    5432,
			User:    "worldserver",
			Password: "worldserver",
			DBName:  "worldserver",
			SSLMode: "disable",
		},
	}
}

// Load reads path as YAML over the defaults. A missing file is not an
// error: the caller gets Default() back untouched.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
