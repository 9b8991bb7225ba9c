package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Rrrinav/Tanks/internal/engine"
)

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Rules   RulesConfig   `toml:"rules"`
	Rooms   RoomsConfig   `toml:"rooms"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type RulesConfig struct {
	BoardSize        int  `toml:"board_size"`
	UnitsPerPlayer   int  `toml:"units_per_player"`
	RevealRadius     int  `toml:"reveal_radius"`
	MoveRadius       int  `toml:"move_radius"`
	MoveConsumesTurn bool `toml:"move_consumes_turn"`
}

type RoomsConfig struct {
	MaxAge        time.Duration `toml:"max_age"`        // sessions older than this are swept
	SweepInterval time.Duration `toml:"sweep_interval"` // 0 disables the wall-clock ticker
	CodeLength    int           `toml:"code_length"`    // generated room code length
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

func Default() Config {
	r := engine.DefaultRules()
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Rules: RulesConfig{
			BoardSize:        r.BoardSize,
			UnitsPerPlayer:   r.UnitsPerPlayer,
			RevealRadius:     r.RevealRadius,
			MoveRadius:       r.MoveRadius,
			MoveConsumesTurn: r.MoveConsumesTurn,
		},
		Rooms: RoomsConfig{
			MaxAge:        2 * time.Hour,
			SweepInterval: time.Minute,
			CodeLength:    6,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the TOML file at path on top of the defaults. An empty path or
// a missing file is not an error; environment overrides win last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if addr := os.Getenv("TANKS_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Rules.BoardSize < 2 {
		return fmt.Errorf("board_size must be at least 2, got %d", c.Rules.BoardSize)
	}
	if c.Rules.UnitsPerPlayer < 1 || c.Rules.UnitsPerPlayer > c.Rules.BoardSize*c.Rules.BoardSize/2 {
		return fmt.Errorf("units_per_player %d does not fit a %dx%d board",
			c.Rules.UnitsPerPlayer, c.Rules.BoardSize, c.Rules.BoardSize)
	}
	if c.Rules.MoveRadius < 1 {
		return fmt.Errorf("move_radius must be at least 1, got %d", c.Rules.MoveRadius)
	}
	if c.Rooms.CodeLength < 4 || c.Rooms.CodeLength > 8 {
		return fmt.Errorf("code_length must be between 4 and 8, got %d", c.Rooms.CodeLength)
	}
	return nil
}

// EngineRules converts the file-facing rules section into the engine's form.
func (c Config) EngineRules() engine.Rules {
	return engine.Rules{
		BoardSize:        c.Rules.BoardSize,
		UnitsPerPlayer:   c.Rules.UnitsPerPlayer,
		RevealRadius:     c.Rules.RevealRadius,
		MoveRadius:       c.Rules.MoveRadius,
		MoveConsumesTurn: c.Rules.MoveConsumesTurn,
	}
}
