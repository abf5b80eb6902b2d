package startrade

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/hyeseon-dev/startrade/startrade/ledger"
	"github.com/hyeseon-dev/startrade/startrade/trade"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig       `toml:"log"`
	Bot    BotConfig       `toml:"bot"`
	DB     ledger.DBConfig `toml:"db"`
	Sheets trade.Sheets    `toml:"sheets"`
	Trade  TradeConfig     `toml:"trade"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type TradeConfig struct {
	// ScanIntervalSeconds is the request-sheet polling cadence.
	ScanIntervalSeconds int `toml:"scan_interval_seconds"`
	// OperatorID receives data-integrity and settlement-failure notices.
	OperatorID string `toml:"operator_id"`
	// MemoryLedger swaps the Postgres sheet store for the in-process one;
	// useful for local runs without a database.
	MemoryLedger bool `toml:"memory_ledger"`
}
