package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/epochmint/epochauction/core"
)

// Config is loaded from the environment at startup.
type Config struct {
	DBPath     string `env:"AUCTIOND_DB" envDefault:"auctiond.db"`
	ListenAddr string `env:"AUCTIOND_LISTEN" envDefault:":7460"`

	// UseVsock switches the listener to a VM socket, for deployments
	// where the engine runs inside an isolated guest.
	UseVsock  bool   `env:"AUCTIOND_VSOCK" envDefault:"false"`
	VsockPort uint32 `env:"AUCTIOND_VSOCK_PORT" envDefault:"5000"`

	MaxWorkers int `env:"AUCTIOND_MAX_WORKERS" envDefault:"16"`

	// GenesisUnix and EpochSeconds drive the wall-clock epoch oracle.
	GenesisUnix  int64 `env:"AUCTIOND_GENESIS" envDefault:"1704067200"`
	EpochSeconds int64 `env:"AUCTIOND_EPOCH_SECONDS" envDefault:"172800"`

	Authority       string   `env:"AUCTIOND_AUTHORITY" envDefault:"authority"`
	TreasuryAccount string   `env:"AUCTIOND_TREASURY" envDefault:"treasury"`
	CreatorAccounts []string `env:"AUCTIOND_CREATORS" envSeparator:"," envDefault:"creator_a,creator_b"`

	RoyaltyBasisPoints uint64 `env:"AUCTIOND_ROYALTY_BPS" envDefault:"500"`

	// ReceiptKeyPath points at the PEM-encoded settlement receipt
	// signing key; a fresh key is generated there if the file is
	// missing.
	ReceiptKeyPath string `env:"AUCTIOND_RECEIPT_KEY" envDefault:"auctiond-receipt.pem"`
}

// LoadConfig parses configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.MaxWorkers <= 0 {
		return nil, fmt.Errorf("AUCTIOND_MAX_WORKERS must be positive, got %d", cfg.MaxWorkers)
	}
	if cfg.EpochSeconds <= 0 {
		return nil, fmt.Errorf("AUCTIOND_EPOCH_SECONDS must be positive, got %d", cfg.EpochSeconds)
	}
	return &cfg, nil
}

// PayeeTable builds the settlement percentage table from the configured
// accounts: treasury 80/creator 20 with one creator, treasury
// 80/5/15 with two.
func (c *Config) PayeeTable() ([]core.Payee, error) {
	switch len(c.CreatorAccounts) {
	case 1:
		return []core.Payee{
			{Account: c.TreasuryAccount, Percent: 80},
			{Account: c.CreatorAccounts[0], Percent: 20},
		}, nil
	case 2:
		return []core.Payee{
			{Account: c.TreasuryAccount, Percent: 80},
			{Account: c.CreatorAccounts[0], Percent: 5},
			{Account: c.CreatorAccounts[1], Percent: 15},
		}, nil
	default:
		return nil, fmt.Errorf("AUCTIOND_CREATORS needs 1 or 2 accounts, got %d", len(c.CreatorAccounts))
	}
}
