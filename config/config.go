// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config builds the daemon configuration from flags, environment and
// a JSON config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/spf13/pflag"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/ledger"
)

const (
	defaultAPIPort     = uint16(8080)
	defaultMetricsPort = uint16(8081)

	// DefaultRecoverCacheSize is the number of recovered signers kept in memory
	DefaultRecoverCacheSize = transform.DefaultRecoverCacheSize
)

var (
	errPortCollision     = errors.New("api and metrics ports must differ")
	errInvalidDenom      = errors.New("invalid backing denomination")
	errInvalidCacheSize  = errors.New("recover cache size must be positive")
	errDuplicateWallet   = errors.New("duplicate wallet")
	errDuplicateSigner   = errors.New("duplicate trusted signer")
	errInvalidAllocation = errors.New("invalid genesis allocation")

	denomPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/:._-]{2,127}$`)
)

// WalletConfig binds a proxy wallet to the address allowed to use it
type WalletConfig struct {
	Address string `mapstructure:"address" json:"address"`
	Owner   string `mapstructure:"owner" json:"owner"`
}

// AllocationConfig seeds one address at startup. Amounts are decimal strings.
type AllocationConfig struct {
	Address string `mapstructure:"address" json:"address"`
	Wrapped string `mapstructure:"wrapped" json:"wrapped"`
	Backing string `mapstructure:"backing" json:"backing"`
	Nonce   uint64 `mapstructure:"nonce" json:"nonce"`
}

// Config is the daemon configuration
type Config struct {
	APIPort          uint16             `mapstructure:"api-port" json:"api-port"`
	MetricsPort      uint16             `mapstructure:"metrics-port" json:"metrics-port"`
	BackingDenom     string             `mapstructure:"backing-denom" json:"backing-denom"`
	TrustedSigners   []string           `mapstructure:"trusted-signers" json:"trusted-signers"`
	RecoverCacheSize int                `mapstructure:"recover-cache-size" json:"recover-cache-size"`
	Wallets          []WalletConfig     `mapstructure:"wallets" json:"wallets"`
	Genesis          []AllocationConfig `mapstructure:"genesis" json:"genesis"`

	// Populated by Validate
	trustedSigners []ids.ShortID
	wallets        map[ids.ShortID]ids.ShortID
	genesis        []ledger.Allocation
}

// Validate checks the configuration and parses the address and amount fields
func (c *Config) Validate() error {
	if c.APIPort == c.MetricsPort {
		return fmt.Errorf("%w: %d", errPortCollision, c.APIPort)
	}
	if !denomPattern.MatchString(c.BackingDenom) {
		return fmt.Errorf("%w: %q", errInvalidDenom, c.BackingDenom)
	}
	if c.RecoverCacheSize <= 0 {
		return fmt.Errorf("%w: %d", errInvalidCacheSize, c.RecoverCacheSize)
	}

	signers := make([]ids.ShortID, 0, len(c.TrustedSigners))
	seenSigners := make(map[ids.ShortID]struct{}, len(c.TrustedSigners))
	for _, s := range c.TrustedSigners {
		addr, err := ids.ShortFromString(s)
		if err != nil {
			return fmt.Errorf("invalid trusted signer %q: %w", s, err)
		}
		if _, ok := seenSigners[addr]; ok {
			return fmt.Errorf("%w: %s", errDuplicateSigner, s)
		}
		seenSigners[addr] = struct{}{}
		signers = append(signers, addr)
	}

	wallets := make(map[ids.ShortID]ids.ShortID, len(c.Wallets))
	for _, w := range c.Wallets {
		wallet, err := ids.ShortFromString(w.Address)
		if err != nil {
			return fmt.Errorf("invalid wallet address %q: %w", w.Address, err)
		}
		owner, err := ids.ShortFromString(w.Owner)
		if err != nil {
			return fmt.Errorf("invalid owner of wallet %s: %w", w.Address, err)
		}
		if _, ok := wallets[wallet]; ok {
			return fmt.Errorf("%w: %s", errDuplicateWallet, w.Address)
		}
		wallets[wallet] = owner
	}

	genesis := make([]ledger.Allocation, 0, len(c.Genesis))
	for _, a := range c.Genesis {
		alloc, err := a.parse()
		if err != nil {
			return err
		}
		genesis = append(genesis, alloc)
	}

	c.trustedSigners = signers
	c.wallets = wallets
	c.genesis = genesis
	return nil
}

func (a AllocationConfig) parse() (ledger.Allocation, error) {
	addr, err := ids.ShortFromString(a.Address)
	if err != nil {
		return ledger.Allocation{}, fmt.Errorf("%w: address %q: %w", errInvalidAllocation, a.Address, err)
	}
	wrapped, err := parseAmount(a.Wrapped)
	if err != nil {
		return ledger.Allocation{}, fmt.Errorf("%w: wrapped of %s: %w", errInvalidAllocation, a.Address, err)
	}
	backing, err := parseAmount(a.Backing)
	if err != nil {
		return ledger.Allocation{}, fmt.Errorf("%w: backing of %s: %w", errInvalidAllocation, a.Address, err)
	}
	return ledger.Allocation{
		Address: addr,
		Wrapped: wrapped,
		Backing: backing,
		Nonce:   a.Nonce,
	}, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}

// GetTrustedSigners returns the parsed trusted signer addresses
func (c *Config) GetTrustedSigners() []ids.ShortID {
	return c.trustedSigners
}

// GetWallets returns the parsed wallet to owner map
func (c *Config) GetWallets() map[ids.ShortID]ids.ShortID {
	return c.wallets
}

// GetGenesis returns the parsed genesis allocations
func (c *Config) GetGenesis() []ledger.Allocation {
	return c.genesis
}

// BuildFlagSet returns the command line flags the daemon accepts
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("transformd", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Specifies the config file (JSON)")
	fs.Bool(VersionKey, false, "Display version and exit")
	fs.Bool(HelpKey, false, "Display help and exit")
	return fs
}

// DisplayUsageText prints the command line usage
func DisplayUsageText() {
	usageText := `
Usage: transformd [OPTIONS]
Nonce-gated transform and revert ledger.

Options:
  --config-file  Specifies the JSON config file. May also be set with the ` + ConfigFileEnvKey + ` environment variable.
  --version      Display transformd version and exit.
  --help         Display transformd usage and exit.
`
	fmt.Fprint(os.Stderr, usageText)
}
