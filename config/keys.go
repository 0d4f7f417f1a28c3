// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"
	HelpKey       = "help"

	// Environment variable keys
	ConfigFileEnvKey = "CONFIG_FILE"

	// Top-level configuration keys
	APIPortKey          = "api-port"
	MetricsPortKey      = "metrics-port"
	BackingDenomKey     = "backing-denom"
	TrustedSignersKey   = "trusted-signers"
	RecoverCacheSizeKey = "recover-cache-size"
	WalletsKey          = "wallets"
	GenesisKey          = "genesis"
)
