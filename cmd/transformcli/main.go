// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
	"github.com/spf13/cobra"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/ledger"
	"github.com/luxfi/transform/query"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const (
	uriFlag      = "uri"
	keyFlag      = "key"
	addressFlag  = "address"
	subjectFlag  = "subject"
	nonceFlag    = "nonce"
	proofFlag    = "proof"
	trustedFlag  = "trusted"
	denomFlag    = "denom"
	senderFlag   = "sender"
	walletFlag   = "wallet"
	amountFlag   = "amount"
	timeoutFlag  = "timeout"
	defaultURI   = "http://127.0.0.1:8080"
	keyEnvVarKey = "TRANSFORM_KEY"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "transformcli",
	Short: "Transform ledger CLI",
	Long: `transformcli creates and checks transform proofs, queries a transform
daemon and submits transform and revert requests through a proxy wallet.`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(proofCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(nonceCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(backingCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(revertCmd)

	proofCmd.Flags().String(keyFlag, "", "Hex encoded signer private key (or $"+keyEnvVarKey+")")
	proofCmd.Flags().String(subjectFlag, "", "Subject address")
	proofCmd.Flags().Uint64(nonceFlag, 0, "Nonce the proof authorizes")
	_ = proofCmd.MarkFlagRequired(subjectFlag)
	_ = proofCmd.MarkFlagRequired(nonceFlag)

	verifyCmd.Flags().String(proofFlag, "", "Proof JSON")
	verifyCmd.Flags().String(subjectFlag, "", "Expected subject address")
	verifyCmd.Flags().Uint64(nonceFlag, 0, "Expected nonce")
	verifyCmd.Flags().StringSlice(trustedFlag, nil, "Trusted signer addresses")
	_ = verifyCmd.MarkFlagRequired(proofFlag)
	_ = verifyCmd.MarkFlagRequired(subjectFlag)
	_ = verifyCmd.MarkFlagRequired(nonceFlag)

	for _, cmd := range []*cobra.Command{nonceCmd, balanceCmd, backingCmd} {
		cmd.Flags().String(uriFlag, defaultURI, "Transform daemon URI")
		cmd.Flags().String(addressFlag, "", "Address to query")
		_ = cmd.MarkFlagRequired(addressFlag)
	}
	backingCmd.Flags().String(denomFlag, ledger.DefaultDenom, "Backing denomination")

	for _, cmd := range []*cobra.Command{transformCmd, revertCmd} {
		cmd.Flags().String(uriFlag, defaultURI, "Transform daemon URI")
		cmd.Flags().String(keyFlag, "", "Hex encoded signer private key (or $"+keyEnvVarKey+")")
		cmd.Flags().String(senderFlag, "", "Address of the wallet owner")
		cmd.Flags().String(walletFlag, "", "Proxy wallet address, the conversion subject")
		cmd.Flags().String(amountFlag, "", "Decimal amount")
		cmd.Flags().Duration(timeoutFlag, defaultSubmitTimeout, "Give up resubmitting after this long")
		_ = cmd.MarkFlagRequired(senderFlag)
		_ = cmd.MarkFlagRequired(walletFlag)
		_ = cmd.MarkFlagRequired(amountFlag)
	}
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a proof signer key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sk, err := secp256k1.NewPrivateKey()
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{
			"privateKey": hexutil.Encode(sk.Bytes()),
			"address":    sk.PublicKey().Address().String(),
		})
	},
}

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Sign a proof for a subject and nonce",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		signer, err := signerFromFlags(cmd)
		if err != nil {
			return err
		}
		subject, err := addressFlagValue(cmd, subjectFlag)
		if err != nil {
			return err
		}
		nonce, _ := cmd.Flags().GetUint64(nonceFlag)

		proof, err := signer.Sign(subject, nonce)
		if err != nil {
			return err
		}
		return printJSON(cmd, proof)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a proof offline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw, _ := cmd.Flags().GetString(proofFlag)
		var proof transform.Proof
		if err := json.Unmarshal([]byte(raw), &proof); err != nil {
			return fmt.Errorf("invalid proof: %w", err)
		}
		subject, err := addressFlagValue(cmd, subjectFlag)
		if err != nil {
			return err
		}
		nonce, _ := cmd.Flags().GetUint64(nonceFlag)

		trustedRaw, _ := cmd.Flags().GetStringSlice(trustedFlag)
		trusted := make([]ids.ShortID, 0, len(trustedRaw))
		for _, s := range trustedRaw {
			addr, err := ids.ShortFromString(s)
			if err != nil {
				return fmt.Errorf("invalid trusted signer %q: %w", s, err)
			}
			trusted = append(trusted, addr)
		}

		verifier, err := transform.NewProofVerifier(1, trusted...)
		if err != nil {
			return err
		}
		signer, err := verifier.Verify(&proof, subject, nonce)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"valid":  true,
			"signer": signer,
			"id":     proof.ID(),
		})
	},
}

var nonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "Query the proof nonce of an address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, addr, err := queryArgs(cmd)
		if err != nil {
			return err
		}
		nonce, err := client.Nonce(cmd.Context(), addr)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"address": addr, "nonce": nonce})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Query the wrapped balance of an address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, addr, err := queryArgs(cmd)
		if err != nil {
			return err
		}
		balance, err := client.WrappedBalance(cmd.Context(), addr)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"address": addr, "amount": balance.Dec()})
	},
}

var backingCmd = &cobra.Command{
	Use:   "backing",
	Short: "Query the backing custody of an address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, addr, err := queryArgs(cmd)
		if err != nil {
			return err
		}
		denom, _ := cmd.Flags().GetString(denomFlag)
		balance, err := client.BackingBalance(cmd.Context(), addr, denom)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"address": addr, "denom": denom, "amount": balance.Dec()})
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Move wrapped balance of a wallet into backing custody",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return submitFromFlags(cmd, ledger.OpTransform)
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Release backing custody of a wallet into wrapped balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return submitFromFlags(cmd, ledger.OpRevert)
	},
}

func signerFromFlags(cmd *cobra.Command) (transform.Signer, error) {
	raw, _ := cmd.Flags().GetString(keyFlag)
	if raw == "" {
		raw = os.Getenv(keyEnvVarKey)
	}
	if raw == "" {
		return nil, fmt.Errorf("--%s or $%s is required", keyFlag, keyEnvVarKey)
	}
	b, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	sk, err := secp256k1.ToPrivateKey(b)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return transform.NewSigner(sk), nil
}

func addressFlagValue(cmd *cobra.Command, name string) (ids.ShortID, error) {
	raw, _ := cmd.Flags().GetString(name)
	addr, err := ids.ShortFromString(raw)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return addr, nil
}

func queryArgs(cmd *cobra.Command) (*query.Client, ids.ShortID, error) {
	uri, _ := cmd.Flags().GetString(uriFlag)
	addr, err := addressFlagValue(cmd, addressFlag)
	if err != nil {
		return nil, ids.ShortEmpty, err
	}
	return query.NewClient(uri), addr, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
