// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/api"
	"github.com/luxfi/transform/ledger"
	"github.com/luxfi/transform/payload"
	"github.com/luxfi/transform/query"
	"github.com/luxfi/transform/utils"
)

const defaultSubmitTimeout = 30 * time.Second

type submitter interface {
	Nonce(ctx context.Context, addr ids.ShortID) (uint64, error)
	Execute(ctx context.Context, sender, wallet ids.ShortID, msg *payload.ExecuteMsg) (*api.Receipt, error)
}

func submitFromFlags(cmd *cobra.Command, op ledger.Op) error {
	signer, err := signerFromFlags(cmd)
	if err != nil {
		return err
	}
	sender, err := addressFlagValue(cmd, senderFlag)
	if err != nil {
		return err
	}
	wallet, err := addressFlagValue(cmd, walletFlag)
	if err != nil {
		return err
	}
	rawAmount, _ := cmd.Flags().GetString(amountFlag)
	amount, err := payload.ParseAmount(rawAmount)
	if err != nil {
		return err
	}
	uri, _ := cmd.Flags().GetString(uriFlag)
	timeout, _ := cmd.Flags().GetDuration(timeoutFlag)

	receipt, err := submit(
		cmd.Context(),
		log.NewLogger("transformcli"),
		query.NewClient(uri),
		signer,
		sender,
		wallet,
		op,
		amount.Uint256(),
		timeout,
	)
	if err != nil {
		return err
	}
	return printJSON(cmd, receipt)
}

// submit reads the wallet's current nonce, signs a proof for it and sends
// the request. A stale or future nonce means another request won the race,
// so the whole round is repeated with a fresh nonce until timeout. Every
// other rejection is final.
func submit(
	ctx context.Context,
	logger log.Logger,
	client submitter,
	signer transform.Signer,
	sender ids.ShortID,
	wallet ids.ShortID,
	op ledger.Op,
	amount *uint256.Int,
	timeout time.Duration,
) (*api.Receipt, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var receipt *api.Receipt
	operation := func() error {
		nonce, err := client.Nonce(ctx, wallet)
		if err != nil {
			return err
		}
		proof, err := signer.Sign(wallet, nonce)
		if err != nil {
			return backoff.Permanent(err)
		}
		msg, err := newExecuteMsg(op, proof, amount)
		if err != nil {
			return backoff.Permanent(err)
		}

		receipt, err = client.Execute(ctx, sender, wallet, msg)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, transform.ErrStaleOrFutureNonce):
			logger.Info("nonce moved, resubmitting",
				log.Stringer("wallet", wallet),
				log.Uint64("nonce", nonce),
			)
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	if err := utils.WithRetriesTimeout(ctx, logger, operation, timeout); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return receipt, nil
}

func newExecuteMsg(op ledger.Op, proof *transform.Proof, amount *uint256.Int) (*payload.ExecuteMsg, error) {
	switch op {
	case ledger.OpTransform:
		t, err := payload.NewTransform(proof, amount)
		if err != nil {
			return nil, err
		}
		return &payload.ExecuteMsg{Transform: t}, nil
	case ledger.OpRevert:
		b, err := payload.NewBurn(proof, amount)
		if err != nil {
			return nil, err
		}
		return &payload.ExecuteMsg{Burn: b}, nil
	default:
		return nil, fmt.Errorf("unknown op %s", op)
	}
}
