package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/sharehub/internal/metrics"
	"github.com/Decentr-net/sharehub/internal/sui"
)

var log = logrus.WithField("layer", "ledger").WithField("package", "ledger")

const (
	shareModule   = "share"
	shareFunction = "create_share"
)

// Config ...
type Config struct {
	PackageID    string
	CollectionID string
	GasBudget    uint64
}

type node interface {
	GetBalance(ctx context.Context, owner, coinType string) (uint64, error)
	BuildMoveCall(ctx context.Context, call sui.MoveCall) ([]byte, error)
	ExecuteTransaction(ctx context.Context, txBytes []byte, signatures ...string) (*sui.TransactionResult, error)
}

type suiWriter struct {
	node node
	key  *sui.Keypair
	cfg  Config
}

// New returns Writer which records shares with the share::create_share call of cfg.PackageID.
func New(client *sui.Client, key *sui.Keypair, cfg Config) Writer {
	return &suiWriter{
		node: client,
		key:  key,
		cfg:  cfg,
	}
}

func (w *suiWriter) RecordShare(ctx context.Context, title, content string) (string, error) {
	start := time.Now()

	digest, err := w.recordShare(ctx, title, content)

	metrics.RecordLedgerWrite(resultLabel(err), time.Since(start))

	if err != nil {
		return "", err
	}

	log.WithField("digest", digest).Info("share recorded")

	return digest, nil
}

func (w *suiWriter) recordShare(ctx context.Context, title, content string) (string, error) {
	signer := w.key.Address()

	balance, err := w.node.GetBalance(ctx, signer, sui.SUICoinType)
	if err != nil {
		return "", classify(fmt.Errorf("failed to get balance: %w", err))
	}

	if balance < MinBalance {
		return "", fmt.Errorf("%w: required %d, available %d", ErrInsufficientFunds, MinBalance, balance)
	}

	title, err = Sanitize(title, MaxTitleSize)
	if err != nil {
		return "", fmt.Errorf("invalid title: %w", err)
	}

	content, err = Sanitize(content, MaxContentSize)
	if err != nil {
		return "", fmt.Errorf("invalid content: %w", err)
	}

	txBytes, err := w.node.BuildMoveCall(ctx, sui.MoveCall{
		Signer:   signer,
		Package:  w.cfg.PackageID,
		Module:   shareModule,
		Function: shareFunction,
		Arguments: []interface{}{
			w.cfg.CollectionID,
			sui.BytesArg([]byte(title)),
			sui.BytesArg([]byte(content)),
			sui.ClockObjectID,
		},
		GasBudget: w.cfg.GasBudget,
	})
	if err != nil {
		return "", classify(fmt.Errorf("failed to build transaction: %w", err))
	}

	res, err := w.node.ExecuteTransaction(ctx, txBytes, w.key.SignTransaction(txBytes))
	if err != nil {
		return "", classify(fmt.Errorf("failed to execute transaction: %w", err))
	}

	if !res.Succeeded() {
		return "", classify(fmt.Errorf("transaction %s failed: %s", res.Digest, res.Error))
	}

	return res.Digest, nil
}

// classify maps node failures to ledger errors keeping the cause.
func classify(err error) error {
	msg := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrLedgerWriteFailed, err)
	case strings.Contains(msg, "No valid gas coins found"),
		strings.Contains(msg, "InsufficientGas"),
		strings.Contains(msg, "InsufficientCoinBalance"),
		strings.Contains(msg, "GasBalanceTooLow"):
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case strings.Contains(msg, "InvalidBCSBytes"):
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	default:
		return fmt.Errorf("%w: %w", ErrLedgerWriteFailed, err)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "failed"
	}
}
