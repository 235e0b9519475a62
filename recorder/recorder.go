// Package recorder consumes the engine's event feed and persists an audit
// history to mongo. It is a pure read-only collaborator: it never mutates
// ledger state, and it resumes from a stored cursor so a restart never
// double-writes history.
package recorder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lightlink-network/ll-withdrawal-engine/database"
	"github.com/lightlink-network/ll-withdrawal-engine/database/models"
	"github.com/lightlink-network/ll-withdrawal-engine/types"
)

const streamName = "engine-events"

type Recorder struct {
	database *database.Database
	events   <-chan types.Event
	logger   *slog.Logger
}

type RecorderOpts struct {
	Database *database.Database
	Events   <-chan types.Event
	Logger   *slog.Logger
}

func NewRecorder(opts RecorderOpts) (*Recorder, error) {
	if opts.Database == nil {
		return nil, fmt.Errorf("recorder requires a database")
	}
	if opts.Events == nil {
		return nil, fmt.Errorf("recorder requires an event feed")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := opts.Database.CreateIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create database indexes: %w", err)
	}

	return &Recorder{
		database: opts.Database,
		events:   opts.Events,
		logger:   opts.Logger,
	}, nil
}

func (r *Recorder) Run(ctx context.Context) error {
	lastApplied, err := r.database.GetCursor(ctx, streamName)
	if err != nil {
		return fmt.Errorf("failed to load cursor: %w", err)
	}

	r.logger.Info("starting recorder", "lastAppliedSequence", lastApplied)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shutting down recorder")
			return nil
		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			if ev.Sequence <= lastApplied {
				continue
			}
			if lastApplied > 0 && ev.Sequence > lastApplied+1 {
				// The feed dropped events while we were behind; the audit
				// history is missing the skipped sequences.
				r.logger.Warn("event sequence gap",
					"lastAppliedSequence", lastApplied,
					"sequence", ev.Sequence)
			}

			if err := r.apply(ctx, ev); err != nil {
				return fmt.Errorf("failed to apply event %d: %w", ev.Sequence, err)
			}

			if err := r.database.UpdateCursor(ctx, streamName, ev.Sequence); err != nil {
				return fmt.Errorf("failed to update cursor: %w", err)
			}
			lastApplied = ev.Sequence
		}
	}
}

func (r *Recorder) apply(ctx context.Context, ev types.Event) error {
	timestamp := uint64(ev.Time.Unix())

	switch ev.Kind {
	case types.EventDeposited:
		return r.database.CreateDeposit(ctx, models.Deposit{
			Sequence:  ev.Sequence,
			Account:   ev.Account.Hex(),
			Amount:    ev.Amount.String(),
			Timestamp: timestamp,
		})

	case types.EventWithdrawalRequested:
		return r.database.CreateWithdrawal(ctx, models.Withdrawal{
			WithdrawalID:   ev.WithdrawalID,
			WithdrawalHash: ev.WithdrawalHash.Hex(),
			Account:        ev.Account.Hex(),
			Amount:         ev.Amount.String(),
			Nonce:          ev.Nonce,
			CommitmentSeq:  ev.CommitmentSeq,
			Timestamp:      timestamp,
			Deadline:       uint64(ev.Deadline.Unix()),
			Status:         string(types.Challengeable),
			Sequence:       ev.Sequence,
		})

	case types.EventWithdrawalFinalized:
		r.logger.Info("withdrawal finalized", "withdrawalHash", ev.WithdrawalHash.Hex())
		if err := r.database.UpdateWithdrawalStatusByHash(ctx, ev.WithdrawalHash.Hex(), string(types.Finalized)); err != nil {
			return err
		}
		return r.database.CreateWithdrawalFinalized(ctx, models.WithdrawalFinalized{
			WithdrawalHash: ev.WithdrawalHash.Hex(),
			WithdrawalID:   ev.WithdrawalID,
			Amount:         ev.Amount.String(),
			Timestamp:      timestamp,
			Sequence:       ev.Sequence,
		})

	case types.EventWithdrawalReverted:
		r.logger.Info("withdrawal reverted", "withdrawalHash", ev.WithdrawalHash.Hex())
		if err := r.database.UpdateWithdrawalStatusByHash(ctx, ev.WithdrawalHash.Hex(), string(types.Reverted)); err != nil {
			return err
		}
		return r.database.CreateWithdrawalReverted(ctx, models.WithdrawalReverted{
			WithdrawalHash: ev.WithdrawalHash.Hex(),
			WithdrawalID:   ev.WithdrawalID,
			Amount:         ev.Amount.String(),
			Timestamp:      timestamp,
			Sequence:       ev.Sequence,
		})

	case types.EventCommitmentPublished:
		return r.database.CreateCommitment(ctx, models.Commitment{
			CommitmentSeq: ev.CommitmentSeq,
			Root:          ev.CommitmentRoot.Hex(),
			Timestamp:     timestamp,
		})

	default:
		r.logger.Warn("unknown event kind, skipping", "kind", string(ev.Kind), "sequence", ev.Sequence)
		return nil
	}
}
