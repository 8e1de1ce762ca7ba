package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chezmonami/platform/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type DedupConfig struct {
	Consumer string
	Attempts int
	Backoff  time.Duration
}

// ProcessWithDeduplication runs action at most once per (consumer, eventID).
// The processed_events row and every write the action makes through tx
// commit together: if the action keeps failing or the commit fails, nothing
// is kept and the event can be redelivered. Each attempt runs in its own
// savepoint so a failed attempt leaves the transaction usable.
func ProcessWithDeduplication(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger *zap.Logger,
	cfg DedupConfig,
	eventID int64,
	action func(ctx context.Context, tx pgx.Tx) error,
) error {
	span := trace.SpanFromContext(ctx)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(shutdownCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(shutdownCtx, logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	query := `
		INSERT INTO processed_events (consumer, event_id)
		VALUES ($1, $2)
	`

	if _, err = tx.Exec(ctx, query, cfg.Consumer, eventID); err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolation {
			mylogger.Info(
				ctx,
				logger,
				"Event already processed, skipping",
				zap.String("consumer", cfg.Consumer),
				zap.Int64("event_id", eventID),
			)

			return nil
		}

		span.RecordError(err)
		return err
	}

	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		err = attempt(ctx, tx, action)
		if err == nil {
			break
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Backoff):
			}
		}
	}

	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, logger, "Action failed after retries", zap.Int("attempts", attempts), zap.Error(err))

		return fmt.Errorf("failed to process event %d: %w", eventID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit processed event %d: %w", eventID, err)
	}

	return nil
}

func attempt(ctx context.Context, tx pgx.Tx, action func(ctx context.Context, tx pgx.Tx) error) error {
	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return err
	}

	if err := action(ctx, savepoint); err != nil {
		if rbErr := savepoint.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return savepoint.Commit(ctx)
}
