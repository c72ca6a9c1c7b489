package service

import (
	"context"
	"errors"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// runInTx runs fn in a transaction and retries the whole unit once when the
// store reports a serialization conflict
func runInTx(ctx context.Context, tx domain.Transactor, op string, fn func(ctx context.Context) error) error {
	err := tx.WithinTx(ctx, fn)
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		return err
	}

	log.Warn().Err(err).Str("operation", op).Msg("Concurrency conflict, retrying once")
	return tx.WithinTx(ctx, fn)
}
