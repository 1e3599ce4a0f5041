package interceptor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-persistence/storage"
)

const logStartKey = "_log_start"

// Logging records operation start, completion time and failures. It runs at
// LOWEST priority so the measured window covers only the storage call and
// whatever ran below it, and it always delegates: a log sink problem never
// changes the operation outcome.
type Logging struct {
	Base
	logger zerolog.Logger
}

// NewLogging builds the logging interceptor around a zerolog logger.
func NewLogging(logger zerolog.Logger) *Logging {
	return &Logging{
		Base:   NewBase("logging", PriorityLowest),
		logger: logger,
	}
}

func (l *Logging) Before(ctx context.Context, op *Context, next Handler) (storage.Result, error) {
	start := time.Now()
	op.SetValue(logStartKey, start)

	l.logger.Debug().
		Str("entity_type", op.EntityType).
		Str("operation", string(op.Operation)).
		Str("tx_id", op.TxID).
		Msg("operation start")

	result, err := next(ctx, op)
	elapsed := time.Since(start)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("entity_type", op.EntityType).
			Str("operation", string(op.Operation)).
			Str("tx_id", op.TxID).
			Dur("elapsed", elapsed).
			Msg("operation failed")
		return result, err
	}

	l.logger.Info().
		Str("entity_type", op.EntityType).
		Str("operation", string(op.Operation)).
		Str("tx_id", op.TxID).
		Dur("elapsed", elapsed).
		Msg("operation complete")
	return result, nil
}
