package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Listener delivers transaction change notifications to a callback, in the
// order the database commits them. It holds one dedicated connection from
// the pool for the lifetime of the subscription.
type Listener struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewListener(db *pgxpool.Pool, logger *zap.Logger) *Listener {
	return &Listener{
		db:     db,
		logger: logger,
	}
}

// Listen subscribes to the transactions channel and invokes onChange for
// every notification until ctx is cancelled. A feed failure is reported once
// through onError and ends the subscription; there is no automatic
// reconnect — the caller decides how to surface the degraded state.
func (l *Listener) Listen(ctx context.Context, onChange func(payload string), onError func(error)) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.Exec(ctx, "LISTEN "+TransactionsChannel); err != nil {
		conn.Release()
		return err
	}

	go func() {
		defer conn.Release()
		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Transaction feed failed", zap.Error(err))
				onError(err)
				return
			}
			onChange(notification.Payload)
		}
	}()
	return nil
}
