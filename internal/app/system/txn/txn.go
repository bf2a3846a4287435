// Package txn runs multi-document writes in a MongoDB transaction when
// the deployment supports it, and falls back to plain sequential writes on
// standalone servers (local development, some test setups).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// IsNotSupported reports whether err means the server cannot run
// transactions (standalone mongod, or an operation not allowed inside one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transactions need a replica set
			51,  // IllegalOperation on older servers
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "illegal operation") {
		return true
	}
	if strings.Contains(s, "transaction") && (strings.Contains(s, "replica set") || strings.Contains(s, "session")) {
		return true
	}
	return strings.Contains(s, "session") && strings.Contains(s, "not supported")
}

// Run calls fn inside a transaction on client. If the server does not
// support transactions, fn is called once more without one and a warning
// is logged. fn must be safe to retry: the driver may call it again on
// transient errors.
func Run(ctx context.Context, client *mongo.Client, logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithout(ctx, logger, fn, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runWithout(ctx, logger, fn, err)
	}
	return err
}

// InTransaction reports whether ctx carries the session of a running
// transaction, i.e. fn was called by Run without the standalone fallback.
func InTransaction(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

func runWithout(ctx context.Context, logger *zap.Logger, fn func(ctx context.Context) error, cause error) error {
	if logger != nil {
		logger.Warn("transactions not supported, running without transaction", zap.Error(cause))
	}
	return fn(ctx)
}
