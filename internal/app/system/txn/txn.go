// internal/app/system/txn/txn.go
//
// Package txn runs multi-document work in a MongoDB transaction when the
// server supports them, and falls back to running the function without a
// session on standalone servers that don't.
package txn

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTransaction executes fn inside a transaction. When the server
// rejects transactions (standalone mongod, old DocumentDB), fn is re-run
// once outside a session so the work still happens, just without
// atomicity.
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fn(ctx)
	}
	return err
}

// IsNotSupported reports whether err indicates the server cannot run
// transactions or sessions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	if cmdErr, ok := err.(mongo.CommandError); ok {
		switch cmdErr.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }

	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("transaction") && has("illegal operation"):
		return true
	}
	return false
}
