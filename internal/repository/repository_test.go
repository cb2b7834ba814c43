package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/neststay/internal/database"
	"github.com/iliyamo/neststay/internal/model"
)

type txLike = *sql.Tx

func stay(from, to string) model.DateRange {
	return model.DateRange{Start: model.MustParseDate(from), End: model.MustParseDate(to)}
}

// inTx runs fn in a transaction, committing on success.
func inTx(t *testing.T, db *database.DB, fn func(ctx context.Context, tx txLike) error) error {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
