package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/neststay/internal/database/dbtest"
	"github.com/iliyamo/neststay/internal/repository"
)

func TestSQLCatalog(t *testing.T) {
	db := dbtest.New(t)
	f := dbtest.Seed(t, db, 6)
	c := NewSQL(repository.NewRoomTypeRepo(db))
	ctx := context.Background()

	rt, err := c.RoomType(ctx, f.RoomType.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, rt.TotalInventory)

	_, err = c.RoomType(ctx, f.RoomType.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := c.RoomTypesAtLocation(ctx, f.LocationID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
