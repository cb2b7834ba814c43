package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/neststay/internal/database/dbtest"
	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/repository"
)

func TestRoomTypeRepo(t *testing.T) {
	db := dbtest.New(t)
	f := dbtest.Seed(t, db, 4)
	repo := repository.NewRoomTypeRepo(db)
	ctx := context.Background()

	rt, err := repo.GetByID(ctx, f.RoomType.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rt.TotalInventory)
	assert.True(t, decimal.RequireFromString("100").Equal(rt.BasePrice))
	assert.True(t, rt.IsActive)

	suite := &model.RoomType{
		LocationID: f.LocationID, HotelID: f.HotelID, Name: "Suite", Slug: "harbour-lisbon-suite",
		BasePrice: decimal.RequireFromString("250.50"), TotalInventory: 1, MaxOccupancy: 4,
		MinStay: 2, MaxAdvanceDays: 180, IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, suite))
	assert.ErrorIs(t, repo.Create(ctx, suite), repository.ErrConflict)

	list, err := repo.ListActiveByLocation(ctx, f.LocationID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.SetActive(ctx, suite.ID, false))
	list, err = repo.ListActiveByLocation(ctx, f.LocationID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGuestRepo(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewGuestRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, "Ana", " Ana@Example.com ", "pw-123456", model.RoleGuest, 4)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Ana", "ana@example.com", "other", model.RoleGuest, 4)
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	g, err := repo.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
	assert.Equal(t, model.RoleGuest, g.Role)
	assert.NotEqual(t, "pw-123456", g.PasswordHash)

	_, err = repo.GetByID(ctx, id+1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLocationRepo(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewLocationRepo(db)
	ctx := context.Background()

	h := &model.Hotel{Name: "Pine", Slug: "pine", IsActive: true}
	require.NoError(t, repo.CreateHotel(ctx, h))
	l := &model.Location{HotelID: h.ID, Name: "Pine Porto", Slug: "pine-porto", City: "Porto", Country: "PT", IsActive: true}
	require.NoError(t, repo.CreateLocation(ctx, l))

	got, err := repo.GetLocation(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Porto", got.City)

	taken, err := repo.SlugTaken(ctx, "locations", "pine-porto")
	require.NoError(t, err)
	assert.True(t, taken)
	_, err = repo.SlugTaken(ctx, "guests", "x")
	assert.Error(t, err)
}
