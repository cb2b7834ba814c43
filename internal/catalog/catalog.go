// Package catalog reads room-type reference data for the reservation
// core, either from the local database or from an external catalog
// service.
package catalog

import (
	"context"
	"errors"

	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/repository"
)

// ErrNotFound is returned for an unknown or deleted room type.
var ErrNotFound = errors.New("room type not found")

// SQL serves the catalog from the room_types table.
type SQL struct {
	repo *repository.RoomTypeRepo
}

func NewSQL(repo *repository.RoomTypeRepo) *SQL { return &SQL{repo: repo} }

func (s *SQL) RoomType(ctx context.Context, id uint64) (*model.RoomType, error) {
	rt, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rt, err
}

func (s *SQL) RoomTypesAtLocation(ctx context.Context, locationID uint64) ([]model.RoomType, error) {
	return s.repo.ListActiveByLocation(ctx, locationID)
}
