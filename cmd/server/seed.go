package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/repository"
	"github.com/iliyamo/neststay/internal/utils"
)

type seedRoomType struct {
	name      string
	price     string
	inventory int
	occupancy int
	minStay   int
}

type seedLocation struct {
	name, city, country string
	roomTypes           []seedRoomType
}

var demoHotel = struct {
	name      string
	locations []seedLocation
}{
	name: "NestStay Hotels",
	locations: []seedLocation{
		{name: "NestStay Lisbon Riverside", city: "Lisbon", country: "PT", roomTypes: []seedRoomType{
			{name: "Standard Double", price: "95.00", inventory: 20, occupancy: 2, minStay: 1},
			{name: "Deluxe King", price: "140.00", inventory: 8, occupancy: 2, minStay: 1},
			{name: "Family Suite", price: "210.00", inventory: 4, occupancy: 4, minStay: 2},
		}},
		{name: "NestStay Porto Ribeira", city: "Porto", country: "PT", roomTypes: []seedRoomType{
			{name: "Standard Twin", price: "85.00", inventory: 12, occupancy: 2, minStay: 1},
			{name: "River View Suite", price: "180.00", inventory: 3, occupancy: 3, minStay: 2},
		}},
	},
}

func seedCmd() *cobra.Command {
	var staffEmail, staffPassword string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a demo hotel, its room types and a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			db, err := openDB(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			locations := repository.NewLocationRepo(db)
			roomTypes := repository.NewRoomTypeRepo(db)
			guests := repository.NewGuestRepo(db)

			if err := seedHotel(ctx, locations, roomTypes, log); err != nil {
				return err
			}
			_, err = guests.Create(ctx, "Front Desk", staffEmail, staffPassword, model.RoleStaff, cfg.Auth.BcryptCost)
			switch {
			case errors.Is(err, repository.ErrEmailExists):
				log.Info("staff account already exists", zap.String("email", staffEmail))
			case err != nil:
				return fmt.Errorf("create staff account: %w", err)
			default:
				log.Info("staff account created", zap.String("email", staffEmail))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&staffEmail, "staff-email", "frontdesk@neststay.local", "Staff account email")
	cmd.Flags().StringVar(&staffPassword, "staff-password", "change-me-now", "Staff account password")
	return cmd
}

func seedHotel(ctx context.Context, locations *repository.LocationRepo, roomTypes *repository.RoomTypeRepo, log *zap.Logger) error {
	slugFor := func(table, name string) (string, error) {
		return utils.UniqueSlug(ctx, name, func(ctx context.Context, s string) (bool, error) {
			return locations.SlugTaken(ctx, table, s)
		})
	}

	hotelSlug, err := slugFor("hotels", demoHotel.name)
	if err != nil {
		return err
	}
	hotel := &model.Hotel{Name: demoHotel.name, Slug: hotelSlug, IsActive: true}
	if err := locations.CreateHotel(ctx, hotel); err != nil {
		return fmt.Errorf("create hotel: %w", err)
	}

	for _, sl := range demoHotel.locations {
		locSlug, err := slugFor("locations", sl.name)
		if err != nil {
			return err
		}
		loc := &model.Location{HotelID: hotel.ID, Name: sl.name, Slug: locSlug, City: sl.city, Country: sl.country, IsActive: true}
		if err := locations.CreateLocation(ctx, loc); err != nil {
			return fmt.Errorf("create location %s: %w", sl.name, err)
		}
		for _, srt := range sl.roomTypes {
			rtSlug, err := slugFor("room_types", sl.name+" "+srt.name)
			if err != nil {
				return err
			}
			rt := &model.RoomType{
				LocationID:     loc.ID,
				HotelID:        hotel.ID,
				Name:           srt.name,
				Slug:           rtSlug,
				BasePrice:      decimal.RequireFromString(srt.price),
				TotalInventory: srt.inventory,
				MaxOccupancy:   srt.occupancy,
				MinStay:        srt.minStay,
				MaxAdvanceDays: 365,
				IsActive:       true,
			}
			if err := roomTypes.Create(ctx, rt); err != nil {
				return fmt.Errorf("create room type %s: %w", srt.name, err)
			}
			log.Info("seeded room type", zap.Uint64("id", rt.ID), zap.String("slug", rt.Slug), zap.Uint64("location_id", loc.ID))
		}
	}
	return nil
}
