package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"revue/internal/catalog"
	"revue/internal/config"
	"revue/internal/country"
	"revue/internal/store"
	"revue/internal/user"
)

// seedProducts is the demo catalog. Products 4 to 7 are regional variants of
// the same name covering different country sets, which exercises the linking
// rules and the CSV matcher.
func seedProducts() []catalog.Product {
	return []catalog.Product{
		{
			Name:     "Product 1",
			Category: catalog.CategoryDetergent,
			Status:   catalog.StatusAccepted,
			Content: catalog.Content{
				Manufacturer: "Manufacturer 1",
				Description:  "Product 1 description",
				Countries:    []country.Code{country.PL, country.DE},
				FeaturesList: []string{"Lorem", "Ipsum"},
			},
		},
		{
			Name:     "Product 2",
			Category: catalog.CategoryDishwasherCube,
			Status:   catalog.StatusAccepted,
			Content: catalog.Content{
				Manufacturer: "Manufacturer 2",
				Description:  "Product 2 description",
				Countries:    []country.Code{country.UK},
				FeaturesList: []string{"Lorem", "Ipsum"},
			},
		},
		{
			Name:     "Product 3",
			Category: catalog.CategoryThermalMug,
			Status:   catalog.StatusAccepted,
			Content: catalog.Content{
				Manufacturer: "Manufacturer 3",
				Description:  "Product 3 description",
				Countries:    []country.Code{country.PL, country.DE, country.UK},
				FeaturesList: []string{"Lorem", "Ipsum"},
			},
		},
		{
			Name:     "Proszek pierdzioszek",
			Category: catalog.CategoryDetergent,
			Status:   catalog.StatusAccepted,
			Content: catalog.Content{
				Manufacturer: "Pierdzioszek sp. z o.o.",
				Description:  "Proszek pierdzioszek PL",
				Countries:    []country.Code{country.PL},
				FeaturesList: []string{"Lorem", "Ipsum"},
			},
		},
		{
			Name:     "Proszek pierdzioszek",
			Category: catalog.CategoryDetergent,
			Status:   catalog.StatusAccepted,
			Content: catalog.Content{
				Manufacturer: "Pierdzioszek sp. z o.o.",
				Description:  "Proszek pierdzioszek DE",
				Countries:    []country.Code{country.DE},
				FeaturesList: []string{"Lorem", "Ipsum"},
			},
		},
		{
			Name:     "Proszek pierdzioszek",
			Category: catalog.CategoryDetergent,
			Status:   catalog.StatusAccepted,
			Content: catalog.Content{
				Manufacturer: "Pierdzioszek sp. z o.o.",
				Description:  "Proszek pierdzioszek UK",
				Countries:    []country.Code{country.UK},
				FeaturesList: []string{"Lorem", "Ipsum"},
			},
		},
		{
			Name:     "Proszek pierdzioszek",
			Category: catalog.CategoryDetergent,
			Status:   catalog.StatusAccepted,
			Content: catalog.Content{
				Manufacturer: "Pierdzioszek sp. z o.o.",
				Description:  "Proszek pierdzioszek PL DE",
				Countries:    []country.Code{country.PL, country.DE},
				FeaturesList: []string{"Lorem", "Ipsum"},
			},
		},
	}
}

type seedUser struct {
	email    string
	userType user.Type
}

func seedUsers() []seedUser {
	return []seedUser{
		{"admin@foo.bar", user.TypeAdmin},
		{"moderator@foo.bar", user.TypeModerator},
		{"user@foo.bar", user.TypeUser},
		{"user2@foo.bar", user.TypeUser},
		{"deletable@foo.bar", user.TypeUser},
	}
}

const seedPassword = "password"

func newSeedCmd(loadConfig func() (config.Config, *zap.Logger, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo products and accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			products := catalog.NewStore(db, log)
			for _, p := range seedProducts() {
				id, err := products.Add(ctx, p)
				if err != nil {
					return fmt.Errorf("seed product %q: %w", p.Name, err)
				}
				log.Info("seeded product", zap.Int64("productId", id), zap.String("name", p.Name))
			}

			users := user.NewStore(db, cfg.BcryptCost, cfg.TestAccountSuffix)
			for _, su := range seedUsers() {
				u, err := users.Create(ctx, su.email, seedPassword, su.userType, user.AccountEmail)
				if err != nil {
					return fmt.Errorf("seed user %q: %w", su.email, err)
				}
				log.Info("seeded user", zap.Int64("userId", u.UserID), zap.String("email", u.Email))
			}
			return nil
		},
	}
}
