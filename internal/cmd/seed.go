package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rl1809/shop-admin/internal/adapter/storage"
	"github.com/rl1809/shop-admin/internal/config"
	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/core/service"
	"github.com/rl1809/shop-admin/internal/port"
)

var seedReset bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a sample product catalog",
	Long: `Insert a small sample catalog into the configured state store. Products
go through the same validation as the API.

With --reset the product and order entries are emptied first.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "empty products and orders before seeding")
	rootCmd.AddCommand(seedCmd)
}

var sampleCatalog = []domain.ProductDraft{
	{ProductName: "Wireless Headphones", SKU: "EL-1001", Category: "Electronics", Price: 129.99, Stock: 40, Description: "Over-ear, noise cancelling"},
	{ProductName: "USB-C Charger 65W", SKU: "EL-1002", Category: "Electronics", Price: 39.5, Stock: 120},
	{ProductName: "Oak Desk", SKU: "FU-2001", Category: "Furniture", Price: 349, Stock: 8, Description: "140x70 cm solid oak"},
	{ProductName: "Office Chair", SKU: "FU-2002", Category: "Furniture", Price: 189, Stock: 15},
	{ProductName: "Linen Shirt", SKU: "CL-3001", Category: "Clothing", Price: 45, Stock: 60},
	{ProductName: "Rain Jacket", SKU: "CL-3002", Category: "Clothing", Price: 89.9, Stock: 0, Active: ptr(false)},
}

func ptr[T any](v T) *T { return &v }

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.Log.NewLogger()
	ctx := cmd.Context()

	store, closeStore, err := openStateStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	created, err := seedCatalog(ctx, store, seedReset)
	if err != nil {
		return err
	}
	logger.Info("seeded catalog", "products", created, "reset", seedReset)
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", created)
	return nil
}

func seedCatalog(ctx context.Context, store port.StateStore, reset bool) (int, error) {
	catalogStore := storage.NewCatalogStore(store)
	if reset {
		if err := catalogStore.Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset products: %w", err)
		}
		if err := storage.NewOrderStore(store).Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset orders: %w", err)
		}
	}

	catalog := service.NewCatalogService(catalogStore)
	for i, draft := range sampleCatalog {
		if _, err := catalog.Create(ctx, draft, nil); err != nil {
			return i, fmt.Errorf("create %s: %w", draft.SKU, err)
		}
	}
	return len(sampleCatalog), nil
}
