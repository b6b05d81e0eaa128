package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/shop-admin/internal/adapter/storage"
	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/core/service"
)

const (
	totalRequests = 200
	unitPrice     = 25.0
	quantity      = 3
)

func main() {
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := storage.NewMemoryStore()
	catalog := service.NewCatalogService(storage.NewCatalogStore(store), service.WithLogger(quiet))
	orders := service.NewOrderService(storage.NewOrderStore(store), catalog, service.WithLogger(quiet))

	product, err := catalog.Create(ctx, domain.ProductDraft{
		ProductName: "Stress Widget", SKU: "ST-1", Category: "Electronics", Price: unitPrice, Stock: totalRequests,
	}, nil)
	if err != nil {
		log.Fatalf("failed to create product: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := orders.Create(ctx, domain.OrderDraft{
				ClientName:       fmt.Sprintf("client-%d", n),
				DeliveryAddress:  fmt.Sprintf("%d Load Street", n),
				SelectedProducts: []string{product.Key()},
				Quantities:       map[string]int{product.Key(): quantity},
				PaymentStatus:    domain.PaymentStatusPending,
				DeliveryStatus:   domain.DeliveryStatusPending,
				ExpectedDelivery: "2030-01-01",
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	stored, _, err := storage.NewOrderStore(store).LoadOrders(ctx)
	if err != nil {
		log.Fatalf("failed to load orders: %v", err)
	}

	ids := make(map[string]struct{}, len(stored))
	wrongTotals := 0
	for _, o := range stored {
		ids[o.ID] = struct{}{}
		if o.TotalAmount != unitPrice*quantity {
			wrongTotals++
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Stored Orders:    %d\n", len(stored))
	fmt.Printf("Unique IDs:       %d\n", len(ids))
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	pass := true
	if int(successCount.Load()) != totalRequests || len(stored) != totalRequests {
		fmt.Printf("FAIL: expected %d stored orders, got %d\n", totalRequests, len(stored))
		pass = false
	}
	if len(ids) != len(stored) {
		fmt.Printf("FAIL: %d duplicate order ids\n", len(stored)-len(ids))
		pass = false
	}
	if wrongTotals > 0 {
		fmt.Printf("FAIL: %d orders with a wrong total\n", wrongTotals)
		pass = false
	}
	if !pass {
		os.Exit(1)
	}
	fmt.Println("PASS: every concurrent order was stored once with the right total")
}
