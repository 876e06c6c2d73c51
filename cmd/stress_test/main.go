package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/bizdesk/internal/adapter/storage"
	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/service"
	"github.com/rl1809/bizdesk/internal/core/store"
	"github.com/rl1809/bizdesk/internal/obs"
	"github.com/rl1809/bizdesk/internal/port"
)

const (
	itemID        = "stress-test-item"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()
	obs.InitLogger("warn")

	// Initialize Redis when available, else the in-memory adapter
	var cache port.CacheRepository = storage.NewMemoryAdapter()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect redis: %v\n", err)
			os.Exit(1)
		}
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb)
	}

	st := store.New(store.NewState())
	st.Dispatch(store.AddInventoryItem{Item: domain.InventoryItem{
		ID:           itemID,
		Name:         "Stress Test Item",
		Quantity:     initialStock,
		CostPrice:    decimal.NewFromInt(80),
		SellingPrice: decimal.NewFromInt(100),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}})

	metrics := obs.NewMetrics()
	saleService := service.NewSaleService(st, cache, metrics)

	// Counters
	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var otherCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := saleService.RecordSale(ctx, uuid.NewString(), itemID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
				fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	soldOut := soldOutCount.Load()
	final, _ := st.Snapshot().Item(itemID)
	sales := len(st.Snapshot().Sales)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	ok := true
	if success == initialStock && soldOut == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d sales succeeded, %d sold out\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d sold out, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
		ok = false
	}

	fmt.Printf("Final Stock:      %d\n", final.Quantity)
	if final.Quantity == 0 && sales == initialStock {
		fmt.Println("PASS: Stock depleted to 0 with one sale per unit")
	} else {
		fmt.Printf("FAIL: Expected stock 0 and %d sales, got %d and %d\n", initialStock, final.Quantity, sales)
		ok = false
	}

	if !ok {
		os.Exit(1)
	}
}
