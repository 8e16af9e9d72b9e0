package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sistemasj/backend/internal/domain"
	"sistemasj/backend/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()

	databaseURL := os.Getenv("SISTEMASJ_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SISTEMASJ_TEST_DATABASE_URL to run postgres integration test")
	}

	s, err := New(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func seedIntegrationProduct(t *testing.T, s *Store, id string, stock int) {
	t.Helper()
	ctx := context.Background()

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE product_id = $1`, id)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, barcode, stock, retail_price, cost_price, reseller_price,
			search_text, created_at, updated_at
		)
		VALUES ($1, 'PRODUCTO IT', $2, $3, 12000, 6500, 9500, 'producto it', now(), now())
	`, id, id, stock); err != nil {
		t.Fatalf("insert product: %v", err)
	}
}

func integrationStock(t *testing.T, s *Store, id string) int {
	t.Helper()
	var stock int
	if err := s.db.QueryRowContext(context.Background(), `
		SELECT stock FROM products WHERE id = $1
	`, id).Scan(&stock); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	return stock
}

func TestCreateSaleBatchCommitsRowsAndDecrements(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-it-%d", stamp)
	seedIntegrationProduct(t, s, productID, 10)

	soldAt := time.Now().UTC()
	sales := []domain.Sale{
		{
			ID:            fmt.Sprintf("sale-it-a-%d", stamp),
			ProductID:     productID,
			Quantity:      3,
			SoldAt:        soldAt,
			DisplayName:   "PRODUCTO IT",
			PaymentMethod: "cash",
			PriceTier:     domain.PriceTierRetail,
		},
		{
			ID:            fmt.Sprintf("sale-it-b-%d", stamp),
			Quantity:      1,
			SoldAt:        soldAt,
			DisplayName:   "LINEA MANUAL IT",
			PaymentMethod: "cash",
			PriceTier:     domain.PriceTierRetail,
		},
	}
	if err := s.CreateSaleBatch(ctx, sales); err != nil {
		t.Fatalf("create sale batch: %v", err)
	}

	if got := integrationStock(t, s, productID); got != 7 {
		t.Fatalf("expected stock 7 after sale, got %d", got)
	}

	totals, err := s.SoldTotalsByPayment(ctx, soldAt.Add(-time.Minute), soldAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("sold totals: %v", err)
	}
	want := decimal.RequireFromString("36000")
	if got := totals["cash"]; !got.Equal(want) {
		t.Fatalf("expected cash total %s (manual line excluded), got %s", want, got)
	}
}

func TestCreateSaleBatchRollsBackOnMissingProduct(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-it-rb-%d", stamp)
	seedIntegrationProduct(t, s, productID, 10)

	soldAt := time.Now().UTC()
	err := s.CreateSaleBatch(ctx, []domain.Sale{
		{
			ID:            fmt.Sprintf("sale-it-rb-a-%d", stamp),
			ProductID:     productID,
			Quantity:      2,
			SoldAt:        soldAt,
			DisplayName:   "PRODUCTO IT",
			PaymentMethod: "cash",
			PriceTier:     domain.PriceTierRetail,
		},
		{
			ID:            fmt.Sprintf("sale-it-rb-b-%d", stamp),
			ProductID:     fmt.Sprintf("prod-missing-%d", stamp),
			Quantity:      1,
			SoldAt:        soldAt,
			DisplayName:   "FANTASMA",
			PaymentMethod: "cash",
			PriceTier:     domain.PriceTierRetail,
		},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if got := integrationStock(t, s, productID); got != 10 {
		t.Fatalf("expected stock untouched at 10 after rollback, got %d", got)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM sales WHERE product_id = $1
	`, productID).Scan(&count); err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no committed sale rows, got %d", count)
	}
}
