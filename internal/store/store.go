package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"sistemasj/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the persistence contract for the whole backend. Sale and
// expense range filters are half-open instants for timestamped rows and
// inclusive calendar dates for date columns; callers do the calendar math.
type Repository interface {
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListStorefront(ctx context.Context, category string) ([]domain.Product, error)

	// CreateSaleBatch inserts every sale row and decrements stock for every
	// row with a product reference inside one atomic unit. A reference to a
	// missing product fails the whole batch with ErrNotFound.
	CreateSaleBatch(ctx context.Context, sales []domain.Sale) error
	ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)
	// DeleteSale removes one sale row. Stock is not restored.
	DeleteSale(ctx context.Context, id string) error

	CreateRepairOrder(ctx context.Context, order domain.RepairOrder) (*domain.RepairOrder, error)
	ListRepairOrders(ctx context.Context, from time.Time, to time.Time) ([]domain.RepairOrder, error)
	// UpdateRepairStatus sets the status of all orders matching the business
	// order number. Zero matched rows is success, not an error.
	UpdateRepairStatus(ctx context.Context, orderNumber string, status string) error
	DeleteRepairOrder(ctx context.Context, id string) error

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	// ListExpenses filters by inclusive date range when from/to are non-nil.
	ListExpenses(ctx context.Context, from *time.Time, to *time.Time) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	// SoldTotalsByPayment sums quantity x tier price per payment method over
	// [from, to). Manual lines and reseller-tier lines whose product has no
	// reseller price contribute nothing.
	SoldTotalsByPayment(ctx context.Context, from time.Time, to time.Time) (map[string]decimal.Decimal, error)
	// SpentTotalsByPayment sums expense amounts per payment method over the
	// inclusive date range [from, to].
	SpentTotalsByPayment(ctx context.Context, from time.Time, to time.Time) (map[string]decimal.Decimal, error)

	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
