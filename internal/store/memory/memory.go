package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"sistemasj/backend/internal/domain"
	"sistemasj/backend/internal/store"
	"sistemasj/backend/internal/textnorm"
)

// Store is an in-memory Repository used for tests and DB-less development.
// It mirrors the Postgres store's semantics, including the unconditional
// stock decrement and the NULL-reseller-price behavior of reconciliation.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	sales    map[string]domain.Sale
	repairs  map[string]domain.RepairOrder
	expenses map[string]domain.Expense
	users    map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Passwords come from SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD; hardcoded
// dev defaults are used with a warning when unset. Production deployments use
// PostgreSQL (DATABASE_URL) and never touch these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	sellerPwd := envOr("SEED_SELLER_PASSWORD", "seller123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SELLER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"seller", sellerPwd, "seller"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func nullDec(value string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(value), Valid: true}
}

func NewSeeded() *Store {
	products := []domain.Product{
		{ID: "prod-iphone11", Name: "IPHONE 11 128GB", Barcode: "7790001000011", Stock: 4, RetailPrice: dec("250000"), CostPrice: dec("180000"), ResellerPrice: nullDec("230000"), Category: "celulares", ModelNumber: "A2221", Color: "NEGRO", Battery: "89%", Condition: "USADO", PhotoURL: "https://img.example/iphone11.jpg"},
		{ID: "prod-a54", Name: "SAMSUNG A54 5G", Barcode: "7790001000028", Stock: 6, RetailPrice: dec("310000"), CostPrice: dec("245000"), ResellerPrice: nullDec("290000"), Category: "celulares", ModelNumber: "SM-A546", Color: "VERDE", Condition: "NUEVO", PhotoURL: "https://img.example/a54.jpg"},
		{ID: "prod-cargador", Name: "CARGADOR USB-C 20W", Barcode: "7790001000035", Stock: 25, RetailPrice: dec("12000"), CostPrice: dec("6500"), ResellerPrice: nullDec("9500"), Category: "accesorios", PhotoURL: "https://img.example/cargador.jpg"},
		{ID: "prod-funda", Name: "FUNDA SILICONA IPHONE 11", Barcode: "7790001000042", Stock: 18, RetailPrice: dec("8000"), CostPrice: dec("3200"), Category: "accesorios", Color: "AZUL", PhotoURL: "https://img.example/funda.jpg"},
		{ID: "prod-modulo8", Name: "MODULO PANTALLA IPHONE 8", Barcode: "7790001000059", Stock: 3, RetailPrice: dec("45000"), CostPrice: dec("28000"), ResellerPrice: nullDec("39000"), Category: "repuestos", ModelNumber: "A1863"},
		{ID: "prod-auric", Name: "AURICULARES BT GÉNESIS", Barcode: "7790001000066", Stock: 11, RetailPrice: dec("15500"), CostPrice: dec("7800"), Category: "accesorios", Color: "BLANCO", PhotoURL: "https://img.example/auric.jpg"},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	return &Store{
		products: productMap,
		sales:    make(map[string]domain.Sale),
		repairs:  make(map[string]domain.RepairOrder),
		expenses: make(map[string]domain.Expense),
		users:    seedUsers(),
	}
}

func (s *Store) SearchProducts(_ context.Context, query string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folded := textnorm.Fold(query)
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if folded != "" {
			haystack := textnorm.Fold(p.Name + " " + p.Barcode + " " + p.ModelNumber)
			if !strings.Contains(haystack, folded) {
				continue
			}
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.Barcode == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidInput
	}

	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ListStorefront(_ context.Context, category string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category = strings.TrimSpace(category)
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Stock <= 0 || p.PhotoURL == "" {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) CreateSaleBatch(_ context.Context, sales []domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sales) == 0 {
		return store.ErrInvalidInput
	}

	// Validate everything before touching state so a bad line leaves both
	// sale rows and stock untouched, matching the SQL transaction rollback.
	for _, sale := range sales {
		if sale.ID == "" || sale.Quantity < 1 {
			return store.ErrInvalidInput
		}
		if sale.ProductID == "" {
			continue
		}
		if _, exists := s.products[sale.ProductID]; !exists {
			return store.ErrNotFound
		}
	}

	for _, sale := range sales {
		s.sales[sale.ID] = sale
		if sale.ProductID == "" {
			continue
		}
		product := s.products[sale.ProductID]
		product.Stock -= sale.Quantity
		s.products[sale.ProductID] = product
	}
	return nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if sale.SoldAt.Before(from) || !sale.SoldAt.Before(to) {
			continue
		}
		if sale.ProductID != "" {
			if product, exists := s.products[sale.ProductID]; exists {
				sale.ProductName = product.Name
			}
		}
		sales = append(sales, sale)
	}

	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.SoldAt.Equal(b.SoldAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.SoldAt.After(b.SoldAt) {
			return -1
		}
		return 1
	})
	return sales, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) CreateRepairOrder(_ context.Context, order domain.RepairOrder) (*domain.RepairOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" || order.OrderNumber == "" {
		return nil, store.ErrInvalidInput
	}
	s.repairs[order.ID] = order
	created := order
	return &created, nil
}

func (s *Store) ListRepairOrders(_ context.Context, from time.Time, to time.Time) ([]domain.RepairOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromDate := dateOnly(from)
	toDate := dateOnly(to)

	orders := make([]domain.RepairOrder, 0, len(s.repairs))
	for _, order := range s.repairs {
		d := dateOnly(order.ReceivedDate)
		if d.Before(fromDate) || d.After(toDate) {
			continue
		}
		orders = append(orders, order)
	}

	slices.SortFunc(orders, func(a, b domain.RepairOrder) int {
		return strings.Compare(b.OrderNumber, a.OrderNumber)
	})
	return orders, nil
}

func (s *Store) UpdateRepairStatus(_ context.Context, orderNumber string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, order := range s.repairs {
		if order.OrderNumber == orderNumber {
			order.Status = status
			s.repairs[id] = order
		}
	}
	return nil
}

func (s *Store) DeleteRepairOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.repairs[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.repairs, id)
	return nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		return nil, store.ErrInvalidInput
	}
	s.expenses[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, from *time.Time, to *time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		d := dateOnly(expense.Date)
		if from != nil && d.Before(dateOnly(*from)) {
			continue
		}
		if to != nil && d.After(dateOnly(*to)) {
			continue
		}
		expenses = append(expenses, expense)
	}

	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		ad, bd := dateOnly(a.Date), dateOnly(b.Date)
		if ad.Equal(bd) {
			return strings.Compare(b.ID, a.ID)
		}
		if ad.After(bd) {
			return -1
		}
		return 1
	})
	return expenses, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) SoldTotalsByPayment(_ context.Context, from time.Time, to time.Time) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]decimal.Decimal, 4)
	for _, sale := range s.sales {
		if sale.SoldAt.Before(from) || !sale.SoldAt.Before(to) {
			continue
		}
		if sale.ProductID == "" {
			continue
		}
		product, exists := s.products[sale.ProductID]
		if !exists {
			continue
		}

		var unit decimal.Decimal
		if sale.PriceTier == domain.PriceTierReseller {
			if !product.ResellerPrice.Valid {
				continue
			}
			unit = product.ResellerPrice.Decimal
		} else {
			unit = product.RetailPrice
		}

		line := unit.Mul(decimal.NewFromInt(int64(sale.Quantity)))
		totals[sale.PaymentMethod] = totals[sale.PaymentMethod].Add(line)
	}
	return totals, nil
}

func (s *Store) SpentTotalsByPayment(_ context.Context, from time.Time, to time.Time) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromDate := dateOnly(from)
	toDate := dateOnly(to)

	totals := make(map[string]decimal.Decimal, 4)
	for _, expense := range s.expenses {
		d := dateOnly(expense.Date)
		if d.Before(fromDate) || d.After(toDate) {
			continue
		}
		totals[expense.PaymentMethod] = totals[expense.PaymentMethod].Add(expense.Amount)
	}
	return totals, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
