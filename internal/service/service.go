package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"sistemasj/backend/internal/cache"
	"sistemasj/backend/internal/domain"
	"sistemasj/backend/internal/store"
	"sistemasj/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const dateLayout = "2006-01-02"

// Service holds the business rules on top of the repository. All sale and
// cash-report calendar math happens in businessTZ so a shop day matches the
// drawer count, wherever the server runs.
type Service struct {
	repo            store.Repository
	storefrontCache cache.StorefrontCache
	businessTZ      *time.Location
	storefrontTTL   time.Duration
}

func New(repo store.Repository, storefrontCache cache.StorefrontCache, businessTZ *time.Location, storefrontTTL time.Duration) *Service {
	if storefrontCache == nil {
		storefrontCache = cache.NoopStorefrontCache{}
	}
	if businessTZ == nil {
		businessTZ = time.UTC
	}
	if storefrontTTL <= 0 {
		storefrontTTL = 30 * time.Second
	}

	return &Service{
		repo:            repo,
		storefrontCache: storefrontCache,
		businessTZ:      businessTZ,
		storefrontTTL:   storefrontTTL,
	}
}

func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return s.repo.SearchProducts(ctx, query)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.Product) (domain.Product, error) {
	req.Name = strings.ToUpper(strings.TrimSpace(req.Name))
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Category = strings.TrimSpace(req.Category)

	if req.Name == "" || req.Barcode == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.RetailPrice.IsNegative() || req.CostPrice.IsNegative() {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.ResellerPrice.Valid && req.ResellerPrice.Decimal.IsNegative() {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	req.ID = xid.New("prod")
	created, err := s.repo.CreateProduct(ctx, req)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateStorefront(ctx)
	return *created, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateStorefront(ctx)
	return nil
}

// Storefront serves the public catalog. Only the uncategorized listing is
// cached; category filters go straight to the repository.
func (s *Service) Storefront(ctx context.Context, category string) ([]domain.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		if products, hit, err := s.storefrontCache.Get(ctx); err != nil {
			log.Printf("[service] WARN: storefront cache read failed: %v", err)
		} else if hit {
			return products, nil
		}
	}

	products, err := s.repo.ListStorefront(ctx, category)
	if err != nil {
		return nil, err
	}

	if category == "" {
		if err := s.storefrontCache.Set(ctx, products, s.storefrontTTL); err != nil {
			log.Printf("[service] WARN: storefront cache write failed: %v", err)
		}
	}
	return products, nil
}

// CreateSale records a multi-line sale. Every line shares one timestamp
// taken once at entry, and the batch commits or fails as one unit.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleRequest) ([]domain.Sale, error) {
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if req.PaymentMethod == "" || len(req.Lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	soldAt := time.Now().In(s.businessTZ)

	sales := make([]domain.Sale, 0, len(req.Lines))
	for _, line := range req.Lines {
		line.DisplayName = strings.TrimSpace(line.DisplayName)
		line.PriceTier = strings.ToLower(strings.TrimSpace(line.PriceTier))
		if line.PriceTier == "" {
			line.PriceTier = domain.PriceTierRetail
		}
		if line.Quantity < 1 || line.DisplayName == "" {
			return nil, store.ErrInvalidInput
		}

		sales = append(sales, domain.Sale{
			ID:            xid.New("sale"),
			ProductID:     strings.TrimSpace(line.ProductID),
			Quantity:      line.Quantity,
			SoldAt:        soldAt,
			DisplayName:   line.DisplayName,
			PaymentMethod: req.PaymentMethod,
			CustomerID:    strings.TrimSpace(req.CustomerID),
			PriceTier:     line.PriceTier,
		})
	}

	if err := s.repo.CreateSaleBatch(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Service) ListSales(ctx context.Context, fromDate string, toDate string) ([]domain.Sale, error) {
	from, to, err := s.salesRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, from, to)
}

// DeleteSale voids one sale row. Stock moved by the original sale stays
// moved; the correction is a catalog edit, not a delete side effect.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	return s.repo.DeleteSale(ctx, id)
}

func (s *Service) CreateRepairOrder(ctx context.Context, req domain.RepairOrder) (domain.RepairOrder, error) {
	req.OrderNumber = strings.TrimSpace(req.OrderNumber)
	req.RepairType = strings.TrimSpace(req.RepairType)
	req.Brand = strings.TrimSpace(req.Brand)
	req.Model = strings.TrimSpace(req.Model)
	req.CustomerName = strings.TrimSpace(req.CustomerName)

	if req.OrderNumber == "" || req.RepairType == "" || req.CustomerName == "" {
		return domain.RepairOrder{}, store.ErrInvalidInput
	}
	if req.QuotedAmount.IsNegative() {
		return domain.RepairOrder{}, store.ErrInvalidInput
	}

	// Intake stamps are server-local, unlike sales. The bench ticket is read
	// in the same room the clock hangs in.
	now := time.Now()
	req.ID = xid.New("rep")
	req.Status = domain.RepairStatusInitial
	req.ReceivedDate = now
	req.ReceivedClock = now.Format("15:04")

	created, err := s.repo.CreateRepairOrder(ctx, req)
	if err != nil {
		return domain.RepairOrder{}, err
	}
	return *created, nil
}

func (s *Service) ListRepairOrders(ctx context.Context, fromDate string, toDate string) ([]domain.RepairOrder, error) {
	from, to, err := dayRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRepairOrders(ctx, from, to)
}

func (s *Service) UpdateRepairStatus(ctx context.Context, upd domain.RepairStatusUpdate) error {
	upd.OrderNumber = strings.TrimSpace(upd.OrderNumber)
	upd.Status = strings.TrimSpace(upd.Status)
	if upd.OrderNumber == "" || upd.Status == "" {
		return store.ErrInvalidInput
	}
	return s.repo.UpdateRepairStatus(ctx, upd.OrderNumber, upd.Status)
}

func (s *Service) DeleteRepairOrder(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	return s.repo.DeleteRepairOrder(ctx, id)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.Expense) (domain.Expense, error) {
	req.Description = strings.TrimSpace(req.Description)
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))

	if req.Description == "" || req.PaymentMethod == "" {
		return domain.Expense{}, store.ErrInvalidInput
	}
	if !req.Amount.IsPositive() {
		return domain.Expense{}, store.ErrInvalidInput
	}

	if req.Date.IsZero() {
		req.Date = time.Now().In(s.businessTZ)
	}
	req.ID = xid.New("exp")

	created, err := s.repo.CreateExpense(ctx, req)
	if err != nil {
		return domain.Expense{}, err
	}
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, fromDate string, toDate string) ([]domain.Expense, error) {
	var from, to *time.Time
	if strings.TrimSpace(fromDate) != "" {
		parsed, err := time.Parse(dateLayout, fromDate)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		from = &parsed
	}
	if strings.TrimSpace(toDate) != "" {
		parsed, err := time.Parse(dateLayout, toDate)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		to = &parsed
	}
	return s.repo.ListExpenses(ctx, from, to)
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	return s.repo.DeleteExpense(ctx, id)
}

// CashReconciliation reports sold and spent totals per payment method for
// an inclusive calendar date range. Reading it mutates nothing, so a rerun
// over the same range returns the same report.
func (s *Service) CashReconciliation(ctx context.Context, fromDate string, toDate string) (domain.CashReport, error) {
	soldFrom, soldTo, err := s.salesRange(fromDate, toDate)
	if err != nil {
		return domain.CashReport{}, err
	}
	spentFrom, spentTo, err := dayRange(fromDate, toDate)
	if err != nil {
		return domain.CashReport{}, err
	}

	sold, err := s.repo.SoldTotalsByPayment(ctx, soldFrom, soldTo)
	if err != nil {
		return domain.CashReport{}, err
	}
	spent, err := s.repo.SpentTotalsByPayment(ctx, spentFrom, spentTo)
	if err != nil {
		return domain.CashReport{}, err
	}

	return domain.CashReport{Sold: sold, Spent: spent}, nil
}

// salesRange turns inclusive calendar dates into half-open instants in the
// business timezone: [from 00:00, to+1d 00:00). Empty dates default to the
// current business day.
func (s *Service) salesRange(fromDate string, toDate string) (time.Time, time.Time, error) {
	fromDate, toDate = normalizeRange(fromDate, toDate, s.businessTZ)

	from, err := time.ParseInLocation(dateLayout, fromDate, s.businessTZ)
	if err != nil {
		return time.Time{}, time.Time{}, store.ErrInvalidInput
	}
	to, err := time.ParseInLocation(dateLayout, toDate, s.businessTZ)
	if err != nil {
		return time.Time{}, time.Time{}, store.ErrInvalidInput
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, store.ErrInvalidInput
	}
	return from, to.AddDate(0, 0, 1), nil
}

// dayRange parses an inclusive calendar date range for date-column filters.
func dayRange(fromDate string, toDate string) (time.Time, time.Time, error) {
	fromDate, toDate = normalizeRange(fromDate, toDate, time.Local)

	from, err := time.Parse(dateLayout, fromDate)
	if err != nil {
		return time.Time{}, time.Time{}, store.ErrInvalidInput
	}
	to, err := time.Parse(dateLayout, toDate)
	if err != nil {
		return time.Time{}, time.Time{}, store.ErrInvalidInput
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, store.ErrInvalidInput
	}
	return from, to, nil
}

func normalizeRange(fromDate string, toDate string, loc *time.Location) (string, string) {
	fromDate = strings.TrimSpace(fromDate)
	toDate = strings.TrimSpace(toDate)
	if fromDate == "" {
		fromDate = time.Now().In(loc).Format(dateLayout)
	}
	if toDate == "" {
		toDate = fromDate
	}
	return fromDate, toDate
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

func (s *Service) invalidateStorefront(ctx context.Context) {
	if err := s.storefrontCache.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: storefront cache invalidation failed: %v", err)
	}
}
