package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"sistemasj/backend/internal/domain"
	"sistemasj/backend/internal/store"
	"sistemasj/backend/internal/textnorm"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, name, barcode, stock, retail_price, cost_price, reseller_price,
	category, model_number, color, battery, condition, photo_url`

func scanProduct(scanner interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	var category, modelNumber, color, battery, condition, photoURL sql.NullString
	err := scanner.Scan(
		&p.ID,
		&p.Name,
		&p.Barcode,
		&p.Stock,
		&p.RetailPrice,
		&p.CostPrice,
		&p.ResellerPrice,
		&category,
		&modelNumber,
		&color,
		&battery,
		&condition,
		&photoURL,
	)
	if err != nil {
		return domain.Product{}, err
	}
	p.Category = category.String
	p.ModelNumber = modelNumber.String
	p.Color = color.String
	p.Battery = battery.String
	p.Condition = condition.String
	p.PhotoURL = photoURL.String
	return p, nil
}

func (s *Store) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	folded := textnorm.Fold(query)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE $1 = '' OR search_text LIKE '%' || $1 || '%'
		ORDER BY name
	`, folded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Barcode == "" {
		return nil, store.ErrInvalidInput
	}

	searchText := textnorm.Fold(product.Name + " " + product.Barcode + " " + product.ModelNumber)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, barcode, stock, retail_price, cost_price, reseller_price,
			category, model_number, color, battery, condition, photo_url,
			search_text, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
	`, product.ID, product.Name, product.Barcode, product.Stock, product.RetailPrice,
		product.CostPrice, product.ResellerPrice, nullIfEmpty(product.Category),
		nullIfEmpty(product.ModelNumber), nullIfEmpty(product.Color), nullIfEmpty(product.Battery),
		nullIfEmpty(product.Condition), nullIfEmpty(product.PhotoURL), searchText)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListStorefront(ctx context.Context, category string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE stock > 0
			AND photo_url IS NOT NULL
			AND ($1 = '' OR category = $1)
		ORDER BY name
	`, strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateSaleBatch(ctx context.Context, sales []domain.Sale) error {
	if len(sales) == 0 {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, sale := range sales {
		if sale.ID == "" || sale.Quantity < 1 {
			return store.ErrInvalidInput
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sales (
				id, product_id, quantity, sold_at, display_name,
				payment_method, customer_id, price_tier
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, sale.ID, nullIfEmpty(sale.ProductID), sale.Quantity, sale.SoldAt, sale.DisplayName,
			sale.PaymentMethod, nullIfEmpty(sale.CustomerID), sale.PriceTier)
		if err != nil {
			return err
		}

		if sale.ProductID == "" {
			continue
		}

		// Relative update, no floor check: stock may go negative rather than
		// blocking a sale at checkout.
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2
		`, sale.Quantity, sale.ProductID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
	}

	return tx.Commit()
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.product_id, s.quantity, s.sold_at, s.display_name,
			s.payment_method, s.customer_id, s.price_tier, p.name
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		WHERE s.sold_at >= $1 AND s.sold_at < $2
		ORDER BY s.sold_at DESC, s.id DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		var productID, customerID, productName sql.NullString
		if err := rows.Scan(&sale.ID, &productID, &sale.Quantity, &sale.SoldAt, &sale.DisplayName,
			&sale.PaymentMethod, &customerID, &sale.PriceTier, &productName); err != nil {
			return nil, err
		}
		sale.ProductID = productID.String
		sale.CustomerID = customerID.String
		sale.ProductName = productName.String
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateRepairOrder(ctx context.Context, order domain.RepairOrder) (*domain.RepairOrder, error) {
	if order.ID == "" || order.OrderNumber == "" {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repair_orders (
			id, order_number, repair_type, brand, model, technician, quoted_amount,
			customer_name, customer_phone, status, received_date, received_clock
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::date,$12)
	`, order.ID, order.OrderNumber, order.RepairType, order.Brand, order.Model, order.Technician,
		order.QuotedAmount, order.CustomerName, order.CustomerPhone, order.Status,
		order.ReceivedDate.Format("2006-01-02"), order.ReceivedClock)
	if err != nil {
		return nil, err
	}

	created := order
	return &created, nil
}

func (s *Store) ListRepairOrders(ctx context.Context, from time.Time, to time.Time) ([]domain.RepairOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, repair_type, brand, model, technician, quoted_amount,
			customer_name, customer_phone, status, received_date, received_clock
		FROM repair_orders
		WHERE received_date BETWEEN $1::date AND $2::date
		ORDER BY order_number DESC
	`, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.RepairOrder, 0, 32)
	for rows.Next() {
		var order domain.RepairOrder
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.RepairType, &order.Brand,
			&order.Model, &order.Technician, &order.QuotedAmount, &order.CustomerName,
			&order.CustomerPhone, &order.Status, &order.ReceivedDate, &order.ReceivedClock); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) UpdateRepairStatus(ctx context.Context, orderNumber string, status string) error {
	// Zero matched rows is indistinguishable from success here on purpose.
	_, err := s.db.ExecContext(ctx, `
		UPDATE repair_orders
		SET status = $2
		WHERE order_number = $1
	`, orderNumber, status)
	return err
}

func (s *Store) DeleteRepairOrder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM repair_orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, date, amount, description, payment_method)
		VALUES ($1,$2::date,$3,$4,$5)
	`, expense.ID, expense.Date.Format("2006-01-02"), expense.Amount, expense.Description, expense.PaymentMethod)
	if err != nil {
		return nil, err
	}

	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, from *time.Time, to *time.Time) ([]domain.Expense, error) {
	fromArg, toArg := "", ""
	if from != nil {
		fromArg = from.Format("2006-01-02")
	}
	if to != nil {
		toArg = to.Format("2006-01-02")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, amount, description, payment_method
		FROM expenses
		WHERE ($1 = '' OR date >= $1::date)
			AND ($2 = '' OR date <= $2::date)
		ORDER BY date DESC, id DESC
	`, fromArg, toArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(&expense.ID, &expense.Date, &expense.Amount, &expense.Description, &expense.PaymentMethod); err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SoldTotalsByPayment(ctx context.Context, from time.Time, to time.Time) (map[string]decimal.Decimal, error) {
	// The inner join drops manual lines; a reseller-tier line whose product
	// has no reseller price yields NULL and is skipped by SUM.
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.payment_method,
			COALESCE(SUM(s.quantity * CASE WHEN s.price_tier = $3
				THEN p.reseller_price ELSE p.retail_price END), 0)
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.sold_at >= $1 AND s.sold_at < $2
		GROUP BY s.payment_method
	`, from, to, domain.PriceTierReseller)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal, 4)
	for rows.Next() {
		var method string
		var total decimal.Decimal
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		totals[method] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *Store) SpentTotalsByPayment(ctx context.Context, from time.Time, to time.Time) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE date BETWEEN $1::date AND $2::date
		GROUP BY payment_method
	`, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal, 4)
	for rows.Next() {
		var method string
		var total decimal.Decimal
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		totals[method] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
