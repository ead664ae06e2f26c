package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"boutique/internal/cart"
	"boutique/internal/domain"
)

// SQLiteStore хранилище на SQLite. Массивы (теги, размеры, цвета,
// изображения, позиции заказа) лежат в JSON-колонках — документный
// стиль исходной схемы поверх одной таблицы на сущность.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// одно соединение: modernc/sqlite не любит конкурентную запись,
	// заодно транзакции оформления заказов выполняются строго по очереди
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.InitSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL,
		original_price REAL NOT NULL DEFAULT 0,
		discount INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		sizes TEXT NOT NULL DEFAULT '[]',
		colors TEXT NOT NULL DEFAULT '[]',
		images TEXT NOT NULL DEFAULT '[]',
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		rating REAL NOT NULL DEFAULT 0,
		reviews INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
	CREATE INDEX IF NOT EXISTS idx_products_price ON products(price);
	CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'customer',
		wishlist TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		lines TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL DEFAULT 'COD',
		subtotal REAL NOT NULL,
		tax REAL NOT NULL,
		total REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);

	CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS carts (
		user_id INTEGER PRIMARY KEY,
		lines TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	_, err := s.db.Exec(query)
	return err
}

// dbtx общий знаменатель *sql.DB и *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlTxKey struct{}

// q возвращает транзакцию из контекста, если она открыта, иначе пул
func (s *SQLiteStore) q(ctx context.Context) dbtx {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return s.db
}

// SQLiteTx настоящий транзакционный менеджер: коммит при nil,
// откат при любой ошибке fn
type SQLiteTx struct{ store *SQLiteStore }

func NewSQLiteTx(store *SQLiteStore) *SQLiteTx { return &SQLiteTx{store: store} }

var _ TxManager = (*SQLiteTx)(nil)

func (t *SQLiteTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, sqlTxKey{}, tx)
	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// json column helpers
func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func fromJSON[T any](s string) []T {
	var out []T
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// --- ProductRepository ---

var _ ProductRepository = (*SQLiteProducts)(nil)

type SQLiteProducts struct{ store *SQLiteStore }

func NewSQLiteProducts(store *SQLiteStore) *SQLiteProducts { return &SQLiteProducts{store: store} }

const productColumns = `id, name, brand, description, price, original_price, discount,
	category, tags, sizes, colors, images, stock, rating, reviews, is_active,
	created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	var tags, sizes, colors, images string
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Description, &p.Price,
		&p.OriginalPrice, &p.Discount, &p.Category, &tags, &sizes, &colors,
		&images, &p.Stock, &p.Rating, &p.Reviews, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Tags = fromJSON[string](tags)
	p.Sizes = fromJSON[string](sizes)
	p.Colors = fromJSON[domain.ColorOption](colors)
	p.Images = fromJSON[string](images)
	return &p, nil
}

func (r *SQLiteProducts) Create(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	res, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO products (name, brand, description, price, original_price,
			discount, category, tags, sizes, colors, images, stock, rating,
			reviews, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Brand, p.Description, p.Price, p.OriginalPrice, p.Discount,
		p.Category, toJSON(p.Tags), toJSON(p.Sizes), toJSON(p.Colors),
		toJSON(p.Images), p.Stock, p.Rating, p.Reviews, p.IsActive, now, now)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (r *SQLiteProducts) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE products SET name = ?, brand = ?, description = ?, price = ?,
			original_price = ?, discount = ?, category = ?, tags = ?, sizes = ?,
			colors = ?, images = ?, stock = ?, rating = ?, reviews = ?,
			is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Brand, p.Description, p.Price, p.OriginalPrice, p.Discount,
		p.Category, toJSON(p.Tags), toJSON(p.Sizes), toJSON(p.Colors),
		toJSON(p.Images), p.Stock, p.Rating, p.Reviews, p.IsActive,
		p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (r *SQLiteProducts) Delete(ctx context.Context, id int64) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// List строит запрос из фильтра: все условия по AND, бренды по OR
// внутри IN, поиск — подстрока по имени, бренду, описанию и тегам.
func (r *SQLiteProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, int64, error) {
	f.Normalize()
	where, args := buildProductWhere(f)

	var total int64
	countQ := `SELECT COUNT(*) FROM products` + where
	if err := r.store.q(ctx).QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + productColumns + ` FROM products` + where +
		orderClause(f.SortBy) + ` LIMIT ? OFFSET ?`
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.store.q(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.Product, 0, f.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *SQLiteProducts) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.store.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func buildProductWhere(f ProductFilter) (string, []any) {
	conds := make([]string, 0, 6)
	args := make([]any, 0, 8)
	if !f.IncludeInactive {
		conds = append(conds, "is_active = 1")
	}
	if f.Category != "" && f.Category != "All" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if len(f.Brands) > 0 {
		ph := strings.Repeat("?,", len(f.Brands))
		conds = append(conds, "brand IN ("+ph[:len(ph)-1]+")")
		for _, b := range f.Brands {
			args = append(args, b)
		}
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Search != "" {
		conds = append(conds, "(name LIKE ? COLLATE NOCASE OR brand LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE OR tags LIKE ? COLLATE NOCASE)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like, like)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(key SortKey) string {
	switch key {
	case SortPriceLowHigh:
		return " ORDER BY price ASC, id DESC"
	case SortPriceHighLow:
		return " ORDER BY price DESC, id DESC"
	case SortPopular:
		return " ORDER BY reviews DESC, id DESC"
	case SortRating:
		return " ORDER BY rating DESC, id DESC"
	default: // newest
		return " ORDER BY created_at DESC, id DESC"
	}
}

// --- OrderRepository ---

var _ OrderRepository = (*SQLiteOrders)(nil)

type SQLiteOrders struct{ store *SQLiteStore }

func NewSQLiteOrders(store *SQLiteStore) *SQLiteOrders { return &SQLiteOrders{store: store} }

const orderColumns = `id, user_id, lines, full_name, address, city, postal_code,
	country, phone, payment_method, subtotal, tax, total, status, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	var lines string
	err := row.Scan(&o.ID, &o.UserID, &lines, &o.ShippingAddress.FullName,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.ShippingAddress.Phone, &o.PaymentMethod, &o.Subtotal, &o.Tax,
		&o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Lines = fromJSON[domain.OrderLine](lines)
	return &o, nil
}

func (r *SQLiteOrders) Create(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	res, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO orders (user_id, lines, full_name, address, city,
			postal_code, country, phone, payment_method, subtotal, tax, total,
			status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, toJSON(o.Lines), o.ShippingAddress.FullName,
		o.ShippingAddress.Address, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.ShippingAddress.Phone, o.PaymentMethod, o.Subtotal, o.Tax, o.Total,
		o.Status, now, now)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

func (r *SQLiteOrders) Update(ctx context.Context, o *domain.Order) error {
	o.UpdatedAt = time.Now().UTC()
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE orders SET lines = ?, status = ?, updated_at = ? WHERE id = ?`,
		toJSON(o.Lines), o.Status, o.UpdatedAt, o.ID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (r *SQLiteOrders) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

func (r *SQLiteOrders) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (r *SQLiteOrders) list(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// --- UserRepository ---

var _ UserRepository = (*SQLiteUsers)(nil)

type SQLiteUsers struct{ store *SQLiteStore }

func NewSQLiteUsers(store *SQLiteStore) *SQLiteUsers { return &SQLiteUsers{store: store} }

const userColumns = `id, name, email, password_hash, role, wishlist, created_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var wishlist string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&wishlist, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Wishlist = fromJSON[int64](wishlist)
	return &u, nil
}

func (r *SQLiteUsers) Create(ctx context.Context, u *domain.User) error {
	u.CreatedAt = time.Now().UTC()
	res, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, wishlist, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Role, toJSON(u.Wishlist), u.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateEmail
		}
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)
	return scanUser(row)
}

func (r *SQLiteUsers) Update(ctx context.Context, u *domain.User) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, password_hash = ?, role = ?, wishlist = ?
		WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.Role, toJSON(u.Wishlist), u.ID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (r *SQLiteUsers) Delete(ctx context.Context, id int64) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func (r *SQLiteUsers) ListAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// --- TokenRepository ---

var _ TokenRepository = (*SQLiteTokens)(nil)

type SQLiteTokens struct{ store *SQLiteStore }

func NewSQLiteTokens(store *SQLiteStore) *SQLiteTokens { return &SQLiteTokens{store: store} }

func (r *SQLiteTokens) Put(ctx context.Context, t domain.AuthToken) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT OR REPLACE INTO tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		t.Token, t.UserID, t.ExpiresAt)
	return err
}

func (r *SQLiteTokens) Get(ctx context.Context, token string, now time.Time) (*domain.AuthToken, error) {
	var t domain.AuthToken
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT token, user_id, expires_at FROM tokens WHERE token = ? AND expires_at > ?`,
		token, now).Scan(&t.Token, &t.UserID, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *SQLiteTokens) Delete(ctx context.Context, token string) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM tokens WHERE token = ?`, token)
	return err
}

// --- CartStore ---

var _ CartStore = (*SQLiteCarts)(nil)

type SQLiteCarts struct{ store *SQLiteStore }

func NewSQLiteCarts(store *SQLiteStore) *SQLiteCarts { return &SQLiteCarts{store: store} }

func (r *SQLiteCarts) Load(ctx context.Context, userID int64) (*cart.Cart, error) {
	var lines string
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT lines FROM carts WHERE user_id = ?`, userID).Scan(&lines)
	if errors.Is(err, sql.ErrNoRows) {
		return cart.New(userID), nil
	}
	if err != nil {
		return nil, err
	}
	c := cart.New(userID)
	c.Lines = fromJSON[cart.Line](lines)
	if c.Lines == nil {
		c.Lines = []cart.Line{}
	}
	return c, nil
}

func (r *SQLiteCarts) Save(ctx context.Context, c *cart.Cart) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO carts (user_id, lines, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET lines = excluded.lines, updated_at = excluded.updated_at`,
		c.UserID, toJSON(c.Lines), time.Now().UTC())
	return err
}

func (r *SQLiteCarts) Delete(ctx context.Context, userID int64) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM carts WHERE user_id = ?`, userID)
	return err
}

func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
