package dataset

import (
	"context"
	"database/sql"
	"fmt"
)

type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectDuckDB Dialect = "duckdb"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Schema returns the CREATE TABLE statements for dialect in load order.
func Schema(dialect Dialect) ([]string, error) {
	var real string
	switch dialect {
	case DialectSQLite:
		real = "REAL"
	case DialectDuckDB:
		real = "DOUBLE"
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS customers (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	signup_date TEXT NOT NULL
)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	price %s NOT NULL,
	inventory INTEGER NOT NULL
)`, real),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sales (
	id INTEGER PRIMARY KEY,
	customer_id INTEGER NOT NULL REFERENCES customers (id),
	product_id INTEGER NOT NULL REFERENCES products (id),
	quantity INTEGER NOT NULL,
	sale_date TEXT NOT NULL,
	total_price %s NOT NULL
)`, real),
	}, nil
}

// Seed creates the schema and inserts every row of snapshot inside one
// transaction.
func Seed(ctx context.Context, db *sql.DB, dialect Dialect, snapshot Snapshot) error {
	statements, err := Schema(dialect)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, statement := range statements {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if err := insertRows(ctx, tx, snapshot); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, exec Execer, snapshot Snapshot) error {
	for _, c := range snapshot.Customers {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO customers (id, name, email, signup_date) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.Email, c.SignupDate,
		); err != nil {
			return fmt.Errorf("insert customer %d: %w", c.ID, err)
		}
	}
	for _, p := range snapshot.Products {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO products (id, name, category, price, inventory) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Category, p.Price, p.Inventory,
		); err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}
	for _, s := range snapshot.Sales {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO sales (id, customer_id, product_id, quantity, sale_date, total_price) VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, s.CustomerID, s.ProductID, s.Quantity, s.SaleDate, s.TotalPrice,
		); err != nil {
			return fmt.Errorf("insert sale %d: %w", s.ID, err)
		}
	}
	return nil
}
