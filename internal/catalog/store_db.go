package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// PostgresBackend persists the catalog in products/product_colors tables.
// The store still owns ids and timestamps; this backend writes records
// exactly as assembled.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return b.db.PingContext(ctx)
	})
}

func (b *PostgresBackend) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := b.db.QueryContext(ctx, `
			SELECT id, name, description, price, category, stock, image_url, is_active, created_at, updated_at
			FROM products
			ORDER BY created_at ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return b.attachColors(ctx, out)
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *PostgresBackend) Get(ctx context.Context, id int64) (Product, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := b.db.QueryRowContext(ctx, `
			SELECT id, name, description, price, category, stock, image_url, is_active, created_at, updated_at
			FROM products
			WHERE id = $1
		`, id)
		var err error
		p, err = scanProduct(row)
		if err != nil {
			return err
		}

		one := []Product{p}
		if err := b.attachColors(ctx, one); err != nil {
			return err
		}
		p = one[0]
		return nil
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (b *PostgresBackend) Create(ctx context.Context, p Product) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return b.inTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO products (id, name, description, price, category, stock, image_url, is_active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, p.ID, p.Name, p.Description, p.Price, p.Category, p.Stock, p.ImageURL, p.IsActive, p.CreatedAt, p.UpdatedAt)
			if err != nil {
				return err
			}
			return insertColors(ctx, tx, p)
		})
	})
}

func (b *PostgresBackend) Update(ctx context.Context, p Product) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return b.inTx(ctx, func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				UPDATE products
				SET name = $2, description = $3, price = $4, category = $5, stock = $6,
				    image_url = $7, is_active = $8, updated_at = $9
				WHERE id = $1
			`, p.ID, p.Name, p.Description, p.Price, p.Category, p.Stock, p.ImageURL, p.IsActive, p.UpdatedAt)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: id=%d", ErrNotFound, p.ID)
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM product_colors WHERE product_id = $1`, p.ID); err != nil {
				return err
			}
			return insertColors(ctx, tx, p)
		})
	})
}

func (b *PostgresBackend) Delete(ctx context.Context, id int64) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := b.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: id=%d", ErrNotFound, id)
		}
		return nil
	})
}

func (b *PostgresBackend) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// attachColors loads color rows for every product in ps, preserving the
// stored position order.
func (b *PostgresBackend) attachColors(ctx context.Context, ps []Product) error {
	if len(ps) == 0 {
		return nil
	}

	byID := make(map[int64]int, len(ps))
	for i, p := range ps {
		byID[p.ID] = i
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT product_id, id, name, hex_code, price
		FROM product_colors
		ORDER BY product_id, position
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid int64
			c   ProductColor
		)
		if err := rows.Scan(&pid, &c.ID, &c.Name, &c.HexCode, &c.Price); err != nil {
			return err
		}
		if i, ok := byID[pid]; ok {
			ps[i].Colors = append(ps[i].Colors, c)
		}
	}
	return rows.Err()
}

func insertColors(ctx context.Context, tx *sql.Tx, p Product) error {
	for pos, c := range p.Colors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_colors (id, product_id, position, name, hex_code, price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.ID, p.ID, pos, c.Name, c.HexCode, c.Price)
		if err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.Stock, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
