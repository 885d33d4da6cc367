package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"maps-scraper/models"
	"maps-scraper/utils"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	driver   string
	numbered bool // $1, $2 placeholders instead of ?
	schema   []string
	upsert   string
}

var dialects = map[string]dialect{
	"pgx": {
		driver:   "pgx",
		numbered: true,
		schema: []string{`
			CREATE TABLE IF NOT EXISTS listings (
				id BIGSERIAL PRIMARY KEY,
				name_key TEXT NOT NULL UNIQUE,
				query TEXT NOT NULL,
				name TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				website TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				rating TEXT NOT NULL DEFAULT '',
				reviews_count TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_listings_query ON listings(query)`,
		},
		upsert: `
			ON CONFLICT (name_key) DO UPDATE
			SET
				query = EXCLUDED.query,
				name = EXCLUDED.name,
				phone = EXCLUDED.phone,
				email = EXCLUDED.email,
				website = EXCLUDED.website,
				address = EXCLUDED.address,
				rating = EXCLUDED.rating,
				reviews_count = EXCLUDED.reviews_count,
				category = EXCLUDED.category,
				updated_at = NOW()`,
	},
	"mysql": {
		driver: "mysql",
		schema: []string{`
			CREATE TABLE IF NOT EXISTS listings (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				name_key VARCHAR(255) NOT NULL,
				query VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				phone VARCHAR(64) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				website VARCHAR(512) NOT NULL DEFAULT '',
				address VARCHAR(512) NOT NULL DEFAULT '',
				rating VARCHAR(16) NOT NULL DEFAULT '',
				reviews_count VARCHAR(32) NOT NULL DEFAULT '',
				category VARCHAR(255) NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE KEY uniq_listings_name_key (name_key),
				KEY idx_listings_query (query)
			) CHARACTER SET utf8mb4`,
		},
		upsert: `
			ON DUPLICATE KEY UPDATE
				query = VALUES(query),
				name = VALUES(name),
				phone = VALUES(phone),
				email = VALUES(email),
				website = VALUES(website),
				address = VALUES(address),
				rating = VALUES(rating),
				reviews_count = VALUES(reviews_count),
				category = VALUES(category),
				updated_at = CURRENT_TIMESTAMP`,
	},
	"sqlite": {
		driver: "sqlite",
		schema: []string{`
			CREATE TABLE IF NOT EXISTS listings (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name_key TEXT NOT NULL UNIQUE,
				query TEXT NOT NULL,
				name TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				website TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				rating TEXT NOT NULL DEFAULT '',
				reviews_count TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_listings_query ON listings(query)`,
		},
		upsert: `
			ON CONFLICT (name_key) DO UPDATE
			SET
				query = excluded.query,
				name = excluded.name,
				phone = excluded.phone,
				email = excluded.email,
				website = excluded.website,
				address = excluded.address,
				rating = excluded.rating,
				reviews_count = excluded.reviews_count,
				category = excluded.category,
				updated_at = CURRENT_TIMESTAMP`,
	},
}

// Drivers lists the accepted driver names.
func Drivers() []string {
	return []string{"pgx", "mysql", "sqlite"}
}

// Store persists extracted listings, upserting by normalised business name.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to dsn using one of Drivers() and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q (want one of %s)", driver, strings.Join(Drivers(), ", "))
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", driver, err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	if driver == "sqlite" {
		// in-memory databases are per connection
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	store := &Store{db: db, dialect: d}
	schemaCtx, schemaCancel := context.WithTimeout(ctx, 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveListings upserts the nameful listings of one query inside a single
// transaction. Returns the number of rows written.
func (s *Store) SaveListings(ctx context.Context, query string, listings []models.Listing) (n int, err error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO listings (name_key, query, name, phone, email, website, address, rating, reviews_count, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`+s.dialect.upsert))
	if err != nil {
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, l := range listings {
		key := utils.NameKey(l.Name)
		if key == "" {
			continue
		}
		if _, err = stmt.ExecContext(
			ctx,
			key,
			query,
			strings.TrimSpace(l.Name),
			l.Phone,
			l.Email,
			l.Website,
			l.Address,
			l.Rating,
			l.ReviewsCount,
			l.Category,
		); err != nil {
			return 0, fmt.Errorf("insert listing %q: %w", l.Name, err)
		}
		total++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return total, nil
}

// Listings returns the stored listings for query ordered by insertion.
// An empty query returns every row.
func (s *Store) Listings(ctx context.Context, query string) ([]models.Listing, error) {
	q := `SELECT name, phone, email, website, address, rating, reviews_count, category FROM listings`
	var args []any
	if query != "" {
		q += ` WHERE query = ?`
		args = append(args, query)
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.Name, &l.Phone, &l.Email, &l.Website, &l.Address, &l.Rating, &l.ReviewsCount, &l.Category); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects using numbered parameters.
func (s *Store) rebind(q string) string {
	if !s.dialect.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
