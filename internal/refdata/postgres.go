package refdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/countsheet/internal/core"
	"github.com/JonMunkholm/countsheet/internal/logging"
)

// Querier is the part of *pgxpool.Pool the loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool opens a connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// DBLoader reads the reference tables from PostgreSQL.
//
// The catalog table needs the columns upc, brand, style, style_code,
// color_code and color_name; the store table code and name. NULLs read as
// empty strings.
type DBLoader struct {
	DB           Querier
	CatalogTable string
	StoresTable  string
}

// Load queries both tables and builds a Reference.
func (l DBLoader) Load(ctx context.Context) (*core.Reference, error) {
	log := logging.FromContext(ctx)

	entries, err := l.queryCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", l.CatalogTable, err)
	}
	catalog, dups := core.NewCatalog(entries, true)
	if dups > 0 {
		log.Warn("duplicate UPCs in catalog table, first occurrence kept", "table", l.CatalogTable, "duplicates", dups)
	}

	stores, err := l.queryStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stores from %s: %w", l.StoresTable, err)
	}
	dir, dups := core.NewStoreDirectory(stores, true)
	if dups > 0 {
		log.Warn("duplicate store codes in store table, first occurrence kept", "table", l.StoresTable, "duplicates", dups)
	}

	return &core.Reference{
		Catalog:  catalog,
		Stores:   dir,
		Source:   "postgres:" + l.CatalogTable,
		LoadedAt: time.Now(),
	}, nil
}

func (l DBLoader) queryCatalog(ctx context.Context) ([]core.CatalogEntry, error) {
	sql := fmt.Sprintf(`SELECT COALESCE(upc::text, ''),
		COALESCE(brand, ''), COALESCE(style, ''), COALESCE(style_code, ''),
		COALESCE(color_code, ''), COALESCE(color_name, '')
		FROM %s ORDER BY ctid`, pgx.Identifier{l.CatalogTable}.Sanitize())

	rows, err := l.DB.Query(ctx, sql)
	if err != nil {
		return nil, err
	}

	var (
		entries []core.CatalogEntry
		e       core.CatalogEntry
	)
	_, err = pgx.ForEachRow(rows, []any{&e.UPC, &e.Brand, &e.Style, &e.StyleCode, &e.ColorCode, &e.ColorName}, func() error {
		e.UPC = core.NormalizeUPC(e.UPC)
		if e.UPC != "" {
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func (l DBLoader) queryStores(ctx context.Context) ([]core.StoreEntry, error) {
	sql := fmt.Sprintf(`SELECT COALESCE(code::text, ''), COALESCE(name, '') FROM %s ORDER BY ctid`,
		pgx.Identifier{l.StoresTable}.Sanitize())

	rows, err := l.DB.Query(ctx, sql)
	if err != nil {
		return nil, err
	}

	var (
		stores []core.StoreEntry
		s      core.StoreEntry
	)
	_, err = pgx.ForEachRow(rows, []any{&s.Code, &s.Name}, func() error {
		if s.Code != "" {
			stores = append(stores, s)
		}
		return nil
	})
	return stores, err
}
