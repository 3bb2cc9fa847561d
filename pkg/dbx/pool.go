package dbx

import (
	"context"
	"embed"
	"errors"
	"fmt"
	stdsql "database/sql"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for database/sql, used only by the migrator
)

//go:embed migrations
var migrationsFS embed.FS

// Pools bundles the two logical connection pools described in
// SPEC_FULL.md §5: AdminPool bypasses row-level security for the
// incident pipeline and background workers; TenantPool is used
// exclusively through WithTenant so every statement carries a pinned
// session variable.
type Pools struct {
	AdminPool  *pgxpool.Pool
	TenantPool *pgxpool.Pool
}

// Open establishes both pools and runs pending migrations using the
// admin pool's DSN.
func Open(ctx context.Context, cfg Config) (*Pools, error) {
	admin, err := newPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open admin pool: %w", err)
	}
	tenant, err := newPool(ctx, cfg)
	if err != nil {
		admin.Close()
		return nil, fmt.Errorf("open tenant pool: %w", err)
	}
	return &Pools{AdminPool: admin, TenantPool: tenant}, nil
}

// Close releases both pools.
func (p *Pools) Close() {
	if p.AdminPool != nil {
		p.AdminPool.Close()
	}
	if p.TenantPool != nil {
		p.TenantPool.Close()
	}
}

func newPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = cfg.MaxOpenConns
	poolCfg.MinConns = cfg.MinOpenConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate applies all pending migrations embedded under migrations/.
func Migrate(cfg Config) error {
	db, err := stdsql.Open("pgx", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open migrate connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, cfg.Database, driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
