// Command seed-db loads demo tenants, menus, customers, and inventory
// into PostgreSQL. It can additionally bulk-import gzip-compressed menu
// catalog exports (one JSON array per file), decompressing and
// upserting the files concurrently.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tably/ordercore/internal/storage/postgres"
)

type menuItemJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type inventorySeed struct {
	id, menuItemID, name, unit string
	quantity, reorderLevel     decimal.Decimal
}

func main() {
	var (
		databaseURL string
		tenantID    string
		tenantName  string
		catalogDir  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&tenantID, "tenant", "demo", "tenant id to seed")
	flag.StringVar(&tenantName, "tenant-name", "Demo Restaurant", "tenant display name")
	flag.StringVar(&catalogDir, "catalog-dir", "", "directory of .json.gz menu catalog exports to bulk import")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, tenantID, tenantName, catalogDir); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, tenantID, tenantName, catalogDir string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedTenant(ctx, pool, tenantID, tenantName); err != nil {
		return errors.Wrap(err, "seed tenant")
	}
	if err := seedMenu(ctx, pool, tenantID, demoMenu()); err != nil {
		return errors.Wrap(err, "seed menu")
	}
	if err := seedCustomers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed customers")
	}
	if err := seedInventory(ctx, pool, tenantID); err != nil {
		return errors.Wrap(err, "seed inventory")
	}

	if catalogDir != "" {
		if err := importCatalogs(ctx, pool, tenantID, catalogDir); err != nil {
			return errors.Wrap(err, "import catalogs")
		}
	}

	return nil
}

func seedTenant(ctx context.Context, pool *pgxpool.Pool, id, name string) error {
	slog.Info("upserting tenant", slog.String("id", id))

	_, err := pool.Exec(ctx, `
		INSERT INTO tenants (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		id, name,
	)
	return err
}

func demoMenu() []menuItemJSON {
	return []menuItemJSON{
		{ID: "dish-1", Name: "Paneer Tikka", Price: decimal.NewFromInt(250), Category: "starters"},
		{ID: "dish-2", Name: "Butter Chicken", Price: decimal.NewFromInt(380), Category: "mains"},
		{ID: "dish-3", Name: "Dal Makhani", Price: decimal.NewFromInt(220), Category: "mains"},
		{ID: "dish-4", Name: "Garlic Naan", Price: decimal.NewFromInt(60), Category: "breads"},
		{ID: "dish-5", Name: "Gulab Jamun", Price: decimal.NewFromInt(120), Category: "desserts"},
		{ID: "drink-1", Name: "Masala Chai", Price: decimal.NewFromInt(40), Category: "beverages"},
		{ID: "drink-2", Name: "Fresh Lime Soda", Price: decimal.NewFromInt(80), Category: "beverages"},
	}
}

func seedMenu(ctx context.Context, pool *pgxpool.Pool, tenantID string, items []menuItemJSON) error {
	slog.Info("upserting menu items", slog.Int("count", len(items)))

	for _, it := range items {
		if _, err := pool.Exec(ctx, `
			INSERT INTO menu_items (id, tenant_id, name, price, category)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (tenant_id, id) DO UPDATE
			SET name = EXCLUDED.name, price = EXCLUDED.price,
			    category = EXCLUDED.category, is_deleted = FALSE`,
			it.ID, tenantID, it.Name, it.Price, it.Category,
		); err != nil {
			return errors.Wrapf(err, "upsert menu item %s", it.ID)
		}
	}
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("upserting demo customers")

	customers := []struct{ id, phone, name, typ string }{
		{"cust-1", "+919800000001", "Asha Rao", "vip"},
		{"cust-2", "+919800000002", "Vikram Singh", "repeat"},
		{"cust-3", "+919800000003", "Leela Menon", "new"},
	}
	for _, c := range customers {
		if _, err := pool.Exec(ctx, `
			INSERT INTO customers (id, phone_number, name, type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET phone_number = EXCLUDED.phone_number,
			    name = EXCLUDED.name, type = EXCLUDED.type`,
			c.id, c.phone, c.name, c.typ,
		); err != nil {
			return errors.Wrapf(err, "upsert customer %s", c.id)
		}
	}
	return nil
}

func seedInventory(ctx context.Context, pool *pgxpool.Pool, tenantID string) error {
	slog.Info("upserting inventory items")

	items := []inventorySeed{
		{"inv-paneer", "dish-1", "Paneer", "kg", decimal.NewFromInt(12), decimal.NewFromInt(5)},
		{"inv-chicken", "dish-2", "Chicken", "kg", decimal.NewFromInt(20), decimal.NewFromInt(8)},
		{"inv-lentils", "dish-3", "Black Lentils", "kg", decimal.NewFromInt(15), decimal.NewFromInt(4)},
		{"inv-flour", "dish-4", "Flour", "kg", decimal.NewFromInt(30), decimal.NewFromInt(10)},
		{"inv-milk", "", "Milk", "l", decimal.NewFromInt(25), decimal.NewFromInt(10)},
	}
	for _, it := range items {
		var menuItemID any
		if it.menuItemID != "" {
			menuItemID = it.menuItemID
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO inventory_items (id, tenant_id, menu_item_id, name, unit, quantity, reorder_level)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET quantity = EXCLUDED.quantity,
			    reorder_level = EXCLUDED.reorder_level,
			    updated_at = now()`,
			it.id, tenantID, menuItemID, it.name, it.unit, it.quantity, it.reorderLevel,
		); err != nil {
			return errors.Wrapf(err, "upsert inventory item %s", it.id)
		}
	}
	return nil
}

// importCatalogs upserts every .json.gz catalog export in dir. Files are
// independent, so each one is decompressed and loaded in its own
// goroutine.
func importCatalogs(ctx context.Context, pool *pgxpool.Pool, tenantID, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json.gz"))
	if err != nil {
		return errors.Wrap(err, "glob catalog dir")
	}
	if len(files) == 0 {
		slog.Warn("no catalog files found", slog.String("dir", dir))
		return nil
	}

	slog.Info("importing catalog files", slog.Int("count", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, path := range files {
		g.Go(func() error {
			items, err := readCatalog(path)
			if err != nil {
				return errors.Wrapf(err, "read %s", filepath.Base(path))
			}
			if err := seedMenu(ctx, pool, tenantID, items); err != nil {
				return errors.Wrapf(err, "load %s", filepath.Base(path))
			}
			slog.Info("imported catalog", slog.String("file", filepath.Base(path)), slog.Int("items", len(items)))
			return nil
		})
	}
	return g.Wait()
}

func readCatalog(path string) ([]menuItemJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close() //nolint:errcheck

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer gz.Close() //nolint:errcheck

	var items []menuItemJSON
	if err := json.NewDecoder(gz).Decode(&items); err != nil {
		return nil, errors.Wrap(err, "decode JSON")
	}
	return items, nil
}
