package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/MikeMC777/storefront/internal/activity"
	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/checkout"
	"github.com/MikeMC777/storefront/internal/config"
	"github.com/MikeMC777/storefront/internal/db"
	"github.com/MikeMC777/storefront/internal/memstore"
	"github.com/MikeMC777/storefront/internal/notify"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/session"
	"github.com/MikeMC777/storefront/internal/user"
)

type userStore interface {
	user.Repository
	user.AddressRepository
}

// backend is one storage driver's set of repositories.
type backend struct {
	tx         db.TxManager
	users      userStore
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	carts      cart.Repository
	orders     order.Repository
	activity   activity.Repository
	ping       func(ctx context.Context) error
	close      func()
}

func memoryBackend() backend {
	store := memstore.New()
	return backend{
		tx:         store,
		users:      store.Users(),
		products:   store.Catalog(),
		categories: store.Catalog(),
		carts:      store.Carts(),
		orders:     store.Orders(),
		activity:   store.Activity(),
		ping:       func(context.Context) error { return nil },
		close:      func() {},
	}
}

func postgresBackend(ctx context.Context, cfg config.Config) (backend, error) {
	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return backend{}, err
	}
	if cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return backend{}, err
		}
	}
	users := user.NewPGRepo(pool)
	products := catalog.NewPGRepo(pool)
	return backend{
		tx:         db.NewPGTx(pool),
		users:      users,
		products:   products,
		categories: products,
		carts:      cart.NewPGRepo(pool),
		orders:     order.NewPGRepo(pool),
		activity:   activity.NewPGRepo(pool),
		ping:       pool.Ping,
		close:      pool.Close,
	}, nil
}

func sessionStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	if cfg.Redis.URL == "" {
		log.Printf("[session] REDIS_URL empty, keeping sessions in memory")
		return session.NewMemoryStore(), func() {}, nil
	}
	rs, err := session.NewRedisStore(ctx, cfg.Redis.URL, "storefront")
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}

type app struct {
	cfg      config.Config
	catalog  *catalog.Service
	carts    *cart.Service
	checkout *checkout.Service
	orders   *order.Service
	users    *user.Service
	activity *activity.Service
	issuer   *auth.Issuer
	sessions session.Store
	hub      *notify.Hub
	ping     func(ctx context.Context) error
}

func newApp(cfg config.Config, b backend, sessions session.Store, hub *notify.Hub) *app {
	audit := activity.NewService(b.activity)
	catalogSvc := catalog.NewService(b.products, b.categories, b.tx, audit, hub)
	usersSvc := user.NewService(b.users, b.users, b.tx, audit, hub)
	return &app{
		cfg:      cfg,
		catalog:  catalogSvc,
		carts:    cart.NewService(b.carts, b.products, b.tx),
		checkout: checkout.NewService(b.carts, b.products, b.orders, b.users, sessions, b.tx, hub, checkout.Options{
			ConfirmStep: cfg.Checkout.ConfirmStep,
			PendingTTL:  cfg.Checkout.PendingTTL,
		}),
		orders:   order.NewService(b.orders, b.tx, audit, hub, usersSvc, catalogSvc),
		users:    usersSvc,
		activity: audit,
		issuer:   auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.RememberTTL, cfg.Auth.GuestTTL),
		sessions: sessions,
		hub:      hub,
		ping:     b.ping,
	}
}

// bootstrap creates the owner account and loads the catalog seed.
func (a *app) bootstrap(ctx context.Context) error {
	if o := a.cfg.Owner; o.Username != "" && o.Password != "" {
		u, created, err := a.users.EnsureOwner(ctx, o.Username, o.Password)
		if err != nil {
			return fmt.Errorf("owner account: %w", err)
		}
		if created {
			log.Printf("[bootstrap] created owner %q (id=%d)", u.Username, u.ID)
		}
	}
	if a.cfg.SeedFile == "" {
		return nil
	}
	f, err := os.Open(a.cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	seed, err := catalog.LoadSeed(f)
	if err != nil {
		return err
	}
	_, err = a.catalog.ApplySeed(ctx, seed)
	return err
}
