// Package memstore is an in-process implementation of every repository, used
// with STORE_DRIVER=memory and by the service tests. Transactions hold the
// store lock for their whole duration and restore a snapshot on error.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MikeMC777/storefront/internal/activity"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/user"
)

type state struct {
	seq         map[string]int64
	users       map[int64]user.User
	addresses   map[int64]user.Address
	categories  map[int64]catalog.Category
	products    map[int64]catalog.Product
	productCats map[int64]map[int64]struct{}
	carts       map[int64]cart.Cart
	cartItems   map[int64]cart.Item
	orders      map[int64]order.Order
	orderItems  map[int64]order.Item
	payments    map[int64]order.Payment
	activity    []activity.Entry
}

func newState() *state {
	return &state{
		seq:         map[string]int64{},
		users:       map[int64]user.User{},
		addresses:   map[int64]user.Address{},
		categories:  map[int64]catalog.Category{},
		products:    map[int64]catalog.Product{},
		productCats: map[int64]map[int64]struct{}{},
		carts:       map[int64]cart.Cart{},
		cartItems:   map[int64]cart.Item{},
		orders:      map[int64]order.Order{},
		orderItems:  map[int64]order.Item{},
		payments:    map[int64]order.Payment{},
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// clone copies every table. Values stored in the maps are never mutated in
// place, so copying the maps is enough.
func (s *state) clone() *state {
	cp := &state{
		seq:         copyMap(s.seq),
		users:       copyMap(s.users),
		addresses:   copyMap(s.addresses),
		categories:  copyMap(s.categories),
		products:    copyMap(s.products),
		productCats: make(map[int64]map[int64]struct{}, len(s.productCats)),
		carts:       copyMap(s.carts),
		cartItems:   copyMap(s.cartItems),
		orders:      copyMap(s.orders),
		orderItems:  copyMap(s.orderItems),
		payments:    copyMap(s.payments),
		activity:    append([]activity.Entry(nil), s.activity...),
	}
	for k, v := range s.productCats {
		cp.productCats[k] = copyMap(v)
	}
	return cp
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(*Store)
	return v == s
}

func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) wlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx runs fn with exclusive access to the store. Nested calls join the
// outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Users returns the user and address repositories.
func (s *Store) Users() *Users { return &Users{s: s} }

// Catalog returns the product and category repositories.
func (s *Store) Catalog() *Catalog { return &Catalog{s: s} }

func (s *Store) Carts() *Carts { return &Carts{s: s} }

func (s *Store) Orders() *Orders { return &Orders{s: s} }

func (s *Store) Activity() *Activity { return &Activity{s: s} }
