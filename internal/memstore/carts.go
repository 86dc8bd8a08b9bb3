package memstore

import (
	"context"
	"sort"

	"github.com/MikeMC777/storefront/internal/cart"
)

type Carts struct{ s *Store }

var _ cart.Repository = (*Carts)(nil)

func (r *Carts) find(id cart.Identity) (cart.Cart, bool) {
	for _, c := range r.s.st.carts {
		if id.UserID > 0 && c.UserID != nil && *c.UserID == id.UserID {
			return c, true
		}
		if id.SessionKey != "" && c.SessionKey != nil && *c.SessionKey == id.SessionKey {
			return c, true
		}
	}
	return cart.Cart{}, false
}

func (r *Carts) Find(ctx context.Context, id cart.Identity) (*cart.Cart, error) {
	defer r.s.rlock(ctx)()
	c, ok := r.find(id)
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return &c, nil
}

func (r *Carts) GetOrCreate(ctx context.Context, id cart.Identity) (*cart.Cart, error) {
	defer r.s.wlock(ctx)()
	if c, ok := r.find(id); ok {
		return &c, nil
	}
	c := cart.Cart{ID: r.s.st.next("carts"), CreatedAt: r.s.now()}
	if id.UserID > 0 {
		uid := id.UserID
		c.UserID = &uid
	} else {
		key := id.SessionKey
		c.SessionKey = &key
	}
	r.s.st.carts[c.ID] = c
	return &c, nil
}

func (r *Carts) item(cartID, productID int64) (cart.Item, bool) {
	for _, it := range r.s.st.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			return it, true
		}
	}
	return cart.Item{}, false
}

func (r *Carts) GetItem(ctx context.Context, cartID, productID int64) (*cart.Item, error) {
	defer r.s.rlock(ctx)()
	it, ok := r.item(cartID, productID)
	if !ok {
		return nil, cart.ErrLineNotFound
	}
	return &it, nil
}

func (r *Carts) AddQuantity(ctx context.Context, cartID, productID int64, qty int) (*cart.Item, error) {
	defer r.s.wlock(ctx)()
	st := r.s.st
	if _, ok := st.products[productID]; !ok {
		return nil, errForeignKey("cart_items.product_id")
	}
	it, ok := r.item(cartID, productID)
	if ok {
		it.Quantity += qty
	} else {
		it = cart.Item{ID: st.next("cart_items"), CartID: cartID, ProductID: productID, Quantity: qty}
	}
	if it.Quantity < 1 {
		return nil, errCheck("cart_items.quantity")
	}
	st.cartItems[it.ID] = it
	return &it, nil
}

func (r *Carts) SetQuantity(ctx context.Context, cartID, productID int64, qty int) error {
	defer r.s.wlock(ctx)()
	it, ok := r.item(cartID, productID)
	if !ok {
		return cart.ErrLineNotFound
	}
	if qty < 1 {
		return errCheck("cart_items.quantity")
	}
	it.Quantity = qty
	r.s.st.cartItems[it.ID] = it
	return nil
}

func (r *Carts) DeleteItem(ctx context.Context, cartID, productID int64) (bool, error) {
	defer r.s.wlock(ctx)()
	it, ok := r.item(cartID, productID)
	if !ok {
		return false, nil
	}
	delete(r.s.st.cartItems, it.ID)
	return true, nil
}

// Lines ignores lock: a transaction already holds the whole store.
func (r *Carts) Lines(ctx context.Context, cartID int64, lock bool) ([]cart.Line, error) {
	defer r.s.rlock(ctx)()
	st := r.s.st
	var items []cart.Item
	for _, it := range st.cartItems {
		if it.CartID == cartID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	out := make([]cart.Line, 0, len(items))
	for _, it := range items {
		p, ok := st.products[it.ProductID]
		if !ok {
			continue
		}
		out = append(out, cart.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Stock:     p.Stock,
			ImageURL:  p.ImageURL,
			Quantity:  it.Quantity,
		})
	}
	return out, nil
}

func (r *Carts) Clear(ctx context.Context, cartID int64) (int64, error) {
	defer r.s.wlock(ctx)()
	var n int64
	for id, it := range r.s.st.cartItems {
		if it.CartID == cartID {
			delete(r.s.st.cartItems, id)
			n++
		}
	}
	return n, nil
}
