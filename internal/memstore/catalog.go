package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/MikeMC777/storefront/internal/catalog"
)

type Catalog struct{ s *Store }

var (
	_ catalog.ProductRepository  = (*Catalog)(nil)
	_ catalog.CategoryRepository = (*Catalog)(nil)
)

func (r *Catalog) withCategories(p catalog.Product) catalog.Product {
	ids := make([]int64, 0, len(r.s.st.productCats[p.ID]))
	for id := range r.s.st.productCats[p.ID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	p.CategoryIDs = ids
	return p
}

func (r *Catalog) Create(ctx context.Context, p *catalog.Product) error {
	defer r.s.wlock(ctx)()
	st := r.s.st
	p.ID = st.next("products")
	p.CreatedAt = r.s.now()
	p.UpdatedAt = p.CreatedAt
	p.CategoryIDs = []int64{}
	st.products[p.ID] = *p
	return nil
}

func (r *Catalog) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	defer r.s.rlock(ctx)()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	p = r.withCategories(p)
	return &p, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (r *Catalog) List(ctx context.Context, q catalog.Query) ([]catalog.Product, error) {
	defer r.s.rlock(ctx)()
	st := r.s.st
	search := strings.TrimSpace(q.Q)

	out := make([]catalog.Product, 0)
	for _, p := range st.products {
		if search != "" && !containsFold(p.Name, search) && !containsFold(p.Description, search) {
			continue
		}
		if q.CategoryID > 0 {
			if _, ok := st.productCats[p.ID][q.CategoryID]; !ok {
				continue
			}
		}
		out = append(out, r.withCategories(p))
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case catalog.SortPriceLow:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
			return a.ID < b.ID
		case catalog.SortPriceHigh:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
			return a.ID > b.ID
		case catalog.SortOldest:
			return a.ID < b.ID
		default:
			return a.ID > b.ID
		}
	})
	return page(out, q.Limit, q.Offset), nil
}

func (r *Catalog) Update(ctx context.Context, p *catalog.Product) error {
	defer r.s.wlock(ctx)()
	cur, ok := r.s.st.products[p.ID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	cur.Name, cur.Description, cur.ImageURL = p.Name, p.Description, p.ImageURL
	cur.Price, cur.Stock = p.Price, p.Stock
	cur.UpdatedAt = r.s.now()
	p.UpdatedAt = cur.UpdatedAt
	r.s.st.products[p.ID] = cur
	return nil
}

// Delete mirrors the foreign keys: memberships and cart lines go with the
// product, order items keep their snapshot with a null product id.
func (r *Catalog) Delete(ctx context.Context, id int64) (bool, error) {
	defer r.s.wlock(ctx)()
	st := r.s.st
	if _, ok := st.products[id]; !ok {
		return false, nil
	}
	delete(st.products, id)
	delete(st.productCats, id)
	for itemID, it := range st.cartItems {
		if it.ProductID == id {
			delete(st.cartItems, itemID)
		}
	}
	for itemID, it := range st.orderItems {
		if it.ProductID != nil && *it.ProductID == id {
			it.ProductID = nil
			st.orderItems[itemID] = it
		}
	}
	return true, nil
}

func (r *Catalog) SetCategories(ctx context.Context, productID int64, categoryIDs []int64) error {
	defer r.s.wlock(ctx)()
	st := r.s.st
	if _, ok := st.products[productID]; !ok {
		return catalog.ErrProductNotFound
	}
	set := make(map[int64]struct{}, len(categoryIDs))
	for _, cid := range categoryIDs {
		if _, ok := st.categories[cid]; !ok {
			return catalog.ErrCategoryNotFound
		}
		set[cid] = struct{}{}
	}
	st.productCats[productID] = set
	return nil
}

func (r *Catalog) DecrementStock(ctx context.Context, id int64, qty int) error {
	defer r.s.wlock(ctx)()
	p, ok := r.s.st.products[id]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.Stock -= qty
	if p.Stock < 0 {
		p.Stock = 0
	}
	p.UpdatedAt = r.s.now()
	r.s.st.products[id] = p
	return nil
}

func (r *Catalog) Count(ctx context.Context) (int64, error) {
	defer r.s.rlock(ctx)()
	return int64(len(r.s.st.products)), nil
}

func (r *Catalog) CreateCategory(ctx context.Context, c *catalog.Category) error {
	defer r.s.wlock(ctx)()
	c.ID = r.s.st.next("categories")
	r.s.st.categories[c.ID] = *c
	return nil
}

func (r *Catalog) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	defer r.s.rlock(ctx)()
	c, ok := r.s.st.categories[id]
	if !ok {
		return nil, catalog.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *Catalog) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	defer r.s.rlock(ctx)()
	out := make([]catalog.Category, 0, len(r.s.st.categories))
	for _, c := range r.s.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Catalog) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	defer r.s.wlock(ctx)()
	if _, ok := r.s.st.categories[c.ID]; !ok {
		return catalog.ErrCategoryNotFound
	}
	r.s.st.categories[c.ID] = *c
	return nil
}

func (r *Catalog) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	defer r.s.wlock(ctx)()
	st := r.s.st
	if _, ok := st.categories[id]; !ok {
		return false, nil
	}
	delete(st.categories, id)
	for pid, set := range st.productCats {
		if _, ok := set[id]; ok {
			cp := copyMap(set)
			delete(cp, id)
			st.productCats[pid] = cp
		}
	}
	return true, nil
}
