package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeMC777/storefront/internal/activity"
	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/db"
	"github.com/MikeMC777/storefront/internal/notify"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Service struct {
	products   ProductRepository
	categories CategoryRepository
	tx         db.TxManager
	audit      activity.Recorder
	feed       notify.Publisher
}

func NewService(products ProductRepository, categories CategoryRepository, tx db.TxManager, audit activity.Recorder, feed notify.Publisher) *Service {
	if feed == nil {
		feed = notify.Discard{}
	}
	return &Service{products: products, categories: categories, tx: tx, audit: audit, feed: feed}
}

// Normalize clamps paging and resolves the sort order.
func (q Query) Normalize() Query {
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.CategoryID < 0 {
		q.CategoryID = 0
	}
	q.Q = strings.TrimSpace(q.Q)
	q.Sort = ParseSort(string(q.Sort))
	return q
}

func (s *Service) List(ctx context.Context, q Query) ([]Product, error) {
	out, err := s.products.List(ctx, q.Normalize())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Product{}
	}
	return out, nil
}

// All walks every page of the catalog, oldest first.
func (s *Service) All(ctx context.Context) ([]Product, error) {
	var all []Product
	q := Query{Sort: SortOldest, Limit: maxLimit}
	for {
		page, err := s.products.List(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < q.Limit {
			return all, nil
		}
		q.Offset += q.Limit
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.products.Count(ctx)
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	out, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Category{}
	}
	return out, nil
}

func (s *Service) Category(ctx context.Context, id int64) (*Category, error) {
	return s.categories.GetCategory(ctx, id)
}

func validateProduct(in ProductInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	} else if len(in.Name) > 200 {
		fields["name"] = "name must be at most 200 characters"
	}
	if in.Price == nil {
		fields["price"] = "price is required"
	} else if *in.Price < 0 {
		fields["price"] = "price must be non-negative"
	}
	if in.Stock == nil {
		fields["stock"] = "stock is required"
	} else if *in.Stock < 0 {
		fields["stock"] = "stock must be non-negative"
	}
	if len(fields) > 0 {
		return apperr.InvalidFields("please fill in all product fields", fields)
	}
	return nil
}

func applyInput(p *Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = *in.Price
	p.Stock = *in.Stock
	p.ImageURL = in.ImageURL
	if p.ImageURL != nil && strings.TrimSpace(*p.ImageURL) == "" {
		p.ImageURL = nil
	}
}

// publish pushes a committed audit entry to the live feed.
func (s *Service) publish(e *activity.Entry) {
	if e != nil {
		s.feed.Publish(notify.EventActivity, e)
	}
}

func (s *Service) CreateProduct(ctx context.Context, actorID int64, in ProductInput) (*Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}
	var (
		p     *Product
		entry *activity.Entry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, entry, err = s.createProduct(ctx, actorID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(entry)
	return p, nil
}

func (s *Service) createProduct(ctx context.Context, actorID int64, in ProductInput) (*Product, *activity.Entry, error) {
	p := &Product{CategoryIDs: []int64{}}
	applyInput(p, in)
	if err := s.products.Create(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("create product: %w", err)
	}
	entry, err := s.audit.Record(ctx, actorID, activity.ActionProductCreated, activity.KindProduct, p.ID, "added product %q", p.Name)
	return p, entry, err
}

func (s *Service) UpdateProduct(ctx context.Context, actorID, id int64, in ProductInput) (*Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}
	var (
		p     *Product
		entry *activity.Entry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, entry, err = s.updateProduct(ctx, actorID, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(entry)
	return p, nil
}

func (s *Service) updateProduct(ctx context.Context, actorID, id int64, in ProductInput) (*Product, *activity.Entry, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	applyInput(p, in)
	if err := s.products.Update(ctx, p); err != nil {
		return nil, nil, err
	}
	entry, err := s.audit.Record(ctx, actorID, activity.ActionProductUpdated, activity.KindProduct, p.ID, "edited product %q", p.Name)
	return p, entry, err
}

func (s *Service) DeleteProduct(ctx context.Context, actorID, id int64) error {
	var entry *activity.Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		ok, err := s.products.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProductNotFound
		}
		entry, err = s.audit.Record(ctx, actorID, activity.ActionProductDeleted, activity.KindProduct, id, "deleted product %q", p.Name)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(entry)
	return nil
}

// SetProductCategories replaces the product's category memberships.
func (s *Service) SetProductCategories(ctx context.Context, actorID, id int64, categoryIDs []int64) (*Product, error) {
	var (
		p     *Product
		entry *activity.Entry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		p, entry, err = s.setCategories(ctx, actorID, id, categoryIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(entry)
	return p, nil
}

func (s *Service) setCategories(ctx context.Context, actorID, id int64, categoryIDs []int64) (*Product, *activity.Entry, error) {
	ids := dedupe(categoryIDs)
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	for _, cid := range ids {
		if _, err := s.categories.GetCategory(ctx, cid); err != nil {
			return nil, nil, err
		}
	}
	if err := s.products.SetCategories(ctx, id, ids); err != nil {
		return nil, nil, err
	}
	p.CategoryIDs = ids
	entry, err := s.audit.Record(ctx, actorID, activity.ActionProductUpdated, activity.KindProduct, id,
		"set %d categories on product %q", len(ids), p.Name)
	return p, entry, err
}

// Import applies a batch of rows in one transaction. Every row is validated
// before anything is written; a failing row rolls back the whole batch.
func (s *Service) Import(ctx context.Context, actorID int64, items []ImportItem) (*ImportResult, error) {
	for _, it := range items {
		if err := validateProduct(it.Input); err != nil {
			return nil, rowError(it.Line, err)
		}
	}

	var (
		res     ImportResult
		entries []*activity.Entry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		res = ImportResult{}
		entries = entries[:0]
		for _, it := range items {
			var (
				p     *Product
				entry *activity.Entry
				err   error
			)
			if it.ID > 0 {
				p, entry, err = s.updateProduct(ctx, actorID, it.ID, it.Input)
				res.Updated++
			} else {
				p, entry, err = s.createProduct(ctx, actorID, it.Input)
				res.Created++
			}
			if err != nil {
				return rowError(it.Line, err)
			}
			entries = append(entries, entry)
			if len(it.CategoryIDs) == 0 {
				continue
			}
			if _, entry, err = s.setCategories(ctx, actorID, p.ID, it.CategoryIDs); err != nil {
				return rowError(it.Line, err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		s.publish(e)
	}
	return &res, nil
}

// rowError prefixes a domain error with the sheet row. Internal errors pass
// through untouched.
func rowError(line int, err error) error {
	e, ok := apperr.As(err)
	if !ok || e.Code == apperr.EINTERNAL {
		return err
	}
	return apperr.InvalidFields(fmt.Sprintf("row %d: %s", line, e.Message), e.Fields).Wrap(err)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func validateCategory(in CategoryInput) error {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return apperr.InvalidFields("invalid category", map[string]string{"name": "name is required"})
	case len(name) > 100:
		return apperr.InvalidFields("invalid category", map[string]string{"name": "name must be at most 100 characters"})
	}
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, actorID int64, in CategoryInput) (*Category, error) {
	if err := validateCategory(in); err != nil {
		return nil, err
	}
	c := &Category{Name: strings.TrimSpace(in.Name), Description: in.Description}
	var entry *activity.Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.categories.CreateCategory(ctx, c); err != nil {
			return err
		}
		var err error
		entry, err = s.audit.Record(ctx, actorID, activity.ActionCategoryCreated, activity.KindCategory, c.ID, "added category %q", c.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(entry)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, actorID, id int64, in CategoryInput) (*Category, error) {
	if err := validateCategory(in); err != nil {
		return nil, err
	}
	c := &Category{ID: id, Name: strings.TrimSpace(in.Name), Description: in.Description}
	var entry *activity.Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.categories.UpdateCategory(ctx, c); err != nil {
			return err
		}
		var err error
		entry, err = s.audit.Record(ctx, actorID, activity.ActionCategoryUpdated, activity.KindCategory, c.ID, "edited category %q", c.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(entry)
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, actorID, id int64) error {
	var entry *activity.Entry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.categories.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.categories.DeleteCategory(ctx, id); err != nil {
			return err
		}
		entry, err = s.audit.Record(ctx, actorID, activity.ActionCategoryDeleted, activity.KindCategory, id, "deleted category %q", c.Name)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(entry)
	return nil
}
