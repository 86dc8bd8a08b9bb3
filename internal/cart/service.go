package cart

import (
	"context"
	"errors"
	"log"

	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/db"
)

// ProductGetter is the slice of the catalog the cart needs.
type ProductGetter interface {
	GetByID(ctx context.Context, id int64) (*catalog.Product, error)
}

type Service struct {
	repo     Repository
	products ProductGetter
	tx       db.TxManager
}

func NewService(repo Repository, products ProductGetter, tx db.TxManager) *Service {
	return &Service{repo: repo, products: products, tx: tx}
}

func (s *Service) GetOrCreate(ctx context.Context, id Identity) (*Cart, error) {
	if !id.Valid() {
		return nil, ErrInvalidIdentity
	}
	return s.repo.GetOrCreate(ctx, id)
}

// AddItem adds qty of the product, merging into an existing line.
func (s *Service) AddItem(ctx context.Context, id Identity, productID int64, qty int) (*Item, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	if !id.Valid() {
		return nil, ErrInvalidIdentity
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	c, err := s.repo.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.AddQuantity(ctx, c.ID, productID, qty)
}

// SetQuantity steps a line by one. It returns the line, or nil when a
// decrease removed it.
func (s *Service) SetQuantity(ctx context.Context, id Identity, productID int64, action Action) (*Item, error) {
	var delta int
	switch action {
	case Increase:
		delta = 1
	case Decrease:
		delta = -1
	default:
		return nil, ErrInvalidAction
	}
	if !id.Valid() {
		return nil, ErrInvalidIdentity
	}

	var out *Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.Find(ctx, id)
		if errors.Is(err, ErrCartNotFound) {
			return ErrLineNotFound
		}
		if err != nil {
			return err
		}
		it, err := s.repo.GetItem(ctx, c.ID, productID)
		if err != nil {
			return err
		}
		it.Quantity += delta
		if it.Quantity <= 0 {
			_, err := s.repo.DeleteItem(ctx, c.ID, productID)
			return err
		}
		if err := s.repo.SetQuantity(ctx, c.ID, productID, it.Quantity); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem deletes the line if present.
func (s *Service) RemoveItem(ctx context.Context, id Identity, productID int64) error {
	if !id.Valid() {
		return ErrInvalidIdentity
	}
	c, err := s.repo.Find(ctx, id)
	if errors.Is(err, ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.repo.DeleteItem(ctx, c.ID, productID)
	return err
}

func (s *Service) lines(ctx context.Context, id Identity) ([]Line, error) {
	if !id.Valid() {
		return nil, ErrInvalidIdentity
	}
	c, err := s.repo.Find(ctx, id)
	if errors.Is(err, ErrCartNotFound) {
		return []Line{}, nil
	}
	if err != nil {
		return nil, err
	}
	out, err := s.repo.Lines(ctx, c.ID, false)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Line{}
	}
	return out, nil
}

func (s *Service) View(ctx context.Context, id Identity) (*View, error) {
	lines, err := s.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	v := &View{Lines: lines, Total: Total(lines)}
	for _, l := range lines {
		v.Count += l.Quantity
	}
	return v, nil
}

// Total previews the cart total at current prices.
func (s *Service) Total(ctx context.Context, id Identity) (int64, error) {
	lines, err := s.lines(ctx, id)
	if err != nil {
		return 0, err
	}
	return Total(lines), nil
}

// Clear empties the cart. Missing carts are already empty.
func (s *Service) Clear(ctx context.Context, id Identity) error {
	c, err := s.repo.Find(ctx, id)
	if errors.Is(err, ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.repo.Clear(ctx, c.ID)
	return err
}

// Merge moves the lines of from into to's cart, summing quantities, and
// empties from. Used when a guest logs in.
func (s *Service) Merge(ctx context.Context, from, to Identity) (int, error) {
	if !from.Valid() || !to.Valid() {
		return 0, ErrInvalidIdentity
	}
	moved := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		src, err := s.repo.Find(ctx, from)
		if errors.Is(err, ErrCartNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		lines, err := s.repo.Lines(ctx, src.ID, false)
		if err != nil || len(lines) == 0 {
			return err
		}
		dst, err := s.repo.GetOrCreate(ctx, to)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if _, err := s.repo.AddQuantity(ctx, dst.ID, l.ProductID, l.Quantity); err != nil {
				return err
			}
			moved++
		}
		_, err = s.repo.Clear(ctx, src.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		log.Printf("[cart] merged %d lines from %s into %s", moved, from, to)
	}
	return moved, nil
}
