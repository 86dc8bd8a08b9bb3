package catalog

import (
	"context"
	"fmt"
	"io"
	"log"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML document loaded by SEED_FILE:
//
//	categories:
//	  - name: Keyboards
//	products:
//	  - name: K60
//	    price: 19990
//	    stock: 10
//	    categories: [Keyboards]
type Seed struct {
	Categories []SeedCategory `yaml:"categories"`
	Products   []SeedProduct  `yaml:"products"`
}

type SeedCategory struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SeedProduct struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       int64    `yaml:"price"`
	Stock       int      `yaml:"stock"`
	ImageURL    string   `yaml:"image_url"`
	Categories  []string `yaml:"categories"`
}

func LoadSeed(r io.Reader) (*Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &s, nil
}

// ApplySeed loads seed into an empty catalog. A catalog that already has
// products is left alone.
func (s *Service) ApplySeed(ctx context.Context, seed *Seed) (int, error) {
	n, err := s.products.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[seed] catalog has %d products, skipping", n)
		return 0, nil
	}

	byName := make(map[string]int64, len(seed.Categories))
	for _, sc := range seed.Categories {
		c, err := s.CreateCategory(ctx, 0, CategoryInput{Name: sc.Name, Description: sc.Description})
		if err != nil {
			return 0, fmt.Errorf("seed category %q: %w", sc.Name, err)
		}
		byName[c.Name] = c.ID
	}

	for _, sp := range seed.Products {
		price, stock := sp.Price, sp.Stock
		in := ProductInput{Name: sp.Name, Description: sp.Description, Price: &price, Stock: &stock}
		if sp.ImageURL != "" {
			img := sp.ImageURL
			in.ImageURL = &img
		}
		p, err := s.CreateProduct(ctx, 0, in)
		if err != nil {
			return 0, fmt.Errorf("seed product %q: %w", sp.Name, err)
		}
		if len(sp.Categories) == 0 {
			continue
		}
		ids := make([]int64, 0, len(sp.Categories))
		for _, name := range sp.Categories {
			id, ok := byName[name]
			if !ok {
				return 0, fmt.Errorf("seed product %q: unknown category %q", sp.Name, name)
			}
			ids = append(ids, id)
		}
		if _, err := s.SetProductCategories(ctx, 0, p.ID, ids); err != nil {
			return 0, fmt.Errorf("seed product %q: %w", sp.Name, err)
		}
	}
	log.Printf("[seed] loaded %d categories, %d products", len(seed.Categories), len(seed.Products))
	return len(seed.Products), nil
}
