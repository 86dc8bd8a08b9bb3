package catalog

import "time"

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Price is in the smallest currency unit.
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CategoryIDs []int64   `json:"category_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Sort orders of the product listing.
type Sort string

const (
	SortPriceLow  Sort = "price_low"
	SortPriceHigh Sort = "price_high"
	SortNewest    Sort = "newest"
	SortOldest    Sort = "oldest"
)

// ParseSort maps the query value to a Sort; unknown values fall back to newest.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortPriceLow, SortPriceHigh, SortOldest:
		return Sort(s)
	default:
		return SortNewest
	}
}

type Query struct {
	Q          string
	Sort       Sort
	CategoryID int64
	Limit      int
	Offset     int
}

// ProductInput is the admin product form.
// swagger:model ProductInput
type ProductInput struct {
	Name        string  `json:"name"        binding:"required,max=200" example:"Mechanical Keyboard"`
	Description string  `json:"description" example:"RGB 60%"`
	Price       *int64  `json:"price"       binding:"required,gte=0"   example:"19990"`
	Stock       *int    `json:"stock"       binding:"required,gte=0"   example:"10"`
	ImageURL    *string `json:"image_url"   binding:"omitempty,max=255"`
}

// CategoryInput is the admin category form.
// swagger:model CategoryInput
type CategoryInput struct {
	Name        string `json:"name"        binding:"required,max=100" example:"Keyboards"`
	Description string `json:"description" example:"Mechanical and membrane keyboards"`
}

// ListResponse is the paginated product listing.
// swagger:model
type ListResponse struct {
	Q          string    `json:"q,omitempty"`
	Sort       Sort      `json:"sort"`
	CategoryID int64     `json:"category,omitempty"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
	Items      []Product `json:"items"`
}

// ImportItem is one product row of a bulk import. ID is zero for new products.
type ImportItem struct {
	Line        int
	ID          int64
	Input       ProductInput
	CategoryIDs []int64
}

type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
