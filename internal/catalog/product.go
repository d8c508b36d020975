package catalog

import "time"

// lowStockThreshold mirrors the dashboard's "low stock" badge cutoff.
const lowStockThreshold = 10

// ProductColor is one entry of a product's ordered color sequence. ID is
// assigned by the store when the color is first persisted; names and hex
// codes are not required to be unique.
type ProductColor struct {
	ID      int64   `json:"id,omitempty"`
	Name    string  `json:"name"`
	HexCode string  `json:"hexCode"`
	Price   float64 `json:"price,omitempty"`
}

type Product struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Price       float64        `json:"price"`
	Category    string         `json:"category,omitempty"`
	Stock       int            `json:"stock"`
	Colors      []ProductColor `json:"colors,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	IsActive    bool           `json:"isActive"`
	CreatedAt   time.Time      `json:"createdAt,omitzero"`
	UpdatedAt   time.Time      `json:"updatedAt,omitzero"`
}

func (p Product) LowStock() bool { return p.Stock <= lowStockThreshold }

// CreateRequest carries the caller-supplied fields of a new product; the
// store assigns ID, color IDs and timestamps.
type CreateRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Price       float64        `json:"price"`
	Category    string         `json:"category,omitempty"`
	Stock       int            `json:"stock"`
	Colors      []ProductColor `json:"colors,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	IsActive    bool           `json:"isActive"`
}

// UpdateRequest merges over an existing product: nil fields are retained,
// set fields overwrite. A non-nil Colors replaces the color sequence, with
// IDs re-derived positionally from the existing colors.
type UpdateRequest struct {
	ID          int64          `json:"id"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Price       *float64       `json:"price,omitempty"`
	Category    *string        `json:"category,omitempty"`
	Stock       *int           `json:"stock,omitempty"`
	Colors      []ProductColor `json:"colors,omitempty"`
	ImageURL    *string        `json:"imageUrl,omitempty"`
	IsActive    *bool          `json:"isActive,omitempty"`
}

// Page is the list result. Page and PageSize are echoed back untouched and
// Items is always the full snapshot; the shipped console never sliced
// server-side and that behavior is preserved.
type Page struct {
	Items      []Product `json:"products"`
	TotalCount int       `json:"totalCount"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
}

// Stats are the dashboard's derived catalog numbers.
type Stats struct {
	TotalProducts int `json:"totalProducts"`
	Active        int `json:"activeProducts"`
	LowStock      int `json:"lowStockProducts"`
	Categories    int `json:"categories"`
}
