package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item in the database
// This is the core domain model with GORM tags for database operations
type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"index:idx_product_name" json:"name"`
	Image        string          `json:"image"` // relative media path or absolute URL
	Brand        string          `gorm:"index:idx_product_brand" json:"brand"`
	Category     string          `gorm:"index:idx_product_category" json:"category"`
	Description  string          `json:"description"`
	Rating       decimal.Decimal `gorm:"type:decimal(3,2);default:0" json:"rating"`
	NumReviews   int             `gorm:"default:0" json:"numReviews"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);index:idx_product_price" json:"price"`
	CountInStock int             `gorm:"default:0" json:"countInStock"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ProductSnapshot is the product shape embedded in a recommendation
type ProductSnapshot struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	Rating      decimal.Decimal `json:"rating"`
	NumReviews  int             `json:"num_reviews"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

// ToSnapshot converts a Product to ProductSnapshot using an already-resolved image URL
func (p *Product) ToSnapshot(imageURL string) ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       p.Price,
		Rating:      p.Rating,
		NumReviews:  p.NumReviews,
		Image:       imageURL,
		Description: p.Description,
	}
}

// GetID returns the product ID for dedup and score lookups
func (p Product) GetID() uint {
	return p.ID
}

// PriceValue returns the price as float64 for scoring arithmetic
func (p Product) PriceValue() float64 {
	return p.Price.InexactFloat64()
}

// RatingValue returns the rating as float64 for scoring arithmetic
func (p Product) RatingValue() float64 {
	return p.Rating.InexactFloat64()
}

// InStock reports whether at least one unit is available
func (p Product) InStock() bool {
	return p.CountInStock > 0
}
