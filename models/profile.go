package models

import (
	"sort"
	"time"
)

// Purchase frequency classes
const (
	FrequencyWeekly           = "weekly"
	FrequencyMonthly          = "monthly"
	FrequencyQuarterly        = "quarterly"
	FrequencyRarely           = "rarely"
	FrequencyInsufficientData = "insufficient_data"
)

// Price band names
const (
	PriceBandBudget  = "budget"
	PriceBandMid     = "mid"
	PriceBandPremium = "premium"
	PriceBandLuxury  = "luxury"
)

// UnknownCategory buckets products without a category
const UnknownCategory = "Unknown"

// UserProfile is the derived preference summary for one user.
// It is recomputed on every request and never stored.
type UserProfile struct {
	UserID              uint               `json:"user_id"`
	Username            string             `json:"username"`
	CategoryPreferences map[string]float64 `json:"category_preferences"` // category -> percentage
	PriceRange          PriceRange         `json:"price_range"`
	BrandPreferences    map[string]int     `json:"brand_preferences"` // brand -> score, top N
	PurchaseFrequency   PurchaseFrequency  `json:"purchase_frequency"`
	RecentInterests     []RecentInterest   `json:"recent_interests"`
	TotalViews          int                `json:"total_views"`
	TotalPurchases      int                `json:"total_purchases"`
	AvgRatingGiven      float64            `json:"avg_rating_given"`
	GeneratedAt         time.Time          `json:"generated_at"`
}

// PriceRange summarises purchased and viewed prices
type PriceRange struct {
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Avg         float64            `json:"avg"`
	Median      float64            `json:"median"`
	PriceRanges map[string]float64 `json:"price_ranges"` // band -> percentage
}

// PurchaseFrequency classifies how often the user orders
type PurchaseFrequency struct {
	Frequency      string  `json:"frequency"`
	AvgDaysBetween float64 `json:"avg_days_between"`
	TotalOrders    int     `json:"total_orders"`
}

// RecentInterest is one recently viewed product
type RecentInterest struct {
	ProductID   uint      `json:"product_id"`
	ProductName string    `json:"product_name"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	ViewCount   int       `json:"view_count"`
	LastViewed  time.Time `json:"last_viewed"`
}

// RankedKey is a preference key with its value, used for ordered views of the maps
type RankedKey struct {
	Key   string
	Value float64
}

// TopCategories returns up to n categories by percentage, highest first.
// Ties are broken by name so the ordering is stable across calls.
func (p *UserProfile) TopCategories(n int) []RankedKey {
	ranked := make([]RankedKey, 0, len(p.CategoryPreferences))
	for k, v := range p.CategoryPreferences {
		ranked = append(ranked, RankedKey{Key: k, Value: v})
	}
	return topN(ranked, n)
}

// TopBrands returns up to n brands by score, highest first
func (p *UserProfile) TopBrands(n int) []RankedKey {
	ranked := make([]RankedKey, 0, len(p.BrandPreferences))
	for k, v := range p.BrandPreferences {
		ranked = append(ranked, RankedKey{Key: k, Value: float64(v)})
	}
	return topN(ranked, n)
}

// HasPriceSignal reports whether the profile carries a usable average price
func (p *UserProfile) HasPriceSignal() bool {
	return p.PriceRange.Avg > 0
}

func topN(ranked []RankedKey, n int) []RankedKey {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].Key < ranked[j].Key
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
