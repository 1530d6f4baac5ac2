package services

import (
	"context"
	"sort"
	"time"

	"shop-recommender/config"
	"shop-recommender/metrics"
	"shop-recommender/models"
	"shop-recommender/utils"

	"github.com/rs/zerolog"
)

// Price band upper bounds (exclusive), in won
const (
	BudgetPriceLimit  = 50000
	MidPriceLimit     = 200000
	PremiumPriceLimit = 500000
)

// Cadence class upper bounds (inclusive), in days
const (
	WeeklyMaxDays    = 7
	MonthlyMaxDays   = 30
	QuarterlyMaxDays = 90
)

// ProfileService aggregates a user's view and order history into a UserProfile
type ProfileService struct {
	store   Store
	cfg     config.ProfileConfig
	loc     *time.Location
	log     zerolog.Logger
	metrics *metrics.Recorder
	nowFn   func() time.Time
}

// NewProfileService creates a new profile service instance
func NewProfileService(store Store, cfg config.ProfileConfig, log zerolog.Logger, rec *metrics.Recorder) *ProfileService {
	log = log.With().Str("component", "profile").Logger()

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Warn().Err(err).Str("time_zone", cfg.TimeZone).Msg("unknown time zone, using UTC")
		loc = time.UTC
	}

	return &ProfileService{
		store:   store,
		cfg:     cfg,
		loc:     loc,
		log:     log,
		metrics: rec,
		nowFn:   time.Now,
	}
}

// GenerateProfile builds the preference profile for one user.
// Missing history never fails: it yields empty maps and zeroed stats.
func (s *ProfileService) GenerateProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveProfile(time.Since(started)) }()

	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	windowStart := now.AddDate(0, 0, -s.cfg.WindowDays)
	recentStart := now.AddDate(0, 0, -s.cfg.RecentDays)

	allViews, err := s.store.FindViews(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	allOrders, err := s.store.FindOrders(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	items, err := s.store.FindOrderItems(ctx, userID, windowStart)
	if err != nil {
		return nil, err
	}
	reviews, err := s.store.CountReviews(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := viewsSince(allViews, windowStart)
	orders := ordersSince(allOrders, windowStart)

	profile := &models.UserProfile{
		UserID:              user.ID,
		Username:            user.Username,
		CategoryPreferences: s.categoryPreferences(views, items),
		PriceRange:          s.priceRange(views, items),
		BrandPreferences:    s.brandPreferences(views, items),
		PurchaseFrequency:   s.purchaseFrequency(orders),
		RecentInterests:     s.recentInterests(viewsSince(allViews, recentStart)),
		TotalViews:          len(allViews),
		TotalPurchases:      len(allOrders),
		AvgRatingGiven:      utils.Round(reviews.AvgRating, 1),
		GeneratedAt:         now,
	}

	s.log.Debug().
		Uint("user_id", userID).
		Int("views", len(views)).
		Int("order_items", len(items)).
		Int("orders", len(orders)).
		Int("categories", len(profile.CategoryPreferences)).
		Str("frequency", profile.PurchaseFrequency.Frequency).
		Msg("profile generated")

	return profile, nil
}

// categoryPreferences weighs views by count and each purchased line by the
// purchase weight, then converts the weights to percentages
func (s *ProfileService) categoryPreferences(views []models.ProductView, items []models.OrderItem) map[string]float64 {
	weights := make(map[string]float64)
	for _, v := range views {
		weights[categoryOf(v.Product.Category)] += float64(v.ViewCount)
	}
	for _, item := range items {
		category := models.UnknownCategory
		if item.Product != nil {
			category = categoryOf(item.Product.Category)
		}
		weights[category] += float64(s.cfg.PurchaseWeight)
	}
	return utils.Percentages(weights)
}

// priceRange samples one price per purchased line and min(view_count, cap)
// copies of each viewed product's price
func (s *ProfileService) priceRange(views []models.ProductView, items []models.OrderItem) models.PriceRange {
	samples := make([]float64, 0, len(items)+len(views))
	for _, item := range items {
		if price := item.Price.InexactFloat64(); price > 0 {
			samples = append(samples, price)
		}
	}
	for _, v := range views {
		price := v.Product.PriceValue()
		if price <= 0 {
			continue
		}
		copies := min(v.ViewCount, s.cfg.ViewPriceCap)
		for i := 0; i < copies; i++ {
			samples = append(samples, price)
		}
	}

	if len(samples) == 0 {
		return models.PriceRange{PriceRanges: map[string]float64{}}
	}

	lo, hi := utils.MinMax(samples)
	return models.PriceRange{
		Min:         utils.Round(lo, 2),
		Max:         utils.Round(hi, 2),
		Avg:         utils.Round(utils.Mean(samples), 2),
		Median:      utils.Round(utils.Median(samples), 2),
		PriceRanges: priceBands(samples),
	}
}

// priceBands reports each band's share of the samples. All four bands are present.
func priceBands(samples []float64) map[string]float64 {
	counts := map[string]float64{}
	for _, price := range samples {
		counts[priceBand(price)]++
	}
	bands := utils.Percentages(counts)
	for _, band := range []string{models.PriceBandBudget, models.PriceBandMid, models.PriceBandPremium, models.PriceBandLuxury} {
		if _, ok := bands[band]; !ok {
			bands[band] = 0
		}
	}
	return bands
}

func priceBand(price float64) string {
	switch {
	case price < BudgetPriceLimit:
		return models.PriceBandBudget
	case price < MidPriceLimit:
		return models.PriceBandMid
	case price < PremiumPriceLimit:
		return models.PriceBandPremium
	default:
		return models.PriceBandLuxury
	}
}

// brandPreferences keeps the top brands by purchase weight plus view count
func (s *ProfileService) brandPreferences(views []models.ProductView, items []models.OrderItem) map[string]int {
	scores := make(map[string]int)
	for _, item := range items {
		if item.Product != nil && item.Product.Brand != "" {
			scores[item.Product.Brand] += s.cfg.PurchaseWeight
		}
	}
	for _, v := range views {
		if v.Product.Brand != "" {
			scores[v.Product.Brand] += v.ViewCount
		}
	}

	top := make(map[string]int, min(len(scores), s.cfg.TopBrands))
	for _, brand := range utils.Take(utils.RankMap(scores), s.cfg.TopBrands) {
		top[brand] = scores[brand]
	}
	return top
}

// purchaseFrequency averages calendar-day gaps between consecutive orders
func (s *ProfileService) purchaseFrequency(orders []models.Order) models.PurchaseFrequency {
	if len(orders) < 2 {
		return models.PurchaseFrequency{
			Frequency:   models.FrequencyInsufficientData,
			TotalOrders: len(orders),
		}
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	var totalDays int
	for i := 1; i < len(orders); i++ {
		totalDays += daysBetween(orders[i-1].CreatedAt.In(s.loc), orders[i].CreatedAt.In(s.loc))
	}
	avg := float64(totalDays) / float64(len(orders)-1)

	return models.PurchaseFrequency{
		Frequency:      classifyCadence(avg),
		AvgDaysBetween: utils.Round(avg, 1),
		TotalOrders:    len(orders),
	}
}

func classifyCadence(avgDays float64) string {
	switch {
	case avgDays <= WeeklyMaxDays:
		return models.FrequencyWeekly
	case avgDays <= MonthlyMaxDays:
		return models.FrequencyMonthly
	case avgDays <= QuarterlyMaxDays:
		return models.FrequencyQuarterly
	default:
		return models.FrequencyRarely
	}
}

// daysBetween counts calendar days from a to b in a's location
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// recentInterests lists the most recently viewed products, newest first
func (s *ProfileService) recentInterests(views []models.ProductView) []models.RecentInterest {
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].LastViewed.After(views[j].LastViewed)
	})
	views = utils.Take(views, s.cfg.RecentLimit)
	interests := make([]models.RecentInterest, 0, len(views))
	for _, v := range views {
		interests = append(interests, models.RecentInterest{
			ProductID:   v.ProductID,
			ProductName: v.Product.Name,
			Category:    v.Product.Category,
			Brand:       v.Product.Brand,
			ViewCount:   v.ViewCount,
			LastViewed:  v.LastViewed,
		})
	}
	return interests
}

func viewsSince(views []models.ProductView, cutoff time.Time) []models.ProductView {
	return utils.Filter(views, func(v models.ProductView) bool {
		return !v.LastViewed.Before(cutoff)
	})
}

func ordersSince(orders []models.Order, cutoff time.Time) []models.Order {
	return utils.Filter(orders, func(o models.Order) bool {
		return !o.CreatedAt.Before(cutoff)
	})
}

func categoryOf(category string) string {
	if category == "" {
		return models.UnknownCategory
	}
	return category
}
