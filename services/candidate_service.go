package services

import (
	"context"
	"math"
	"time"

	"shop-recommender/config"
	"shop-recommender/metrics"
	"shop-recommender/models"
	"shop-recommender/utils"

	"github.com/rs/zerolog"
)

// Price band multipliers applied to the profile's average price
const (
	NarrowPriceLow  = 0.5
	NarrowPriceHigh = 1.5
	WidePriceLow    = 0.2
	WidePriceHigh   = 3.0
)

// Pipeline stage names, used as metric labels and log fields
const (
	StageEligible = "eligible"
	StageCategory = "category"
	StagePrice    = "price"
	StageScored   = "scored"
)

// CandidateService narrows the catalog to a ranked candidate list for one user
type CandidateService struct {
	store   Store
	cfg     config.CandidatesConfig
	scoring config.ScoringConfig
	log     zerolog.Logger
	metrics *metrics.Recorder
}

// NewCandidateService creates a new candidate service instance
func NewCandidateService(store Store, cfg config.CandidatesConfig, scoring config.ScoringConfig, log zerolog.Logger, rec *metrics.Recorder) *CandidateService {
	return &CandidateService{
		store:   store,
		cfg:     cfg,
		scoring: scoring,
		log:     log.With().Str("component", "candidates").Logger(),
		metrics: rec,
	}
}

// GetCandidates runs eligibility, category, price and scoring stages and
// returns at most limit products, best first. limit <= 0 uses the default.
func (s *CandidateService) GetCandidates(ctx context.Context, userID uint, profile *models.UserProfile, limit int) ([]models.Product, error) {
	if profile == nil {
		return nil, ErrInvalidProfile
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	eligible, err := s.eligibleProducts(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.observe(userID, StageEligible, len(eligible), "")

	byCategory := s.filterByCategory(eligible, profile)
	s.observe(userID, StageCategory, len(byCategory.Items), byCategory.Tier)

	byPrice := s.filterByPrice(byCategory.Items, profile)
	s.observe(userID, StagePrice, len(byPrice.Items), byPrice.Tier)

	ranked := utils.DedupeByID(s.rank(byPrice.Items, profile, limit))
	s.observe(userID, StageScored, len(ranked), "")

	return ranked, nil
}

// eligibleProducts returns in-stock products the user has never bought, by id
func (s *CandidateService) eligibleProducts(ctx context.Context, userID uint) ([]models.Product, error) {
	purchased, err := s.store.FindOrderItems(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}

	exclude := make([]uint, 0, len(purchased))
	for _, item := range purchased {
		if item.ProductID != nil {
			exclude = append(exclude, *item.ProductID)
		}
	}

	products, err := s.store.FindProducts(ctx, ProductFilter{
		InStockOnly: true,
		ExcludeIDs:  exclude,
	})
	if err != nil {
		return nil, err
	}
	return utils.DedupeByID(products), nil
}

// filterByCategory keeps preferred categories. When too few survive, it
// blends in leading products from other categories.
func (s *CandidateService) filterByCategory(products []models.Product, profile *models.UserProfile) utils.RelaxResult[models.Product] {
	prefs := profile.CategoryPreferences
	if len(prefs) == 0 {
		return utils.RelaxResult[models.Product]{Items: products}
	}

	preferred := func(p models.Product) bool {
		_, ok := categoryWeight(prefs, p.Category)
		return ok
	}

	blend := func(all []models.Product) []models.Product {
		keep := make(map[uint]struct{}, len(all))
		others := 0
		for _, p := range all {
			switch {
			case preferred(p):
				keep[p.ID] = struct{}{}
			case others < s.cfg.CategoryBlend:
				keep[p.ID] = struct{}{}
				others++
			}
		}
		return utils.Filter(all, func(p models.Product) bool {
			_, ok := keep[p.ID]
			return ok
		})
	}

	return utils.Relax(products, blend, utils.Tier[models.Product]{
		Name:     "preferred",
		Keep:     preferred,
		MinCount: s.cfg.CategoryMinimum,
	})
}

// filterByPrice widens the band around the average price until enough
// products survive, then gives up and passes everything through
func (s *CandidateService) filterByPrice(products []models.Product, profile *models.UserProfile) utils.RelaxResult[models.Product] {
	if !profile.HasPriceSignal() {
		return utils.RelaxResult[models.Product]{Items: products}
	}

	avg := profile.PriceRange.Avg
	return utils.Relax(products, nil,
		utils.Tier[models.Product]{
			Name:     "narrow",
			Keep:     PriceBetween(avg*NarrowPriceLow, avg*NarrowPriceHigh),
			MinCount: s.cfg.PriceNarrowMin,
		},
		utils.Tier[models.Product]{
			Name:     "wide",
			Keep:     PriceBetween(avg*WidePriceLow, avg*WidePriceHigh),
			MinCount: s.cfg.PriceWideMin,
		},
	)
}

// PriceBetween matches products priced within [lo, hi]
func PriceBetween(lo, hi float64) func(models.Product) bool {
	return func(p models.Product) bool {
		price := p.PriceValue()
		return price >= lo && price <= hi
	}
}

// rank scores every product and keeps the best limit; ties keep input order
func (s *CandidateService) rank(products []models.Product, profile *models.UserProfile, limit int) []models.Product {
	scores := make(map[uint]float64, len(products))
	for _, p := range products {
		scores[p.ID] = s.Score(p, profile)
	}

	ranked := append([]models.Product(nil), products...)
	utils.SortByScoreMap(ranked, scores, utils.Descending)
	return utils.Take(ranked, limit)
}

// Score is the deterministic relevance of one product for the profile
func (s *CandidateService) Score(p models.Product, profile *models.UserProfile) float64 {
	score := s.scoring.Base

	if pct, ok := categoryWeight(profile.CategoryPreferences, p.Category); ok {
		score += pct * s.scoring.CategoryWeight
	}
	if brand, ok := profile.BrandPreferences[p.Brand]; ok && p.Brand != "" {
		score += math.Min(float64(brand)*s.scoring.BrandWeight, s.scoring.BrandCap)
	}
	if p.NumReviews > 0 {
		score += math.Min(float64(p.NumReviews)*s.scoring.ReviewWeight, s.scoring.ReviewCap)
		score += p.RatingValue() * s.scoring.RatingWeight
	}
	return score
}

func (s *CandidateService) observe(userID uint, stage string, size int, tier string) {
	s.metrics.ObserveStage(stage, size)
	event := s.log.Debug().Uint("user_id", userID).Str("stage", stage).Int("candidates", size)
	if tier != "" {
		event = event.Str("tier", tier)
	}
	event.Msg("candidate stage complete")
}

// categoryWeight looks up a product category in the preferences.
// Uncategorised products never match, even an Unknown preference.
func categoryWeight(prefs map[string]float64, category string) (float64, bool) {
	if category == "" {
		return 0, false
	}
	pct, ok := prefs[category]
	return pct, ok
}
