package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"shop-recommender/logging"
	"shop-recommender/models"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestCandidateService(store Store) *CandidateService {
	cfg := testConfig()
	return NewCandidateService(store, cfg.Candidates, cfg.Scoring, logging.Nop(), nil)
}

func productIDs(products []models.Product) []uint {
	out := make([]uint, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func emptyProfile() *models.UserProfile {
	return &models.UserProfile{
		CategoryPreferences: map[string]float64{},
		BrandPreferences:    map[string]int{},
	}
}

func TestGetCandidates(t *testing.T) {
	Convey("Given a candidate service over a small catalog", t, func() {
		store := newFakeStore()
		svc := newTestCandidateService(store)
		ctx := context.Background()

		Convey("When the profile is nil", func() {
			_, err := svc.GetCandidates(ctx, 1, nil, 20)

			Convey("Then the contract violation is reported", func() {
				So(errors.Is(err, ErrInvalidProfile), ShouldBeTrue)
			})
		})

		Convey("When the user bought some products long ago", func() {
			for id := uint(1); id <= 6; id++ {
				store.addProduct(id, fmt.Sprintf("p%d", id), "Misc", "Acme", 10000, 3)
			}
			store.addProduct(7, "sold-out", "Misc", "Acme", 10000, 0)
			store.addOrder(1, daysAgo(400), 2)
			store.addOrder(1, daysAgo(1), 4, 4)

			got, err := svc.GetCandidates(ctx, 1, emptyProfile(), 20)

			Convey("Then purchased and out-of-stock products are excluded", func() {
				So(err, ShouldBeNil)
				So(productIDs(got), ShouldResemble, []uint{1, 3, 5, 6})
			})
		})

		Convey("When the catalog is empty", func() {
			got, err := svc.GetCandidates(ctx, 1, emptyProfile(), 20)

			Convey("Then the result is empty without error", func() {
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When more products survive than the limit", func() {
			for id := uint(1); id <= 30; id++ {
				store.addProduct(id, fmt.Sprintf("p%d", id), "Misc", "Acme", 10000, 3)
			}

			Convey("Then the explicit limit is honoured", func() {
				got, err := svc.GetCandidates(ctx, 1, emptyProfile(), 7)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 7)
			})

			Convey("Then a zero limit uses the default of 20", func() {
				got, err := svc.GetCandidates(ctx, 1, emptyProfile(), 0)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 20)
			})

			Convey("Then equal scores keep catalog order and no id repeats", func() {
				got, _ := svc.GetCandidates(ctx, 1, emptyProfile(), 30)
				seen := map[uint]bool{}
				for i, p := range got {
					So(seen[p.ID], ShouldBeFalse)
					seen[p.ID] = true
					So(p.ID, ShouldEqual, uint(i+1))
				}
			})
		})

		Convey("When preferred products are ranked", func() {
			store.addProduct(1, "plain", "Hats", "Nobody", 10000, 3)
			store.addProduct(2, "liked", "Shoes", "Nike", 10000, 3)
			profile := &models.UserProfile{
				CategoryPreferences: map[string]float64{"Shoes": 100},
				BrandPreferences:    map[string]int{"Nike": 4},
			}

			got, err := svc.GetCandidates(ctx, 1, profile, 20)

			Convey("Then the preferred product comes first", func() {
				So(err, ShouldBeNil)
				So(productIDs(got), ShouldResemble, []uint{2, 1})
			})
		})
	})
}

func TestFilterByCategory(t *testing.T) {
	Convey("Given products across categories", t, func() {
		svc := newTestCandidateService(newFakeStore())

		var products []models.Product
		id := uint(1)
		add := func(category string, n int) {
			for i := 0; i < n; i++ {
				products = append(products, models.Product{ID: id, Category: category})
				id++
			}
		}

		Convey("When the profile has no category preferences", func() {
			add("Shoes", 3)
			add("Bags", 3)
			res := svc.filterByCategory(products, emptyProfile())

			Convey("Then the stage is a no-op", func() {
				So(res.Items, ShouldResemble, products)
			})
		})

		Convey("When enough preferred products exist", func() {
			add("Shoes", 12)
			add("Bags", 5)
			profile := &models.UserProfile{CategoryPreferences: map[string]float64{"Shoes": 100}}
			res := svc.filterByCategory(products, profile)

			Convey("Then only preferred categories remain", func() {
				So(res.Tier, ShouldEqual, "preferred")
				So(len(res.Items), ShouldEqual, 12)
				for _, p := range res.Items {
					So(p.Category, ShouldEqual, "Shoes")
				}
			})
		})

		Convey("When too few preferred products exist", func() {
			add("Bags", 4)
			add("Shoes", 3)
			add("Hats", 15)
			profile := &models.UserProfile{CategoryPreferences: map[string]float64{"Shoes": 60, "Bags": 40}}
			res := svc.filterByCategory(products, profile)

			Convey("Then ten products from other categories are blended in", func() {
				So(res.Tier, ShouldEqual, "")
				So(len(res.Items), ShouldEqual, 17)

				others := 0
				for _, p := range res.Items {
					if p.Category == "Hats" {
						others++
					}
				}
				So(others, ShouldEqual, 10)
			})

			Convey("Then catalog order is preserved", func() {
				for i := 1; i < len(res.Items); i++ {
					So(res.Items[i-1].ID, ShouldBeLessThan, res.Items[i].ID)
				}
			})
		})

		Convey("When the profile prefers Unknown", func() {
			add("Shoes", 10)
			add("", 3)
			profile := &models.UserProfile{CategoryPreferences: map[string]float64{"Shoes": 50, models.UnknownCategory: 50}}
			res := svc.filterByCategory(products, profile)

			Convey("Then uncategorised products are not treated as preferred", func() {
				So(res.Tier, ShouldEqual, "preferred")
				So(len(res.Items), ShouldEqual, 10)
				for _, p := range res.Items {
					So(p.Category, ShouldEqual, "Shoes")
				}
			})
		})
	})
}

func pricedProducts(prices ...int64) []models.Product {
	out := make([]models.Product, len(prices))
	for i, price := range prices {
		out[i] = models.Product{ID: uint(i + 1), Price: decimal.NewFromInt(price)}
	}
	return out
}

func TestFilterByPrice(t *testing.T) {
	svc := newTestCandidateService(newFakeStore())
	withAvg := func(avg float64) *models.UserProfile {
		return &models.UserProfile{PriceRange: models.PriceRange{Avg: avg}}
	}

	tests := []struct {
		name     string
		prices   []int64
		avg      float64
		wantTier string
		wantLen  int
	}{
		{
			name:     "no price signal passes through",
			prices:   []int64{1, 1000, 1000000},
			avg:      0,
			wantTier: "",
			wantLen:  3,
		},
		{
			name:     "narrow band accepted with five",
			prices:   []int64{50, 80, 100, 120, 150, 400, 10},
			avg:      100,
			wantTier: "narrow",
			wantLen:  5,
		},
		{
			name:     "widens when narrow is short",
			prices:   []int64{100, 120, 25, 250, 1000},
			avg:      100,
			wantTier: "wide",
			wantLen:  4,
		},
		{
			name:     "gives up when wide is short",
			prices:   []int64{100, 300, 1000, 5},
			avg:      100,
			wantTier: "",
			wantLen:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.filterByPrice(pricedProducts(tt.prices...), withAvg(tt.avg))
			if res.Tier != tt.wantTier {
				t.Errorf("tier = %q, want %q", res.Tier, tt.wantTier)
			}
			if len(res.Items) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(res.Items), tt.wantLen)
			}
		})
	}
}

func TestPriceBands_WideContainsNarrow(t *testing.T) {
	avg := 48000.0
	narrow := PriceBetween(avg*NarrowPriceLow, avg*NarrowPriceHigh)
	wide := PriceBetween(avg*WidePriceLow, avg*WidePriceHigh)

	for price := int64(0); price <= 200000; price += 250 {
		p := models.Product{Price: decimal.NewFromInt(price)}
		if narrow(p) && !wide(p) {
			t.Fatalf("price %d is in the narrow band but not the wide band", price)
		}
	}
}

func TestScore(t *testing.T) {
	svc := newTestCandidateService(newFakeStore())
	profile := &models.UserProfile{
		CategoryPreferences: map[string]float64{"Shoes": 40, models.UnknownCategory: 60},
		BrandPreferences:    map[string]int{"Nike": 10, "Gucci": 100},
	}
	product := func(category, brand string, reviews int, rating string) models.Product {
		return models.Product{Category: category, Brand: brand, NumReviews: reviews, Rating: decimal.RequireFromString(rating)}
	}

	tests := []struct {
		name    string
		product models.Product
		want    float64
	}{
		{name: "base only", product: product("Hats", "Nobody", 0, "4.5"), want: 10},
		{name: "category", product: product("Shoes", "Nobody", 0, "0"), want: 30},
		{name: "uncategorised", product: product("", "Nobody", 0, "0"), want: 10},
		{name: "brand", product: product("Hats", "Nike", 0, "0"), want: 40},
		{name: "brand capped", product: product("Hats", "Gucci", 0, "0"), want: 60},
		{name: "popularity", product: product("Hats", "Nobody", 10, "4"), want: 27},
		{name: "review bonus capped", product: product("Hats", "Nobody", 100, "5"), want: 40},
		{name: "everything", product: product("Shoes", "Nike", 10, "4"), want: 77},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Score(tt.product, profile); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_PreferredBeatsUnpreferred(t *testing.T) {
	svc := newTestCandidateService(newFakeStore())
	profile := &models.UserProfile{
		CategoryPreferences: map[string]float64{"Shoes": 5},
		BrandPreferences:    map[string]int{"Nike": 1},
	}
	rating := decimal.RequireFromString("3.5")

	preferred := models.Product{Category: "Shoes", Brand: "Nike", NumReviews: 3, Rating: rating}
	other := models.Product{Category: "Hats", Brand: "Acme", NumReviews: 3, Rating: rating}

	if svc.Score(preferred, profile) <= svc.Score(other, profile) {
		t.Error("Expected preferred category and brand to score strictly higher")
	}
}
