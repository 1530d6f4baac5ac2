package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"shop-recommender/config"
	"shop-recommender/models"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

// fakeStore is an in-memory Store with the same ordering rules as GormStore
type fakeStore struct {
	mu       sync.Mutex
	users    map[uint]models.User
	products map[uint]models.Product
	views    []models.ProductView
	orders   []models.Order
	reviews  []models.Review
	err      error
	nextID   uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[uint]models.User{1: {ID: 1, Username: "shopper"}},
		products: map[uint]models.Product{},
		nextID:   1,
	}
}

func (f *fakeStore) addProduct(id uint, name, category, brand string, price int64, stock int) models.Product {
	p := models.Product{
		ID:           id,
		Name:         name,
		Category:     category,
		Brand:        brand,
		Price:        decimal.NewFromInt(price),
		Rating:       decimal.Zero,
		CountInStock: stock,
	}
	f.products[id] = p
	return p
}

func (f *fakeStore) addView(userID, productID uint, count int, last time.Time) {
	f.views = append(f.views, models.ProductView{
		ID:         f.id(),
		UserID:     userID,
		ProductID:  productID,
		ViewCount:  count,
		LastViewed: last,
	})
}

// addOrder places one order with one line per product at the product's price
func (f *fakeStore) addOrder(userID uint, at time.Time, productIDs ...uint) {
	order := models.Order{ID: f.id(), UserID: userID, CreatedAt: at}
	for _, pid := range productIDs {
		p := f.products[pid]
		order.Items = append(order.Items, models.OrderItem{
			ID:        f.id(),
			OrderID:   order.ID,
			ProductID: &pid,
			Name:      p.Name,
			Qty:       1,
			Price:     p.Price,
		})
	}
	f.orders = append(f.orders, order)
}

func (f *fakeStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) FindProducts(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	excluded := map[uint]bool{}
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	categories := map[string]bool{}
	for _, c := range filter.Categories {
		categories[c] = true
	}

	var out []models.Product
	for _, p := range f.products {
		if filter.InStockOnly && p.CountInStock <= 0 {
			continue
		}
		if excluded[p.ID] {
			continue
		}
		if len(categories) > 0 && !categories[p.Category] {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FindProduct(_ context.Context, id uint) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeStore) FindUser(_ context.Context, id uint) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeStore) FindViews(_ context.Context, userID uint, since time.Time) ([]models.ProductView, error) {
	var out []models.ProductView
	for _, v := range f.views {
		if v.UserID != userID || (!since.IsZero() && v.LastViewed.Before(since)) {
			continue
		}
		v.Product = f.products[v.ProductID]
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastViewed.After(out[j].LastViewed) })
	return out, nil
}

func (f *fakeStore) FindOrderItems(_ context.Context, userID uint, since time.Time) ([]models.OrderItem, error) {
	var out []models.OrderItem
	for _, o := range f.orders {
		if o.UserID != userID || (!since.IsZero() && o.CreatedAt.Before(since)) {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID != nil {
				if p, ok := f.products[*item.ProductID]; ok {
					item.Product = &p
				}
			}
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeStore) FindOrders(_ context.Context, userID uint, since time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID != userID || (!since.IsZero() && o.CreatedAt.Before(since)) {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) CountReviews(_ context.Context, userID uint) (models.ReviewStats, error) {
	var stats models.ReviewStats
	var sum int
	for _, r := range f.reviews {
		if r.UserID == userID {
			stats.Count++
			sum += r.Rating
		}
	}
	if stats.Count > 0 {
		stats.AvgRating = float64(sum) / float64(stats.Count)
	}
	return stats, nil
}

func (f *fakeStore) RecordView(_ context.Context, userID, productID uint) (*models.ProductView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.products[productID]; !ok {
		return nil, ErrProductNotFound
	}
	for i := range f.views {
		if f.views[i].UserID == userID && f.views[i].ProductID == productID {
			f.views[i].ViewCount++
			f.views[i].LastViewed = testNow
			v := f.views[i]
			return &v, nil
		}
	}
	f.addView(userID, productID, 1, testNow)
	v := f.views[len(f.views)-1]
	return &v, nil
}

// fakeCompleter returns a canned response or error and records its prompts
type fakeCompleter struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.LLM.Disabled = true
	return cfg
}
