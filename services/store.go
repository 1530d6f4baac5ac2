package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-recommender/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows FindProducts. The zero value matches every product.
type ProductFilter struct {
	InStockOnly bool
	ExcludeIDs  []uint
	Categories  []string
}

// Store is the storage query interface the pipeline reads from.
// A zero since means "all time".
type Store interface {
	FindProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	FindProduct(ctx context.Context, id uint) (*models.Product, error)
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindViews(ctx context.Context, userID uint, since time.Time) ([]models.ProductView, error)
	FindOrderItems(ctx context.Context, userID uint, since time.Time) ([]models.OrderItem, error)
	FindOrders(ctx context.Context, userID uint, since time.Time) ([]models.Order, error)
	CountReviews(ctx context.Context, userID uint) (models.ReviewStats, error)
	RecordView(ctx context.Context, userID, productID uint) (*models.ProductView, error)
}

// GormStore implements Store on top of gorm
type GormStore struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewGormStore creates a store over an opened, migrated database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:    db,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// Catalog
// =============================================================================

// FindProducts returns products matching the filter ordered by id
func (s *GormStore) FindProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.InStockOnly {
		query = query.Where("count_in_stock > ?", 0)
	}
	if len(filter.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filter.ExcludeIDs)
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}

	var products []models.Product
	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return products, nil
}

// FindProduct loads one product by id
func (s *GormStore) FindProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product %d: %w", id, err)
	}
	return &product, nil
}

// FindUser loads one user by id
func (s *GormStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

// =============================================================================
// Activity History
// =============================================================================

// FindViews returns the user's view aggregates touched since the cutoff,
// most recently viewed first, with the product preloaded
func (s *GormStore) FindViews(ctx context.Context, userID uint, since time.Time) ([]models.ProductView, error) {
	query := s.db.WithContext(ctx).Preload("Product").Where("user_id = ?", userID)
	if !since.IsZero() {
		query = query.Where("last_viewed >= ?", since.UTC())
	}

	var views []models.ProductView
	if err := query.Order("last_viewed DESC").Order("id ASC").Find(&views).Error; err != nil {
		return nil, fmt.Errorf("find views for user %d: %w", userID, err)
	}
	return views, nil
}

// FindOrderItems returns line items of the user's orders placed since the cutoff
func (s *GormStore) FindOrderItems(ctx context.Context, userID uint, since time.Time) ([]models.OrderItem, error) {
	query := s.db.WithContext(ctx).
		Select("order_items.*").
		Preload("Product").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ?", userID)
	if !since.IsZero() {
		query = query.Where("orders.created_at >= ?", since.UTC())
	}

	var items []models.OrderItem
	if err := query.Order("order_items.id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("find order items for user %d: %w", userID, err)
	}
	return items, nil
}

// FindOrders returns the user's orders placed since the cutoff, oldest first
func (s *GormStore) FindOrders(ctx context.Context, userID uint, since time.Time) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since.UTC())
	}

	var orders []models.Order
	if err := query.Order("created_at ASC").Order("id ASC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("find orders for user %d: %w", userID, err)
	}
	return orders, nil
}

// CountReviews returns how many reviews the user wrote and their mean rating
func (s *GormStore) CountReviews(ctx context.Context, userID uint) (models.ReviewStats, error) {
	var stats models.ReviewStats
	err := s.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS avg_rating").
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return models.ReviewStats{}, fmt.Errorf("count reviews for user %d: %w", userID, err)
	}
	return stats, nil
}

// RecordView creates the (user, product) view aggregate with a count of 1,
// or increments it and moves last_viewed to now
func (s *GormStore) RecordView(ctx context.Context, userID, productID uint) (*models.ProductView, error) {
	if _, err := s.FindProduct(ctx, productID); err != nil {
		return nil, err
	}

	now := s.nowFn()
	row := models.ProductView{
		UserID:     userID,
		ProductID:  productID,
		ViewCount:  1,
		LastViewed: now,
	}

	var view models.ProductView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Product").Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"view_count":  gorm.Expr("product_views.view_count + 1"),
				"last_viewed": now,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&view).Error
	})
	if err != nil {
		return nil, fmt.Errorf("record view of product %d by user %d: %w", productID, userID, err)
	}
	return &view, nil
}
