package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the authenticated shopper. Accounts are issued by the auth system;
// this service only reads them.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex" json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductView aggregates every view of one product by one user
// One row per (user, product); ViewCount grows and LastViewed moves on repeat views
type ProductView struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_view_user_product;not null" json:"user_id"`
	ProductID  uint      `gorm:"uniqueIndex:idx_view_user_product;not null" json:"product_id"`
	Product    Product   `gorm:"constraint:OnDelete:CASCADE" json:"product"`
	ViewCount  int       `gorm:"default:1" json:"view_count"`
	LastViewed time.Time `gorm:"index:idx_view_last_viewed" json:"last_viewed"`
}

// Order is a placed order; only its history is read by the recommender
type Order struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"index:idx_order_user" json:"user_id"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"totalPrice"`
	IsPaid     bool            `json:"isPaid"`
	CreatedAt  time.Time       `gorm:"index:idx_order_created" json:"createdAt"`
	Items      []OrderItem     `json:"orderItems"`
}

// OrderItem is one order line. ProductID is nullable: a deleted product
// leaves its order history behind.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index:idx_item_order" json:"order_id"`
	Order     *Order          `json:"-"`
	ProductID *uint           `gorm:"index:idx_item_product" json:"product_id"`
	Product   *Product        `gorm:"constraint:OnDelete:SET NULL" json:"product,omitempty"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	Image     string          `json:"image"`
}

// Review is a user's product review; only the author's average rating is used
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"index:idx_review_product" json:"product_id"`
	UserID    uint      `gorm:"index:idx_review_user" json:"user_id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewStats summarises the reviews a user has written
type ReviewStats struct {
	Count     int64   `json:"count"`
	AvgRating float64 `json:"avg_rating"`
}
