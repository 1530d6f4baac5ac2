package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"shop-recommender/config"
	"shop-recommender/database"
	"shop-recommender/logging"
	"shop-recommender/models"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
)

var storeSeq atomic.Int64

func newTestGormStore(t *testing.T) (*GormStore, *gorm.DB) {
	t.Helper()
	cfg := config.DBConfig{
		Driver:   "sqlite",
		Path:     fmt.Sprintf("file:store_%d?mode=memory&cache=shared", storeSeq.Add(1)),
		MaxConns: 1,
	}
	db, err := database.Open(context.Background(), cfg, "disabled", logging.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := NewGormStore(db)
	store.nowFn = func() time.Time { return testNow }
	return store, db
}

func seedProduct(db *gorm.DB, name, category string, price int64, stock int) models.Product {
	p := models.Product{
		Name:         name,
		Category:     category,
		Brand:        "Acme",
		Price:        decimal.NewFromInt(price),
		CountInStock: stock,
	}
	So(db.Create(&p).Error, ShouldBeNil)
	return p
}

func seedOrder(db *gorm.DB, userID uint, at time.Time, products ...models.Product) {
	order := models.Order{UserID: userID, IsPaid: true, CreatedAt: at}
	for _, p := range products {
		order.Items = append(order.Items, models.OrderItem{ProductID: &p.ID, Name: p.Name, Qty: 1, Price: p.Price})
	}
	So(db.Create(&order).Error, ShouldBeNil)
}

func TestGormStore(t *testing.T) {
	Convey("Given a gorm store on sqlite", t, func() {
		store, db := newTestGormStore(t)
		ctx := context.Background()

		user := models.User{Username: "shopper"}
		So(db.Create(&user).Error, ShouldBeNil)

		shoe := seedProduct(db, "shoe", "Shoes", 30000, 5)
		bag := seedProduct(db, "bag", "Bags", 60000, 0)
		hat := seedProduct(db, "hat", "Hats", 10000, 2)

		Convey("When a view is recorded twice", func() {
			first, err := store.RecordView(ctx, user.ID, shoe.ID)
			So(err, ShouldBeNil)
			second, err := store.RecordView(ctx, user.ID, shoe.ID)
			So(err, ShouldBeNil)

			Convey("Then one aggregate row counts both views", func() {
				So(first.ViewCount, ShouldEqual, 1)
				So(second.ViewCount, ShouldEqual, 2)
				So(second.ID, ShouldEqual, first.ID)
				So(second.LastViewed.Equal(testNow), ShouldBeTrue)

				var rows int64
				db.Model(&models.ProductView{}).Count(&rows)
				So(rows, ShouldEqual, int64(1))
			})

			Convey("Then FindViews returns it with the product", func() {
				views, err := store.FindViews(ctx, user.ID, time.Time{})
				So(err, ShouldBeNil)
				So(len(views), ShouldEqual, 1)
				So(views[0].Product.Name, ShouldEqual, "shoe")
			})
		})

		Convey("When a view is recorded for an unknown product", func() {
			_, err := store.RecordView(ctx, user.ID, 9999)

			Convey("Then ErrProductNotFound is returned", func() {
				So(errors.Is(err, ErrProductNotFound), ShouldBeTrue)
			})
		})

		Convey("When views are filtered by time", func() {
			So(db.Create(&models.ProductView{UserID: user.ID, ProductID: shoe.ID, ViewCount: 3, LastViewed: daysAgo(2)}).Error, ShouldBeNil)
			So(db.Create(&models.ProductView{UserID: user.ID, ProductID: hat.ID, ViewCount: 1, LastViewed: daysAgo(200)}).Error, ShouldBeNil)

			recent, err := store.FindViews(ctx, user.ID, daysAgo(90))
			So(err, ShouldBeNil)
			all, err := store.FindViews(ctx, user.ID, time.Time{})
			So(err, ShouldBeNil)

			Convey("Then the cutoff applies and newest comes first", func() {
				So(len(recent), ShouldEqual, 1)
				So(recent[0].ProductID, ShouldEqual, shoe.ID)
				So(len(all), ShouldEqual, 2)
				So(all[0].ProductID, ShouldEqual, shoe.ID)
			})
		})

		Convey("When orders span the window", func() {
			seedOrder(db, user.ID, daysAgo(200), hat)
			seedOrder(db, user.ID, daysAgo(10), shoe, bag)

			Convey("Then FindOrderItems honours the cutoff", func() {
				recent, err := store.FindOrderItems(ctx, user.ID, daysAgo(90))
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 2)
				So(recent[0].Product, ShouldNotBeNil)
				So(recent[0].Product.Name, ShouldEqual, "shoe")

				all, err := store.FindOrderItems(ctx, user.ID, time.Time{})
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 3)
			})

			Convey("Then a cutoff in another zone selects the same instant", func() {
				kst := time.FixedZone("KST", 9*60*60)
				edge := daysAgo(90)
				seedOrder(db, user.ID, edge.Add(3*time.Hour), hat)
				So(db.Create(&models.ProductView{UserID: user.ID, ProductID: bag.ID, ViewCount: 1, LastViewed: edge.Add(3 * time.Hour)}).Error, ShouldBeNil)

				items, err := store.FindOrderItems(ctx, user.ID, edge.In(kst))
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 3)

				orders, err := store.FindOrders(ctx, user.ID, edge.In(kst))
				So(err, ShouldBeNil)
				So(len(orders), ShouldEqual, 2)

				views, err := store.FindViews(ctx, user.ID, edge.In(kst))
				So(err, ShouldBeNil)
				So(len(views), ShouldEqual, 1)
			})

			Convey("Then FindOrders lists oldest first", func() {
				orders, err := store.FindOrders(ctx, user.ID, time.Time{})
				So(err, ShouldBeNil)
				So(len(orders), ShouldEqual, 2)
				So(orders[0].CreatedAt.Before(orders[1].CreatedAt), ShouldBeTrue)
			})
		})

		Convey("When products are filtered", func() {
			products, err := store.FindProducts(ctx, ProductFilter{
				InStockOnly: true,
				ExcludeIDs:  []uint{hat.ID},
			})

			Convey("Then out-of-stock and excluded products are dropped", func() {
				So(err, ShouldBeNil)
				So(len(products), ShouldEqual, 1)
				So(products[0].ID, ShouldEqual, shoe.ID)
			})

			Convey("Then a category filter narrows further", func() {
				byCategory, err := store.FindProducts(ctx, ProductFilter{Categories: []string{"Bags", "Hats"}})
				So(err, ShouldBeNil)
				So(len(byCategory), ShouldEqual, 2)
				So(byCategory[0].ID, ShouldEqual, bag.ID)
			})
		})

		Convey("When reviews are counted", func() {
			for _, rating := range []int{4, 5, 5} {
				So(db.Create(&models.Review{UserID: user.ID, ProductID: shoe.ID, Rating: rating}).Error, ShouldBeNil)
			}
			stats, err := store.CountReviews(ctx, user.ID)
			none, noneErr := store.CountReviews(ctx, user.ID+1)

			Convey("Then count and mean are returned", func() {
				So(err, ShouldBeNil)
				So(stats.Count, ShouldEqual, int64(3))
				So(stats.AvgRating, ShouldAlmostEqual, 4.6667, 0.001)
				So(noneErr, ShouldBeNil)
				So(none.Count, ShouldEqual, int64(0))
				So(none.AvgRating, ShouldEqual, 0.0)
			})
		})

		Convey("When an unknown user is looked up", func() {
			_, err := store.FindUser(ctx, user.ID+100)

			Convey("Then ErrUserNotFound is returned", func() {
				So(errors.Is(err, ErrUserNotFound), ShouldBeTrue)
			})
		})
	})
}
