package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"shop-recommender/config"
	"shop-recommender/logging"
	"shop-recommender/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DemoUsername is the account SeedDemoActivity creates
const DemoUsername = "demo"

const catalogBatchSize = 100

// Open connects to the configured database and validates the pool
func Open(ctx context.Context, cfg config.DBConfig, logLevel string, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("invalid db driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.New(gormWriter{log: log}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logging.GormLevel(logLevel),
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(max(cfg.MaxConns/2, 1))
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().Str("driver", cfg.Driver).Msg("database connected")
	return db, nil
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.ProductView{},
		&models.Order{},
		&models.OrderItem{},
		&models.Review{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// LoadCatalog loads products from a JSON array file into an empty products
// table. A missing file is skipped.
func LoadCatalog(ctx context.Context, db *gorm.DB, filePath string, log zerolog.Logger) (int, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		log.Info().Int64("products", count).Msg("catalog already loaded, skipping")
		return 0, nil
	}

	raw, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", filePath).Msg("catalog file not found, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return 0, fmt.Errorf("failed to parse catalog: %w", err)
	}

	loaded, failed := 0, 0
	for i := 0; i < len(products); i += catalogBatchSize {
		batch := products[i:min(i+catalogBatchSize, len(products))]
		if err := db.WithContext(ctx).Create(&batch).Error; err != nil {
			log.Error().Err(err).Int("batch_start", i).Msg("failed to insert catalog batch")
			failed += len(batch)
			continue
		}
		loaded += len(batch)
	}

	log.Info().Int("loaded", loaded).Int("failed", failed).Str("path", filePath).Msg("catalog load complete")
	return loaded, nil
}

// SeedDemoActivity creates the demo user with a spread of views, orders and
// reviews over the first catalog products. It is a no-op when the demo user
// exists or the catalog is empty.
func SeedDemoActivity(ctx context.Context, db *gorm.DB, log zerolog.Logger) (*models.User, error) {
	tx := db.WithContext(ctx)

	var existing models.User
	err := tx.Where("username = ?", DemoUsername).First(&existing).Error
	if err == nil {
		log.Info().Uint("user_id", existing.ID).Msg("demo user already seeded, skipping")
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find demo user: %w", err)
	}

	var products []models.Product
	if err := tx.Order("id ASC").Limit(30).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products for seeding: %w", err)
	}
	if len(products) == 0 {
		log.Warn().Msg("no products found, demo activity not seeded")
		return nil, nil
	}

	user := models.User{Username: DemoUsername, Email: "demo@example.com"}
	now := time.Now().UTC()

	err = tx.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		// Every third product is viewed, more often the earlier it appears
		var views []models.ProductView
		for i := 0; i < len(products); i += 3 {
			views = append(views, models.ProductView{
				UserID:     user.ID,
				ProductID:  products[i].ID,
				ViewCount:  1 + (len(products)-i)%5,
				LastViewed: now.Add(-time.Duration(i*6) * time.Hour),
			})
		}
		if len(views) > 0 {
			if err := tx.Omit("Product").Create(&views).Error; err != nil {
				return err
			}
		}

		// One order every two weeks, each buying a single product
		for n, i := 0, 1; n < 4 && i < len(products); n, i = n+1, i+4 {
			p := products[i]
			order := models.Order{
				UserID:     user.ID,
				TotalPrice: p.Price,
				IsPaid:     true,
				CreatedAt:  now.AddDate(0, 0, -14*(n+1)),
				Items: []models.OrderItem{{
					ProductID: &p.ID,
					Name:      p.Name,
					Qty:       1,
					Price:     p.Price,
					Image:     p.Image,
				}},
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			review := models.Review{
				ProductID: p.ID,
				UserID:    user.ID,
				Name:      user.Username,
				Rating:    4 + n%2,
				Comment:   "만족스러운 구매였습니다.",
				CreatedAt: order.CreatedAt.AddDate(0, 0, 3),
			}
			if err := tx.Create(&review).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed demo activity: %w", err)
	}

	log.Info().Uint("user_id", user.ID).Int("products", len(products)).Msg("demo activity seeded")
	return &user, nil
}

// gormWriter routes gorm's log lines through zerolog
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Info().Str("component", "gorm").Msgf(format, args...)
}
