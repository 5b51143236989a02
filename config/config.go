package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"food-ordering-api/logger"
	"food-ordering-api/models"
	"food-ordering-api/payment"
	"food-ordering-api/tracking"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Process-wide dependencies, set up once in main
var (
	DB        *gorm.DB
	JWTSecret = []byte(getEnv("JWT_SECRET", "food_ordering_super_secret_2024"))
	App       = defaults()
	Payments  payment.Processor
	Tracker   *tracking.Hub
	Log       = logger.NewLogger("food-ordering-api")
)

type Config struct {
	Port                   string
	GinMode                string
	DBDriver               string
	DBSource               string
	JWTSecret              string
	JWTTTL                 time.Duration
	StripeSecretKey        string
	StripeWebhookSecret    string
	Currency               string
	RequireVerifiedPayment bool
	AdminEmail             string
	AdminPassword          string
	CORSOrigins            []string
}

func defaults() *Config {
	return &Config{
		Port:     "8080",
		DBDriver: "sqlite",
		DBSource: "food_ordering.db",
		JWTTTL:   24 * time.Hour,
		Currency: "usd",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// Load reads an optional .env file and then the environment. A missing .env
// is fine; a malformed one is not.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("parse JWT_TTL: %w", err)
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		GinMode:                os.Getenv("GIN_MODE"),
		DBDriver:               strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBSource:               getEnv("DB_SOURCE", "food_ordering.db"),
		JWTSecret:              getEnv("JWT_SECRET", "food_ordering_super_secret_2024"),
		JWTTTL:                 ttl,
		StripeSecretKey:        os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:    os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:               strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		RequireVerifiedPayment: getBool("REQUIRE_VERIFIED_PAYMENT", false),
		AdminEmail:             os.Getenv("ADMIN_EMAIL"),
		AdminPassword:          os.Getenv("ADMIN_PASSWORD"),
		CORSOrigins:            splitList(getEnv("CORS_ORIGINS", "*")),
	}

	App = cfg
	JWTSecret = []byte(cfg.JWTSecret)
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Open connects to the configured database driver
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
}

// Migrate creates or updates all tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.MenuRating{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
		&models.PaymentRecord{},
	)
}

// InitDB opens and migrates the database and stores it in DB
func InitDB(cfg *Config) error {
	db, err := Open(cfg.DBDriver, cfg.DBSource)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	DB = db
	return nil
}

// OpenInMemory returns a migrated in-memory sqlite database. The pool is
// capped at one connection because each sqlite :memory: connection is its own
// database.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// SeedAdmin creates the admin account from ADMIN_EMAIL/ADMIN_PASSWORD once.
// It returns false when nothing was created.
func SeedAdmin(db *gorm.DB, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	admin := models.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, err
	}
	return true, nil
}
