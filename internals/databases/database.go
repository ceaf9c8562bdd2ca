package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"scoda_backend/internals/configs"
	attendanceModel "scoda_backend/internals/features/attendance/model"
	notifModel "scoda_backend/internals/features/notifications/model"
	rosterModel "scoda_backend/internals/features/roster/model"
)

var DB *gorm.DB

func ConnectDB() {
	log.Println("[INFO] connecting to PostgreSQL...")

	// behind PgBouncer keep PreferSimpleProtocol and point host/port at the pooler
	sslmode := getenv("DB_SSLMODE", "require")
	timeoutMs := getenv("DB_STATEMENT_TIMEOUT_MS", "3000")
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=scoda&options=-c statement_timeout=%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
		sslmode,
		timeoutMs,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: configs.NewGormLogger(),
	})
	if err != nil {
		log.Fatalf("[ERROR] database connection failed: %v", err)
	}
	DB = db
	log.Println("[INFO] database connected")
}

func TunePool() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("[WARN] pool tune: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(configs.GetEnvInt("DB_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(configs.GetEnvInt("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

// Models lists every table the service owns, in migration order.
func Models() []any {
	out := append([]any{}, rosterModel.All()...)
	out = append(out, attendanceModel.All()...)
	return append(out, &notifModel.NotificationModel{})
}

// AutoMigrate is opt-in (DB_AUTO_MIGRATE=true); production schemas are
// normally managed out of band.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Printf("[INFO] auto migrate done (%d tables)", len(Models()))
	return nil
}

func WarmUpQueries() {
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := Ping(); err != nil {
			log.Printf("[WARN] warm-up ping: %v", err)
			return
		}
		// the hot path of every registration
		var n int64
		if err := DB.Model(&rosterModel.EnrollmentModel{}).Where("enrollment_is_active = ?", true).Count(&n).Error; err != nil {
			log.Printf("[WARN] warm-up query: %v", err)
			return
		}
		log.Printf("[INFO] warm-up done, active enrollments=%d", n)
	}()
}

func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
