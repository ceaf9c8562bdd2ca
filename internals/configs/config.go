package configs

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

var (
	JWTSecret string
	APIKey    string
	// actor recorded for requests authenticated with APIKey
	APIUserID uuid.UUID
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("[WARN] .env not found, using system environment")
		} else {
			log.Println("[INFO] .env loaded")
		}
	} else {
		log.Println("[INFO] running on Railway, using system environment")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	APIKey = GetEnv("SCODA_API_KEY")

	if JWTSecret == "" {
		log.Println("[ERROR] JWT_SECRET is not set")
	} else {
		log.Println("[INFO] JWT_SECRET loaded")
	}
	if APIKey == "" {
		log.Println("[WARN] SCODA_API_KEY is not set, API key access disabled")
	}

	APIUserID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("scoda:api-key"))
	if raw := strings.TrimSpace(GetEnv("SCODA_API_USER_ID")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Printf("[WARN] SCODA_API_USER_ID=%q is not a uuid, using %s", raw, APIUserID)
		} else {
			APIUserID = id
		}
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[WARN] %s=%q is not a valid integer, using %d", key, v, def)
		return def
	}
	return n
}

func GetEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a valid bool, using %v", key, v, def)
		return def
	}
	return b
}

// GetEnvDuration accepts Go durations ("10s", "1m30s") or plain seconds ("10").
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("[WARN] %s=%q is not a valid duration, using %s", key, v, def)
	return def
}

// =======================
// SETTINGS
// =======================

type NotifySettings struct {
	Debounce  time.Duration
	Cooldown  time.Duration
	Workers   int
	QueueSize int
}

type SMTPSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	UseSSL   bool
}

func (s SMTPSettings) Enabled() bool { return s.Host != "" && s.From != "" }

type Settings struct {
	Port                 string
	SchoolTimezone       string
	AuthorizedPersonsMax int
	ProvisionalSupersede bool
	SeedAbsentCron       string
	Notify               NotifySettings
	SMTP                 SMTPSettings
}

func LoadSettings() Settings {
	s := Settings{
		Port:                 GetEnv("PORT", "3000"),
		SchoolTimezone:       GetEnv("SCHOOL_TIMEZONE", "America/Santiago"),
		AuthorizedPersonsMax: GetEnvInt("AUTHORIZED_PERSONS_MAX", 3),
		ProvisionalSupersede: GetEnvBool("ATTENDANCE_PROVISIONAL_SUPERSEDE", false),
		SeedAbsentCron:       strings.TrimSpace(GetEnv("CRON_SEED_ABSENT")),
		Notify: NotifySettings{
			Debounce:  GetEnvDuration("NOTIFY_DEBOUNCE", 10*time.Second),
			Cooldown:  GetEnvDuration("NOTIFY_COOLDOWN", 5*time.Second),
			Workers:   GetEnvInt("NOTIFY_WORKERS", 4),
			QueueSize: GetEnvInt("NOTIFY_QUEUE_SIZE", 256),
		},
		SMTP: SMTPSettings{
			Host:     GetEnv("EMAIL_HOST"),
			Port:     GetEnvInt("EMAIL_PORT", 465),
			User:     GetEnv("EMAIL_HOST_USER"),
			Password: GetEnv("EMAIL_HOST_PASSWORD"),
			UseSSL:   GetEnvBool("EMAIL_USE_SSL", true),
		},
	}
	s.SMTP.From = GetEnv("DEFAULT_FROM_EMAIL", s.SMTP.User)

	if s.Notify.Workers < 1 {
		s.Notify.Workers = 1
	}
	if s.AuthorizedPersonsMax < 1 {
		s.AuthorizedPersonsMax = 1
	}
	if s.SeedAbsentCron != "" && !s.ProvisionalSupersede {
		log.Println("[WARN] CRON_SEED_ABSENT is set while ATTENDANCE_PROVISIONAL_SUPERSEDE=false: seeded ABSENT rows will block every later status of the day")
	}
	return s
}

// Location resolves the school timezone, falling back to UTC.
func (s Settings) Location() *time.Location {
	if loc, err := time.LoadLocation(s.SchoolTimezone); err == nil {
		return loc
	}
	log.Printf("[WARN] unknown SCHOOL_TIMEZONE %q, falling back to UTC", s.SchoolTimezone)
	return time.UTC
}

// =======================
// DATABASE CONNECTOR
// =======================
func InitSeederDB() *gorm.DB {
	dbUser := GetEnv("DB_USER")
	dbPassword := GetEnv("DB_PASSWORD")
	dbHost := GetEnv("DB_HOST")
	dbPort := GetEnv("DB_PORT")
	dbName := GetEnv("DB_NAME")
	dbSSL := GetEnv("DB_SSLMODE", "require")

	dsn := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPassword, dbHost, dbPort, dbName, dbSSL)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: NewGormLogger(),
	})
	if err != nil {
		log.Fatalf("[ERROR] seeder database connection failed: %v", err)
	}
	log.Println("[INFO] seeder database connected")
	return db
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	level := gormLogger.Warn
	if GetEnvBool("DB_LOG_QUERIES", false) {
		level = gormLogger.Info
	}
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      level,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	n := *l
	n.LogLevel = level
	return &n
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Printf("[INFO] "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Printf("[WARN] "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Printf("[ERROR] "+msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	switch {
	case err != nil && err != gorm.ErrRecordNotFound && l.LogLevel >= gormLogger.Error:
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormLogger.Info:
		log.Printf("[QUERY] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
