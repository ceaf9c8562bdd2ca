package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/utils"

	"scoda_backend/internals/configs"
	database "scoda_backend/internals/databases"
	attendanceCtl "scoda_backend/internals/features/attendance/controller"
	attendanceScheduler "scoda_backend/internals/features/attendance/scheduler"
	attendanceService "scoda_backend/internals/features/attendance/service"
	"scoda_backend/internals/features/notifications/batcher"
	"scoda_backend/internals/features/notifications/sender"
	rosterService "scoda_backend/internals/features/roster/service"
	helper "scoda_backend/internals/helpers"
	"scoda_backend/internals/helpers/clock"
	"scoda_backend/internals/helpers/dbtime"
	helperOSS "scoda_backend/internals/helpers/oss"
	middlewares "scoda_backend/internals/middlewares"
	routes "scoda_backend/internals/route"
	"scoda_backend/internals/seeds"
)

func main() {
	configs.LoadEnv()
	settings := configs.LoadSettings()
	loc := settings.Location()
	dbtime.SetDefaultLocation(loc)

	app := fiber.New(fiber.Config{
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ErrorHandler:            helper.FromFiberError,
		BodyLimit:               int(helperOSS.MaxUploadSize) + 512*1024,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// request id + timeout guard aligned with the DB statement_timeout
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	middlewares.SetupMiddlewares(app, settings.SchoolTimezone)

	database.ConnectDB()
	database.TunePool()
	if configs.GetEnvBool("DB_AUTO_MIGRATE", false) {
		if err := database.AutoMigrate(database.DB); err != nil {
			log.Fatalf("[ERROR] %v", err)
		}
	}
	database.WarmUpQueries()

	if configs.GetEnvBool("SEED_ROSTER", false) {
		seeds.RunAllSeeds(database.DB, configs.GetEnv("SEED_ROSTER_FILE"), settings.AuthorizedPersonsMax)
	}

	roster := rosterService.New(database.DB, settings.AuthorizedPersonsMax)

	// notices go to the inbox always, and by email when SMTP is configured
	var mail batcher.Sender = sender.LogSender{}
	if settings.SMTP.Enabled() {
		mail = sender.NewMailSender(settings.SMTP)
	} else {
		log.Println("[WARN] EMAIL_HOST / DEFAULT_FROM_EMAIL not set, pickup emails are only logged")
	}
	notifier := batcher.New(batcher.Config{
		Debounce:  settings.Notify.Debounce,
		Cooldown:  settings.Notify.Cooldown,
		Workers:   settings.Notify.Workers,
		QueueSize: settings.Notify.QueueSize,
	}, sender.Multi{mail, sender.NewInboxSender(database.DB)}, batcher.RosterResolver{Contacts: roster}, clock.Real())

	notifyCtx, stopNotify := context.WithCancel(context.Background())
	defer stopNotify()
	notifier.Start(notifyCtx)

	transitions := attendanceService.NewTransitionService(attendanceService.Deps{
		DB:             database.DB,
		Roster:         roster,
		Notifier:       notifier,
		Location:       loc,
		AllowSupersede: settings.ProvisionalSupersede,
	})
	seeder := attendanceService.NewAbsentSeeder(transitions.Store, roster, transitions.Clock, loc)

	seedCron, err := attendanceScheduler.StartSeedAbsent(seeder, settings.SeedAbsentCron, loc)
	if err != nil {
		log.Fatalf("[ERROR] CRON_SEED_ABSENT: %v", err)
	}

	var blob helperOSS.BlobService
	if oss, err := helperOSS.NewOSSBlobServiceFromEnv(configs.GetEnv("ALI_OSS_PREFIX", "scoda")); err != nil {
		log.Printf("[WARN] evidence uploads disabled: %v", err)
	} else {
		blob = oss
	}

	routes.SetupRoutes(app, database.DB, routes.Deps{
		Attendance: attendanceCtl.NewAttendanceController(transitions, seeder, blob, nil),
		Stats:      notifier,
		JWTSecret:  configs.JWTSecret,
		APIKey:     configs.APIKey,
		APIUserID:  configs.APIUserID,
	})

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		log.Printf("[INFO] listening on :%s (school tz %s)", settings.Port, loc)
		if err := app.Listen("0.0.0.0:" + settings.Port); err != nil {
			log.Fatalf("[ERROR] server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = app.ShutdownWithContext(ctx)
	if seedCron != nil {
		<-seedCron.Stop().Done()
	}
	if err := notifier.Close(ctx); err != nil {
		log.Printf("[WARN] batcher close: %v", err)
	}
	database.Close()
}
