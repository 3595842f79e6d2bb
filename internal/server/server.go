package server

import (
	"errors"
	"time"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/activity"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/attendance"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/auth"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/config"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/notify"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/ratelimit"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/registration"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/storage"
	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Backends are the optional external services. Nil fields disable the feature.
type Backends struct {
	Broker    notify.Dispatcher
	Presigner storage.Presigner
}

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Log    zerolog.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log zerolog.Logger, backends Backends) *Server {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	app.Use(recover.New())
	app.Use(requestLogger(log))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, log),
		Log:    log,
	}

	registerRoutes(s, backends)
	return s
}

func registerRoutes(s *Server, backends Backends) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	fanout := notify.Fanout{notify.HubDispatcher{Hub: s.Stream}}
	if backends.Broker != nil {
		fanout = append(fanout, backends.Broker)
	}
	sender := notify.NewSender(fanout, s.Log)

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	limiter := ratelimit.Middleware(s.Cfg.CheckInRateRPS, s.Cfg.CheckInRateBurst, auth.CallerID)

	activities := activity.NewService(s.DB, sender, s.Log, s.Cfg.ConflictSuggestions)
	registrations := registration.NewService(s.DB, activities, sender, s.Log)
	checkIns := attendance.NewService(s.DB, activities, attendance.NewTokenCache(s.Redis), s.Log, s.Cfg.GeofenceRadiusM)
	uploads := storage.NewService(s.DB, backends.Presigner, storage.Options{
		Bucket:       s.Cfg.MinioBucket,
		MaxBytes:     s.Cfg.EvidenceMaxBytes,
		AllowedTypes: storage.ParseTypes(s.Cfg.EvidenceTypes),
		Expiry:       time.Duration(s.Cfg.EvidenceUploadExpiryS) * time.Second,
	}, s.Log)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	activity.RegisterRoutes(s.App.Group("/activities"), activities, jwtMiddleware)
	registration.RegisterRoutes(s.App, registrations, jwtMiddleware)
	attendance.RegisterRoutes(s.App, checkIns, jwtMiddleware, limiter)
	storage.RegisterRoutes(s.App.Group("/storage"), uploads, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware, stream.Authorize)
}

func requestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = apperr.Status(apperr.KindOf(err))
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		event := log.Info()
		if status >= fiber.StatusInternalServerError {
			event = log.Error().Err(err)
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}
