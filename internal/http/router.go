package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tmokoena/eventdash/internal/auth"
	"github.com/tmokoena/eventdash/internal/config"
	"github.com/tmokoena/eventdash/internal/http/handlers"
	"github.com/tmokoena/eventdash/internal/http/middlewares"
	"github.com/tmokoena/eventdash/internal/observability"
	"github.com/tmokoena/eventdash/internal/queue/redisclient"
	"github.com/tmokoena/eventdash/internal/repo/postgres"
)

// NewRouter wires middlewares, repositories and handlers into the API
// surface. redisC may be nil; registration then skips the worker wake and
// relies on the worker's poll loop.
func NewRouter(log *slog.Logger, pool *pgxpool.Pool, redisC *redisclient.Client, cfg config.Config, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("eventdash-api"))
	r.Use(prom.GinHandleMiddleware())

	// repositories
	eventsRepo := postgres.NewEventsRepo(pool, prom)
	registrationsRepo := postgres.NewRegistrationsRepo(pool, prom)
	profilesRepo := postgres.NewProfilesRepo(pool, prom)
	refreshRepo := postgres.NewRefreshTokensRepo(pool)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	jwtManager := auth.NewManager(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLDays)*24*time.Hour,
	)
	authMW := middlewares.NewAuthMiddleware(jwtManager)

	var waker handlers.WorkerWaker
	if redisC != nil {
		waker = redisC
	}

	// handlers
	healthHandler := handlers.NewHealthHandler(pool)
	authHandler := handlers.NewAuthHandler(profilesRepo, jwtManager, refreshRepo, cfg)
	eventsHandler := handlers.NewEventsHandler(eventsRepo)
	registrationsHandler := handlers.NewRegistrationsHandler(registrationsRepo, jobsRepo, waker, prom)
	dashboardHandler := handlers.NewDashboardHandler(eventsRepo, registrationsRepo, cfg.TopEventsLimit)
	profilesHandler := handlers.NewProfilesHandler(profilesRepo)

	// unauthenticated surface
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)
	authGroup := r.Group("/auth")
	authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)

	// staff surface: admins and organisers
	apiLimiter := middlewares.NewRateLimiter(120, time.Minute)
	staff := r.Group("/", authMW.RequireAuth(), apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	staff.GET("/me", profilesHandler.Me)
	staff.GET("/dashboard", dashboardHandler.Fetch)

	staff.GET("/events", eventsHandler.ListEvents)
	staff.GET("/events/:id", eventsHandler.GetEventByID)
	staff.GET("/events/:id/registrations", registrationsHandler.ListForEvent)
	staff.POST("/events/:id/registrations", registrationsHandler.Register)
	staff.DELETE("/events/:id/registrations/:registrationId", registrationsHandler.Unregister)

	// event mutations and user management are admin only; organisers only
	// read and register attendees
	admin := staff.Group("/", authMW.RequireRole("admin"))
	admin.POST("/events", eventsHandler.CreateEvent)
	admin.PUT("/events/:id", eventsHandler.UpdateEvent)
	admin.PATCH("/events/:id/status", eventsHandler.SetEventStatus)
	admin.DELETE("/events/:id", eventsHandler.DeleteEvent)
	admin.GET("/users", profilesHandler.ListUsers)
	admin.POST("/users", profilesHandler.CreateUser)

	log.Info("router wired",
		"env", cfg.Env,
		"redis_wake", redisC != nil,
		"top_events_limit", cfg.TopEventsLimit,
	)

	return r
}
