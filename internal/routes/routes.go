package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gatherly/gatherly/internal/auth"
	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/middleware"
	"github.com/gatherly/gatherly/internal/otp"
	"github.com/gatherly/gatherly/internal/ratelimit"
	"github.com/gatherly/gatherly/internal/sms"
	"github.com/gatherly/gatherly/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	var codeStore otp.Store
	if d.Cache != nil {
		codeStore = otp.NewRedisStore(d.Cache)
	} else {
		codeStore = otp.NewMemoryStore()
	}

	// SMS delivery port
	sender, err := buildSender(d)
	if err != nil {
		return err
	}

	// Services
	issuer := otp.NewIssuer(codeStore, sender, otp.Config{
		CodeLength:  d.Cfg.OTPCodeLength,
		TTL:         d.Cfg.OTPTTL,
		MaxAttempts: d.Cfg.OTPMaxAttempts,
		SMSTimeout:  d.Cfg.SMSTimeout,
	}, d.Logger)

	tokens, err := token.NewService(d.Cfg.TokenSecret, d.Cfg.TokenTTL)
	if err != nil {
		return err
	}

	loginLimiter := buildLimiter(d, "rl:login", d.Cfg.LoginRateLimit)
	resendLimiter := buildLimiter(d, "rl:resend", d.Cfg.ResendRateLimit)
	ipLimiter := buildLimiter(d, "rl:ip:auth", d.Cfg.LoginRateLimit*4)

	authSvc := auth.NewService(identityRepo, issuer, tokens, loginLimiter, resendLimiter, d.Logger)
	authHandler := auth.NewHandler(authSvc)
	guard := auth.NewGuard(tokens, identityRepo)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, authHandler,
		middleware.Audit(d.Logger),
		middleware.ThrottlePerIP(ipLimiter, d.Logger))

	// Protected routes
	protected := api.Group("", middleware.Authenticate(guard))
	RegisterProfileRoutes(protected)
	RegisterAdminRoutes(protected, identityRepo)

	return nil
}

func buildSender(d Deps) (sms.Sender, error) {
	if d.Cfg.SMSProvider == "twilio" {
		client := &http.Client{Timeout: d.Cfg.SMSTimeout}
		return sms.NewTwilioSender(d.Cfg.TwilioAccountSID, d.Cfg.TwilioAuthToken, d.Cfg.TwilioFrom, client)
	}
	return sms.NewLoggerSender(d.Logger), nil
}

func buildLimiter(d Deps, prefix string, max int) ratelimit.Limiter {
	if d.Cache != nil {
		return ratelimit.NewRedisLimiter(d.Cache, prefix, max, d.Cfg.RateLimitWindow)
	}
	return ratelimit.NewMemoryLimiter(max, d.Cfg.RateLimitWindow)
}
