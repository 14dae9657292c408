package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"wizard-backend/common"
	"wizard-backend/handlers"
	"wizard-backend/middleware"
	"wizard-backend/services"
	"wizard-backend/storage"
	"wizard-backend/wizard"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func main() {
	// Set up structured logging with debug level
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	// Load environment variables
	if _, err := os.Stat(common.PRIVATE_CREDENTIALS_DOTENV); err == nil {
		if err := godotenv.Load(common.PRIVATE_CREDENTIALS_DOTENV); err != nil {
			slog.Error("Failed to load .env.private file", "error", err)
			os.Exit(1)
		}
	}

	cfgDir := getEnv("CONFIG_DIR", common.DEFAULT_CONFIG_DIR)

	cfg, err := common.LoadConfig(cfgDir)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute

	// Initialize the wizard state store
	var store storage.StateStore
	if cfg.RedisAddr == "" || cfg.RedisAddr == "memory" {
		slog.Warn("No Redis address configured, wizard state will not survive restarts")
		store = storage.NewMemoryStore(sessionTTL)
	} else {
		redisStore, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix, sessionTTL)
		if err != nil {
			slog.Error("Failed to initialize Redis state store", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	}

	// External gateways
	catalogSvc := services.NewCatalogService(cfg.CatalogServiceURL, cfg.CatalogAPIKey)
	orderSvc := services.NewOrderService(cfg.OrderServiceURL, cfg.OrderAPIKey)

	orch := wizard.New(store, catalogSvc, orderSvc)
	wizardHandler := handlers.NewWizardHandler(cfg, orch)

	// Initialize Gin router
	r := gin.Default()

	env := getEnv("APP_ENV", "production")
	trustedProxies := getEnv("TRUSTED_PROXIES", "")
	corsOrigins := getEnv("CORS_ORIGINS", "")

	if env != "development" && trustedProxies == "" {
		slog.Error("In production mode, TRUSTED_PROXIES must be set")
		os.Exit(1)
	} else if trustedProxies != "" {
		slog.Info("Setting trusted proxies", "proxies", trustedProxies)
		proxies := strings.Split(trustedProxies, ",")
		if err := r.SetTrustedProxies(proxies); err != nil {
			slog.Error("Failed to set trusted proxies", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("No trusted proxies set (TRUSTED_PROXIES not defined)")
	}

	// Configure CORS
	corsConfig := cors.DefaultConfig()

	if env != "development" && corsOrigins == "" {
		slog.Error("In production mode, CORS_ORIGINS must be set")
		os.Exit(1)
	} else if corsOrigins != "" {
		slog.Info("CORS origins set from CORS_ORIGINS")
		corsConfig.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		slog.Warn("Using default origin function in non-production mode (CORS_ORIGINS not defined)")
		corsConfig.AllowOriginFunc = func(origin string) bool {
			if origin == "http://localhost" || strings.HasPrefix(origin, "http://localhost:") {
				return true
			}
			return false
		}
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Wizard-Frontend-Key"}
	r.Use(cors.New(corsConfig))

	// Wizard API routes
	api := r.Group("/api/v1/wizard")
	if cfg.ApiFrontendKey != "" {
		api.Use(middleware.APIFrontendKeyAuthMiddleware(cfg.ApiFrontendKey))
	} else {
		slog.Warn("No frontend API key configured, wizard API is unauthenticated")
	}
	wizardHandler.RegisterRoutes(api)

	slog.Info("Server starting", "addr", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
