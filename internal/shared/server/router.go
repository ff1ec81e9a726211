package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "kyc-backend/internal/auth"
	"kyc-backend/internal/documents"
	"kyc-backend/internal/gateway"
	"kyc-backend/internal/gateway/idv"
	"kyc-backend/internal/shared/config"
	"kyc-backend/internal/shared/metrics"
	"kyc-backend/internal/shared/resilience"
	"kyc-backend/internal/shared/server/middleware"
	"kyc-backend/internal/shared/server/respond"
	"kyc-backend/internal/shared/storage/db"
)

// Deps allows callers (tests, mostly) to override external collaborators.
type Deps struct {
	Verifier gateway.Verifier
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(),
	)

	// Dependencies
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var docRepo documents.DocumentsRepo
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
	} else {
		docRepo = documents.NewMemoryRepo()
	}

	verifier := deps.Verifier
	if verifier == nil {
		client, err := idv.NewClient(cfg.VerifierBaseURL, cfg.VerifierAppKey, cfg.VerifierAppSecret, cfg.VerifierTimeout)
		if err != nil {
			log.Printf("verifier not configured, uploads will not verify: %v", err)
			verifier = gateway.Disabled{}
		} else {
			verifier = client
		}
	}

	docSvc := &documents.Service{
		Repo:     docRepo,
		Verifier: verifier,
		Exec:     resilience.NewExecutor(resilience.DefaultConfig()),
	}
	docHandler := documents.NewHandler(docSvc)
	googleAuthSvc := googleauth.NewGoogleService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	googleAuthSvc.RegisterRoutes(api)
	docHandler.RegisterRoutes(api)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
