package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/attachments"
	googleauth "portfolio-backend/internal/auth"
	"portfolio-backend/internal/portfolios"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/storage/db"
	"portfolio-backend/internal/shared/storage/object"
	localstore "portfolio-backend/internal/shared/storage/object/local"
	s3store "portfolio-backend/internal/shared/storage/object/s3"
	"portfolio-backend/internal/workflow"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT":  {Rate: 5, Burst: 20},
				"GENERATE": {Rate: 0.2, Burst: 3},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/portfolios/generate" {
					return "GENERATE"
				}
				return "DEFAULT"
			},
		}),
	)

	// Dependencies
	store := newObjectStore(cfg)
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

	var portfolioRepo portfolios.Repo
	if sqlDB != nil {
		portfolioRepo = &portfolios.PGRepo{DB: sqlDB}
	} else {
		portfolioRepo = portfolios.NewMemoryRepo()
	}

	runner, err := workflow.NewClient(workflow.Config{
		APIKey:     cfg.DifyAPIKey,
		BaseURL:    cfg.DifyBaseURL,
		WorkflowID: cfg.DifyWorkflowID,
		Timeout:    cfg.DifyTimeout,
	})
	var workflowRunner workflow.Runner
	if err != nil {
		log.Printf("workflow client unavailable: %v", err)
		workflowRunner = unavailableRunner{}
	} else {
		workflowRunner = runner
	}

	portfolioSvc := &portfolios.Service{Repo: portfolioRepo, Store: store, Workflow: workflowRunner}
	portfolioHandler := portfolios.NewHandler(portfolioSvc, portfolioRepo, store)
	attachmentHandler := attachments.NewHandler(store)
	googleAuthSvc := googleauth.NewGoogleService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	googleAuthSvc.RegisterRoutes(api)
	portfolioHandler.RegisterRoutes(api)
	attachmentHandler.RegisterRoutes(api)

	return r
}

func newObjectStore(cfg config.Config) object.ObjectStore {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3store.New(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			log.Printf("failed to init s3 store, falling back to local: %v", err)
		} else {
			return store
		}
	}
	return localstore.New(cfg.LocalStoreDir)
}

// unavailableRunner stands in when the workflow client is misconfigured,
// reporting every call as a transport failure.
type unavailableRunner struct{}

func (unavailableRunner) Run(ctx context.Context, inputs map[string]any, user string) workflow.Envelope {
	return workflow.Envelope{
		StatusCode: 0,
		JSON: map[string]any{
			"error":   "request_error",
			"message": "workflow client not configured",
		},
	}
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
