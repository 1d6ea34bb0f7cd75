package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shieldnetlabs/shieldnet_backend/config"
	"github.com/shieldnetlabs/shieldnet_backend/locus"
	"github.com/shieldnetlabs/shieldnet_backend/middlewares"
	"github.com/shieldnetlabs/shieldnet_backend/storage"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
	"github.com/shieldnetlabs/shieldnet_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func init() {
	// "notblank" rejects whitespace-only strings that pass "required".
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	}
}

// app bundles the process-wide collaborators the handlers close over.
type app struct {
	pipeline *workflow.DecisionPipeline
	store    *storage.ResultStore
	registry *storage.ThreatRegistry
	ledger   *storage.LedgerAccount
	wallet   *locus.WalletClient
	logger   *logrus.Logger
}

// RateLimiter throttles by client IP using a Redis counter per window.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// locusPaymentSender adapts the Locus client to the pipeline's payment
// contract.
type locusPaymentSender struct {
	client *locus.PaymentClient
}

func (s *locusPaymentSender) Pay(ctx context.Context, amount decimal.Decimal, invoiceId, vendor string) (bool, string, error) {
	result, err := s.client.Pay(ctx, amount, invoiceId, vendor)
	if err != nil {
		return false, "", err
	}
	return result.Success, result.Message, nil
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	a, err := newApp(sigCtx, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field": "startup",
		}).Fatal("initialization failed: " + err.Error())
	}

	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDRESS")})
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/invoices/analyze", analyzeInvoiceHandler(a))
	api.POST("/invoices/analyze/stream", analyzeInvoiceStreamHandler(a))
	api.GET("/invoices/history", invoiceHistoryHandler(a))
	api.GET("/transactions", listTransactionsHandler(a))
	api.GET("/transactions/export", exportTransactionsHandler(a))
	api.GET("/threats/analytics", threatAnalyticsHandler(a))
	api.POST("/threats/report", reportThreatHandler(a))
	api.GET("/wallet/balance", walletBalanceHandler(a))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"info": "server started",
	}).Info("listening on http://localhost:", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests; in-flight analyses either finish or abandon.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	a.store.Close()
	a.registry.Close()
	a.ledger.Close()
	config.CloseThreatFeed()
}

// newApp wires the stores, the oracle and the optional external clients.
func newApp(ctx context.Context, logger *logrus.Logger) (*app, error) {
	oracle, err := analyzerOracle(ctx)
	if err != nil {
		return nil, err
	}

	store := storage.NewResultStore()
	registry := storage.NewThreatRegistry(config.DedupThreatReports())
	ledger := storage.NewLedgerAccount(config.InitialWalletBalance())
	artifacts := storage.NewArtifactStore(config.UploadDir(), logger)

	var payments workflow.PaymentSender
	if paymentClient, err := locus.NewPaymentClient(); err != nil {
		logger.WithFields(logrus.Fields{
			"field": "startup",
		}).Warn("payment dispatch disabled: " + err.Error())
	} else {
		payments = &locusPaymentSender{client: paymentClient}
	}

	var publishThreat workflow.ThreatPublishFunc
	if config.ThreatFeedEnabled() {
		publishThreat = config.PublishThreatReport
	} else {
		logger.WithFields(logrus.Fields{
			"field": "startup",
		}).Info("threat feed disabled; blocked invoices recorded locally only")
	}

	var wallet *locus.WalletClient
	if wallet, err = locus.NewWalletClient(); err != nil {
		logger.WithFields(logrus.Fields{
			"field": "startup",
		}).Warn("on-chain balance query disabled: " + err.Error())
		wallet = nil
	}

	pipeline := workflow.NewDecisionPipeline(workflow.PipelineOptions{
		Oracle:           oracle,
		Store:            store,
		Registry:         registry,
		Ledger:           ledger,
		Artifacts:        artifacts,
		Payments:         payments,
		PublishThreat:    publishThreat,
		StrictValidation: config.StrictDecisionValidation(),
		Logger:           logger,
	})

	return &app{
		pipeline: pipeline,
		store:    store,
		registry: registry,
		ledger:   ledger,
		wallet:   wallet,
		logger:   logger,
	}, nil
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		// Redis unavailable: fail open rather than rejecting traffic.
		c.Next()
		return
	}

	if exists == 0 {
		if err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err(); err != nil {
			c.Next()
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.Next()
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
