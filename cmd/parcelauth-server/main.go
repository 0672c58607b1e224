// Command parcelauth-server runs the session lifecycle service as a
// standalone HTTP server: the /auth endpoints, bearer-guarded demo
// route, health, and metrics.
//
// Configuration comes from flags and environment:
//
//	-addr        listen address (default :8080)
//	-redis-addr  redis address; empty falls back to REDIS_ADDR, then to
//	             an embedded miniredis (demo only)
//	-production  enable production hardening checks
//
//	AUTH_SECRET  signing secret, at least 32 bytes (required with -production)
//
// The built-in user provider is an in-memory demo seed
// (alice@example.com / correct-horse); real deployments implement
// parcelauth.UserProvider against their user database.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	parcelauth "github.com/capstone/parcelauth"
	"github.com/capstone/parcelauth/httpapi"
	promexport "github.com/capstone/parcelauth/metrics/export/prometheus"
	"github.com/capstone/parcelauth/middleware"
	"github.com/capstone/parcelauth/password"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "status"})
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "listen address")
		redisAddr  = flag.String("redis-addr", "", "redis address; empty uses REDIS_ADDR or embedded miniredis")
		production = flag.Bool("production", false, "enable production hardening checks")
	)
	flag.Parse()

	cfg := parcelauth.DefaultConfig()
	cfg.Security.ProductionMode = *production
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	secret := os.Getenv("AUTH_SECRET")
	switch {
	case secret != "":
		cfg.Token.Secret = []byte(secret)
	case *production:
		log.Fatal("AUTH_SECRET is required in production mode")
	default:
		cfg.Token.Secret = randomSecret()
		log.Print("AUTH_SECRET not set, generated an ephemeral dev secret; tokens will not survive restarts")
	}

	if !*production {
		// Local dev runs over plain HTTP, where Secure cookies vanish.
		cfg.Cookie.Secure = false
		cfg.Cookie.SameSite = http.SameSiteLaxMode
	}

	rdb, cleanup, err := connectRedis(*redisAddr)
	if err != nil {
		log.Fatal("redis: ", err)
	}
	defer cleanup()

	provider, err := seedDemoProvider(cfg)
	if err != nil {
		log.Fatal("seed provider: ", err)
	}

	engine, err := parcelauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(provider).
		WithAuditSink(parcelauth.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		log.Fatal("engine build: ", err)
	}
	defer engine.Close()

	server := &http.Server{
		Addr:              *addr,
		Handler:           buildRouter(engine, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func buildRouter(engine *parcelauth.Engine, cfg parcelauth.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Mount("/", httpapi.NewHandler(engine, cfg).Routes())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := engine.Health(req.Context()); err != nil {
			http.Error(w, "ledger unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Method(http.MethodGet, "/metrics/engine", promexport.NewPrometheusExporter(engine).Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(engine))
		r.Use(middleware.RequireIdentity)
		r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
			identity, _ := middleware.IdentityFromContext(req.Context())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"subject":` + strconv.Quote(identity.Subject) +
				`,"userId":` + strconv.FormatInt(identity.UserID, 10) + "}\n"))
		})
	})

	return r
}

// metricsMiddleware records RED metrics per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil && routeCtx.RoutePattern() != "" {
			path = routeCtx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		httpDuration.WithLabelValues(path, r.Method, status).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(path, r.Method, status).Inc()
	})
}

func connectRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, nil, err
		}
		return rdb, func() { _ = rdb.Close() }, nil
	}

	log.Print("no redis configured, starting embedded miniredis (demo only)")
	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}

func randomSecret() []byte {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatal("generate secret: ", err)
	}
	return secret
}

type demoProvider struct {
	user parcelauth.UserRecord
}

func (p *demoProvider) GetUserBySubject(_ context.Context, subject string) (parcelauth.UserRecord, error) {
	if subject != p.user.Subject {
		return parcelauth.UserRecord{}, parcelauth.ErrUserNotFound
	}
	return p.user, nil
}

func seedDemoProvider(cfg parcelauth.Config) (parcelauth.UserProvider, error) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	hash, err := hasher.Hash("correct-horse")
	if err != nil {
		return nil, err
	}

	return &demoProvider{
		user: parcelauth.UserRecord{
			UserID:       1,
			Subject:      "alice@example.com",
			PasswordHash: hash,
			Status:       parcelauth.AccountActive,
		},
	}, nil
}
