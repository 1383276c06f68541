package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/auth"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/config"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/playback"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/report"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/sheet"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/validate"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/library"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/logger"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/repo"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var wg sync.WaitGroup

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type deps struct {
	cfg      config.Config
	log      *zap.Logger
	sessions *playback.Store
	// users and datasets are nil when no database is configured.
	users    repo.Users
	datasets repo.Datasets
}

// HandleList mounts every route on router.
func HandleList(router *mux.Router, d deps) {
	limiter := auth.NewIPRateLimiter(rate.Limit(d.cfg.RateLimit), d.cfg.RateBurst)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(limiter.Middleware)

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("GET")

	maxBody := d.cfg.MaxBodyBytes
	normalizeH := &normalize.Handler{Log: d.log, MaxBody: maxBody}
	validateH := &validate.Handler{Log: d.log, MaxBody: maxBody}
	displacementH := &displacement.Handler{Log: d.log, MaxBody: maxBody}
	reportH := &report.Handler{Log: d.log, MaxBody: maxBody}
	sheetH := &sheet.Handler{Log: d.log, MaxBody: maxBody}
	sessionsH := &playback.Handler{Store: d.sessions, Log: d.log, MaxBody: maxBody}

	api.HandleFunc("/floor/normalize", normalizeH.Normalize).Methods("POST")
	api.HandleFunc("/floor/validate", validateH.Validate).Methods("POST")
	api.HandleFunc("/floor/displacement", displacementH.Calc).Methods("POST")
	api.HandleFunc("/floor/report/pdf", reportH.Generate).Methods("POST")
	api.HandleFunc("/floor/import/xlsx", sheetH.Import).Methods("POST")
	api.HandleFunc("/floor/export/xlsx", sheetH.Export).Methods("POST")
	sessionsH.Register(api.PathPrefix("/sessions").Subrouter())

	if d.users == nil || d.datasets == nil {
		return
	}
	authEnv := &auth.Env{JWTKey: []byte(d.cfg.TokenKey), Users: d.users, Log: d.log}
	api.HandleFunc("/login", authEnv.Login).Methods("POST")
	api.HandleFunc("/register", authEnv.Register).Methods("POST")

	secureAPI := api.PathPrefix("/user").Subrouter()
	secureAPI.Use(authEnv.Middleware)
	libraryH := &library.Handler{Repo: d.datasets, Sessions: sessionsH, Log: d.log, MaxBody: maxBody}
	libraryH.Register(secureAPI)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("configuration error", zap.Error(err))
	}
	log, err := logger.New(logger.WithLevel(cfg.LogLevel), logger.WithDevelopment(cfg.LogDevelopment))
	if err != nil {
		zap.NewExample().Fatal("logger error", zap.Error(err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sessions, err := playback.NewStore(cfg.MaxSessions, log)
	if err != nil {
		log.Fatal("session store", zap.Error(err))
	}
	d := deps{cfg: cfg, log: log, sessions: sessions}
	if cfg.Accounts() {
		db, err := repo.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database unavailable", zap.Error(err))
		}
		defer db.Close()
		pg := repo.NewPostgres(db)
		d.users, d.datasets = pg, pg
	} else {
		log.Warn("DATABASE_URL not set; accounts and dataset library disabled")
	}

	router := mux.NewRouter()
	HandleList(router, d)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: CORS(router),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("starting server", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLS()))
		var serveErr error
		if cfg.TLS() {
			serveErr = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			serveErr = server.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Error("server error", zap.Error(serveErr))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	log.Info("server stopped")
}
