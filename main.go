package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"cleo-screening/internal/checkpoint"
	"cleo-screening/internal/config"
	"cleo-screening/internal/engine"
	"cleo-screening/internal/flow"
	"cleo-screening/internal/llm"
	"cleo-screening/internal/location"
	"cleo-screening/internal/logger"
	"cleo-screening/internal/otp"
	"cleo-screening/internal/report"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		panic(err)
	}
	log := logger.Logger

	secrets, err := config.LoadSecrets()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load secrets")
	}

	ctx := context.Background()

	store, err := checkpoint.NewRedisStore(ctx, secrets.RedisURL, cfg.Redis.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to checkpoint store")
	}
	defer store.Close()

	modelCfg := cfg.Model
	modelCfg.APIKey = secrets.OpenAIAPIKey
	chatModel, err := llm.NewChatModel(ctx, modelCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create chat model")
	}

	classifier, err := llm.NewChatClassifier(ctx, chatModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build classifier")
	}
	extractor, err := llm.NewChatExtractor(ctx, chatModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build extractor")
	}
	scorer, err := llm.NewChatScorer(ctx, chatModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build scorer")
	}

	deps := flow.Collaborators{
		Classifier: classifier,
		Extractor:  extractor,
		Scorer:     scorer,
		Email:      otp.NewSendGridSender(secrets.SendGridAPIKey, secrets.SendGridFromEmail, secrets.SendGridFromName),
		SMS:        otp.NewTwilioSender(secrets.TwilioAccountSID, secrets.TwilioAuthToken, secrets.TwilioFromNumber),
		Location:   location.NewChecker(location.NewGoogleGeocoder(secrets.GooglePlacesAPIKey), location.DefaultThresholdMiles),
		Sink:       report.NewHTTPSink(secrets.ReportSinkURL, secrets.ReportSinkAPIKey),
	}

	screening := flow.New(cfg.Workflow, deps, log)
	eng, err := engine.New(screening.Graph(), store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build workflow engine")
	}

	srv := &server{engine: eng, cfg: cfg, logger: log}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(log))
	router.Use(cors)

	router.Post("/sessions", srv.handleStartSession)
	router.Get("/ws/{session}", srv.handleWebsocket)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
