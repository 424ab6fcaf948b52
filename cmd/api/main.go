// Package main provides the HTTP API server that places orders through the event store and outbox.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/event-outbox/internal/config"
	"github.com/jnst/event-outbox/internal/logger"
	"github.com/jnst/event-outbox/internal/model"
	"github.com/jnst/event-outbox/internal/repository"
	"github.com/jnst/event-outbox/internal/service"
)

const (
	contentTypeJSON        = "Content-Type"
	applicationJSON        = "application/json"
	failedToEncodeResponse = "failed to encode response"
	readHeaderTimeout      = 5 * time.Second
	exitCode               = 1
)

// APIServer handles HTTP requests for order placement.
type APIServer struct {
	orderService service.OrderService
}

// NewAPIServer creates a new API server instance.
func NewAPIServer(orderService service.OrderService) *APIServer {
	return &APIServer{
		orderService: orderService,
	}
}

// PlaceOrder handles POST /orders endpoint for order placement.
func (s *APIServer) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params model.PlaceOrderParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	order, err := s.orderService.PlaceOrder(r.Context(), &params)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set(contentTypeJSON, applicationJSON)
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(order); err != nil {
		http.Error(w, failedToEncodeResponse, http.StatusInternalServerError)
		return
	}
}

// HealthCheck handles GET /health endpoint for service health check.
func (*APIServer) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(contentTypeJSON, applicationJSON)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		http.Error(w, failedToEncodeResponse, http.StatusInternalServerError)
		return
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidCustomer), errors.Is(err, model.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrConcurrencyViolation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Routes returns the handler serving every endpoint of s.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", s.PlaceOrder)
	mux.HandleFunc("/health", s.HealthCheck)

	return mux
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	loggerInstance := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(loggerInstance)

	dbPool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer dbPool.Close()

	transactionMgr := repository.NewTransactionManagerImpl(dbPool)
	eventRepo := repository.NewEventRepositoryImpl(transactionMgr,
		repository.WithPositionShift(cfg.PositionShift))
	outboxRepo := repository.NewOutboxRepositoryImpl(transactionMgr)
	outboxWriter := service.NewOutboxWriterImpl(outboxRepo, transactionMgr)
	orderService := service.NewOrderServiceImpl(eventRepo, outboxWriter, transactionMgr)

	server := NewAPIServer(orderService)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	slog.Info("starting API server", slog.String("service", "api"), slog.String("port", cfg.Port))

	if err := httpServer.ListenAndServe(); err != nil {
		slog.Error("failed to start server", slog.String("error", err.Error()))
		return
	}
}
