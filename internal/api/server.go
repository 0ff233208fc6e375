// Package api provides a read-only HTTP/WebSocket view over persisted
// backtest results. It never runs a backtest itself — see cmd/backtest for
// the run path — it only serves what cmd/backtest has already saved to a
// ResultStore and relays BacktestProgress ticks published to its Hub.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/internal/data"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

// Server is the reporting HTTP/WebSocket server.
type Server struct {
	logger     *zap.Logger
	config     types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	results   *ResultStore
	dataStore *data.Store
	hub       *Hub
	hubStop   chan struct{}
	metrics   *serverMetrics
}

// NewServer wires a reporting server over results and dataStore.
func NewServer(logger *zap.Logger, config types.ServerConfig, results *ResultStore, dataStore *data.Store) *Server {
	s := &Server{
		logger:    logger,
		config:    config,
		router:    mux.NewRouter(),
		results:   results,
		dataStore: dataStore,
		hub:       NewHub(logger),
		hubStop:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if config.EnableMetrics {
		s.metrics = newServerMetrics(prometheus.DefaultRegisterer)
	}
	s.setupRoutes()
	go s.hub.Run(s.hubStop)
	return s
}

// Hub exposes the progress broadcaster so cmd/backtest can publish ticks
// into the same process without going through HTTP.
func (s *Server) Hub() *Hub { return s.hub }

// Metrics exposes the Prometheus counters so cmd/backtest can record
// backtest lifecycle events when it runs in-process alongside the server.
// Returns nil when metrics are disabled.
func (s *Server) Metrics() *serverMetrics { return s.metrics }

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/data/symbols", s.handleGetSymbols).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/backtests", s.handleListBacktests).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/backtests/{id}", s.handleGetBacktest).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/backtests/{id}/trades", s.handleGetBacktestTrades).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/backtests/{id}/report", s.handleGetBacktestReport).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/progress", s.handleWebSocket)

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// Router exposes the underlying router for tests.
func (s *Server) Router() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)
}

// Start runs the HTTP server until Shutdown is called or it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("reporting server listening", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("reporting server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and the progress hub.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.hubStop)
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.dataStore.GetAvailableSymbols())
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.results.List())
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, ok, err := s.results.Get(id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "no backtest result with that id")
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleGetBacktestTrades(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, ok, err := s.results.Get(id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "no backtest result with that id")
		return
	}
	s.jsonResponse(w, http.StatusOK, result.Trades)
}

// handleGetBacktestReport returns the §6 tabular report row for a single
// stored result, as CSV: one header line, one data line.
func (s *Server) handleGetBacktestReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, ok, err := s.results.Get(id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "no backtest result with that id")
		return
	}

	rows := types.BuildReport([]types.BacktestResult{result})
	row := rows[0]

	var b strings.Builder
	b.WriteString("strategy_name,total_trades,win_rate,profit_factor,avg_r_multiple,expectancy,max_drawdown_percent,total_pnl_percent\n")
	fmt.Fprintf(&b, "%s,%d,%s,%s,%s,%s,%s,%s\n",
		row.StrategyName, row.TotalTrades, row.WinRate, row.ProfitFactor,
		row.AvgRMultiple, row.Expectancy, row.MaxDrawdownPercent, row.TotalPnLPercent)

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(b.String()))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := newClient(uuid.NewString(), s.hub, conn)
	s.hub.register <- client

	go client.writePump()
	client.readPump()
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
