// Package web exposes the HTTP surface the dashboard UI consumes: JSON
// reads of the price snapshot and wallet, the transaction API, an SSE
// stream fed by the event bus, and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/bitdash/bitdash/internal/domain"
	"github.com/bitdash/bitdash/internal/events"
	"github.com/bitdash/bitdash/internal/services/analytics"
	walletsvc "github.com/bitdash/bitdash/internal/services/wallet"
	"github.com/bitdash/bitdash/pkg/decimalutil"
)

const heartbeatInterval = 30 * time.Second

type snapshotReader interface {
	Snapshot() domain.PriceSnapshot
}

type walletAPI interface {
	GetWallet() domain.Wallet
	Transactions() []domain.Transaction
	AddCash(amount decimal.Decimal) (domain.Wallet, error)
	BuyBitcoin(btcAmount, btcPrice decimal.Decimal) (domain.Wallet, error)
	SellBitcoin(btcAmount, btcPrice decimal.Decimal) (domain.Wallet, error)
}

// Server serves the dashboard API.
type Server struct {
	addr             string
	tracker          snapshotReader
	wallet           walletAPI
	bus              *events.Bus
	logger           *zap.Logger
	cacheValidWindow time.Duration
}

// NewServer creates a dashboard API server.
func NewServer(addr string, tracker snapshotReader, wallet walletAPI, bus *events.Bus, cacheValidWindow time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:             addr,
		tracker:          tracker,
		wallet:           wallet,
		bus:              bus,
		logger:           logger,
		cacheValidWindow: cacheValidWindow,
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// the SSE stream is long-lived, so the call timeout applies only
		// to the request/response endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/price", s.handlePrice)
			r.Get("/history", s.handleHistory)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/wallet", s.handleWallet)
			r.Get("/transactions", s.handleTransactions)
			r.Post("/wallet/deposit", s.handleDeposit)
			r.Post("/wallet/buy", s.handleBuy)
			r.Post("/wallet/sell", s.handleSell)
		})
		r.Get("/stream", s.handleStream)
	})

	return r
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard API listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic certificates via
// ACME, plus an HTTP server on port 80 for HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	server := &http.Server{
		Addr:              ":443",
		Handler:           s.router(),
		TLSConfig:         manager.TLSConfig(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	challenges := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		_ = challenges.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := challenges.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("ACME challenge server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("dashboard API listening with auto TLS", zap.Strings("domains", domains))
	if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type priceResponse struct {
	domain.PriceSnapshot
	Stale bool `json:"stale"`
}

func (s *Server) handlePrice(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.tracker.Snapshot()
	writeJSON(w, http.StatusOK, priceResponse{
		PriceSnapshot: snapshot,
		Stale:         snapshot.Stale(s.cacheValidWindow, time.Now()),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Snapshot().History)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	summary, err := analytics.Summarize(s.tracker.Snapshot().History)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleWallet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.wallet.GetWallet())
}

func (s *Server) handleTransactions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.wallet.Transactions())
}

type depositRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := decimalutil.ParsePositive(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	wallet, err := s.wallet.AddCash(amount)
	if err != nil {
		s.writeWalletError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

type tradeRequest struct {
	BTCAmount string `json:"btc_amount"`
	// BTCPrice is optional; when empty, the trade executes at the
	// tracker's current price.
	BTCPrice string `json:"btc_price,omitempty"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, s.wallet.BuyBitcoin)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, s.wallet.SellBitcoin)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, op func(btcAmount, btcPrice decimal.Decimal) (domain.Wallet, error)) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	btcAmount, err := decimalutil.ParsePositive(req.BTCAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var btcPrice decimal.Decimal
	if req.BTCPrice != "" {
		btcPrice, err = decimalutil.ParsePositive(req.BTCPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	} else {
		snapshot := s.tracker.Snapshot()
		if !snapshot.Valid() {
			writeError(w, http.StatusServiceUnavailable, errors.New("no market price available yet"))
			return
		}
		btcPrice = snapshot.BitcoinPrice
	}

	wallet, err := op(btcAmount, btcPrice)
	if err != nil {
		s.writeWalletError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) writeWalletError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, walletsvc.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, walletsvc.ErrInsufficientFunds), errors.Is(err, walletsvc.ErrInsufficientBitcoin):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.logger.Error("wallet operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// handleStream streams price and wallet updates as server-sent events.
// Late subscribers catch up via the regular GET endpoints; the stream
// only carries events published after the subscription.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	priceCh := s.bus.Price.Subscribe()
	defer s.bus.Price.Unsubscribe(priceCh)
	walletCh := s.bus.Wallet.Subscribe()
	defer s.bus.Wallet.Unsubscribe(walletCh)

	// comment heartbeat so proxies keep the connection open
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case update := <-priceCh:
			if err := writeEvent(w, "price", update); err != nil {
				return
			}
			flusher.Flush()
		case update := <-walletCh:
			if err := writeEvent(w, "wallet", update); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
