package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"vela/internal/backtest"
	"vela/internal/config"
	"vela/internal/feed"
	"vela/internal/report"
	"vela/internal/store"
	"vela/internal/strategy"
)

// Server serves the backtesting HTTP API.
type Server struct {
	bt       *backtest.Backtester
	registry *strategy.Registry
	results  store.ResultStore // nil disables persistence
	bars     store.BarStore    // nil disables the symbols endpoint
	defaults config.BacktestConfig
	log      *slog.Logger
}

// NewServer creates a Server. results and bars may be nil, which disables
// result persistence and symbol listing respectively.
func NewServer(
	bt *backtest.Backtester,
	registry *strategy.Registry,
	results store.ResultStore,
	bars store.BarStore,
	defaults config.BacktestConfig,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		bt:       bt,
		registry: registry,
		results:  results,
		bars:     bars,
		defaults: defaults,
		log:      log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/backtests", s.handleRunBacktest)
	mux.HandleFunc("POST /api/v1/backtests/sweep", s.handleSweep)
	mux.HandleFunc("POST /api/v1/backtests/compare", s.handleCompare)
	mux.HandleFunc("GET /api/v1/backtests", s.handleHistory)
	mux.HandleFunc("GET /api/v1/backtests/{id}", s.handleGetBacktest)
	mux.HandleFunc("GET /api/v1/backtests/{id}/report", s.handleReport)
	mux.HandleFunc("GET /api/v1/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/v1/symbols", s.handleSymbols)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// toEngineRequest maps the API request onto the engine request, filling
// unset fields from the configured defaults.
func (s *Server) toEngineRequest(req BacktestRequest) (backtest.Request, error) {
	start, end, err := req.Range()
	if err != nil {
		return backtest.Request{}, err
	}

	interval := req.Interval
	if interval == "" {
		interval = s.defaults.Interval
	}
	balance := req.InitialBalance
	if balance == 0 {
		balance = s.defaults.InitialBalance
	}
	riskPct := req.RiskPct
	if riskPct == 0 {
		riskPct = s.defaults.RiskPct
	}
	commission := req.CommissionRate
	if commission == 0 {
		commission = s.defaults.CommissionRate
	}

	return backtest.Request{
		Strategy: req.Strategy,
		Config: strategy.Config{
			Symbol:         req.Symbol,
			Interval:       interval,
			RiskPct:        riskPct,
			CommissionRate: commission,
			StopLossPct:    req.StopLossPct,
			TakeProfitPct:  req.TakeProfitPct,
		},
		Start:          start,
		End:            end,
		InitialBalance: balance,
	}, nil
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	engineReq, err := s.toEngineRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.bt.Run(r.Context(), engineReq)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	resp := BacktestResponse{Result: res}
	if s.results != nil {
		id, err := s.results.SaveResult(r.Context(), res)
		if err != nil {
			s.log.Warn("persisting result failed", "err", err)
		} else {
			resp.ID = id
		}
	}
	writeJSON(w, resp)
}

// writeRunError maps engine failures to HTTP statuses: missing data is 404,
// bad input is 400, anything else is 500.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, feed.ErrDataUnavailable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, backtest.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("backtest failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.RiskPcts) == 0 {
		writeError(w, http.StatusBadRequest, "risk_pcts is required")
		return
	}

	engineReq, err := s.toEngineRequest(req.BacktestRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.bt.Sweep(r.Context(), engineReq, req.RiskPcts, s.defaults.SweepWorkers)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, SweepResponse{
		Symbol:   req.Symbol,
		Strategy: req.Strategy,
		Results:  results,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, "candidates is required")
		return
	}

	names := make([]string, len(req.Candidates))
	reqs := make([]backtest.Request, len(req.Candidates))
	for i, c := range req.Candidates {
		base := BacktestRequest{
			Strategy:       c.Strategy,
			Symbol:         req.Symbol,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			Interval:       req.Interval,
			InitialBalance: req.InitialBalance,
			RiskPct:        c.RiskPct,
			CommissionRate: req.CommissionRate,
			StopLossPct:    c.StopLossPct,
			TakeProfitPct:  c.TakeProfitPct,
		}
		if err := base.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("candidate %d: %v", i, err))
			return
		}
		engineReq, err := s.toEngineRequest(base)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		name := c.Name
		if name == "" {
			name = c.Strategy
		}
		names[i] = name
		reqs[i] = engineReq
	}

	entries, err := s.bt.Compare(r.Context(), names, reqs, s.defaults.SweepWorkers)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, CompareResponse{Symbol: req.Symbol, Entries: entries})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeError(w, http.StatusServiceUnavailable, "result storage not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	summaries, err := s.results.ListResults(r.Context(), r.URL.Query().Get("symbol"), limit)
	if err != nil {
		s.log.Error("listing results failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}
	if summaries == nil {
		summaries = []store.ResultSummary{}
	}
	writeJSON(w, HistoryResponse{Results: summaries})
}

func (s *Server) loadResult(w http.ResponseWriter, r *http.Request) (*backtest.Result, bool) {
	if s.results == nil {
		writeError(w, http.StatusServiceUnavailable, "result storage not configured")
		return nil, false
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	res, err := s.results.GetResult(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("backtest %d not found", id))
		return nil, false
	}
	return res, true
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	res, ok := s.loadResult(w, r)
	if !ok {
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.loadResult(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteHTML(w, res); err != nil {
		s.log.Error("rendering report failed", "err", err)
	}
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StrategiesResponse{Strategies: s.registry.List()})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if s.bars == nil {
		writeError(w, http.StatusServiceUnavailable, "bar storage not configured")
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = s.defaults.Interval
	}

	symbols, err := s.bars.ListSymbols(r.Context(), interval)
	if err != nil {
		s.log.Error("listing symbols failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list symbols")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, SymbolsResponse{Interval: interval, Symbols: symbols})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
