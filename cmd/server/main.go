package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/liamcoop/challenges/challenges"
	"github.com/liamcoop/challenges/internal/logger"
)

const slowRequestThreshold = 500 * time.Millisecond

// Config is read from the environment, optionally via a .env file
type Config struct {
	Port        string
	DatabaseURL string // empty keeps the rule catalog in memory
	RulesFile   string // TOML catalog used to seed an empty store
}

func loadConfig() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg := Config{
		Port:        os.Getenv("PORT"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RulesFile:   os.Getenv("RULES_FILE"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	return cfg
}

type Server struct {
	db     *sql.DB // nil when the catalog lives in memory
	engine *challenges.Engine
	router *chi.Mux
}

// NewServer opens the configured rule store, seeds it and builds the engine
func NewServer(cfg Config) (*Server, error) {
	catalog := challenges.DefaultRules()
	if cfg.RulesFile != "" {
		rules, err := challenges.LoadCatalog(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		catalog = rules
	}

	var (
		db    *sql.DB
		store challenges.RuleStore
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store = challenges.NewPostgresRuleStore(db)
	} else {
		store = challenges.NewInMemoryRuleStore()
	}

	// Seeding only fills gaps, so rules tuned through the API survive restarts
	added, err := challenges.Seed(store, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to seed rules: %w", err)
	}
	logger.Info("rule catalog seeded", "added", added, "catalog", len(catalog))

	engine, err := challenges.NewEngine(store)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return NewServerWithEngine(engine, db), nil
}

// NewServerWithEngine wires the HTTP routes around an existing engine
func NewServerWithEngine(engine *challenges.Engine, db *sql.DB) *Server {
	s := &Server{
		db:     db,
		engine: engine,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)

	r.Post("/api/v1/suggestions", s.handleSuggest)
	r.Post("/api/v1/evaluate", s.handleEvaluate)

	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/", s.handleCreateRule)
		r.Get("/{ruleId}", s.handleGetRule)
		r.Put("/{ruleId}", s.handleUpdateRule)
		r.Delete("/{ruleId}", s.handleDeleteRule)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs each request and feeds the status counters
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.CountStatus(status)
		if elapsed > slowRequestThreshold {
			logger.WarnSlowRequest()
		}
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed.String(),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Store:    "memory",
		Counters: logger.Snapshot(),
	}

	if s.db != nil {
		resp.Store = "postgres"
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	rules, err := s.engine.Rules()
	if err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.RulesLoaded = len(rules)

	respondJSON(w, http.StatusOK, resp)
}

// Suggestion handler
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	profile, ok := decodeProfile(w, r)
	if !ok {
		return
	}

	start := time.Now()
	suggestions, err := s.engine.Suggest(profile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "suggestion failed", err)
		return
	}

	respondJSON(w, http.StatusOK, SuggestionsResponse{
		Suggestions:    suggestions,
		EvaluationTime: time.Since(start).String(),
	})
}

// Evaluation handler reports every rule gate for a profile
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	profile, ok := decodeProfile(w, r)
	if !ok {
		return
	}

	start := time.Now()
	results, err := s.engine.EvaluateAll(profile)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "evaluation failed", err)
		return
	}

	resp := EvaluateResponse{
		Results:        make([]EvaluationResultResponse, 0, len(results)),
		EvaluationTime: time.Since(start).String(),
	}
	for _, res := range results {
		item := EvaluationResultResponse{
			RuleID:   res.RuleID,
			RuleName: res.RuleName,
			Matched:  res.Matched,
		}
		if res.Error != nil {
			msg := res.Error.Error()
			item.Error = &msg
		}
		resp.Results = append(resp.Results, item)
	}

	respondJSON(w, http.StatusOK, resp)
}

// List rules handler
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.AllRules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	resp := RulesListResponse{Rules: make([]RuleResponse, 0, len(rules))}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, newRuleResponse(rule))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	rule := req.toRule(id)
	if err := s.engine.AddRule(rule); err != nil {
		respondRuleError(w, "failed to add rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, newRuleResponse(rule))
}

// Get rule handler
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.engine.Rule(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondRuleError(w, "failed to get rule", err)
		return
	}

	respondJSON(w, http.StatusOK, newRuleResponse(rule))
}

// Update rule handler replaces a rule's definition
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule := req.toRule(chi.URLParam(r, "ruleId"))
	if err := s.engine.UpdateRule(rule); err != nil {
		respondRuleError(w, "failed to update rule", err)
		return
	}

	respondJSON(w, http.StatusOK, newRuleResponse(rule))
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteRule(chi.URLParam(r, "ruleId")); err != nil {
		respondRuleError(w, "failed to delete rule", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeProfile validates the request body. The engine accepts any numbers,
// so rejecting malformed profiles is the caller's job.
func decodeProfile(w http.ResponseWriter, r *http.Request) (challenges.FinancialProfile, bool) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return challenges.FinancialProfile{}, false
	}

	profile, err := req.toProfile()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid profile", err)
		return challenges.FinancialProfile{}, false
	}
	return profile, true
}

func (req ProfileRequest) toProfile() (challenges.FinancialProfile, error) {
	if err := checkAmount("monthlyIncome", req.MonthlyIncome); err != nil {
		return challenges.FinancialProfile{}, err
	}
	if err := checkAmount("totalExpenses", req.TotalExpenses); err != nil {
		return challenges.FinancialProfile{}, err
	}

	profession := challenges.Profession(req.Profession)
	if !profession.IsValid() {
		return challenges.FinancialProfile{}, fmt.Errorf("unknown profession %q", req.Profession)
	}
	incomeType := challenges.IncomeType(req.IncomeType)
	if !incomeType.IsValid() {
		return challenges.FinancialProfile{}, fmt.Errorf("unknown incomeType %q", req.IncomeType)
	}

	return challenges.FinancialProfile{
		MonthlyIncome: *req.MonthlyIncome,
		TotalExpenses: *req.TotalExpenses,
		Profession:    profession,
		IncomeType:    incomeType,
	}, nil
}

func checkAmount(field string, v *float64) error {
	if v == nil {
		return fmt.Errorf("%s is required", field)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return fmt.Errorf("%s must be a non-negative number", field)
	}
	return nil
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error(message, "error", err)
	}
	respondJSON(w, status, response)
}

// respondRuleError maps engine and store errors to HTTP statuses
func respondRuleError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, challenges.ErrRuleNotFound):
		respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, challenges.ErrRuleExists):
		respondError(w, http.StatusConflict, message, err)
	case errors.Is(err, challenges.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

func main() {
	cfg := loadConfig()

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}

	logger.Info("server stopped")
}
