// Package apiserver exposes the validator's entry operations over HTTP:
// validate, quick_check, generate_and_select, classify_content, and
// rules_for, plus health and Prometheus metrics endpoints.
package apiserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/northbeam-labs/codevalidator/pkg/config"
	"github.com/northbeam-labs/codevalidator/pkg/estimator"
	"github.com/northbeam-labs/codevalidator/pkg/intentanalyzer"
	"github.com/northbeam-labs/codevalidator/pkg/llmclient"
	"github.com/northbeam-labs/codevalidator/pkg/metrics"
	"github.com/northbeam-labs/codevalidator/pkg/pipeline"
	"github.com/northbeam-labs/codevalidator/pkg/prevalidate"
	"github.com/northbeam-labs/codevalidator/pkg/rules"
	"github.com/northbeam-labs/codevalidator/pkg/strategy"
	"github.com/northbeam-labs/codevalidator/pkg/timeoutctl"
	"github.com/northbeam-labs/codevalidator/pkg/version"
)

// Server wires the validation pipeline, the multi-candidate pipeline, and
// the budget/predictive estimators behind a gin router.
type Server struct {
	router *gin.Engine

	pipeline     *pipeline.Pipeline
	quickChecker *prevalidate.Prevalidator
	mcPipeline   *pipeline.MultiCandidatePipeline
	generation   config.GenerationConfig
	scoring      config.ScoringConfig
	budget       *estimator.BudgetEstimator
	predictive   *estimator.PredictiveEstimator
}

// Config bundles everything NewServer needs to build the validator's
// sub-components from the declarative configuration surface.
type Config struct {
	Validator  config.ValidatorConfig
	Generation config.GenerationConfig
	Scoring    config.ScoringConfig
	Client     llmclient.Client
	Strategy   *strategy.Strategy
	Budget     *estimator.BudgetEstimator
	Predictive *estimator.PredictiveEstimator

	// LLMBaseURL and LLMModel point candidate generation at the streaming
	// Predictive Timeout & Budget Scheduler path. Left empty, they are taken
	// from Client when it is an *llmclient.HTTPClient; with any other Client
	// and no LLMBaseURL, generation falls back to Client.Complete under a
	// fixed deadline.
	LLMBaseURL string
	LLMModel   string
}

// NewServer builds a Server and registers every route.
func NewServer(cfg Config) *Server {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	pipelineCfg := cfg.Validator.Build()
	prevalidator := pipelineCfg.Prevalidator
	if prevalidator == nil {
		prevalidator = prevalidate.New(prevalidate.NewConfig())
	}

	controller := &timeoutctl.Controller{
		HTTPClient: http.DefaultClient,
		Analyzer:   intentanalyzer.NewState(),
	}

	s := &Server{
		router:       gin.Default(),
		pipeline:     pipeline.New(pipelineCfg),
		quickChecker: prevalidator,
		mcPipeline: pipeline.NewMultiCandidatePipeline(pipeline.MultiCandidateConfig{
			Client:     cfg.Client,
			Strategy:   cfg.Strategy,
			Controller: controller,
			Budget:     cfg.Budget,
			Predictive: cfg.Predictive,
			BaseURL:    cfg.LLMBaseURL,
			Model:      cfg.LLMModel,
		}),
		generation: cfg.Generation,
		scoring:    cfg.Scoring,
		budget:     cfg.Budget,
		predictive: cfg.Predictive,
	}

	s.routes()
	return s
}

// Router exposes the underlying gin.Engine, e.g. for httptest or a custom
// http.Server wrapper.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.POST("/validate", s.validate)
	v1.POST("/quick_check", s.quickCheck)
	v1.POST("/generate_and_select", s.generateAndSelect)
	v1.POST("/classify_content", s.classifyContent)
	v1.GET("/rules_for/:content_type", s.rulesFor)
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: version.Full()})
}

func rulesByName(names []string) []rules.Rule {
	if len(names) == 0 {
		return rules.DefaultPythonRules()
	}
	var out []rules.Rule
	for _, r := range rules.DefaultPythonRules() {
		for _, n := range names {
			if r.Name() == n {
				out = append(out, r)
			}
		}
	}
	return out
}
