package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/northbeam-labs/codevalidator/pkg/pipeline"
	"github.com/northbeam-labs/codevalidator/pkg/rules"
)

// ValidateRequest is the request body for POST /v1/validate.
type ValidateRequest struct {
	Code string `json:"code" binding:"required"`
}

// ValidateResponse is the response body for POST /v1/validate.
type ValidateResponse struct {
	Hash    string                 `json:"hash"`
	Verdict pipeline.Verdict       `json:"verdict"`
	Levels  []pipeline.LevelResult `json:"levels"`
}

// validate runs the five-level Layered Validation Pipeline against one
// piece of source code.
func (s *Server) validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := s.pipeline.Run(c.Request.Context(), req.Code)
	c.JSON(http.StatusOK, ValidateResponse{
		Hash:    report.Hash,
		Verdict: report.Verdict,
		Levels:  report.Levels,
	})
}

// QuickCheckResponse is the response body for POST /v1/quick_check.
type QuickCheckResponse struct {
	Valid  bool    `json:"valid"`
	Issues []issue `json:"issues"`
}

type issue struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Line     int    `json:"line,omitempty"`
}

// quickCheck runs only Level 0 pre-analysis — the cheap syntax, length,
// forbidden-import, and structural checks — for callers that want a fast
// rejection before paying for static analysis or sandbox execution.
func (s *Server) quickCheck(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.quickChecker.Validate(req.Code)
	resp := QuickCheckResponse{Valid: res.IsValid}
	for _, i := range res.Issues {
		resp.Issues = append(resp.Issues, issue{
			Code:     string(i.Code()),
			Message:  i.Message(),
			Severity: string(i.Severity()),
			Line:     i.Line(),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GenerateAndSelectRequest is the request body for POST /v1/generate_and_select.
type GenerateAndSelectRequest struct {
	Task       string   `json:"task" binding:"required"`
	RuleNames  []string `json:"rule_names,omitempty"`
	FailFast   bool     `json:"fail_fast,omitempty"`
	DomainCode *int     `json:"domain_code,omitempty"`
}

// GenerateAndSelectResponse is the response body for POST /v1/generate_and_select.
type GenerateAndSelectResponse struct {
	WinnerCode   string  `json:"winner_code,omitempty"`
	WinnerScore  float64 `json:"winner_score"`
	AllPassed    bool    `json:"all_passed"`
	PoolSize     int     `json:"pool_size"`
	GenerateMs   int64   `json:"generate_ms"`
	ScoreMs      int64   `json:"score_ms"`
	SelectMs     int64   `json:"select_ms"`
	ReviewOutput string  `json:"review_output,omitempty"`
}

// generateAndSelect runs the Multi-Candidate Generation & Selection Engine
// for one task: generate N candidates per the Adaptive Strategy's decision,
// score each with the Rule Engine, and select the winner.
func (s *Server) generateAndSelect(c *gin.Context) {
	var req GenerateAndSelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := pipeline.Profile{
		Name:     "api_request",
		Rules:    rulesByName(req.RuleNames),
		FailFast: req.FailFast,
		Weights:  s.scoring.Weights,
	}

	result := s.mcPipeline.Run(c.Request.Context(), req.Task, profile, req.DomainCode)

	resp := GenerateAndSelectResponse{
		AllPassed:    result.AllPassed,
		PoolSize:     len(result.Pool.Candidates),
		GenerateMs:   result.GenerateTime.Milliseconds(),
		ScoreMs:      result.ScoreTime.Milliseconds(),
		SelectMs:     result.SelectTime.Milliseconds(),
		ReviewOutput: result.ReviewOutput,
	}
	if result.Winner != nil {
		resp.WinnerCode = result.Winner.Code
		resp.WinnerScore = result.Winner.Score
	}
	c.JSON(http.StatusOK, resp)
}

// ClassifyContentRequest is the request body for POST /v1/classify_content.
type ClassifyContentRequest struct {
	Text string `json:"text" binding:"required"`
}

// ClassifyContentResponse is the response body for POST /v1/classify_content.
type ClassifyContentResponse struct {
	ContentType rules.ContentType `json:"content_type"`
}

// classifyContent resolves a text blob to one of the content types the
// rule engine understands (Python, Kubernetes, Terraform, Dockerfile,
// GitHub Actions, Ansible, generic YAML).
func (s *Server) classifyContent(c *gin.Context) {
	var req ClassifyContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ClassifyContentResponse{ContentType: rules.ClassifyContent(req.Text)})
}

// RulesForResponse is the response body for GET /v1/rules_for/:content_type.
type RulesForResponse struct {
	ContentType rules.ContentType `json:"content_type"`
	Rules       []string          `json:"rules"`
}

// rulesFor returns the names of the rule set the engine would apply to a
// given content type, letting callers inspect what validate will run
// before submitting code.
func (s *Server) rulesFor(c *gin.Context) {
	ct := rules.ContentType(c.Param("content_type"))
	set := rules.RulesFor(ct)

	names := make([]string, 0, len(set))
	for _, r := range set {
		names = append(names, r.Name())
	}
	c.JSON(http.StatusOK, RulesForResponse{ContentType: ct, Rules: names})
}
