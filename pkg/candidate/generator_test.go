package candidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northbeam-labs/codevalidator/pkg/estimator"
	"github.com/northbeam-labs/codevalidator/pkg/llmclient"
	"github.com/northbeam-labs/codevalidator/pkg/timeoutctl"
)

type scriptedClient struct {
	responses []string
	errs      []error
	mu        sync.Mutex
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	c.mu.Unlock()
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func TestGenerateProducesOneCandidatePerResponse(t *testing.T) {
	client := &scriptedClient{responses: []string{"def a(): pass", "def b(): pass"}}
	g := NewGenerator(client)
	pool := g.Generate(context.Background(), "write a function", GenerateOptions{N: 2})
	require.Len(t, pool.Candidates, 2)
	assert.Equal(t, "def a(): pass", pool.Candidates[0].Code)
}

func TestGenerateExtractsMarkdownFence(t *testing.T) {
	client := &scriptedClient{responses: []string{"```python\ndef a():\n    pass\n```"}}
	g := NewGenerator(client)
	pool := g.Generate(context.Background(), "task", GenerateOptions{N: 1})
	require.Len(t, pool.Candidates, 1)
	assert.Equal(t, "def a():\n    pass", pool.Candidates[0].Code)
}

func TestGenerateDropsFailedCandidates(t *testing.T) {
	client := &scriptedClient{
		responses: []string{"", "def b(): pass"},
		errs:      []error{errors.New("boom"), nil},
	}
	g := NewGenerator(client)
	pool := g.Generate(context.Background(), "task", GenerateOptions{N: 2})
	require.Len(t, pool.Candidates, 1)
	assert.Equal(t, "def b(): pass", pool.Candidates[0].Code)
}

func TestGenerateReturnsEmptyPoolWhenAllFail(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("boom"), errors.New("boom")}}
	g := NewGenerator(client)
	pool := g.Generate(context.Background(), "task", GenerateOptions{N: 2})
	assert.Empty(t, pool.Candidates)
}

func TestGenerateAssignsDistinctTemperaturesAndSeeds(t *testing.T) {
	client := &scriptedClient{responses: []string{"a", "b", "c"}}
	g := NewGenerator(client)
	pool := g.Generate(context.Background(), "task", GenerateOptions{N: 3, BaseSeed: 10})
	require.Len(t, pool.Candidates, 3)
	seen := map[int64]bool{}
	for _, c := range pool.Candidates {
		seen[c.Seed] = true
	}
	assert.Len(t, seen, 3)
}

func TestGenerateParallelModeCompletes(t *testing.T) {
	client := &scriptedClient{responses: []string{"a", "b", "c"}}
	g := NewGenerator(client)
	pool := g.Generate(context.Background(), "task", GenerateOptions{N: 3, Parallel: true})
	assert.Len(t, pool.Candidates, 3)
}

func TestGeneratePopulatesProvenanceFields(t *testing.T) {
	client := &scriptedClient{responses: []string{"def a(): pass"}}
	g := NewGenerator(client)
	g.Model = "qwen2.5-coder:7b"
	pool := g.Generate(context.Background(), "write a function", GenerateOptions{N: 1})
	require.Len(t, pool.Candidates, 1)
	c := pool.Candidates[0]
	assert.Equal(t, TaskHash("write a function"), c.TaskID)
	assert.Equal(t, "qwen2.5-coder:7b", c.Model)
	assert.False(t, c.GeneratedAt.IsZero())
	assert.GreaterOrEqual(t, c.GenerationDuration, time.Duration(0))
}

func ndjsonServer(t *testing.T, tokens []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		for _, tok := range tokens {
			line, _ := json.Marshal(map[string]interface{}{"response": tok, "done": false})
			fmt.Fprintf(w, "%s\n", line)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}

func TestGenerateRoutesThroughControllerWhenConfigured(t *testing.T) {
	srv := ndjsonServer(t, []string{"def f():", " return 1"})
	defer srv.Close()

	budget := estimator.NewBudgetEstimator(estimator.DefaultUserPreferences())
	predictive := estimator.New()

	g := NewGenerator(&scriptedClient{})
	g.Controller = &timeoutctl.Controller{HTTPClient: srv.Client()}
	g.Budget = budget
	g.Predictive = predictive
	g.BaseURL = srv.URL
	g.Model = "qwen2.5-coder:7b"

	pool := g.Generate(context.Background(), "write a function", GenerateOptions{N: 1})
	require.Len(t, pool.Candidates, 1)
	assert.Contains(t, pool.Candidates[0].Code, "def f()")
	assert.NotEmpty(t, budget.History())
	assert.NotEmpty(t, predictive.Outcomes())
}
