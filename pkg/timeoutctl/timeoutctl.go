// Package timeoutctl streams tokens from a generation backend under three
// independent deadlines — time-to-first-token, inter-token idle, and an
// absolute ceiling — and exposes a ledger callers can salvage a partial
// result from when any deadline fires.
package timeoutctl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/northbeam-labs/codevalidator/pkg/intentanalyzer"
)

// StreamChunk is one decoded line of the backend's JSON-lines response.
type StreamChunk struct {
	Token string
	Done  bool
}

// Ledger tracks everything accumulated while a stream runs, so a caller
// can still act on a partial result after a timeout fires.
type Ledger struct {
	TokensGenerated  int
	MaxInterTokenGap time.Duration
	PartialBuffer    string
	Elapsed          time.Duration
}

// Deadlines configures the three independent timeout budgets.
type Deadlines struct {
	TimeToFirstToken time.Duration
	InterTokenIdle   time.Duration
	Absolute         time.Duration
}

// DefaultDeadlines are the primary-model deadlines.
func DefaultDeadlines() Deadlines {
	return Deadlines{
		TimeToFirstToken: 15 * time.Second,
		InterTokenIdle:   10 * time.Second,
		Absolute:         120 * time.Second,
	}
}

// FallbackDeadlines are the inflated deadlines used for a fallback-model
// retry after the primary model times out.
func FallbackDeadlines() Deadlines {
	return Deadlines{
		TimeToFirstToken: 45 * time.Second,
		InterTokenIdle:   20 * time.Second,
		Absolute:         150 * time.Second,
	}
}

// TimeoutError is raised when any of the three deadlines fires. It carries
// the ledger accumulated up to that point, including the partial buffer.
type TimeoutError struct {
	Kind   string // "ttft", "idle", or "absolute"
	Ledger Ledger
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeoutctl: %s deadline exceeded after %d tokens (%s elapsed)",
		e.Kind, e.Ledger.TokensGenerated, e.Ledger.Elapsed)
}

// StreamAnalyzer is the integration point for the Stream Intent Analyzer:
// given the current token and the controller's current budgets, it returns
// a decision to extend, shorten, or end the stream early.
type StreamAnalyzer interface {
	Analyze(token string, initialBudget, remaining time.Duration) intentanalyzer.Decision
}

// Controller streams generation output from an HTTP backend that emits one
// JSON object per line, enforcing TTFT/idle/absolute deadlines and
// optionally consulting a StreamAnalyzer after every token.
type Controller struct {
	HTTPClient *http.Client
	Analyzer   StreamAnalyzer
}

// New returns a Controller using http.DefaultClient and no analyzer.
func New() *Controller {
	return &Controller{HTTPClient: http.DefaultClient}
}

// Request describes one streaming generation call.
type Request struct {
	URL       string
	Body      io.Reader
	Deadlines Deadlines
}

// Generate issues req and streams the response under the three deadlines,
// returning the assembled text and ledger, or a *TimeoutError carrying the
// partial ledger.
func (c *Controller) Generate(ctx context.Context, req Request) (string, Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, req.Deadlines.Absolute)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, req.Body)
	if err != nil {
		return "", Ledger{}, fmt.Errorf("timeoutctl: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	start := time.Now()
	firstTokenDeadline := time.NewTimer(req.Deadlines.TimeToFirstToken)
	defer firstTokenDeadline.Stop()
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", Ledger{}, fmt.Errorf("timeoutctl: request failed: %w", err)
	}
	defer resp.Body.Close()
	select {
	case <-firstTokenDeadline.C:
		ledger := Ledger{Elapsed: time.Since(start)}
		return "", ledger, &TimeoutError{Kind: "ttft", Ledger: ledger}
	default:
	}

	chunks, errs := c.decodeLines(ctx, resp.Body)

	var ledger Ledger
	var buf strings.Builder
	lastTokenAt := start
	idleTimer := time.NewTimer(req.Deadlines.InterTokenIdle)
	defer idleTimer.Stop()

	remaining := req.Deadlines.Absolute
	gotFirst := false

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				ledger.Elapsed = time.Since(start)
				return buf.String(), ledger, nil
			}
			if chunk.Done {
				continue
			}
			now := time.Now()
			if !gotFirst {
				gotFirst = true
				firstTokenDeadline.Stop()
			} else {
				gap := now.Sub(lastTokenAt)
				if gap > ledger.MaxInterTokenGap {
					ledger.MaxInterTokenGap = gap
				}
			}
			lastTokenAt = now
			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(req.Deadlines.InterTokenIdle)

			buf.WriteString(chunk.Token)
			ledger.TokensGenerated++
			ledger.PartialBuffer = buf.String()
			ledger.Elapsed = now.Sub(start)

			if c.Analyzer != nil {
				remaining = req.Deadlines.Absolute - ledger.Elapsed
				decision := c.Analyzer.Analyze(chunk.Token, req.Deadlines.Absolute, remaining)
				if decision.EarlyTermination {
					return buf.String(), ledger, nil
				}
				if decision.ExtensionSeconds > 0 {
					idleTimer.Reset(req.Deadlines.InterTokenIdle + decision.ExtensionSeconds)
				}
				if decision.ShortenSeconds > 0 {
					idleTimer.Reset(maxDuration(req.Deadlines.InterTokenIdle-decision.ShortenSeconds, time.Second))
				}
			}

		case err := <-errs:
			if err == nil {
				continue
			}
			ledger.Elapsed = time.Since(start)
			return buf.String(), ledger, fmt.Errorf("timeoutctl: stream error: %w", err)

		case <-firstTokenDeadline.C:
			if !gotFirst {
				ledger.Elapsed = time.Since(start)
				return "", ledger, &TimeoutError{Kind: "ttft", Ledger: ledger}
			}

		case <-idleTimer.C:
			if !gotFirst {
				continue
			}
			ledger.Elapsed = time.Since(start)
			return buf.String(), ledger, &TimeoutError{Kind: "idle", Ledger: ledger}

		case <-ctx.Done():
			ledger.Elapsed = time.Since(start)
			return buf.String(), ledger, &TimeoutError{Kind: "absolute", Ledger: ledger}
		}
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func (c *Controller) decodeLines(ctx context.Context, r io.Reader) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var raw struct {
				Token    string `json:"token"`
				Response string `json:"response"` // Ollama's streaming field name
				Done     bool   `json:"done"`
			}
			if err := json.Unmarshal([]byte(line), &raw); err != nil {
				errs <- fmt.Errorf("malformed stream line: %w", err)
				return
			}
			token := raw.Token
			if token == "" {
				token = raw.Response
			}
			select {
			case chunks <- StreamChunk{Token: token, Done: raw.Done}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}
