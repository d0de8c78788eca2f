package timeoutctl

import (
	"context"
	"errors"
	"fmt"
)

// GenerateWithFallback runs primaryReq under its own deadlines, and on a
// primary timeout retries fallbackReq under the inflated FallbackDeadlines.
// If the fallback also times out, the returned error wraps the fallback's
// TimeoutError with the primary's partial buffer prepended, so a caller
// that only looks at the returned text still gets everything generated
// across both attempts.
func (c *Controller) GenerateWithFallback(ctx context.Context, primaryReq, fallbackReq Request) (string, Ledger, error) {
	text, ledger, err := c.Generate(ctx, primaryReq)
	if err == nil {
		return text, ledger, nil
	}

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		return text, ledger, err
	}

	fallbackReq.Deadlines = FallbackDeadlines()
	fbText, fbLedger, fbErr := c.Generate(ctx, fallbackReq)
	if fbErr == nil {
		combined := ledger.PartialBuffer + fbText
		fbLedger.PartialBuffer = combined
		return combined, fbLedger, nil
	}

	var fbTimeoutErr *TimeoutError
	if errors.As(fbErr, &fbTimeoutErr) {
		fbTimeoutErr.Ledger.PartialBuffer = ledger.PartialBuffer + fbTimeoutErr.Ledger.PartialBuffer
		return fbTimeoutErr.Ledger.PartialBuffer, fbTimeoutErr.Ledger, fbTimeoutErr
	}
	return fbText, fbLedger, fbErr
}

// SafeResult is what GenerateSafe always returns: never a thrown error,
// just a result (possibly empty) with metrics and an optional recorded
// failure.
type SafeResult struct {
	Text      string
	Ledger    Ledger
	Err       error
	Succeeded bool
}

// GenerateSafe wraps Generate (or GenerateWithFallback, when fallbackReq is
// non-nil) so a caller always gets a usable result: on any error the
// partial buffer accumulated so far is returned instead, with Succeeded
// false and Err set for observability.
func (c *Controller) GenerateSafe(ctx context.Context, primaryReq Request, fallbackReq *Request) SafeResult {
	var (
		text   string
		ledger Ledger
		err    error
	)
	if fallbackReq != nil {
		text, ledger, err = c.GenerateWithFallback(ctx, primaryReq, *fallbackReq)
	} else {
		text, ledger, err = c.Generate(ctx, primaryReq)
	}

	if err != nil {
		if text == "" {
			text = ledger.PartialBuffer
		}
		return SafeResult{Text: text, Ledger: ledger, Err: fmt.Errorf("generation did not complete cleanly: %w", err), Succeeded: false}
	}
	return SafeResult{Text: text, Ledger: ledger, Succeeded: true}
}
