package propertytest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/northbeam-labs/codevalidator/pkg/sandbox"
)

// Callable invokes one function extracted from validated source, by
// generating a small wrapper script that decodes JSON-encoded arguments,
// calls the function by name, and re-encodes whatever it returns. Go has
// no in-process way to call an extracted Python function, so every
// invocation round-trips through the sandbox.
type Callable struct {
	Source   string
	FuncName string
	Params   []Param
	Executor sandbox.Executor
}

// NewCallable builds a Callable for one function definition found in
// source, running under the given executor (defaults to a subprocess
// backend with default limits when exec is nil).
func NewCallable(source, funcName string, params []Param, exec sandbox.Executor) *Callable {
	if exec == nil {
		exec = sandbox.New(sandbox.BackendSubprocess, sandbox.DefaultConfig())
	}
	return &Callable{Source: source, FuncName: funcName, Params: params, Executor: exec}
}

// CallResult is what one Callable invocation produced.
type CallResult struct {
	ReturnValue interface{}
	Raised      bool
	ErrorType   string
	ErrorText   string
}

// Call runs the function once against the given positional arguments
// (keyed by parameter name, in Params order) and reports whether it
// raised or returned a value.
func (c *Callable) Call(ctx context.Context, args map[string]interface{}) (CallResult, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return CallResult{}, fmt.Errorf("encoding arguments: %w", err)
	}

	script := c.wrapperScript(string(argsJSON))
	res := c.Executor.Execute(ctx, script, nil)

	if !res.Success() {
		return CallResult{}, fmt.Errorf("sandbox execution failed (%s): %s", res.Status, res.ErrorMessage)
	}

	return parseWrapperOutput(res.Stdout)
}

const wrapperMarker = "__codevalidator_property_result__"

// wrapperScript embeds the original function source, calls it with
// JSON-decoded keyword arguments, and prints a single marked JSON line
// carrying either the return value or the raised exception's type/message.
func (c *Callable) wrapperScript(argsJSON string) string {
	var argNames []string
	for _, p := range c.Params {
		argNames = append(argNames, p.Name)
	}

	var b strings.Builder
	b.WriteString("import json\n\n")
	b.WriteString(c.Source)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "__args = json.loads(%q)\n", argsJSON)
	fmt.Fprintf(&b, "__kwargs = {%s}\n", argKwargsLiteral(argNames))
	b.WriteString("try:\n")
	fmt.Fprintf(&b, "    __result = %s(**__kwargs)\n", c.FuncName)
	b.WriteString("    print(" + wrapperMarkerLiteral() + " + json.dumps({\"raised\": False, \"return_value\": __result}))\n")
	b.WriteString("except Exception as __exc:\n")
	b.WriteString("    print(" + wrapperMarkerLiteral() + " + json.dumps({\"raised\": True, \"error_type\": type(__exc).__name__, \"error_text\": str(__exc)}))\n")
	return b.String()
}

func wrapperMarkerLiteral() string {
	return fmt.Sprintf("%q", wrapperMarker)
}

func argKwargsLiteral(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%q: __args[%q]", n, n)
	}
	return strings.Join(parts, ", ")
}

func parseWrapperOutput(stdout string) (CallResult, error) {
	line := lastMarkedLine(stdout)
	if line == "" {
		return CallResult{}, fmt.Errorf("no result line found in sandbox output")
	}

	var payload struct {
		Raised      bool        `json:"raised"`
		ReturnValue interface{} `json:"return_value"`
		ErrorType   string      `json:"error_type"`
		ErrorText   string      `json:"error_text"`
	}
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return CallResult{}, fmt.Errorf("decoding sandbox result: %w", err)
	}

	return CallResult{
		ReturnValue: payload.ReturnValue,
		Raised:      payload.Raised,
		ErrorType:   payload.ErrorType,
		ErrorText:   payload.ErrorText,
	}, nil
}

func lastMarkedLine(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], wrapperMarker) {
			return strings.TrimPrefix(lines[i], wrapperMarker)
		}
	}
	return ""
}
