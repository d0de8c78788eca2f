// Package prevalidate implements level 0 of the validation pipeline: static
// checks that run without executing a single line of the candidate code —
// size limits, dangerous string patterns, AST parseability, nesting depth,
// and a forbidden-construct scan over the parsed tree.
package prevalidate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/northbeam-labs/codevalidator/pkg/issue"
	"github.com/northbeam-labs/codevalidator/pkg/pyast"
)

// DefaultForbiddenImports are modules that give a candidate a path out of
// the sandbox (filesystem, process, network, introspection).
var DefaultForbiddenImports = map[string]bool{
	"os": true, "sys": true, "subprocess": true, "shutil": true, "pathlib": true,
	"socket": true, "requests": true, "urllib": true, "http": true,
	"ctypes": true, "multiprocessing": true, "threading": true,
	"pickle": true, "shelve": true, "marshal": true,
	"importlib": true, "runpy": true, "__builtin__": true, "builtins": true,
	"code": true, "codeop": true, "compileall": true,
}

// DefaultForbiddenBuiltins are built-in calls that enable dynamic code
// execution or reflection past the sandbox boundary.
var DefaultForbiddenBuiltins = map[string]bool{
	"eval": true, "exec": true, "compile": true, "open": true, "input": true,
	"__import__": true, "globals": true, "locals": true, "vars": true,
	"getattr": true, "setattr": true, "delattr": true, "hasattr": true,
	"breakpoint": true, "help": true, "exit": true, "quit": true,
}

// DefaultForbiddenAttributes are dunder attributes commonly used to climb
// from an object back to __builtins__ or a class's __subclasses__.
var DefaultForbiddenAttributes = map[string]bool{
	"__code__": true, "__globals__": true, "__builtins__": true,
	"__subclasses__": true, "__bases__": true, "__mro__": true,
	"__class__": true, "__dict__": true, "__module__": true,
	"__import__": true, "__loader__": true, "__spec__": true,
}

type dangerousPattern struct {
	re      *regexp.Regexp
	code    issue.Code
	message string
}

var dangerousPatterns = []dangerousPattern{
	{regexp.MustCompile(`__\w+__`), issue.PV020DunderInString, "dunder-like pattern found in source text"},
	{regexp.MustCompile(`\bos\s*\.\s*system`), issue.PV021OSSystemCall, "call to os.system"},
	{regexp.MustCompile(`\bsubprocess`), issue.PV022SubprocessUse, "use of subprocess"},
	{regexp.MustCompile(`chr\s*\(\s*\d+\s*\)`), issue.PV023ChrConstruction, "potential string construction via chr()"},
}

// CustomValidator inspects a parsed tree and returns any additional issues
// it finds, for callers that need domain-specific checks beyond the
// built-in forbidden-construct scan.
type CustomValidator func(tree *pyast.Tree) []issue.Issue

// Config controls a Prevalidator's limits and forbidden sets. The zero
// value is not usable; construct via NewConfig or populate every field.
type Config struct {
	MaxCodeLength int
	MaxLines      int
	MaxNesting    int

	ForbiddenImports    map[string]bool
	ForbiddenBuiltins   map[string]bool
	ForbiddenAttributes map[string]bool

	CustomValidators []CustomValidator
}

// NewConfig returns the default configuration: 50,000 characters, 1,000
// lines, nesting depth 50, and the package's default forbidden sets.
func NewConfig() Config {
	return Config{
		MaxCodeLength:       50_000,
		MaxLines:            1_000,
		MaxNesting:          50,
		ForbiddenImports:    DefaultForbiddenImports,
		ForbiddenBuiltins:   DefaultForbiddenBuiltins,
		ForbiddenAttributes: DefaultForbiddenAttributes,
	}
}

// Result is the outcome of a prevalidation run.
type Result struct {
	IsValid bool
	Issues  []issue.Issue
	Tree    *pyast.Tree // nil if parsing failed or never ran
}

// HasCritical reports whether any issue reached critical severity.
func (r Result) HasCritical() bool {
	return issue.HasSeverityAtLeast(r.Issues, issue.SeverityCritical)
}

// HasErrors reports whether any issue reached error severity or worse.
func (r Result) HasErrors() bool {
	return issue.HasSeverityAtLeast(r.Issues, issue.SeverityError)
}

// Prevalidator runs level 0 checks against Python source text.
type Prevalidator struct {
	cfg Config
}

// New builds a Prevalidator from cfg, filling any zero-valued limit with
// NewConfig's default and any nil forbidden set with the package default.
func New(cfg Config) *Prevalidator {
	def := NewConfig()
	if cfg.MaxCodeLength == 0 {
		cfg.MaxCodeLength = def.MaxCodeLength
	}
	if cfg.MaxLines == 0 {
		cfg.MaxLines = def.MaxLines
	}
	if cfg.MaxNesting == 0 {
		cfg.MaxNesting = def.MaxNesting
	}
	if cfg.ForbiddenImports == nil {
		cfg.ForbiddenImports = def.ForbiddenImports
	}
	if cfg.ForbiddenBuiltins == nil {
		cfg.ForbiddenBuiltins = def.ForbiddenBuiltins
	}
	if cfg.ForbiddenAttributes == nil {
		cfg.ForbiddenAttributes = def.ForbiddenAttributes
	}
	return &Prevalidator{cfg: cfg}
}

// Validate runs the full level-0 pipeline: size, then dangerous string
// patterns, then AST parse, then nesting depth, then the forbidden-pattern
// walk, then any custom validators. A critical size violation short-circuits
// before parsing is attempted; a parse failure short-circuits before the
// remaining structural checks run.
func (p *Prevalidator) Validate(code string) Result {
	var issues []issue.Issue

	issues = append(issues, p.checkSize(code)...)
	if issue.HasSeverityAtLeast(issues, issue.SeverityCritical) {
		return Result{IsValid: false, Issues: issues}
	}

	issues = append(issues, p.checkStringPatterns(code)...)

	tree, err := pyast.Parse(code)
	if err != nil {
		line, col := 0, 0
		if pe, ok := err.(*pyast.ParseError); ok {
			line, col = pe.Line, pe.Column
		}
		issues = append(issues, issue.New(issue.SeverityCritical, issue.PV000SyntaxError,
			fmt.Sprintf("syntax error: %v", err), line, col))
		return Result{IsValid: false, Issues: issues}
	}

	issues = append(issues, p.checkNestingDepth(tree)...)

	v := newForbiddenPatternVisitor(p.cfg.ForbiddenImports, p.cfg.ForbiddenBuiltins, p.cfg.ForbiddenAttributes)
	v.run(tree)
	issues = append(issues, v.issues...)

	for _, cv := range p.cfg.CustomValidators {
		issues = append(issues, cv(tree)...)
	}

	isValid := !issue.HasSeverityAtLeast(issues, issue.SeverityError)
	return Result{IsValid: isValid, Issues: issues, Tree: tree}
}

func (p *Prevalidator) checkSize(code string) []issue.Issue {
	var issues []issue.Issue
	if len(code) == 0 || strings.TrimSpace(code) == "" {
		issues = append(issues, issue.New(issue.SeverityCritical, issue.PV013EmptyCode,
			"code is empty or whitespace-only", 0, 0))
		return issues
	}
	if len(code) > p.cfg.MaxCodeLength {
		issues = append(issues, issue.New(issue.SeverityCritical, issue.PV010CodeTooLarge,
			fmt.Sprintf("code too large: %d characters (max %d)", len(code), p.cfg.MaxCodeLength), 0, 0))
	}
	lines := strings.Count(code, "\n") + 1
	if lines > p.cfg.MaxLines {
		issues = append(issues, issue.New(issue.SeverityCritical, issue.PV011TooManyLines,
			fmt.Sprintf("too many lines: %d (max %d)", lines, p.cfg.MaxLines), 0, 0))
	}
	return issues
}

func (p *Prevalidator) checkStringPatterns(code string) []issue.Issue {
	var issues []issue.Issue
	for _, dp := range dangerousPatterns {
		matches := dp.re.FindAllStringIndex(code, -1)
		if len(matches) > 3 {
			matches = matches[:3]
		}
		for _, m := range matches {
			line := strings.Count(code[:m[0]], "\n") + 1
			text := code[m[0]:m[1]]
			issues = append(issues, issue.New(issue.SeverityWarning, dp.code,
				fmt.Sprintf("%s: %q", dp.message, text), line, 0))
		}
	}
	return issues
}

func (p *Prevalidator) checkNestingDepth(tree *pyast.Tree) []issue.Issue {
	depth := pyast.Depth(tree.Root)
	if depth > p.cfg.MaxNesting {
		return []issue.Issue{issue.New(issue.SeverityError, issue.PV012TooDeeplyNested,
			fmt.Sprintf("nesting too deep: %d levels (max %d)", depth, p.cfg.MaxNesting), 0, 0)}
	}
	return nil
}
