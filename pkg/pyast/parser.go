package pyast

// Parse tokenizes and parses src, returning the module tree. Any lexical or
// structural failure is returned as a *ParseError carrying the original
// line and column, the same contract Tokenize exposes.
func Parse(src string) (*Tree, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	body, err := p.parseBlockTopLevel()
	if err != nil {
		return nil, err
	}
	root := &Node{Kind: KindModule, Body: body, Line: 1, EndLine: len(splitLines(src))}
	return &Tree{Root: root, Lines: splitLines(src)}, nil
}

func splitLines(src string) []string {
	lines := []string{""}
	start := 0
	for i, r := range src {
		if r == '\n' {
			lines[len(lines)-1] = src[start:i]
			lines = append(lines, "")
			start = i + 1
		}
	}
	lines[len(lines)-1] = src[start:]
	return lines
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) Token {
	idx := p.pos + off
	if idx < 0 || idx >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[idx]
}

func (p *parser) next() Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) skipBlankLines() {
	for p.peek().Kind == TokNewline {
		p.next()
	}
}

// parseBlockTopLevel parses statements until EOF, for the module body.
func (p *parser) parseBlockTopLevel() ([]*Node, error) {
	var stmts []*Node
	for {
		p.skipBlankLines()
		if p.peek().Kind == TokEOF {
			return stmts, nil
		}
		n, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if n != nil {
			stmts = append(stmts, n)
		}
	}
}

// parseBlock parses statements until a DEDENT (or EOF, defensively), for a
// nested suite. It does not consume the terminating DEDENT.
func (p *parser) parseBlock() ([]*Node, error) {
	var stmts []*Node
	for {
		p.skipBlankLines()
		k := p.peek().Kind
		if k == TokDedent || k == TokEOF {
			return stmts, nil
		}
		n, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if n != nil {
			stmts = append(stmts, n)
		}
	}
}

// parseSuite consumes ':' NEWLINE INDENT block DEDENT, or the one-liner form
// ': stmt NEWLINE' when the body lives on the header's own line.
func (p *parser) parseSuite() ([]*Node, error) {
	colon := p.next()
	if colon.Kind != TokOp || colon.Text != ":" {
		return nil, &ParseError{Msg: "expected ':'", Line: colon.Line, Column: colon.Column}
	}
	if p.peek().Kind != TokNewline {
		// One-liner suite: "if x: pass"
		n, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if n == nil {
			return nil, nil
		}
		return []*Node{n}, nil
	}
	p.next() // consume NEWLINE
	p.skipBlankLines()
	if p.peek().Kind != TokIndent {
		return nil, &ParseError{Msg: "expected an indented block", Line: p.peek().Line, Column: p.peek().Column}
	}
	p.next() // consume INDENT
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == TokDedent {
		p.next()
	}
	return body, nil
}

// collectUntilNewline gathers tokens up to (not including) the terminating
// NEWLINE, honoring that the lexer already merges bracketed continuations
// into a single logical line.
func (p *parser) collectUntilNewline() []Token {
	var toks []Token
	for p.peek().Kind != TokNewline && p.peek().Kind != TokEOF {
		toks = append(toks, p.next())
	}
	if p.peek().Kind == TokNewline {
		p.next()
	}
	return toks
}

func (p *parser) lastConsumedLine() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].Line
}

func (p *parser) parseStatement() (*Node, error) {
	t := p.peek()
	switch {
	case t.Kind == TokName && t.Text == "import":
		return p.parseImport()
	case t.Kind == TokName && t.Text == "from":
		return p.parseImportFrom()
	case t.Kind == TokName && t.Text == "async" && p.peekAt(1).Kind == TokName && p.peekAt(1).Text == "def":
		p.next()
		return p.parseFunctionDef(true)
	case t.Kind == TokName && t.Text == "def":
		return p.parseFunctionDef(false)
	case t.Kind == TokName && t.Text == "class":
		return p.parseClassDef()
	case t.Kind == TokName && (t.Text == "if" || t.Text == "elif"):
		return p.parseIf()
	case t.Kind == TokName && t.Text == "while":
		return p.parseWhile()
	case t.Kind == TokName && t.Text == "for":
		return p.parseFor()
	case t.Kind == TokName && t.Text == "with":
		return p.parseWith()
	case t.Kind == TokName && t.Text == "try":
		return p.parseTry()
	case t.Kind == TokName && t.Text == "return":
		return p.parseReturn()
	case t.Kind == TokName && t.Text == "break":
		start := t
		p.next()
		p.collectUntilNewline()
		return &Node{Kind: KindBreak, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}, nil
	case t.Kind == TokName && t.Text == "pass":
		start := t
		p.next()
		p.collectUntilNewline()
		return &Node{Kind: KindPass, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}, nil
	default:
		return p.parseSimple()
	}
}

func (p *parser) parseImport() (*Node, error) {
	start := p.next() // "import"
	var names []string
	for {
		name, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if p.peek().Kind == TokName && p.peek().Text == "as" {
			p.next()
			p.next() // alias
		}
		if p.peek().Kind == TokOp && p.peek().Text == "," {
			p.next()
			continue
		}
		break
	}
	p.collectUntilNewline()
	return &Node{Kind: KindImport, Names: names, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}, nil
}

func (p *parser) parseImportFrom() (*Node, error) {
	start := p.next() // "from"
	var mod string
	for p.peek().Kind == TokOp && p.peek().Text == "." {
		mod += "."
		p.next()
	}
	if p.peek().Kind == TokName && p.peek().Text != "import" {
		name, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		mod += name
	}
	if p.peek().Kind == TokName && p.peek().Text == "import" {
		p.next()
	}
	var names []string
	if p.peek().Kind == TokOp && p.peek().Text == "*" {
		p.next()
		names = append(names, "*")
	} else {
		paren := p.peek().Kind == TokOp && p.peek().Text == "("
		if paren {
			p.next()
		}
		for {
			if p.peek().Kind != TokName {
				break
			}
			names = append(names, p.next().Text)
			if p.peek().Kind == TokName && p.peek().Text == "as" {
				p.next()
				p.next()
			}
			if p.peek().Kind == TokOp && p.peek().Text == "," {
				p.next()
				continue
			}
			break
		}
		if paren && p.peek().Kind == TokOp && p.peek().Text == ")" {
			p.next()
		}
	}
	p.collectUntilNewline()
	return &Node{Kind: KindImportFrom, Name: mod, Names: names, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}, nil
}

func (p *parser) parseDottedName() (string, error) {
	if p.peek().Kind != TokName {
		return "", &ParseError{Msg: "expected a name", Line: p.peek().Line, Column: p.peek().Column}
	}
	name := p.next().Text
	for p.peek().Kind == TokOp && p.peek().Text == "." {
		p.next()
		if p.peek().Kind != TokName {
			return "", &ParseError{Msg: "expected a name after '.'", Line: p.peek().Line, Column: p.peek().Column}
		}
		name += "." + p.next().Text
	}
	return name, nil
}

func (p *parser) parseFunctionDef(isAsync bool) (*Node, error) {
	start := p.next() // "def"
	nameTok := p.next()
	header := []Token{start, nameTok}
	depth := 0
	for depth > 0 || p.peek().Kind != TokOp || p.peek().Text != ":" {
		if p.peek().Kind == TokEOF || p.peek().Kind == TokNewline {
			return nil, &ParseError{Msg: "expected ':'", Line: p.peek().Line, Column: p.peek().Column}
		}
		depth += bracketDelta(p.peek())
		header = append(header, p.next())
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &Node{
		Kind:         kindFor(isAsync),
		Name:         nameTok.Text,
		IsAsync:      isAsync,
		HeaderTokens: header,
		Body:         body,
		Line:         start.Line,
		Column:       start.Column,
		EndLine:      p.lastConsumedLine(),
	}, nil
}

func kindFor(isAsync bool) Kind {
	if isAsync {
		return KindAsyncFunctionDef
	}
	return KindFunctionDef
}

func (p *parser) parseClassDef() (*Node, error) {
	start := p.next() // "class"
	nameTok := p.next()
	header := []Token{start, nameTok}
	for p.peek().Kind != TokOp || p.peek().Text != ":" {
		if p.peek().Kind == TokEOF || p.peek().Kind == TokNewline {
			return nil, &ParseError{Msg: "expected ':'", Line: p.peek().Line, Column: p.peek().Column}
		}
		header = append(header, p.next())
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindClassDef, Name: nameTok.Text, HeaderTokens: header, Body: body, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}, nil
}

// parseIf handles a full if/elif/else chain, folding each elif into the
// Orelse of the node before it — the same nesting ast.parse produces.
func (p *parser) parseIf() (*Node, error) {
	start := p.next() // "if" or "elif"
	test, err := p.collectTestTokens()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: KindIf, Test: test, Body: body, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}

	p.skipBlankLines()
	switch {
	case p.peek().Kind == TokName && p.peek().Text == "elif":
		child, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		node.Orelse = []*Node{child}
	case p.peek().Kind == TokName && p.peek().Text == "else":
		p.next()
		elseBody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		node.Orelse = elseBody
	}
	if len(node.Orelse) > 0 {
		node.EndLine = p.lastConsumedLine()
	}
	return node, nil
}

// collectTestTokens gathers the condition tokens between the keyword and the
// trailing ':', used by rules to detect patterns like "while True".
func (p *parser) collectTestTokens() ([]Token, error) {
	var toks []Token
	depth := 0
	for depth > 0 || p.peek().Kind != TokOp || p.peek().Text != ":" {
		if p.peek().Kind == TokEOF || p.peek().Kind == TokNewline {
			return nil, &ParseError{Msg: "expected ':'", Line: p.peek().Line, Column: p.peek().Column}
		}
		depth += bracketDelta(p.peek())
		toks = append(toks, p.next())
	}
	return toks, nil
}

// bracketDelta is +1 for an opening bracket, -1 for a closing one, else 0,
// so header scans can skip ':' inside annotations, slices and dict literals.
func bracketDelta(t Token) int {
	if t.Kind != TokOp {
		return 0
	}
	switch t.Text {
	case "(", "[", "{":
		return 1
	case ")", "]", "}":
		return -1
	}
	return 0
}

func (p *parser) parseWhile() (*Node, error) {
	start := p.next() // "while"
	test, err := p.collectTestTokens()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: KindWhile, Test: test, Body: body, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}
	p.skipBlankLines()
	if p.peek().Kind == TokName && p.peek().Text == "else" {
		p.next()
		orelse, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		node.Orelse = orelse
		node.EndLine = p.lastConsumedLine()
	}
	return node, nil
}

func (p *parser) parseFor() (*Node, error) {
	start := p.next() // "for", or "async" already consumed by caller? for-loops can be async too.
	test, err := p.collectTestTokens()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: KindFor, Test: test, Body: body, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}
	p.skipBlankLines()
	if p.peek().Kind == TokName && p.peek().Text == "else" {
		p.next()
		orelse, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		node.Orelse = orelse
		node.EndLine = p.lastConsumedLine()
	}
	return node, nil
}

func (p *parser) parseWith() (*Node, error) {
	start := p.next() // "with"
	header, err := p.collectTestTokens()
	if err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindWith, HeaderTokens: header, Body: body, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}, nil
}

func (p *parser) parseTry() (*Node, error) {
	start := p.next() // "try"
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: KindTry, Body: body, Line: start.Line, Column: start.Column}

	p.skipBlankLines()
	for p.peek().Kind == TokName && p.peek().Text == "except" {
		hStart := p.next()
		for p.peek().Kind != TokOp || p.peek().Text != ":" {
			if p.peek().Kind == TokEOF || p.peek().Kind == TokNewline {
				return nil, &ParseError{Msg: "expected ':'", Line: p.peek().Line, Column: p.peek().Column}
			}
			p.next()
		}
		hBody, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		node.Handlers = append(node.Handlers, &Node{Kind: KindExceptHandler, Body: hBody, Line: hStart.Line, Column: hStart.Column, EndLine: p.lastConsumedLine()})
		p.skipBlankLines()
	}
	if p.peek().Kind == TokName && p.peek().Text == "else" {
		p.next()
		orelse, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		node.Orelse = orelse
		p.skipBlankLines()
	}
	if p.peek().Kind == TokName && p.peek().Text == "finally" {
		p.next()
		fin, err := p.parseSuite()
		if err != nil {
			return nil, err
		}
		node.Finally = fin
	}
	node.EndLine = p.lastConsumedLine()
	return node, nil
}

func (p *parser) parseReturn() (*Node, error) {
	start := p.next() // "return"
	hasValue := p.peek().Kind != TokNewline && p.peek().Kind != TokEOF
	toks := p.collectUntilNewline()
	return &Node{Kind: KindReturn, HeaderTokens: toks, Name: boolToHasValue(hasValue), Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}, nil
}

// boolToHasValue stashes "return <expr>" vs bare "return" in Name, since
// Node has no dedicated bool field for it and this keeps Node's shape
// uniform across kinds.
func boolToHasValue(v bool) string {
	if v {
		return "value"
	}
	return ""
}

func (p *parser) parseSimple() (*Node, error) {
	start := p.peek()
	toks := p.collectUntilNewline()
	if len(toks) == 0 {
		return nil, nil
	}
	return &Node{Kind: KindExprStmt, HeaderTokens: toks, Line: start.Line, Column: start.Column, EndLine: p.lastConsumedLine()}, nil
}
