package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `(?:\d+\.\d+|\.\d+|\d+)(?:pt|mm|cm|in|%)?`},
		{Name: "String", Pattern: "\"(?:\\\\.|[^\"\\\\])*\"|`[^`]*`"},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:$]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	ruleTypes  = dslLexer.Symbols()
	tokNewline = ruleTypes["Newline"]
	tokLBrace  = ruleTypes["LBrace"]
	tokRBrace  = ruleTypes["RBrace"]
	tokSymbol  = ruleTypes["Symbol"]
	tokString  = ruleTypes["String"]

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node of a document script.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one top-level section. Flow and page sections are compiled in order.
type Section struct {
	Meta   *MetaSection   `parser:"  @@"`
	Paper  *PaperSection  `parser:"| @@"`
	Styles *StylesSection `parser:"| @@"`
	Flow   *FlowSection   `parser:"| @@"`
	Page   *PageSection   `parser:"| @@"`
}

// Kind returns the human-readable section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Meta != nil:
		return "meta"
	case s.Paper != nil:
		return "paper"
	case s.Styles != nil:
		return "styles"
	case s.Flow != nil:
		return "flow"
	case s.Page != nil:
		return "page"
	default:
		return "unknown"
	}
}

// MetaSection captures document metadata assignments.
type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

// PaperSection selects the paper: `paper A4 landscape margin 2cm`
// or `paper custom 20cm 30cm`.
type PaperSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Size   string         `parser:"'paper' @Ident"`
	Params []*Lexeme      `parser:"@@*"`
}

// StylesSection derives paragraph and cell styles from the style sheet.
type StylesSection struct {
	Block *Block `parser:"'styles' @@"`
}

// FlowSection holds flowing content: paragraphs, tables, images.
type FlowSection struct {
	Block *Block `parser:"'flow' @@"`
}

// PageSection is a drawing page with absolutely positioned shapes.
type PageSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Block *Block         `parser:"'page' @@"`
}

// Block is a delimited list of statements.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement inside a block (assignment/command/text literal).
type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' Newline* @@"`
}

// Command is a content or drawing instruction with positional arguments
// and an optional body.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// TextLiteral is a bare string statement, the text of the enclosing element.
type TextLiteral struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Value StringLiteral  `parser:"@String"`
}

// Value represents an assignment value.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

// ArrayValue captures `[ ... ]` expressions.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// Expression records raw tokens for later evaluation against bound data.
// Brackets nest, so `items[0]` and multi-line index lists stay one expression.
type Expression struct {
	Parts []*Lexeme
}

// Parse implements participle.Parseable for Expression.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	depth := 0
	for !boundary(lex.Peek(), depth, true) {
		l := &Lexeme{}
		if err := l.read(lex.Next()); err != nil {
			return err
		}
		switch l.Raw {
		case "[":
			depth++
		case "]":
			depth--
		}
		e.Parts = append(e.Parts, l)
	}
	if len(e.Parts) == 0 {
		return participle.NextMatch
	}
	return nil
}

// Path joins the raw tokens back into a data path such as `items[0].name`.
func (e *Expression) Path() string {
	return JoinRaw(e.Parts)
}

// JoinRaw concatenates the raw text of lexemes.
func JoinRaw(parts []*Lexeme) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Raw)
	}
	return b.String()
}

// Lexeme is one command argument. Strings carry their unquoted text in
// Value and the source form in Raw.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable; arguments run until the end of the
// line, a block brace or a semicolon.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if boundary(lex.Peek(), 0, false) {
		return participle.NextMatch
	}
	return l.read(lex.Next())
}

func (l *Lexeme) read(tok *lexer.Token) error {
	l.Type = ruleName(tok.Type)
	l.Raw = tok.Value
	l.Pos = tok.Pos
	l.Value = tok.Value
	if tok.Type != tokString {
		return nil
	}
	v, err := strconv.Unquote(tok.Value)
	if err != nil {
		return &Error{Pos: tok.Pos, Err: err}
	}
	l.Value = v
	return nil
}

// StringLiteral is a string token with its quotes removed.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) != 1 {
		return fmt.Errorf("string literal expects one token, got %d", len(values))
	}
	v, err := strconv.Unquote(values[0])
	*s = StringLiteral(v)
	return err
}

// Parse parses a script from r; name is used in error positions.
func Parse(name string, r io.Reader) (*Document, error) {
	return documentParser.Parse(name, r)
}

// ParseString parses a script held in a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

// boundary reports whether tok ends the current argument list (expr false)
// or expression (expr true). Within brackets only EOF ends an expression.
func boundary(tok *lexer.Token, depth int, expr bool) bool {
	if tok.EOF() {
		return true
	}
	if depth > 0 {
		return false
	}
	switch tok.Type {
	case tokNewline, tokLBrace, tokRBrace:
		return true
	case tokSymbol:
		switch tok.Value {
		case ";":
			return true
		case ",", "]":
			return expr
		}
	}
	return false
}

func ruleName(t lexer.TokenType) string {
	for name, rt := range ruleTypes {
		if rt == t {
			return name
		}
	}
	return fmt.Sprintf("#%d", t)
}
