package markup

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/docgen/style"
)

// ErrSyntax 标记不合法：未知标签、标签未闭合或交叉嵌套。
var ErrSyntax = errors.New("markup: 标记语法错误")

var (
	markupLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "TagOpen", Pattern: `<`, Action: lexer.Push("Tag")},
			{Name: "Entity", Pattern: `&(?:[A-Za-z][A-Za-z0-9]*|#[0-9]+|#[xX][0-9A-Fa-f]+);`},
			{Name: "Amp", Pattern: `&`},
			{Name: "Text", Pattern: `[^<&]+`},
		},
		"Tag": {
			{Name: "TagSpace", Pattern: `\s+`},
			{Name: "Slash", Pattern: `/`},
			{Name: "Name", Pattern: `[A-Za-z][A-Za-z0-9_-]*`},
			{Name: "Eq", Pattern: `=`},
			{Name: "Quoted", Pattern: `"[^"]*"|'[^']*'`},
			{Name: "TagClose", Pattern: `>`, Action: lexer.Pop()},
		},
	})

	markupParser = participle.MustBuild[markupAST](
		participle.Lexer(markupLexer),
		participle.Elide("TagSpace"),
		participle.UseLookahead(3),
	)
)

type markupAST struct {
	Nodes []*markupNode `parser:"@@*"`
}

type markupNode struct {
	Close  *closeTag `parser:"  @@"`
	Open   *openTag  `parser:"| @@"`
	Entity *string   `parser:"| @Entity"`
	Text   *string   `parser:"| @(Text | Amp)"`
}

type closeTag struct {
	Name string `parser:"'<' '/' @Name '>'"`
}

type openTag struct {
	Name      string     `parser:"'<' @Name"`
	Attrs     []*tagAttr `parser:"@@*"`
	SelfClose bool       `parser:"@'/'? '>'"`
}

type tagAttr struct {
	Key   string `parser:"@Name '='"`
	Value string `parser:"@Quoted"`
}

type openSpan struct {
	tag  string
	span Span
}

// Parse 解析标记字符串。不含 '<' 与 '&' 的输入直接作为纯文本返回。
func Parse(s string) (Text, error) {
	if !strings.ContainsAny(s, "<&") {
		return Text{Plain: s}, nil
	}
	ast, err := markupParser.ParseString("", s)
	if err != nil {
		return Text{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	var (
		out   Text
		b     strings.Builder
		stack []openSpan
	)
	for _, n := range ast.Nodes {
		switch {
		case n.Text != nil:
			b.WriteString(*n.Text)
		case n.Entity != nil:
			b.WriteString(html.UnescapeString(*n.Entity))
		case n.Open != nil:
			if n.Open.SelfClose {
				if strings.EqualFold(n.Open.Name, "br") {
					b.WriteByte('\n')
					continue
				}
				return Text{}, fmt.Errorf("%w: 不支持自闭合标签 <%s/>", ErrSyntax, n.Open.Name)
			}
			sp, err := spanFor(n.Open)
			if err != nil {
				return Text{}, err
			}
			sp.Start = b.Len()
			stack = append(stack, openSpan{tag: strings.ToLower(n.Open.Name), span: sp})
		case n.Close != nil:
			name := strings.ToLower(n.Close.Name)
			if len(stack) == 0 || stack[len(stack)-1].tag != name {
				return Text{}, fmt.Errorf("%w: 多余或交叉的结束标签 </%s>", ErrSyntax, name)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.span.End = b.Len()
			out.AddSpan(top.span)
		}
	}
	if len(stack) > 0 {
		return Text{}, fmt.Errorf("%w: 标签 <%s> 未闭合", ErrSyntax, stack[len(stack)-1].tag)
	}
	out.Plain = b.String()
	return out, nil
}

func spanFor(t *openTag) (Span, error) {
	attrs := map[string]string{}
	for _, a := range t.Attrs {
		v := a.Value
		if len(v) >= 2 {
			v = v[1 : len(v)-1]
		}
		attrs[strings.ToLower(a.Key)] = html.UnescapeString(v)
	}
	name := strings.ToLower(t.Name)
	for _, at := range attrTags {
		if at.tag == name {
			return Span{Attr: at.attr}, nil
		}
	}
	switch name {
	case "a":
		href := attrs["href"]
		if href == "" {
			return Span{}, fmt.Errorf("%w: <a> 缺少 href", ErrSyntax)
		}
		return Span{Attr: Link, Href: href}, nil
	case "span":
		var sp Span
		if fg, ok := attrs["foreground"]; ok {
			c, err := style.ParseColor(fg)
			if err != nil {
				return Span{}, fmt.Errorf("%w: %v", ErrSyntax, err)
			}
			sp.Color = &c
		}
		if attrs["weight"] == "bold" {
			sp.Attr |= Bold
		}
		if attrs["style"] == "italic" {
			sp.Attr |= Italic
		}
		if u, ok := attrs["underline"]; ok && u != "none" {
			sp.Attr |= Underline
		}
		return sp, nil
	}
	return Span{}, fmt.Errorf("%w: 未知标签 <%s>", ErrSyntax, t.Name)
}
