package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/docgen/binding"
	"github.com/ByLCY/docgen/layout"
)

// args 按顺序读取命令参数，字符串参数在读取时完成 ${} 插值。
type args struct {
	pos  lexer.Position
	list []*Lexeme
	i    int
	sc   *binding.Scope
}

func commandArgs(cmd *Command, sc *binding.Scope) *args {
	return &args{pos: cmd.Pos, list: cmd.Args, sc: sc}
}

func (a *args) more() bool { return a.i < len(a.list) }

func (a *args) peek() *Lexeme {
	if !a.more() {
		return nil
	}
	return a.list[a.i]
}

func (a *args) here() lexer.Position {
	if l := a.peek(); l != nil {
		return l.Pos
	}
	return a.pos
}

func (a *args) errorf(format string, v ...any) error {
	return &Error{Pos: a.here(), Err: fmt.Errorf(format, v...)}
}

// isWord 判断下一个参数是否为标识符 w。
func (a *args) isWord(w string) bool {
	l := a.peek()
	return l != nil && l.Type == "Ident" && l.Value == w
}

func (a *args) word() (string, error) {
	l := a.peek()
	if l == nil || l.Type != "Ident" {
		return "", a.errorf("需要名称")
	}
	a.i++
	return l.Value, nil
}

// name 读取可选的位置名称参数；下一个标识符是选项关键字时返回空。
func (a *args) name(keywords map[string]func() error) string {
	l := a.peek()
	if l == nil || l.Type != "Ident" {
		return ""
	}
	if _, ok := keywords[l.Value]; ok {
		return ""
	}
	a.i++
	return l.Value
}

func (a *args) isText() bool {
	l := a.peek()
	return l != nil && l.Type == "String"
}

// text 读取字符串参数，escape 用于插值结果。
func (a *args) text(escape func(string) string) (string, error) {
	if !a.isText() {
		return "", a.errorf("需要字符串")
	}
	l := a.list[a.i]
	a.i++
	return a.sc.Expand(l.Value, escape), nil
}

// signed 读取可带负号的数字字面量。
func (a *args) signed() (string, error) {
	neg := false
	if l := a.peek(); l != nil && l.Type == "Symbol" && l.Value == "-" {
		neg = true
		a.i++
	}
	l := a.peek()
	if l == nil || l.Type != "Number" {
		return "", a.errorf("需要数字")
	}
	a.i++
	if neg {
		return "-" + l.Value, nil
	}
	return l.Value, nil
}

// length 读取长度并换算为厘米，无单位时按厘米计。
func (a *args) length() (float64, error) {
	pos := a.here()
	s, err := a.signed()
	if err != nil {
		return 0, err
	}
	if strings.HasSuffix(s, "%") {
		return 0, &Error{Pos: pos, Err: fmt.Errorf("长度不能使用百分比 %s", s)}
	}
	l, err := layout.ParseLength(s)
	if err != nil {
		return 0, &Error{Pos: pos, Err: err}
	}
	return l.CM(), nil
}

// number 读取纯数字，允许百分号后缀。
func (a *args) number() (float64, error) {
	pos := a.here()
	s, err := a.signed()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, &Error{Pos: pos, Err: fmt.Errorf("数字格式错误 %s", s)}
	}
	return v, nil
}

func (a *args) integer() (int, error) {
	pos := a.here()
	v, err := a.number()
	if err != nil {
		return 0, err
	}
	if v != float64(int(v)) {
		return 0, &Error{Pos: pos, Err: fmt.Errorf("需要整数，得到 %g", v)}
	}
	return int(v), nil
}

// lengths 读取 n 个长度。
func (a *args) lengths(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := a.length()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// rest 把剩余参数按原文拼接，用于数据路径。
func (a *args) rest() string {
	s := JoinRaw(a.list[a.i:])
	a.i = len(a.list)
	return s
}

// options 读取剩余的 关键字 [值] 参数，每个关键字交给对应的处理函数。
func (a *args) options(handlers map[string]func() error) error {
	for a.more() {
		w, err := a.word()
		if err != nil {
			return err
		}
		h, ok := handlers[w]
		if !ok {
			a.i--
			return a.errorf("未知参数 %s", w)
		}
		if err := h(); err != nil {
			return err
		}
	}
	return nil
}

// mixed 读取剩余参数：字符串按出现顺序收集，标识符按选项处理。
func (a *args) mixed(handlers map[string]func() error, escape func(string) string) ([]string, error) {
	var texts []string
	for a.more() {
		if a.isText() {
			s, err := a.text(escape)
			if err != nil {
				return nil, err
			}
			texts = append(texts, s)
			continue
		}
		w, err := a.word()
		if err != nil {
			return nil, err
		}
		h, ok := handlers[w]
		if !ok {
			a.i--
			return nil, a.errorf("未知参数 %s", w)
		}
		if err := h(); err != nil {
			return nil, err
		}
	}
	return texts, nil
}

func (a *args) end() error {
	if a.more() {
		return a.errorf("多余的参数 %s", a.peek().Raw)
	}
	return nil
}
