// Package binding 把 JSON 数据绑定到文档脚本：${path} 插值与 each 循环。
package binding

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Scope 是作用域链。根作用域持有整份数据，each 循环在其上逐层压入循环变量。
type Scope struct {
	parent *Scope
	name   string
	value  any
}

// NewScope 以 data 为根数据创建作用域，data 可以为 nil。
func NewScope(data any) *Scope {
	return &Scope{value: data}
}

// With 返回绑定了 name 的子作用域，不修改 s。
func (s *Scope) With(name string, value any) *Scope {
	return &Scope{parent: s, name: name, value: value}
}

func (s *Scope) root() *Scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// Lookup 解析 a.b[0].c 形式的路径。首段先按循环变量由内向外查找，
// 未命中时从根数据开始解析。
func (s *Scope) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if s == nil || path == "" {
		return nil, false
	}
	head, rest, _ := strings.Cut(path, ".")
	name, indexes := parseSegment(head)
	for c := s; c.parent != nil; c = c.parent {
		if c.name != name {
			continue
		}
		v, ok := descendIndexes(c.value, indexes)
		if !ok {
			return nil, false
		}
		if rest == "" {
			return v, true
		}
		return resolvePath(v, rest)
	}
	return resolvePath(s.root().value, path)
}

// Expand 把文本中的 ${path} 替换为数据值，escape 非空时先对值转义。
// 路径不存在时保留原占位符。
func (s *Scope) Expand(text string, escape func(string) string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		val, ok := s.Lookup(groups[1])
		if !ok {
			return match
		}
		out := Format(val)
		if escape != nil {
			out = escape(out)
		}
		return out
	})
}

// Items 返回路径指向的数组。路径不存在时返回空列表，不是数组时返回错误。
func (s *Scope) Items(path string) ([]any, error) {
	val, ok := s.Lookup(path)
	if !ok || val == nil {
		return nil, nil
	}
	items, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("%s 不是数组 (%T)", path, val)
	}
	return items, nil
}

// Each 依次把数组元素绑定为 name 并调用 fn。
func (s *Scope) Each(name, path string, fn func(i int, sc *Scope) error) error {
	items, err := s.Items(path)
	if err != nil {
		return err
	}
	for i, item := range items {
		if err := fn(i, s.With(name, item)); err != nil {
			return err
		}
	}
	return nil
}

// Truthy 判断路径的值是否为真：存在且不是 false、0、空字符串、空数组或 null。
func (s *Scope) Truthy(path string) bool {
	val, ok := s.Lookup(path)
	if !ok {
		return false
	}
	switch v := val.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

// Format 把 JSON 值转为文本。整数值的浮点数不带小数点，对象与数组输出为 JSON。
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case map[string]any, []any:
		out, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(out)
	}
	return fmt.Sprint(v)
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		var ok bool
		current, ok = descendIndexes(current, indexes)
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func descendIndexes(current any, indexes []string) (any, bool) {
	for _, idxStr := range indexes {
		idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
		if err != nil {
			return nil, false
		}
		var ok bool
		current, ok = descendArray(current, idx)
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	segment = strings.TrimSpace(segment)
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	c, ok := current.(map[string]any)
	if !ok {
		return nil, false
	}
	val, ok := c[key]
	return val, ok
}

func descendArray(current any, idx int) (any, bool) {
	c, ok := current.([]any)
	if !ok || idx < 0 || idx >= len(c) {
		return nil, false
	}
	return c[idx], true
}
