package binding

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustData(t *testing.T, src string) any {
	t.Helper()
	var data any
	if err := json.Unmarshal([]byte(src), &data); err != nil {
		t.Fatalf("解析 JSON 失败: %v", err)
	}
	return data
}

const sample = `{
  "user": {"name": "Ann & Bob", "age": 42},
  "items": [{"name": "pen", "price": 2.5}, {"name": "ink", "price": 10}],
  "matrix": [[1, 2], [3, 4]],
  "empty": [],
  "flag": false
}`

func TestExpand(t *testing.T) {
	sc := NewScope(mustData(t, sample))
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, ${user.name}!", "Hello, Ann & Bob!"},
		{"${ user.age } years", "42 years"},
		{"${items[1].name} costs ${items[0].price}", "ink costs 2.5"},
		{"${matrix[1][0]}", "3"},
		{"${missing.path}", "${missing.path}"},
		{"${items[9].name}", "${items[9].name}"},
		{"no placeholders", "no placeholders"},
		{"${flag}", "false"},
	}
	for _, c := range cases {
		if got := sc.Expand(c.in, nil); got != c.want {
			t.Fatalf("Expand(%q) = %q，期望 %q", c.in, got, c.want)
		}
	}
	escaped := sc.Expand("<b>${user.name}</b>", func(s string) string {
		return strings.ReplaceAll(s, "&", "&amp;")
	})
	if escaped != "<b>Ann &amp; Bob</b>" {
		t.Fatalf("转义后的值错误: %q", escaped)
	}
}

func TestLoopVariablesShadowRoot(t *testing.T) {
	sc := NewScope(mustData(t, sample))
	var names []string
	err := sc.Each("user", "items", func(i int, inner *Scope) error {
		v, ok := inner.Lookup("user.name")
		if !ok {
			t.Fatalf("第 %d 项缺少 name", i)
		}
		names = append(names, Format(v))
		return nil
	})
	if err != nil {
		t.Fatalf("Each 失败: %v", err)
	}
	if diff := cmp.Diff([]string{"pen", "ink"}, names); diff != "" {
		t.Fatalf("循环变量应遮蔽根数据 (-want +got):\n%s", diff)
	}
	if v, _ := sc.Lookup("user.name"); v != "Ann & Bob" {
		t.Fatalf("外层作用域不应被修改: %v", v)
	}
}

func TestNestedEach(t *testing.T) {
	sc := NewScope(mustData(t, sample))
	var got []string
	err := sc.Each("row", "matrix", func(_ int, rs *Scope) error {
		return rs.Each("cell", "row", func(_ int, cs *Scope) error {
			got = append(got, cs.Expand("${cell}/${user.age}", nil))
			return nil
		})
	})
	if err != nil {
		t.Fatalf("嵌套 Each 失败: %v", err)
	}
	if diff := cmp.Diff([]string{"1/42", "2/42", "3/42", "4/42"}, got); diff != "" {
		t.Fatalf("嵌套循环结果错误 (-want +got):\n%s", diff)
	}
}

func TestItemsErrors(t *testing.T) {
	sc := NewScope(mustData(t, sample))
	if items, err := sc.Items("nothing"); err != nil || items != nil {
		t.Fatalf("不存在的路径应返回空列表: %v %v", items, err)
	}
	if _, err := sc.Items("user"); err == nil {
		t.Fatalf("对象不能作为循环数组")
	}
	if _, ok := NewScope(nil).Lookup("a"); ok {
		t.Fatalf("空数据不应解析出值")
	}
}

func TestTruthy(t *testing.T) {
	sc := NewScope(mustData(t, sample))
	for path, want := range map[string]bool{
		"user":      true,
		"user.age":  true,
		"items":     true,
		"empty":     false,
		"flag":      false,
		"missing":   false,
		"user.name": true,
	} {
		if got := sc.Truthy(path); got != want {
			t.Fatalf("Truthy(%s) = %v，期望 %v", path, got, want)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{3.0, "3"},
		{0.125, "0.125"},
		{true, "true"},
		{[]any{1.0, "a"}, `[1,"a"]`},
		{json.Number("12"), "12"},
	}
	for _, c := range cases {
		if got := Format(c.in); got != c.want {
			t.Fatalf("Format(%v) = %q，期望 %q", c.in, got, c.want)
		}
	}
}
