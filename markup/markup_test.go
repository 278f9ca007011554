package markup

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSpans(t *testing.T) {
	got, err := Parse(`Hello <b>bold <i>both</i></b> &amp; <a href="http://x.org">link</a>`)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if got.Plain != "Hello bold both & link" {
		t.Fatalf("纯文本错误: %q", got.Plain)
	}
	want := []Run{
		{Text: "Hello ", Start: 0, End: 6},
		{Text: "bold ", Start: 6, End: 11, Attr: Bold},
		{Text: "both", Start: 11, End: 15, Attr: Bold | Italic},
		{Text: " & ", Start: 15, End: 18},
		{Text: "link", Start: 18, End: 22, Attr: Link, Href: "http://x.org"},
	}
	if diff := cmp.Diff(want, got.Runs()); diff != "" {
		t.Fatalf("Runs 不符 (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"<b>unclosed",
		"<b><i>crossed</b></i>",
		"</b>",
		"<blink>x</blink>",
		`<a>no href</a>`,
	} {
		if _, err := Parse(in); !errors.Is(err, ErrSyntax) {
			t.Fatalf("%q: 期望 ErrSyntax，得到 %v", in, err)
		}
	}
}

func TestLoneAmpersandIsText(t *testing.T) {
	got, err := Parse("R&D <tt>x</tt>")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if got.Plain != "R&D x" {
		t.Fatalf("纯文本错误: %q", got.Plain)
	}
}

func TestSliceCarriesSpans(t *testing.T) {
	txt, _ := Parse("aa <b>bbbb</b> cc")
	tail := txt.Slice(5, txt.Len())
	if tail.Plain != "bb cc" {
		t.Fatalf("Slice 文本错误: %q", tail.Plain)
	}
	want := []Span{{Start: 0, End: 2, Attr: Bold}}
	if diff := cmp.Diff(want, tail.Spans); diff != "" {
		t.Fatalf("Slice 跨度错误:\n%s", diff)
	}
	head := txt.Slice(0, 5)
	if head.String() != "aa <b>bb</b>" {
		t.Fatalf("序列化错误: %q", head.String())
	}
}

func TestStringRoundTrip(t *testing.T) {
	in := `x <span foreground="#ff0000"><u>red</u></span> <sup>2</sup> a&lt;b`
	txt, err := Parse(in)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(txt.String())
	if err != nil {
		t.Fatalf("重新解析失败: %v", err)
	}
	if diff := cmp.Diff(txt.Runs(), again.Runs()); diff != "" {
		t.Fatalf("往返不一致:\n%s", diff)
	}
}

func TestAppendShiftsSpans(t *testing.T) {
	var a Text
	a.AppendString("ab")
	b, _ := Parse("<i>cd</i>")
	a.Append(b)
	if diff := cmp.Diff([]Span{{Start: 2, End: 4, Attr: Italic}}, a.Spans); diff != "" {
		t.Fatalf("Append 跨度错误:\n%s", diff)
	}
}
