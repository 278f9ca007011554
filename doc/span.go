package doc

import "github.com/ByLCY/docgen/markup"

// spanState 描述内联强调（粗体、上标）是否处于打开状态。
type spanState int

const (
	spanClosed spanState = iota
	// 已打开，后续写入的文本都落在该跨度内。
	spanPending
)

type pendingSpan struct {
	attr  markup.Attr
	start int
}

// spanTracker 跟踪未关闭的强调跨度。跨度在关闭或 flush 时才写入文本，
// 空跨度被丢弃。
type spanTracker struct {
	state spanState
	open  []pendingSpan
}

func (s *spanTracker) start(attr markup.Attr, at int) {
	s.open = append(s.open, pendingSpan{attr: attr, start: at})
	s.state = spanPending
}

// end 关闭最近打开的同类跨度；没有可关闭的跨度时返回 false。
func (s *spanTracker) end(attr markup.Attr, at int, into *markup.Text) bool {
	for i := len(s.open) - 1; i >= 0; i-- {
		if s.open[i].attr != attr {
			continue
		}
		into.AddSpan(markup.Span{Start: s.open[i].start, End: at, Attr: attr})
		s.open = append(s.open[:i], s.open[i+1:]...)
		if len(s.open) == 0 {
			s.state = spanClosed
		}
		return true
	}
	return false
}

// flush 关闭全部未关闭的跨度。
func (s *spanTracker) flush(at int, into *markup.Text) {
	if s.state == spanClosed {
		return
	}
	for _, p := range s.open {
		into.AddSpan(markup.Span{Start: p.start, End: at, Attr: p.attr})
	}
	s.open = s.open[:0]
	s.state = spanClosed
}
