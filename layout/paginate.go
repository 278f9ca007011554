package layout

import (
	"fmt"

	"github.com/ByLCY/docgen/doc"
)

// pager 依次把节点放入页面，放不下的剩余部分回到队首。
type pager struct {
	d      *divider
	opts   Options
	pages  []Page
	cur    *Page
	used   float64
	width  float64
	height float64
	// marker 当前页是目录或索引占位页，后续内容需另起一页；紧随其后的分页并入该页。
	marker bool
}

func newPager(opts Options) *pager {
	p := &pager{
		d:      &divider{m: opts.Metrics},
		opts:   opts,
		width:  opts.Width,
		height: opts.Height,
	}
	p.cur = &Page{}
	return p
}

func (p *pager) place(b box, n doc.Block) {
	p.cur.Blocks = append(p.cur.Blocks, n)
	if b != nil {
		p.cur.boxes = append(p.cur.boxes, placedBox{y: p.used, box: b})
		p.used += b.height()
	}
}

func (p *pager) flush() {
	p.cur.Number = len(p.pages) + 1
	p.opts.Logger.Debug("page flushed", "page", p.cur.Number, "blocks", len(p.cur.Blocks), "used", p.used)
	p.pages = append(p.pages, *p.cur)
	p.cur = &Page{}
	p.used = 0
	p.marker = false
}

// Paginate 把文档顶层节点分配到页面。返回的页面按顺序编号（从 1 开始），
// 不包含目录与索引的重排；需要目录与索引时使用 Build。
func Paginate(d *doc.Document, opts Options) ([]Page, error) {
	opts, err := prepare(d, opts)
	if err != nil {
		return nil, err
	}
	return paginate(d.Children, opts)
}

func prepare(d *doc.Document, opts Options) (Options, error) {
	if d == nil {
		return opts, fmt.Errorf("layout: 文档为空")
	}
	if opts.Metrics == nil {
		return opts, ErrNoMetrics
	}
	opts = opts.withDefaults()
	if opts.Width <= 0 {
		opts.Width = d.Paper.UsableWidth()
	}
	if opts.Height <= 0 {
		opts.Height = d.Paper.UsableHeight()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return opts, fmt.Errorf("layout: 页面可用区域无效 %.2fx%.2f", opts.Width, opts.Height)
	}
	return opts, nil
}

func paginate(blocks []doc.Block, opts Options) ([]Page, error) {
	p := newPager(opts)
	queue := append([]doc.Block(nil), blocks...)
	for len(queue) > 0 {
		blk := queue[0]
		queue = queue[1:]

		switch blk.(type) {
		case *doc.PageBreak:
			p.place(nil, blk)
			p.flush()
			continue
		case *doc.TOCMarker, *doc.IndexMarker:
			// 目录与索引各自独占页面，之后整页替换。
			if !p.cur.Empty() {
				p.flush()
			}
			p.place(&markerBox{block: blk}, blk)
			p.marker = true
			continue
		}
		if p.marker {
			p.flush()
		}

		fresh := p.cur.Empty()
		b, rest, err := p.d.divideBlock(blk, p.width, p.height-p.used, flow{fresh: fresh})
		if err != nil {
			return nil, err
		}
		if b == nil && rest != nil {
			if fresh {
				return nil, p.doesNotFit(blk)
			}
			p.flush()
			queue = append([]doc.Block{blk}, queue...)
			continue
		}
		p.place(b, b.node().(doc.Block))
		if rest != nil {
			queue = append([]doc.Block{rest}, queue...)
			p.flush()
		}
	}
	if !p.cur.Empty() || len(p.pages) == 0 {
		p.flush()
	}
	return p.pages, nil
}

// doesNotFit 用不限高度的排版得到节点的完整高度，作为错误信息。
func (p *pager) doesNotFit(blk doc.Block) error {
	e := &Error{Node: blk, Available: p.height}
	if b, _, err := p.d.divideBlock(blk, p.width, noWrap, flow{fresh: true}); err == nil && b != nil {
		e.Requested = b.height()
	}
	return e
}
