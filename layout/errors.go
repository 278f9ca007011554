package layout

import (
	"errors"
	"fmt"

	"github.com/ByLCY/docgen/doc"
)

var (
	// ErrDoesNotFit 表示节点在全新的一页上也无法放下任何内容。
	ErrDoesNotFit = errors.New("layout: 内容无法放入页面")
	// ErrNoFixedPoint 表示目录与索引页数在最大轮数内没有稳定。
	ErrNoFixedPoint = errors.New("layout: 目录与索引页码未收敛")
	// ErrNoMetrics 表示未提供文本度量。
	ErrNoMetrics = errors.New("layout: 缺少文本度量 Metrics")
)

// Error 描述一次致命的排版失败。Requested 为节点完整高度，Available 为整页可用高度，单位厘米。
type Error struct {
	Node      doc.Node
	Requested float64
	Available float64
}

func (e *Error) Error() string {
	kind := "node"
	if e.Node != nil {
		kind = e.Node.Kind().String()
	}
	return fmt.Sprintf("layout: %s 需要 %.2fcm，整页仅有 %.2fcm: %v", kind, e.Requested, e.Available, ErrDoesNotFit)
}

func (e *Error) Unwrap() error { return ErrDoesNotFit }
