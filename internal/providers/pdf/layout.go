package pdf

import (
	"bytes"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const bodySize = 9

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func addTitle(m core.Maroto, title, subtitle string) {
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	if subtitle != "" {
		m.AddRow(8, text.NewCol(12, subtitle, props.Text{Size: 11}))
	}
}

func addSectionHeader(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)
}

func addRule(m core.Maroto) {
	m.AddRow(2, line.NewCol(12))
}

// addTableRow lays out cells over the given column widths. The first column
// is left aligned and the rest right aligned.
func addTableRow(m core.Maroto, widths []int, cells []string, bold bool) {
	cols := make([]core.Col, 0, len(widths))
	for i, width := range widths {
		value := ""
		if i < len(cells) {
			value = cells[i]
		}
		p := props.Text{Size: bodySize, Align: align.Right}
		if i == 0 {
			p.Align = align.Left
		}
		if bold {
			p.Style = fontstyle.Bold
		}
		cols = append(cols, text.NewCol(width, value, p))
	}
	m.AddRow(7, cols...)
}

func addTotalLine(m core.Maroto, label, amount string, bold bool) {
	p := props.Text{Size: bodySize}
	if bold {
		p.Style = fontstyle.Bold
	}
	right := p
	right.Align = align.Right
	m.AddRow(7,
		col.New(7),
		text.NewCol(3, label, p),
		text.NewCol(2, amount, right),
	)
}

func addKeyValue(m core.Maroto, key, value string) {
	m.AddRow(6,
		text.NewCol(4, key, props.Text{Size: bodySize, Style: fontstyle.Bold}),
		text.NewCol(8, value, props.Text{Size: bodySize}),
	)
}

func render(m core.Maroto) (io.Reader, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
