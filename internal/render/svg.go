package render

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
)

// NoDataNote is drawn in place of points when no row is plottable.
const NoDataNote = "No data"

// ScatterSVG draws the series as a standalone SVG document.
func ScatterSVG(series []Series, opts Options) []byte {
	opts = opts.withDefaults()
	f := newFrame(series, opts)
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="12">`,
		opts.Width, opts.Height, opts.Width, opts.Height)
	fmt.Fprintf(buf, `<rect width="%d" height="%d" fill="#ffffff"/>`, opts.Width, opts.Height)
	if opts.Title != "" {
		fmt.Fprintf(buf, `<text class="title" x="%d" y="%d" font-size="15">%s</text>`, f.left(), f.top()-16, html.EscapeString(opts.Title))
	}

	// axes
	fmt.Fprintf(buf, `<g class="axes" stroke="#333333"><line x1="%d" y1="%d" x2="%d" y2="%d"/><line x1="%d" y1="%d" x2="%d" y2="%d"/></g>`,
		f.left(), f.bottom(), f.right(), f.bottom(),
		f.left(), f.top(), f.left(), f.bottom())
	for _, v := range f.xTicks {
		x := coord(f.px(v))
		fmt.Fprintf(buf, `<line class="tick" x1="%s" y1="%d" x2="%s" y2="%d" stroke="#333333"/>`, x, f.bottom(), x, f.bottom()+5)
		fmt.Fprintf(buf, `<text x="%s" y="%d" text-anchor="middle">%s</text>`, x, f.bottom()+18, tickLabel(v))
	}
	for _, v := range f.yTicks {
		y := coord(f.py(v))
		fmt.Fprintf(buf, `<line class="tick" x1="%d" y1="%s" x2="%d" y2="%s" stroke="#333333"/>`, f.left()-5, y, f.left(), y)
		fmt.Fprintf(buf, `<text x="%d" y="%s" text-anchor="end" dominant-baseline="middle">%s</text>`, f.left()-8, y, tickLabel(v))
	}
	if opts.XLabel != "" {
		fmt.Fprintf(buf, `<text class="xlabel" x="%d" y="%d" text-anchor="middle">%s</text>`,
			(f.left()+f.right())/2, opts.Height-12, html.EscapeString(opts.XLabel))
	}
	if opts.YLabel != "" {
		cy := (f.top() + f.bottom()) / 2
		fmt.Fprintf(buf, `<text class="ylabel" x="16" y="%d" text-anchor="middle" transform="rotate(-90 16 %d)">%s</text>`,
			cy, cy, html.EscapeString(opts.YLabel))
	}

	if f.empty {
		fmt.Fprintf(buf, `<text class="empty" x="%d" y="%d" text-anchor="middle">%s</text>`,
			(f.left()+f.right())/2, (f.top()+f.bottom())/2, NoDataNote)
	}
	for _, s := range series {
		fmt.Fprintf(buf, `<g class="series" data-species="%s" fill="%s" fill-opacity="0.8">`, html.EscapeString(s.Name), s.Color)
		for _, p := range s.Points {
			fmt.Fprintf(buf, `<circle cx="%s" cy="%s" r="%d"/>`, coord(f.px(p.X)), coord(f.py(p.Y)), pointRadius)
		}
		buf.WriteString(`</g>`)
	}

	// legend
	if len(series) > 0 {
		lx := f.right() + 20
		fmt.Fprintf(buf, `<g class="legend"><text x="%d" y="%d" font-weight="bold">species</text>`, lx, f.top())
		for i, s := range series {
			y := f.top() + 20*(i+1)
			fmt.Fprintf(buf, `<circle cx="%d" cy="%d" r="5" fill="%s"/><text x="%d" y="%d" dominant-baseline="middle">%s</text>`,
				lx+5, y, s.Color, lx+16, y, html.EscapeString(s.Name))
		}
		buf.WriteString(`</g>`)
	}
	buf.WriteString(`</svg>`)
	return buf.Bytes()
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func tickLabel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
