package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
)

var (
	axisColor = color.RGBA{0x33, 0x33, 0x33, 0xff}
	gridColor = color.RGBA{0xe5, 0xe5, 0xe5, 0xff}
)

// ScatterPNG rasterizes the plot. Text is not drawn; axes, tick marks, grid
// lines, points and legend swatches are.
func ScatterPNG(series []Series, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	f := newFrame(series, opts)
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	for _, v := range f.xTicks {
		x := int(f.px(v))
		fill(img, image.Rect(x, f.top(), x+1, f.bottom()), gridColor)
		fill(img, image.Rect(x, f.bottom(), x+1, f.bottom()+5), axisColor)
	}
	for _, v := range f.yTicks {
		y := int(f.py(v))
		fill(img, image.Rect(f.left(), y, f.right(), y+1), gridColor)
		fill(img, image.Rect(f.left()-5, y, f.left(), y+1), axisColor)
	}
	fill(img, image.Rect(f.left(), f.bottom(), f.right(), f.bottom()+1), axisColor)
	fill(img, image.Rect(f.left(), f.top(), f.left()+1, f.bottom()+1), axisColor)

	for i, s := range series {
		c := parseHex(s.Color)
		for _, p := range s.Points {
			disc(img, int(f.px(p.X)), int(f.py(p.Y)), pointRadius, c)
		}
		disc(img, f.right()+25, f.top()+20*(i+1), 5, c)
	}

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fill(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
}

func disc(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(cx+dx, cy+dy, c)
			}
		}
	}
}

// parseHex reads "#rrggbb"; anything else is drawn black.
func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{A: 0xff}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
