// Package render draws board positions as PNG images for chat surfaces.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/wager-chess/internal/chess"
)

// Highlight marks the last move played.
type Highlight struct {
	From chess.Square
	To   chess.Square
}

type Options struct {
	Highlight *Highlight
	Header    string
	Footer    string
	// Flip puts rank 8 at the bottom, i.e. Black's point of view.
	Flip bool
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, board chess.Board, opts Options) ([]byte, error)
}

const (
	squareSize   = 56
	boardSize    = squareSize * 8
	sideMargin   = 28
	topMargin    = 52
	bottomMargin = 48
	panelHeight  = 28
	panelRadius  = 8
)

var (
	backgroundColor = color.RGBA{R: 22, G: 24, B: 36, A: 255}
	lightSquare     = color.RGBA{R: 233, G: 207, B: 163, A: 255}
	darkSquare      = color.RGBA{R: 187, G: 136, B: 96, A: 255}
	whiteMoveFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow  = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	panelColor      = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	panelText       = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateText  = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

type pngRenderer struct{}

func NewBoardRenderer() BoardRenderer { return pngRenderer{} }

// ImageSize is the pixel size of every rendered board.
func ImageSize() image.Point {
	return image.Pt(boardSize+sideMargin*2, boardSize+topMargin+bottomMargin)
}

func (pngRenderer) RenderPNG(ctx context.Context, board chess.Board, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := ImageSize()
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	origin := image.Pt(sideMargin, topMargin)
	drawSquares(img, origin, opts.Flip)
	drawHighlight(img, board, opts.Highlight, origin, opts.Flip)
	if err := drawPieces(img, board, origin, opts.Flip); err != nil {
		return nil, err
	}
	drawCoordinates(img, origin, opts.Flip)

	if h := strings.TrimSpace(opts.Header); h != "" {
		drawPanel(img, image.Rect(origin.X, (topMargin-panelHeight)/2, origin.X+boardSize, (topMargin+panelHeight)/2), h)
	}
	if f := strings.TrimSpace(opts.Footer); f != "" {
		top := origin.Y + boardSize + 18
		drawPanel(img, image.Rect(origin.X, top, origin.X+boardSize, top+panelHeight-4), f)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// squareRect maps a board square to its pixel cell.
func squareRect(sq chess.Square, origin image.Point, flip bool) image.Rectangle {
	row, col := sq.Rank, sq.File
	if flip {
		row, col = 7-row, 7-col
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq chess.Square) color.Color {
	if (sq.Rank+sq.File)%2 == 0 {
		return lightSquare
	}
	return darkSquare
}

func drawSquares(img *image.RGBA, origin image.Point, flip bool) {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			sq := chess.Square{Rank: rank, File: file}
			draw.Draw(img, squareRect(sq, origin, flip), image.NewUniform(squareColor(sq)), image.Point{}, draw.Src)
		}
	}
}

func drawPieces(img *image.RGBA, board chess.Board, origin image.Point, flip bool) error {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			sq := chess.Square{Rank: rank, File: file}
			p := board.Get(sq)
			if p.IsEmpty() {
				continue
			}
			glyph, err := renderPieceImage(p, squareSize)
			if err != nil {
				return err
			}
			draw.Draw(img, squareRect(sq, origin, flip), glyph, image.Point{}, draw.Over)
		}
	}
	return nil
}

// drawHighlight tints both squares of a White move and draws an arrow for a Black one.
func drawHighlight(img *image.RGBA, board chess.Board, h *Highlight, origin image.Point, flip bool) {
	if h == nil || !h.From.Valid() || !h.To.Valid() {
		return
	}
	mover := board.Get(h.To)
	if mover.IsEmpty() {
		mover = board.Get(h.From)
	}
	if mover.Belongs(chess.Black) {
		drawArrow(img, squareRect(h.From, origin, flip), squareRect(h.To, origin, flip), blackMoveArrow)
		return
	}
	for _, sq := range []chess.Square{h.From, h.To} {
		draw.Draw(img, squareRect(sq, origin, flip), image.NewUniform(whiteMoveFill), image.Point{}, draw.Over)
	}
}

func fillShape(img *image.RGBA, clr color.Color, build func(p rasterx.Adder)) {
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	filler := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)
	filler.SetColor(clr)
	build(filler)
	filler.Draw()
}

func drawArrow(img *image.RGBA, from, to image.Rectangle, clr color.Color) {
	sx := float64(from.Min.X+from.Max.X) / 2
	sy := float64(from.Min.Y+from.Max.Y) / 2
	ex := float64(to.Min.X+to.Max.X) / 2
	ey := float64(to.Min.Y+to.Max.Y) / 2
	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	px, py := -uy, ux

	shaft := float64(squareSize) * 0.09
	head := float64(squareSize) * 0.22
	base := length - float64(squareSize)*0.4
	if base < length*0.5 {
		base = length * 0.5
	}
	bx, by := sx+ux*base, sy+uy*base

	fillShape(img, clr, func(p rasterx.Adder) {
		p.Start(rasterx.ToFixedP(sx+px*shaft, sy+py*shaft))
		p.Line(rasterx.ToFixedP(bx+px*shaft, by+py*shaft))
		p.Line(rasterx.ToFixedP(bx+px*head, by+py*head))
		p.Line(rasterx.ToFixedP(ex, ey))
		p.Line(rasterx.ToFixedP(bx-px*head, by-py*head))
		p.Line(rasterx.ToFixedP(bx-px*shaft, by-py*shaft))
		p.Line(rasterx.ToFixedP(sx-px*shaft, sy-py*shaft))
		p.Stop(true)
	})
}

func drawPanel(img *image.RGBA, rect image.Rectangle, text string) {
	fillShape(img, panelColor, func(p rasterx.Adder) {
		rasterx.AddRoundRect(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Max.X), float64(rect.Max.Y),
			panelRadius, panelRadius, 0, rasterx.RoundGap, p)
	})
	d := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(panelText)}
	text = truncate(d, text, rect.Dx()-16)
	m := d.Face.Metrics()
	x := rect.Min.X + (rect.Dx()-d.MeasureString(text).Round())/2
	baseline := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

func truncate(d *font.Drawer, text string, maxWidth int) string {
	if d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if c := string(runes) + "..."; d.MeasureString(c).Round() <= maxWidth {
			return c
		}
	}
	return ""
}

func drawCoordinates(img *image.RGBA, origin image.Point, flip bool) {
	d := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(coordinateText)}
	ascent := d.Face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		rankSq := chess.Square{Rank: i, File: 0}
		fileSq := chess.Square{Rank: 7, File: i}
		r := squareRect(rankSq, origin, flip)
		label := fmt.Sprintf("%d", 8-i)
		w := d.MeasureString(label).Round()
		d.Dot = fixed.P(origin.X-sideMargin/2-w/2, r.Min.Y+squareSize/2+ascent/2)
		d.DrawString(label)

		f := squareRect(fileSq, origin, flip)
		label = string(rune('a' + i))
		w = d.MeasureString(label).Round()
		d.Dot = fixed.P(f.Min.X+squareSize/2-w/2, origin.Y+boardSize+ascent)
		d.DrawString(label)
	}
}
