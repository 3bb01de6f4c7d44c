package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/wager-chess/internal/chess"
)

// Silhouettes on a 45x45 canvas; every piece shares the plinth drawn below it.
var piecePaths = map[chess.Kind]string{
	chess.Pawn:   "M 22.5 9 C 19 9 17 12 18.5 15 C 16 17 16 20 18 22 C 14 26 13 31 12 35 L 33 35 C 32 31 31 26 27 22 C 29 20 29 17 26.5 15 C 28 12 26 9 22.5 9 Z",
	chess.Rook:   "M 12 35 L 14 16 L 11 16 L 11 10 L 15 10 L 15 13 L 20 13 L 20 10 L 25 10 L 25 13 L 30 13 L 30 10 L 34 10 L 34 16 L 31 16 L 33 35 Z",
	chess.Knight: "M 13 35 L 15 26 C 12 24 11 20 14 17 L 20 10 L 22 6 L 24 10 C 30 11 34 17 33 35 Z",
	chess.Bishop: "M 14 35 C 15 29 17 26 19 24 C 15 21 16 15 22.5 8 C 29 15 30 21 26 24 C 28 26 30 29 31 35 Z",
	chess.Queen:  "M 11 35 L 8 14 L 15 24 L 16 10 L 21 23 L 22.5 8 L 24 23 L 29 10 L 30 24 L 37 14 L 34 35 Z",
	chess.King:   "M 12 35 C 10 28 12 22 17 20 L 21 20 L 21 14 L 18 14 L 18 11 L 21 11 L 21 7 L 24 7 L 24 11 L 27 11 L 27 14 L 24 14 L 24 20 L 28 20 C 33 22 35 28 33 35 Z",
}

const plinthPath = "M 9 39 L 36 39 L 36 35 L 9 35 Z"

const pieceTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">
<path d="%[1]s" fill="%[2]s" stroke="%[3]s" stroke-width="1.5" stroke-linejoin="round"/>
<path d="%[4]s" fill="%[2]s" stroke="%[3]s" stroke-width="1.5" stroke-linejoin="round"/>
</svg>`

type pieceCacheKey struct {
	piece chess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(p chess.Piece) (string, error) {
	k, ok := p.Kind()
	if !ok {
		return "", fmt.Errorf("no svg for empty square")
	}
	path, ok := piecePaths[k]
	if !ok {
		return "", fmt.Errorf("no svg for %s", k)
	}
	fill, stroke := "#ffffff", "#1c1f2e"
	if c, _ := p.Color(); c == chess.Black {
		fill, stroke = "#1c1f2e", "#e9cfa3"
	}
	return fmt.Sprintf(pieceTemplate, path, fill, stroke, plinthPath), nil
}

func renderPieceImage(p chess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: p, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
