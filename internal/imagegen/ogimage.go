package imagegen

import (
	"bytes"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OGWidth and OGHeight are the standard Open Graph image dimensions.
const (
	OGWidth  = 1200
	OGHeight = 630
)

var (
	ogBackground = color.RGBA{R: 17, G: 17, B: 17, A: 255}
	ogAccent     = color.RGBA{R: 76, G: 175, B: 80, A: 255}
	ogBaseline   = color.RGBA{R: 229, G: 57, B: 53, A: 255}
	ogText       = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	ogDim        = color.RGBA{R: 130, G: 130, B: 130, A: 255}
)

// OGImageData is the dynamic content of the social preview banner.
type OGImageData struct {
	Title    string
	Day      string            // e.g. "sabato 23-08"
	TempMin  sql.NullFloat64   // today's ensemble minimum
	TempMax  sql.NullFloat64   // today's ensemble maximum
	Ensemble []sql.NullFloat64 // hourly ensemble temperature for the sparkline
	Baseline []sql.NullFloat64 // matching climatological baseline
}

// OGImageCache caches the generated banner for a short period.
type OGImageCache struct {
	mu        sync.RWMutex
	data      []byte
	expiresAt time.Time
	cacheTTL  time.Duration
}

func NewOGImageCache(ttl time.Duration) *OGImageCache {
	return &OGImageCache{cacheTTL: ttl}
}

func (c *OGImageCache) Get() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *OGImageCache) Set(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(c.cacheTTL)
}

// GenerateOGImage renders the banner: title, day, min/max ensemble
// temperatures and a sparkline of today's ensemble against the 50-year
// baseline. Gaps in either series simply break the line.
func GenerateOGImage(data OGImageData) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))
	fill(img, img.Bounds(), ogBackground)

	drawScaledText(img, data.Title, 60, 50, 4, ogAccent)
	drawScaledText(img, data.Day, 60, 130, 3, ogText)

	temps := "--"
	if data.TempMin.Valid && data.TempMax.Valid {
		temps = fmt.Sprintf("%.0f° / %.0f°", data.TempMin.Float64, data.TempMax.Float64)
	}
	drawScaledText(img, temps, 60, 220, 8, ogText)

	chart := image.Rect(60, 400, OGWidth-60, OGHeight-60)
	drawSparkline(img, chart, data.Baseline, ogBaseline)
	drawSparkline(img, chart, data.Ensemble, ogAccent)
	drawScaledText(img, "media 50 anni", chart.Min.X, chart.Max.Y+8, 2, ogDim)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawScaledText renders basicfont text offscreen and nearest-neighbor
// scales it up. The pack has no embeddable font assets; the pixel face
// scaled this way is deliberate, it reads fine at banner size.
func drawScaledText(img *image.RGBA, s string, x, y, scale int, c color.RGBA) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	if w == 0 {
		return
	}
	small := image.NewRGBA(image.Rect(0, 0, w, face.Height+4))
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	dst := image.Rect(x, y, x+w*scale, y+(face.Height+4)*scale)
	xdraw.NearestNeighbor.Scale(img, dst, small, small.Bounds(), xdraw.Over, nil)
}

// drawSparkline plots a series into rect, auto-scaled to the valid range.
func drawSparkline(img *image.RGBA, rect image.Rectangle, series []sql.NullFloat64, c color.RGBA) {
	if len(series) < 2 {
		return
	}
	lo, hi, any := 0.0, 0.0, false
	for _, v := range series {
		if !v.Valid {
			continue
		}
		if !any || v.Float64 < lo {
			lo = v.Float64
		}
		if !any || v.Float64 > hi {
			hi = v.Float64
		}
		any = true
	}
	if !any {
		return
	}
	if hi == lo {
		hi = lo + 1
	}

	toXY := func(i int, v float64) (int, int) {
		x := rect.Min.X + i*(rect.Dx()-1)/(len(series)-1)
		y := rect.Max.Y - 1 - int(float64(rect.Dy()-1)*(v-lo)/(hi-lo))
		return x, y
	}

	for i := 1; i < len(series); i++ {
		if !series[i-1].Valid || !series[i].Valid {
			continue // gap in the line, never a zero
		}
		x0, y0 := toXY(i-1, series[i-1].Float64)
		x1, y1 := toXY(i, series[i].Float64)
		drawLine(img, x0, y0, x1, y1, c)
	}
}

// drawLine draws a 2px-thick segment with integer interpolation.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	steps := abs(x1-x0) + abs(y1-y0)
	if steps == 0 {
		steps = 1
	}
	for s := 0; s <= steps; s++ {
		x := x0 + (x1-x0)*s/steps
		y := y0 + (y1-y0)*s/steps
		img.SetRGBA(x, y, c)
		img.SetRGBA(x, y+1, c)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
