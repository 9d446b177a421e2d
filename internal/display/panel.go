package display

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"

	"github.com/rook-computer/octolcd/internal/render"
)

// Logical canvas size; the framebuffer blit scales it to the device.
const (
	CanvasWidth  = 800
	CanvasHeight = 480
)

const (
	cellWidth    = 40
	cellHeight   = 64
	cellGap      = 4
	rowGap       = 8
	panelPadding = 16
	panelTop     = 48
	fontSize     = 48
	qrSize       = 200
	qrMargin     = 24
)

var (
	Background = color.RGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xFF}
	Bezel      = color.RGBA{R: 0x2a, G: 0x2a, B: 0x2a, A: 0xFF}
	// CellOff is the colour of an unlit character cell.
	CellOff    = color.RGBA{R: 0x8b, G: 0xac, B: 0x0f, A: 0xFF}
	Foreground = color.RGBA{R: 0x0f, G: 0x38, B: 0x0f, A: 0xFF}
)

// Panel paints a Memory grid as a character LCD onto an RGBA canvas, with an
// optional QR code underneath.
type Panel struct {
	face font.Face
	qr   image.Image
}

// NewPanel loads the Go Mono face, falling back to basicfont, and encodes
// qrPayload when it is set. Failures are logged and degrade the panel.
func NewPanel(qrPayload string, logger Logger) *Panel {
	p := &Panel{face: basicfont.Face7x13}
	if tt, err := truetype.Parse(gomono.TTF); err != nil {
		if logger != nil {
			logger.Errorf("fb", "truetype parse failed, using basicfont: %v", err)
		}
	} else {
		p.face = truetype.NewFace(tt, &truetype.Options{Size: fontSize, DPI: 72, Hinting: font.HintingFull})
	}
	if qrPayload != "" {
		img, err := GenerateQRCodeImage(qrPayload, qrSize)
		if err != nil {
			if logger != nil {
				logger.Errorf("fb", "qr code for %q failed: %v", qrPayload, err)
			}
		} else {
			p.qr = img
		}
	}
	return p
}

// CellRect returns the canvas rectangle of a zero-based cell.
func CellRect(col, row int) image.Rectangle {
	x := panelLeft() + panelPadding + col*(cellWidth+cellGap)
	y := panelTop + panelPadding + row*(cellHeight+rowGap)
	return image.Rect(x, y, x+cellWidth, y+cellHeight)
}

// QRRect is where the QR code is drawn.
func QRRect() image.Rectangle {
	y := panelBounds().Max.Y + qrMargin
	x := (CanvasWidth - qrSize) / 2
	return image.Rect(x, y, x+qrSize, y+qrSize)
}

func panelLeft() int {
	return (CanvasWidth - panelWidth()) / 2
}

func panelWidth() int {
	return 2*panelPadding + render.Columns*cellWidth + (render.Columns-1)*cellGap
}

func panelBounds() image.Rectangle {
	h := 2*panelPadding + render.Rows*cellHeight + (render.Rows-1)*rowGap
	return image.Rect(panelLeft(), panelTop, panelLeft()+panelWidth(), panelTop+h)
}

// Draw repaints the whole canvas from m.
func (p *Panel) Draw(dst *image.RGBA, m *Memory) {
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
	draw.Draw(dst, panelBounds(), &image.Uniform{C: Bezel}, image.Point{}, draw.Src)

	lines := m.Lines()
	for row, line := range lines {
		for col := 0; col < len(line); col++ {
			rect := CellRect(col, row)
			draw.Draw(dst, rect, &image.Uniform{C: CellOff}, image.Point{}, draw.Src)
			p.drawCell(dst, rect, line[col], m)
		}
	}

	if p.qr != nil {
		xdraw.NearestNeighbor.Scale(dst, QRRect(), p.qr, p.qr.Bounds(), xdraw.Over, nil)
	}
}

func (p *Panel) drawCell(dst *image.RGBA, rect image.Rectangle, code byte, m *Memory) {
	switch {
	case code == ' ':
	case code == render.CodeFilledBox:
		draw.Draw(dst, rect, &image.Uniform{C: Foreground}, image.Point{}, draw.Src)
	case int(code) < MaxGlyphSlots:
		if bitmap, ok := m.Glyph(code); ok {
			drawBitmap(dst, rect, bitmap)
		}
	default:
		p.drawChar(dst, rect, rune(code))
	}
}

func (p *Panel) drawChar(dst *image.RGBA, rect image.Rectangle, ch rune) {
	if ch < 0x20 || ch > 0x7E {
		ch = '?'
	}
	drawer := &font.Drawer{Dst: dst, Src: &image.Uniform{C: Foreground}, Face: p.face}
	s := string(ch)
	width := drawer.MeasureString(s).Ceil()
	metrics := p.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil()
	x := rect.Min.X + (rect.Dx()-width)/2
	baseline := rect.Min.Y + (rect.Dy()-height)/2 + ascent
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(s)
}

// drawBitmap scales a 5x8 character bitmap into rect; bit 4 is the leftmost
// column.
func drawBitmap(dst *image.RGBA, rect image.Rectangle, bitmap [8]byte) {
	src := image.NewRGBA(image.Rect(0, 0, 5, 8))
	for y, bits := range bitmap {
		for x := 0; x < 5; x++ {
			if bits&(1<<(4-x)) != 0 {
				src.SetRGBA(x, y, Foreground)
			}
		}
	}
	xdraw.NearestNeighbor.Scale(dst, rect, src, src.Bounds(), xdraw.Over, nil)
}

// scaleInto copies canvas onto dst with nearest-neighbour sampling.
func scaleInto(dst draw.Image, canvas *image.RGBA) {
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	cw, ch := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	for y := 0; y < h; y++ {
		sy := (y * ch) / h
		for x := 0; x < w; x++ {
			sx := (x * cw) / w
			pixel := canvas.RGBAAt(sx, sy)
			dst.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: pixel.R, G: pixel.G, B: pixel.B, A: 0xFF})
		}
	}
}
