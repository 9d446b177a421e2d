package render

// Custom character slots. HD44780-style controllers map codes 0-7 to the
// character generator RAM, so a slot number doubles as its character code.
const (
	SlotClock       byte = 0
	SlotDegree      byte = 1
	SlotThermometer byte = 2
	SlotHeater      byte = 3
)

// Built-in ROM characters used by the progress bar.
const (
	CodeFilledBox byte = 0xFF
	CodeCursor    byte = '>'
)

// Glyph is a 5x8 bitmap: one byte per pixel row, low five bits used.
type Glyph struct {
	Slot byte
	Name string
	// Rune stands in for the glyph where bitmaps cannot be shown.
	Rune   rune
	Bitmap [8]byte
}

// Glyphs is the registry installed at startup.
var Glyphs = []Glyph{
	{Slot: SlotClock, Name: "clock", Rune: '◷', Bitmap: [8]byte{
		0b01110,
		0b00100,
		0b01110,
		0b10101,
		0b10111,
		0b10001,
		0b01110,
		0b00000,
	}},
	{Slot: SlotDegree, Name: "degree", Rune: '°', Bitmap: [8]byte{
		0b11000,
		0b11000,
		0b00000,
		0b00111,
		0b01000,
		0b01000,
		0b00111,
		0b00000,
	}},
	{Slot: SlotThermometer, Name: "thermometer", Rune: '▮', Bitmap: [8]byte{
		0b00100,
		0b01010,
		0b01010,
		0b01110,
		0b01110,
		0b11111,
		0b11111,
		0b01110,
	}},
	{Slot: SlotHeater, Name: "heater", Rune: '♨', Bitmap: [8]byte{
		0b01001,
		0b10010,
		0b01001,
		0b10010,
		0b00000,
		0b11111,
		0b11111,
		0b00000,
	}},
}

// InstallGlyphs defines every registry glyph on the sink.
func InstallGlyphs(sink Sink) error {
	for _, g := range Glyphs {
		if err := sink.DefineGlyph(g.Slot, g.Bitmap); err != nil {
			return err
		}
	}
	return nil
}

// PrintableRune maps a character code to a Unicode stand-in: registry
// glyphs to their Rune, the filled box to a full block, other non-ASCII
// codes to '?'.
func PrintableRune(code byte) rune {
	for _, g := range Glyphs {
		if g.Slot == code {
			return g.Rune
		}
	}
	switch {
	case code == CodeFilledBox:
		return '█'
	case code < 0x20 || code > 0x7E:
		return '?'
	}
	return rune(code)
}

// Printable renders display cells as a UTF-8 string.
func Printable(cells []byte) string {
	out := make([]rune, len(cells))
	for i, c := range cells {
		out[i] = PrintableRune(c)
	}
	return string(out)
}

func glyphString(code byte) string {
	return string([]byte{code})
}
