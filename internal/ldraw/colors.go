package ldraw

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Color is one entry of the LDraw colour table.
type Color struct {
	Code      int
	Name      string
	Value     color.NRGBA
	Edge      color.NRGBA
	Finish    string // "", CHROME, PEARLESCENT, RUBBER, MATTE_METALLIC, METAL, MATERIAL
	Luminance int
}

// IsTransparent reports whether the colour has alpha below 255.
func (c Color) IsTransparent() bool {
	return c.Value.A < 255
}

// ColorTable maps colour codes to colours.
type ColorTable struct {
	byCode map[int]Color
}

func NewColorTable() *ColorTable {
	return &ColorTable{byCode: make(map[int]Color)}
}

// Add inserts or replaces a colour.
func (t *ColorTable) Add(c Color) {
	t.byCode[c.Code] = c
}

// Len returns the number of table entries (direct colours excluded).
func (t *ColorTable) Len() int {
	return len(t.byCode)
}

// Codes returns every table code in ascending order.
func (t *ColorTable) Codes() []int {
	codes := make([]int, 0, len(t.byCode))
	for c := range t.byCode {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// Get returns the colour for code. Direct colours (0x2RRGGBB) are
// synthesized; any other unknown code reports false.
func (t *ColorTable) Get(code int) (Color, bool) {
	if c, ok := t.byCode[code]; ok {
		return c, true
	}
	if code >= 0x2000000 && code <= 0x2FFFFFF {
		rgb := code & 0xFFFFFF
		return Color{
			Code:  code,
			Name:  fmt.Sprintf("Direct_%06X", rgb),
			Value: color.NRGBA{uint8(rgb >> 16), uint8(rgb >> 8), uint8(rgb), 255},
			Edge:  color.NRGBA{0x33, 0x33, 0x33, 255},
		}, true
	}
	return Color{}, false
}

// Lookup returns the colour for code, falling back to 16 and then to a
// neutral grey when the table does not know it.
func (t *ColorTable) Lookup(code int) Color {
	if c, ok := t.Get(code); ok {
		return c
	}
	if c, ok := t.byCode[ColorInherit]; ok {
		return c
	}
	return neutral
}

var neutral = Color{
	Code:  ColorInherit,
	Name:  "Main_Colour",
	Value: color.NRGBA{0x7F, 0x7F, 0x7F, 255},
	Edge:  color.NRGBA{0x33, 0x33, 0x33, 255},
}

// ParseColors reads the !COLOUR lines of an LDConfig.ldr.
func ParseColors(r io.Reader) (*ColorTable, error) {
	t := NewColorTable()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || fields[0] != "0" || !strings.EqualFold(fields[1], "!COLOUR") {
			continue
		}
		if c, ok := parseColour(fields); ok {
			t.Add(c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ldraw: read colours: %w", err)
	}
	return t, nil
}

func parseColour(fields []string) (Color, bool) {
	c := Color{Name: fields[2]}
	hasCode := false
	for i := 3; i < len(fields); i++ {
		key := strings.ToUpper(fields[i])
		next := ""
		if i+1 < len(fields) {
			next = fields[i+1]
		}
		switch key {
		case "CODE":
			v, err := strconv.Atoi(next)
			if err != nil {
				return Color{}, false
			}
			c.Code = v
			hasCode = true
			i++
		case "VALUE":
			c.Value = parseHexColor(next)
			i++
		case "EDGE":
			c.Edge = parseHexColor(next)
			i++
		case "ALPHA":
			if v, err := strconv.Atoi(next); err == nil {
				c.Value.A = uint8(v)
			}
			i++
		case "LUMINANCE":
			if v, err := strconv.Atoi(next); err == nil {
				c.Luminance = v
			}
			i++
		case "CHROME", "PEARLESCENT", "RUBBER", "MATTE_METALLIC", "METAL":
			c.Finish = key
		case "MATERIAL":
			c.Finish = key
			i = len(fields)
		}
	}
	return c, hasCode
}

// parseHexColor reads #RRGGBB or 0xRRGGBB; anything else is opaque black.
func parseHexColor(s string) color.NRGBA {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return color.NRGBA{0, 0, 0, 255}
	}
	return color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}
}

// DefaultColors is a minimal table used when no LDConfig.ldr is available.
func DefaultColors() *ColorTable {
	t := NewColorTable()
	for _, c := range []struct {
		code       int
		name       string
		value, edg string
	}{
		{0, "Black", "#1B2A34", "#808080"},
		{1, "Blue", "#1E5AA8", "#333333"},
		{2, "Green", "#00852B", "#333333"},
		{4, "Red", "#B40000", "#333333"},
		{14, "Yellow", "#FAC80A", "#333333"},
		{15, "White", "#F4F4F4", "#333333"},
		{16, "Main_Colour", "#7F7F7F", "#333333"},
		{24, "Edge_Colour", "#7F7F7F", "#333333"},
		{71, "Light_Bluish_Grey", "#A0A5A9", "#333333"},
		{72, "Dark_Bluish_Grey", "#6C6E68", "#333333"},
	} {
		t.Add(Color{Code: c.code, Name: c.name, Value: parseHexColor(c.value), Edge: parseHexColor(c.edg)})
	}
	return t
}
