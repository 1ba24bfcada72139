package ldraw

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"ldraw-bridge/internal/mathutil"
)

// Parse reads LDraw text. A multi-part document yields one File per
// "0 FILE" section with the main model first; a plain document yields a
// single File named fallbackName.
func Parse(fallbackName string, r io.Reader) ([]*File, error) {
	p := &parser{fallback: fallbackName}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		p.line++
		p.parseLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ldraw: read %s: %w", fallbackName, err)
	}
	p.finishCurrent()

	if len(p.files) == 0 {
		p.cur = newFile(fallbackName)
		p.finishCurrent()
	}
	return p.files, nil
}

type parser struct {
	fallback string
	files    []*File
	cur      *File
	line     int

	headerOpen bool
	hasType    bool

	texmap     *Texmap // active START block
	texmapNext *Texmap // one-shot NEXT
	inFallback bool
}

func newFile(name string) *File {
	return &File{Name: NormalizeName(name), Filename: strings.TrimSpace(name)}
}

var bracketArg = regexp.MustCompile(`\[([^=\]]+)=([^\]]*)\]`)

func (p *parser) parseLine(raw string) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if trimmed == "" {
		return
	}
	fields := strings.Fields(trimmed)

	switch fields[0] {
	case "0":
		if len(fields) > 1 && fields[1] == "!:" {
			// Texmap-only geometry, hidden from programs without texmap support.
			if !p.ensureFile() {
				return
			}
			p.headerOpen = false
			p.parseGeometry(fields[2:])
			return
		}
		p.parseMeta(trimmed, fields)
	case "1", "2", "3", "4", "5":
		if !p.ensureFile() {
			return
		}
		p.headerOpen = false
		if p.inFallback {
			return
		}
		p.parseGeometry(fields)
	}
}

func (p *parser) startFile(name string) {
	p.finishCurrent()
	p.cur = newFile(name)
	p.headerOpen = true
	p.hasType = false
	p.texmap = nil
	p.texmapNext = nil
	p.inFallback = false
}

// ensureFile opens the implicit main file for documents without FILE
// sections. Lines after a NOFILE and before the next FILE are dropped.
func (p *parser) ensureFile() bool {
	if p.cur != nil {
		return true
	}
	if len(p.files) > 0 {
		return false
	}
	p.startFile(p.fallback)
	return true
}

func (p *parser) finishCurrent() {
	if p.cur == nil {
		return
	}
	if !p.hasType {
		switch strings.ToLower(path.Ext(p.cur.Name)) {
		case ".ldr", ".mpd":
			p.cur.Kind = KindModel
		default:
			p.cur.Kind = KindPart
		}
	}
	p.files = append(p.files, p.cur)
	p.cur = nil
}

func (p *parser) parseMeta(trimmed string, fields []string) {
	if len(fields) >= 2 {
		switch strings.ToUpper(fields[1]) {
		case "FILE":
			p.startFile(strings.TrimSpace(trimmed[strings.Index(trimmed, fields[1])+len(fields[1]):]))
			return
		case "NOFILE":
			p.finishCurrent()
			return
		}
	}

	if !p.ensureFile() {
		return
	}
	if p.headerOpen {
		p.cur.Header = append(p.cur.Header, trimmed)
	}
	if len(fields) < 2 {
		return
	}

	switch strings.ToUpper(fields[1]) {
	case "STEP":
		p.addMeta(MetaStep, nil)
	case "SAVE":
		p.addMeta(MetaSave, nil)
	case "CLEAR":
		p.addMeta(MetaClear, nil)
	case "!LDRAW_ORG":
		if len(fields) < 3 {
			return
		}
		t := fields[2]
		if strings.EqualFold(t, "lcad") && len(fields) >= 4 {
			t = fields[3]
		}
		p.cur.PartType = strings.ToLower(t)
		p.cur.Kind = KindFromPartType(t)
		p.hasType = true
	case "!LEOCAD":
		if len(fields) < 4 || !strings.EqualFold(fields[2], "GROUP") {
			return
		}
		switch strings.ToUpper(fields[3]) {
		case "BEGIN":
			p.addMeta(MetaGroupBegin, map[string]string{"name": strings.Join(fields[4:], " ")})
		case "END":
			p.addMeta(MetaGroupEnd, nil)
		}
	case "!LDCAD":
		if len(fields) < 3 {
			return
		}
		args := bracketArgs(trimmed)
		switch strings.ToUpper(fields[2]) {
		case "GROUP_DEF":
			p.addMeta(MetaGroupDef, map[string]string{"id": args["lid"], "name": args["name"]})
		case "GROUP_NXT":
			p.addMeta(MetaGroupNxt, map[string]string{"id": args["ids"]})
		}
	case "!TEXMAP":
		p.parseTexmap(fields)
	}
}

func bracketArgs(line string) map[string]string {
	args := make(map[string]string)
	for _, m := range bracketArg.FindAllStringSubmatch(line, -1) {
		args[strings.ToLower(strings.TrimSpace(m[1]))] = strings.TrimSpace(m[2])
	}
	return args
}

func (p *parser) addMeta(kind MetaKind, args map[string]string) {
	p.cur.Children = append(p.cur.Children, Reference{
		Color:    ColorInherit,
		Matrix:   mathutil.Mat4Identity(),
		Meta:     kind,
		MetaArgs: args,
		Line:     p.line,
	})
}

var texmapParams = map[string]int{
	"PLANAR":      9,
	"CYLINDRICAL": 10,
	"SPHERICAL":   11,
}

func (p *parser) parseTexmap(fields []string) {
	if len(fields) < 3 {
		return
	}
	switch strings.ToUpper(fields[2]) {
	case "START", "NEXT":
		tm := parseTexmapSpec(fields[3:])
		if tm == nil {
			return
		}
		if strings.EqualFold(fields[2], "START") {
			p.texmap = tm
		} else {
			p.texmapNext = tm
		}
	case "FALLBACK":
		p.inFallback = true
	case "END":
		p.texmap = nil
		p.inFallback = false
	}
}

func parseTexmapSpec(f []string) *Texmap {
	if len(f) < 1 {
		return nil
	}
	method := strings.ToUpper(f[0])
	n, ok := texmapParams[method]
	if !ok || len(f) < 2+n {
		return nil
	}
	params, ok := parseFloats(f[1 : 1+n])
	if !ok {
		return nil
	}
	tm := &Texmap{Method: method, Params: params, Texture: f[1+n]}
	if len(f) >= 4+n && strings.EqualFold(f[2+n], "GLOSSMAP") {
		tm.Glossmap = f[3+n]
	}
	return tm
}

func (p *parser) parseGeometry(fields []string) {
	if len(fields) < 2 {
		return
	}
	tm := p.texmap
	if p.texmapNext != nil {
		tm = p.texmapNext
		p.texmapNext = nil
	}

	code, err := ParseColorCode(fields[1])
	if err != nil {
		return
	}

	switch fields[0] {
	case "1":
		if len(fields) < 15 {
			return
		}
		vals, ok := parseFloats(fields[2:14])
		if !ok {
			return
		}
		var m [12]float64
		copy(m[:], vals)
		p.cur.Children = append(p.cur.Children, Reference{
			Name:   strings.Join(fields[14:], " "),
			Color:  code,
			Matrix: mathutil.FromLDraw(m),
			Line:   p.line,
		})
	case "2":
		if len(fields) < 8 {
			return
		}
		vals, ok := parseFloats(fields[2:8])
		if !ok {
			return
		}
		p.cur.Edges = append(p.cur.Edges, Edge{
			{vals[0], vals[1], vals[2]},
			{vals[3], vals[4], vals[5]},
		})
	case "3", "4":
		n := 3
		if fields[0] == "4" {
			n = 4
		}
		if len(fields) < 2+n*3 {
			return
		}
		vals, ok := parseFloats(fields[2 : 2+n*3])
		if !ok {
			return
		}
		verts := make([]mathutil.Vec3, n)
		for i := range verts {
			verts[i] = mathutil.Vec3{vals[i*3], vals[i*3+1], vals[i*3+2]}
		}
		p.cur.Faces = append(p.cur.Faces, Face{Vertices: verts, Color: code, Texmap: tm})
	}
	// Type 5 conditional lines are not interpreted.
}

// ParseColorCode accepts decimal codes and 0x2RRGGBB direct colours.
func ParseColorCode(s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("ldraw: colour code %q: %w", s, err)
	}
	return int(v), nil
}

func parseFloats(f []string) ([]float64, bool) {
	out := make([]float64, len(f))
	for i, s := range f {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
