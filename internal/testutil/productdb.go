package testutil

// ProductRecord describes one product section to encode with
// BuildProductDB.
type ProductRecord struct {
	Tag     string // uninstall tag, e.g. "battle.net.wow"
	Code    string // product code, e.g. "wow"
	Path    string // install path
	Version string // build version; empty means still installing
}

// Binary table framing, mirrored from the agent's writer.
const (
	dbSectionDivider = 0x0A
	dbSizeExtension  = 0x02
	dbExtensionBonus = 128
	dbEndMark        = 0x18
)

// BuildProductDB encodes records into the agent's binary product table so
// tests can exercise everything downstream of the decoder without a real
// agent install. Sections use the plain settings layout without a locale
// block. Panics if a section outgrows the framing; test inputs never
// should.
func BuildProductDB(records ...ProductRecord) []byte {
	var out []byte
	for _, rec := range records {
		sec := buildProductSection(rec)
		size, ext := len(sec), byte(0)
		if size > 255 {
			size -= dbExtensionBonus
			ext = dbSizeExtension
		}
		if size > 255 {
			panic("testutil: product section too large to frame")
		}
		out = append(out, dbSectionDivider, byte(size), ext)
		out = append(out, sec...)
	}
	return append(out, dbEndMark)
}

func buildProductSection(rec ProductRecord) []byte {
	var b []byte
	pad := func(n int) { b = append(b, make([]byte, n)...) }
	field := func(s string) {
		if len(s) > 255 {
			panic("testutil: product field too large to frame")
		}
		b = append(b, byte(len(s)))
		b = append(b, s...)
	}

	b = append(b, 0) // lead byte, never read
	field(rec.Tag)
	pad(1)
	field(rec.Code)
	pad(3)
	field(rec.Path)
	pad(1)
	field("EU") // area code
	pad(15)     // zero locale flag, then the gap before the region code
	field("POL")
	pad(1)
	field("PL")
	pad(1)
	field("_retail_")
	pad(15)
	field(rec.Version)
	return b
}
