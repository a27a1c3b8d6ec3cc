package productdb

import (
	"fmt"
	"log/slog"
	"sort"
	"unicode/utf8"
)

const (
	sectionDivider = 0x0A
	sizeExtension  = 0x02
	extensionBonus = 128

	// continuationMark frames a section split across clusters, which the
	// agent emits for very long install paths. Decoding stops at one.
	continuationMark = 0x12
	endMark          = 0x18

	// localeEndMark terminates the variable-length locale walk inside a
	// section.
	localeEndMark = 74
)

// Product codes the agent tracks that are not games.
const (
	codeLauncher = "bna"
	codeAgent    = "agent"
)

// Record is one decoded product entry.
type Record struct {
	UninstallTag string `json:"uninstall_tag"`
	Code         string `json:"code"`
	InstallPath  string `json:"install_path"`
	Version      string `json:"version"`
}

// DB holds the outcome of one decode pass. It is read-only after Decode
// returns and safe to share.
type DB struct {
	records map[string]Record
}

// Decode walks the raw database and returns every product record it can
// recover. Undecodable sections are dropped with a debug log; Decode never
// fails and never panics, whatever the input.
func Decode(data []byte) *DB {
	db := &DB{records: make(map[string]Record)}
	off := 1
	for {
		if off-1 >= len(data) {
			break
		}
		div := data[off-1]
		if div != sectionDivider {
			switch div {
			case endMark:
			case continuationMark:
				slog.Debug("continued section, stopping decode", "offset", off-1)
			default:
				slog.Debug("product data ended without end marker", "offset", off-1, "byte", div)
			}
			break
		}
		if off >= len(data) {
			break
		}
		size := int(data[off])
		if off+1 < len(data) && data[off+1] == sizeExtension {
			size += extensionBonus
		}
		off += 2
		start, end := off, off+size
		if start > len(data) {
			start = len(data)
		}
		if end > len(data) {
			end = len(data)
		}
		off += size + 1
		rec, err := parseSection(data[start:end])
		if err != nil {
			slog.Debug("dropping undecodable product section", "offset", start, "err", err)
			continue
		}
		db.records[rec.Code] = rec
	}
	return db
}

// LauncherPresent reports whether the desktop client itself appears in the
// database.
func (db *DB) LauncherPresent() bool {
	_, ok := db.records[codeLauncher]
	return ok
}

// Games returns the game records, sorted by product code. The launcher and
// agent pseudo-products are excluded.
func (db *DB) Games() []Record {
	out := make([]Record, 0, len(db.records))
	for code, rec := range db.records {
		if code == codeLauncher || code == codeAgent {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Records returns a copy of every decoded record keyed by product code,
// pseudo-products included.
func (db *DB) Records() map[string]Record {
	out := make(map[string]Record, len(db.records))
	for k, v := range db.records {
		out[k] = v
	}
	return out
}

// Len reports the number of decoded records.
func (db *DB) Len() int {
	return len(db.records)
}

// reader provides bounds-checked access to one section's bytes.
type reader struct {
	buf []byte
}

func (r reader) byteAt(off int) (byte, error) {
	if off < 0 || off >= len(r.buf) {
		return 0, &DecodeError{Offset: off, Reason: "offset beyond section"}
	}
	return r.buf[off], nil
}

// field reads the length-prefixed field whose size byte sits at off and
// returns its text together with the offset just past the content.
func (r reader) field(off int) (string, int, error) {
	size, err := r.byteAt(off)
	if err != nil {
		return "", 0, err
	}
	end := off + 1 + int(size)
	if end > len(r.buf) {
		return "", 0, &DecodeError{Offset: off, Reason: fmt.Sprintf("field of %d bytes overruns section", size)}
	}
	raw := r.buf[off+1 : end]
	if !utf8.Valid(raw) {
		return "", 0, &DecodeError{Offset: off, Reason: "field is not valid UTF-8"}
	}
	return string(raw), end, nil
}

func parseSection(sec []byte) (Record, error) {
	r := reader{sec}
	tag, off, err := r.field(1)
	if err != nil {
		return Record{}, err
	}
	code, off, err := r.field(off + 1)
	if err != nil {
		return Record{}, err
	}
	path, off, err := r.field(off + 3)
	if err != nil {
		return Record{}, err
	}
	return Record{
		UninstallTag: tag,
		Code:         code,
		InstallPath:  path,
		Version:      readVersion(r, off),
	}, nil
}

// readVersion crosses the settings region after the install path and pulls
// the build version from its far end. Any structural surprise on the way
// yields an empty version; the record itself stays valid and the product
// simply presents as not yet playable.
func readVersion(r reader, off int) string {
	off, err := skipSettings(r, off)
	if err != nil {
		return ""
	}
	v, _, err := r.field(off + 11)
	if err != nil {
		return ""
	}
	return v
}

// skipSettings walks the area code, the optional locale block, the region
// and language codes and the branch name, returning the offset the version
// field is addressed from. Offsets grow strictly, so the section bounds
// terminate every walk.
func skipSettings(r reader, off int) (int, error) {
	_, off, err := r.field(off + 1) // area code ("EU", "US")
	if err != nil {
		return 0, err
	}
	flag, err := r.byteAt(off + 3)
	if err != nil {
		return 0, err
	}
	if flag != 0 {
		// subtitle, voiceover and install locales
		if _, off, err = r.field(off + 7); err != nil {
			return 0, err
		}
		if _, off, err = r.field(off + 1); err != nil {
			return 0, err
		}
		if _, off, err = r.field(off + 3); err != nil {
			return 0, err
		}
		// further locale entries until the end marker
		for {
			b, err := r.byteAt(off + 2)
			if err != nil {
				return 0, err
			}
			if b == localeEndMark {
				break
			}
			if _, off, err = r.field(off + 5); err != nil {
				return 0, err
			}
		}
	} else {
		off += 8
	}
	if _, off, err = r.field(off + 7); err != nil { // region short code
		return 0, err
	}
	if _, off, err = r.field(off + 1); err != nil { // language short code
		return 0, err
	}
	if _, off, err = r.field(off + 1); err != nil { // branch name ("_retail_")
		return 0, err
	}
	for i := 0; i < 2; i++ {
		off += 2
		b, err := r.byteAt(off)
		if err != nil {
			return 0, err
		}
		if b == 1 {
			off++
		}
	}
	return off, nil
}
