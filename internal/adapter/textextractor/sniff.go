// Package textextractor holds what the resume extractors share: content
// sniffing and the text post-processing applied to every result.
package textextractor

import (
	"bytes"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// Format is the sniffed kind of an uploaded document.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatText
)

// Sniff classifies data by content, not by file name. Any text/plain
// descendant (csv, markdown detected as plain) counts as text.
func Sniff(data []byte) (Format, string) {
	mt := mimetype.Detect(data)
	if mt.Is("application/pdf") {
		return FormatPDF, mt.String()
	}
	if isText(mt) {
		return FormatText, mt.String()
	}
	// Stray control bytes (a NUL from a bad copy-paste) make otherwise plain
	// text look binary. Only signature-less content gets a second look.
	if mt.Is("application/octet-stream") {
		stripped := stripControl(data)
		if utf8.Valid(data) && len(stripped) > 0 && isText(mimetype.Detect(stripped)) {
			return FormatText, "text/plain; charset=utf-8"
		}
	}
	return FormatUnsupported, mt.String()
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// stripControl drops C0 control bytes other than tab, newline and carriage return.
func stripControl(data []byte) []byte {
	return bytes.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, data)
}
