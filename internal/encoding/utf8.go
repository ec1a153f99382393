// Package encoding normalizes uploaded rule sheets to UTF-8. Spreadsheet
// exports of the IRS standards tables arrive as UTF-8, UTF-16 or a Windows
// code page depending on the tool that saved them.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffSize = 4096

// Charset names the source encoding a reader was decoded from.
type Charset string

const (
	CharsetUTF8        Charset = "UTF-8"
	CharsetUTF16LE     Charset = "UTF-16LE"
	CharsetUTF16BE     Charset = "UTF-16BE"
	CharsetWindows1252 Charset = "windows-1252"
	CharsetISO88591    Charset = "ISO-8859-1"
	CharsetISO885915   Charset = "ISO-8859-15"
)

type byteOrderMark struct {
	prefix  []byte
	charset Charset
	decoder func() *xenc.Decoder
}

var boms = []byteOrderMark{
	{prefix: []byte{0xEF, 0xBB, 0xBF}, charset: CharsetUTF8},
	{prefix: []byte{0xFF, 0xFE}, charset: CharsetUTF16LE, decoder: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder},
	{prefix: []byte{0xFE, 0xFF}, charset: CharsetUTF16BE, decoder: unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder},
}

// single-byte charsets chardet may report for US spreadsheet exports
var codePages = map[string]struct {
	charset Charset
	decoder func() *xenc.Decoder
}{
	"windows-1252": {CharsetWindows1252, charmap.Windows1252.NewDecoder},
	"ISO-8859-1":   {CharsetISO88591, charmap.Windows1252.NewDecoder},
	"ISO-8859-15":  {CharsetISO885915, charmap.ISO8859_15.NewDecoder},
}

// Decode returns a reader producing UTF-8 and the charset it decoded from.
// A UTF-8 BOM is stripped; UTF-16 input must carry a BOM. Input that is
// neither valid UTF-8 nor recognized by chardet is read as Windows-1252.
func Decode(r io.Reader) (io.Reader, Charset, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, "", fmt.Errorf("sniffing input: %w", err)
	}

	for _, b := range boms {
		if !bytes.HasPrefix(head, b.prefix) {
			continue
		}

		if b.decoder == nil {
			_, _ = br.Discard(len(b.prefix))
			return br, b.charset, nil
		}

		return transform.NewReader(br, b.decoder()), b.charset, nil
	}

	if utf8.Valid(trimPartialRune(head)) {
		return br, CharsetUTF8, nil
	}

	if res, err := chardet.NewTextDetector().DetectBest(head); err == nil {
		if cp, ok := codePages[res.Charset]; ok {
			return transform.NewReader(br, cp.decoder()), cp.charset, nil
		}
	}

	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), CharsetWindows1252, nil
}

// trimPartialRune drops a multi-byte sequence cut off by the sniff window.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}

			break
		}
	}

	return b
}
