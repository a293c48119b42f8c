package table

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrInvalidEncoding = errors.New("invalid UTF-8")
)

// decoder returns the transformer that turns input bytes into UTF-8, and
// whether decoded text still needs UTF-8 validation (the pass-through path
// does not replace bad bytes, so it is checked row by row instead).
func decoder(name string) (transform.Transformer, bool, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	switch key {
	case "", "utf-8", "utf8", "utf-8-sig":
		// A leading BOM is dropped; a UTF-16 BOM switches decoding.
		return unicode.BOMOverride(transform.Nop), true, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), false, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252.NewDecoder(), false, nil
	case "utf-16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), false, nil
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc.NewDecoder(), false, nil
}
