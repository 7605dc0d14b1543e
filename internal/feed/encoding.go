package feed

import (
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var charsets = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"latin9":       charmap.ISO8859_15,
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
}

// Decode converts raw from the named charset to UTF-8. Empty and utf-8 are passed through.
func Decode(raw []byte, name string) ([]byte, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "utf-8", "utf8":
		return raw, nil
	}
	enc, ok := charsets[name]
	if !ok {
		return nil, errors.Newf("unsupported encoding %q", name)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	return out, nil
}

// SupportedEncoding reports whether Decode understands name
func SupportedEncoding(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return true
	}
	_, ok := charsets[name]
	return ok
}
