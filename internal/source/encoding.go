package source

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// LookupEncoding resolves a charset label such as "utf-8", "latin1" or
// "windows-1252". The empty label selects the default, which reads files as
// UTF-8 without transformation and is reported as a nil Encoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, withKind(ErrInvalidArgument, err, "unknown encoding %q", name)
	}
	return enc, nil
}

// decode converts raw file bytes to text. A nil enc keeps the bytes verbatim.
func decode(raw []byte, enc encoding.Encoding, path string) (string, error) {
	if enc == nil {
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", withKind(ErrRead, err, "decoding %s", path)
	}
	return string(out), nil
}
