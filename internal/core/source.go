package core

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/projview/internal/jsonval"
)

// Input is one raw source as received from an upload, a paste or a fetch.
// Name is the origin hint: a file name or URL.
type Input struct {
	Name string
	Data []byte
}

// IsGzip reports whether an origin hint names a gzip-compressed source.
// For URLs only the path is considered, so query strings are ignored.
func IsGzip(name string) bool {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		name = u.Path
	}
	return strings.EqualFold(path.Ext(name), ".gz")
}

// Decode turns one raw source into a JSON value. Sources whose name ends in
// .gz are decompressed first as a single gzip member. The result must be
// UTF-8 text; a leading byte-order mark is ignored.
func Decode(in Input) (jsonval.Value, error) {
	data := in.Data

	if IsGzip(in.Name) {
		raw, err := gunzip(data)
		if err != nil {
			return jsonval.Value{}, &DecodeError{Source: in.Name, Stage: "gzip", Err: err}
		}
		data = raw
	} else {
		data = skipBOM(data)
	}

	if !utf8.Valid(data) {
		return jsonval.Value{}, &DecodeError{Source: in.Name, Stage: "utf-8", Err: jsonval.ErrInvalidUTF8}
	}

	v, err := jsonval.Parse(data)
	if err != nil {
		return jsonval.Value{}, &DecodeError{Source: in.Name, Stage: "json", Err: err}
	}
	return v, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	zr.Multistream(false)

	out, err := io.ReadAll(NewBOMSkippingReader(zr))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}
