// Package feed turns raw supplier feed bytes into documents and looks stock up in them.
package feed

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/dtos"
)

// ParseOptions controls how a feed is read
type ParseOptions struct {
	Delimiter rune
	HasHeader bool
	Encoding  string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes raw into a FeedDocument.
//
// Line endings are normalized and blank lines skipped. Trailing empty fields are
// stripped from every record, so a stray delimiter at the end of a line never
// creates a phantom column. With a header, rows whose field count differs from
// the header are dropped and counted in Skipped.
func Parse(raw []byte, opts ParseOptions) (*dtos.FeedDocument, error) {
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	if !validDelimiter(delim) {
		return nil, &apperrors.ParseError{
			Code: constants.ErrCodeInvalidDelimiter,
			Err:  errors.Newf("delimiter %q cannot be used", delim),
		}
	}

	text, err := Decode(raw, opts.Encoding)
	if err != nil {
		return nil, &apperrors.ParseError{Code: constants.ErrCodeUnsupportedEncoding, Err: err}
	}
	text = bytes.TrimPrefix(text, utf8BOM)
	text = normalizeLineEndings(text)

	doc := &dtos.FeedDocument{
		HasHeader: opts.HasHeader,
		Delimiter: string(delim),
		Encoding:  opts.Encoding,
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	headerSeen := false
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				doc.Skipped++
				continue
			}
			return nil, &apperrors.ParseError{Code: constants.ErrCodeParseMalformed, Err: err}
		}

		fields := stripTrailingEmpty(record)
		if len(fields) == 0 {
			// a line of bare delimiters is not blank
			if len(record) > 1 {
				doc.Skipped++
			}
			continue
		}

		if !opts.HasHeader {
			doc.Records = append(doc.Records, fields)
			continue
		}

		if !headerSeen {
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
			doc.Header = fields
			headerSeen = true
			continue
		}

		if len(fields) != len(doc.Header) {
			doc.Skipped++
			continue
		}
		row := make(map[string]string, len(fields))
		for i, col := range doc.Header {
			row[col] = fields[i]
		}
		doc.Rows = append(doc.Rows, row)
	}

	if doc.Len() == 0 {
		return nil, &apperrors.ParseError{Code: constants.ErrCodeParseEmpty}
	}
	return doc, nil
}

// stripTrailingEmpty drops empty or whitespace-only fields from the end only
func stripTrailingEmpty(record []string) []string {
	n := len(record)
	for n > 0 && strings.TrimSpace(record[n-1]) == "" {
		n--
	}
	out := make([]string, n)
	copy(out, record[:n])
	return out
}

func normalizeLineEndings(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
}

func validDelimiter(r rune) bool {
	return r != '"' && r != '\r' && r != '\n' && r != 0xFFFD
}
