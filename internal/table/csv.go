package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding names the character set of a CSV file on disk.
type Encoding string

const (
	UTF8   Encoding = "utf-8"
	Latin1 Encoding = "iso-8859-1"
)

func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "iso-8859-1", "latin-1", "latin1":
		return Latin1, nil
	default:
		return "", fmt.Errorf("unsupported encoding: %s", name)
	}
}

func (e Encoding) decode(r io.Reader) io.Reader {
	if e == Latin1 {
		return charmap.ISO8859_1.NewDecoder().Reader(r)
	}
	return r
}

// encode wraps w for e. flush writes out anything the transcoder still holds
// and never closes w.
func (e Encoding) encode(w io.Writer) (out io.Writer, flush func() error) {
	if e == Latin1 {
		tw := transform.NewWriter(w, encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()))
		return tw, tw.Close
	}
	return w, func() error { return nil }
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses a header row followed by data rows. Ragged rows are padded
// or truncated to the header width.
func ReadCSV(r io.Reader, enc Encoding) (*Table, error) {
	br := bufio.NewReader(enc.decode(r))
	if enc == UTF8 {
		if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = br.Discard(len(utf8BOM))
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := New(header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		t.Append(rec...)
	}
	return t, nil
}

func ReadFile(path string, enc Encoding) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func WriteCSV(w io.Writer, t *Table, enc Encoding) error {
	ew, flush := enc.encode(w)
	cw := csv.NewWriter(ew)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return flush()
}
