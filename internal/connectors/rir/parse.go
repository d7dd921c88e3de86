package rir

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"peerdata/internal/table"
)

// Stats is the NRO delegated-stats file split by line kind.
type Stats struct {
	Header  *table.Table
	Records *table.Table
	Summary *table.Table
}

// ParseDelegatedStats reads the "|" separated extended delegation format.
// Lines starting with '#' are comments. The first data line is the version
// header, lines with more than six fields are records, and the rest are
// per-registry summaries.
func ParseDelegatedStats(r io.Reader) (Stats, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	s := Stats{
		Header:  table.New("version", "registry", "serial", "records", "startdate", "enddate", "UTCoffset"),
		Records: table.New("registry", "cc", "type", "start", "value", "date", "status", "opaque"),
		Summary: table.New("registry", "type", "count"),
	}

	first := true
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s, fmt.Errorf("delegated stats: %w", err)
		}

		switch {
		case first:
			first = false
			s.Header.Append(pad(fields, 7)...)
		case len(fields) > 6:
			s.Records.Append(pad(fields, 8)[:8]...)
		default:
			f := pad(fields, 5)
			s.Summary.Append(f[0], f[2], f[4])
		}
	}
	return s, nil
}

func pad(fields []string, n int) []string {
	out := make([]string, max(n, len(fields)))
	copy(out, fields)
	return out
}
