package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"peerdata/internal"
	"peerdata/internal/util"
)

type KeyMode string

const (
	// KeyASN keeps one row per ASN.
	KeyASN KeyMode = "asn"
	// KeyComposite keeps one row per (Organization_Id, ASN, IX_ID).
	KeyComposite KeyMode = "composite"
)

func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyASN:
		return KeyASN, nil
	case KeyComposite:
		return KeyComposite, nil
	default:
		return "", fmt.Errorf("unsupported key mode: %s", s)
	}
}

// Deduper collapses records sharing an identity to the row from the
// highest-priority source. Priority only breaks ties; no source is excluded.
type Deduper struct {
	rank map[internal.Source]int
	last int
	mode KeyMode
}

type DedupeStats struct {
	Input        int
	NullIdentity int
	Numeric      int
	Opaque       int
	Output       int
}

func NewDeduper(priority []internal.Source, mode KeyMode) *Deduper {
	if len(priority) == 0 {
		priority = internal.DefaultPriority
	}
	rank := make(map[internal.Source]int, len(priority))
	for i, src := range priority {
		if _, ok := rank[src]; !ok {
			rank[src] = i
		}
	}
	if mode == "" {
		mode = KeyASN
	}
	return &Deduper{rank: rank, last: len(priority), mode: mode}
}

// Rank returns the tie-break position of src; unlisted sources sort last.
func (d *Deduper) Rank(src internal.Source) int {
	if r, ok := d.rank[src]; ok {
		return r
	}
	return d.last
}

type candidate struct {
	rec  *internal.Record
	id   Identity
	org  string
	ix   string
	rank int
}

// Dedupe returns numeric identities in ascending order followed by opaque
// identities in ascending order. Rows with a null ASN are dropped. Numeric
// ASNs are rewritten in canonical form.
func (d *Deduper) Dedupe(records []internal.Record) ([]internal.Record, DedupeStats) {
	stats := DedupeStats{Input: len(records)}

	var numeric, opaque []candidate
	for i := range records {
		rec := &records[i]
		id, ok := recordIdentity(rec)
		if !ok {
			stats.NullIdentity++
			continue
		}
		c := candidate{rec: rec, id: id, rank: d.Rank(rec.Source)}
		if d.mode == KeyComposite {
			c.org = util.Deref(rec.Get(internal.ColOrganizationID))
			c.ix = util.Deref(rec.Get(internal.ColIXID))
		}
		if id.Numeric {
			numeric = append(numeric, c)
		} else {
			opaque = append(opaque, c)
		}
	}
	stats.Numeric = len(numeric)
	stats.Opaque = len(opaque)

	out := make([]internal.Record, 0, len(numeric)+len(opaque))
	out = d.collapse(out, numeric)
	out = d.collapse(out, opaque)
	stats.Output = len(out)
	return out, stats
}

func (d *Deduper) collapse(out []internal.Record, group []candidate) []internal.Record {
	sort.SliceStable(group, func(i, j int) bool {
		if c := d.compareKey(group[i], group[j]); c != 0 {
			return c < 0
		}
		return group[i].rank < group[j].rank
	})
	for i, c := range group {
		if i > 0 && d.compareKey(group[i-1], c) == 0 {
			continue
		}
		rec := *c.rec
		if c.id.Numeric {
			key := c.id.Key
			rec.Set(internal.ColASN, &key)
		}
		out = append(out, rec)
	}
	return out
}

func (d *Deduper) compareKey(a, b candidate) int {
	if c := a.id.Compare(b.id); c != 0 {
		return c
	}
	if d.mode != KeyComposite {
		return 0
	}
	if c := strings.Compare(a.org, b.org); c != 0 {
		return c
	}
	return strings.Compare(a.ix, b.ix)
}
