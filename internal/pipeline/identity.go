package pipeline

import (
	"strings"

	"peerdata/internal"
	"peerdata/internal/util"
)

// Identity is the dedupe key derived from a record's ASN. Numeric and opaque
// identities live in separate domains and never compare equal.
type Identity struct {
	Numeric bool
	Key     string
}

// ParseIdentity classifies an ASN value. Numeric values are digits with an
// optional all-zero fraction ("64500.0" as spreadsheets write it) and are
// rewritten without leading zeros. ok is false for a null ASN, including
// the None/NULL/N/A spellings.
func ParseIdentity(v *string) (id Identity, ok bool) {
	if v == nil {
		return Identity{}, false
	}
	trimmed := util.NullIfMissing(*v)
	if trimmed == nil {
		return Identity{}, false
	}
	s := *trimmed
	if digits, isNum := integerDigits(s); isNum {
		return Identity{Numeric: true, Key: digits}, true
	}
	return Identity{Key: s}, true
}

func integerDigits(s string) (string, bool) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) {
		return "", false
	}
	if hasFrac && strings.Trim(frac, "0") != "" {
		return "", false
	}
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	return whole, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Compare orders identities of the same domain. Numeric keys compare by value
// without overflow since they carry no leading zeros.
func (a Identity) Compare(b Identity) int {
	if a.Numeric != b.Numeric {
		if a.Numeric {
			return -1
		}
		return 1
	}
	if a.Numeric && len(a.Key) != len(b.Key) {
		if len(a.Key) < len(b.Key) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Key, b.Key)
}

func recordIdentity(rec *internal.Record) (Identity, bool) {
	return ParseIdentity(rec.Get(internal.ColASN))
}
