package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"peerdata/internal"
	"peerdata/internal/config"
	"peerdata/internal/table"
	"peerdata/internal/util"
)

// AllowList is a set of ASN identities, e.g. the LINX member list.
type AllowList map[Identity]struct{}

func (a AllowList) Contains(v *string) bool {
	id, ok := ParseIdentity(v)
	if !ok {
		return false
	}
	_, found := a[id]
	return found
}

// Deriver fills the columns computed after deduplication.
type Deriver struct {
	allow       AllowList
	countries   map[string]string
	overrides   map[string]string
	marker      string
	urlCols     []internal.Column
	countryCols []internal.Column
}

func NewDeriver(cfg config.DeriveConfig, allow AllowList, countries map[string]string) *Deriver {
	d := &Deriver{
		allow:       allow,
		countries:   countries,
		overrides:   cfg.CountryOverrides,
		marker:      cfg.PublicNetworkMarker,
		urlCols:     cfg.URLCols(),
		countryCols: cfg.CountryCols(),
	}
	if d.marker == "" {
		d.marker = "he.net"
	}
	if len(d.urlCols) == 0 {
		d.urlCols = []internal.Column{internal.ColOrgWebsite, internal.ColIXWebsite, internal.ColIXURL}
	}
	if len(d.countryCols) == 0 {
		d.countryCols = []internal.Column{internal.ColASNCountryCode, internal.ColIXCountryCode, internal.ColOrgCountryCode}
	}
	return d
}

func (d *Deriver) Apply(records []internal.Record) {
	for i := range records {
		d.derive(&records[i])
	}
}

func (d *Deriver) derive(rec *internal.Record) {
	rec.Set(internal.ColIsPeering, boolPtr(d.allow.Contains(rec.Get(internal.ColASN))))

	public := false
	for _, col := range d.urlCols {
		if v := rec.Get(col); v != nil && util.ContainsFold(*v, d.marker) {
			public = true
			break
		}
	}
	rec.Set(internal.ColIsPublicNetwork, boolPtr(public))

	var cc *string
	for _, col := range d.countryCols {
		if v := rec.Get(col); v != nil {
			cc = v
			break
		}
	}
	rec.Set(internal.ColConsolidatedCountryCode, cc)

	var country *string
	if cc != nil {
		if name, ok := d.overrides[*cc]; ok {
			country = util.StringPtr(name)
		} else if name, ok := d.countries[*cc]; ok {
			country = util.StringPtr(name)
		}
	}
	rec.Set(internal.ColCountry, country)
}

func boolPtr(b bool) *string {
	if b {
		return util.StringPtr("true")
	}
	return util.StringPtr("false")
}

// LoadAllowList reads the identities in column from a CSV or XLSX file.
func LoadAllowList(path, column string, enc table.Encoding) (AllowList, error) {
	var (
		t   *table.Table
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		var blob []byte
		blob, err = os.ReadFile(path)
		if err == nil {
			t, err = ReadXLSXTable(bytes.NewReader(blob))
		}
	} else {
		t, err = table.ReadFile(path, enc)
	}
	if err != nil {
		return nil, fmt.Errorf("allow list: %w", err)
	}

	idx := t.Index(column)
	if idx < 0 {
		return nil, fmt.Errorf("allow list %s: %w: %s", path, table.ErrMissingColumn, column)
	}
	out := make(AllowList, t.Len())
	for _, row := range t.Rows {
		if id, ok := ParseIdentity(util.NullIfBlank(row[idx])); ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// LoadCountries reads the cc -> name lookup written by the HE collector.
func LoadCountries(path string, enc table.Encoding) (map[string]string, error) {
	t, err := table.ReadFile(path, enc)
	if err != nil {
		return nil, fmt.Errorf("countries: %w", err)
	}
	sel, err := t.Select("cc", "name")
	if err != nil {
		return nil, fmt.Errorf("countries %s: %w", path, err)
	}
	out := make(map[string]string, sel.Len())
	for _, row := range sel.Rows {
		cc := strings.TrimSpace(row[0])
		if cc == "" {
			continue
		}
		if _, exists := out[cc]; !exists {
			out[cc] = strings.TrimSpace(row[1])
		}
	}
	return out, nil
}
