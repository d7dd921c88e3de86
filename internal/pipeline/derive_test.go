package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"peerdata/internal"
	"peerdata/internal/config"
	"peerdata/internal/table"
	"peerdata/internal/util"
)

func defaultDerive(t *testing.T) config.DeriveConfig {
	t.Helper()
	s, err := config.LoadSources("")
	require.NoError(t, err)
	return s.Derive
}

func TestDerivePublicNetwork(t *testing.T) {
	d := NewDeriver(defaultDerive(t), nil, nil)
	records := []internal.Record{
		rec(internal.SourcePDB, "1", "Org_Website", "https://example.he.net"),
		rec(internal.SourcePDB, "2", "IX_URL", "https://BGP.HE.NET/exchange/LINX"),
		rec(internal.SourcePDB, "3", "Org_Website", "https://example.net", "IX_Website", "https://ix.example"),
		rec(internal.SourcePDB, "4", "ANS_Name", "he.net"),
	}
	d.Apply(records)

	assert.Equal(t, "true", records[0].Value(internal.ColIsPublicNetwork))
	assert.Equal(t, "true", records[1].Value(internal.ColIsPublicNetwork))
	assert.Equal(t, "false", records[2].Value(internal.ColIsPublicNetwork))
	assert.Equal(t, "false", records[3].Value(internal.ColIsPublicNetwork))
}

func TestDeriveCountryAndPeering(t *testing.T) {
	allow := AllowList{}
	allow[Identity{Numeric: true, Key: "64500"}] = struct{}{}
	countries := map[string]string{"GB": "United Kingdom", "AQ": "Somewhere Else"}

	d := NewDeriver(defaultDerive(t), allow, countries)
	records := []internal.Record{
		rec(internal.SourcePDB, "064500", "Org_Country_Code", "DE", "IX_Country_Code", "GB"),
		rec(internal.SourceRIR, "1", "ASN_Country_Code", "AQ", "IX_Country_Code", "GB"),
		rec(internal.SourceHE, "2", "Org_Country_Code", "ZZ"),
		rec(internal.SourceHE, "AS-FOO"),
	}
	d.Apply(records)

	assert.Equal(t, "true", records[0].Value(internal.ColIsPeering))
	assert.Equal(t, "GB", records[0].Value(internal.ColConsolidatedCountryCode))
	assert.Equal(t, "United Kingdom", records[0].Value(internal.ColCountry))

	assert.Equal(t, "false", records[1].Value(internal.ColIsPeering))
	assert.Equal(t, "AQ", records[1].Value(internal.ColConsolidatedCountryCode))
	assert.Equal(t, "Antarctica", records[1].Value(internal.ColCountry))

	assert.Equal(t, "ZZ", records[2].Value(internal.ColConsolidatedCountryCode))
	assert.Nil(t, records[2].Get(internal.ColCountry))

	assert.Nil(t, records[3].Get(internal.ColConsolidatedCountryCode))
	assert.Nil(t, records[3].Get(internal.ColCountry))
}

func TestLoadAllowListCSV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "linx.csv")
	require.NoError(t, os.WriteFile(p, []byte("Member,ASN\nExample,64500\nOther,0064501.0\nBlank,\n"), 0o644))

	allow, err := LoadAllowList(p, "ASN", table.Latin1)
	require.NoError(t, err)
	assert.Len(t, allow, 2)
	assert.True(t, allow.Contains(util.StringPtr("64501")))
	assert.False(t, allow.Contains(util.StringPtr("64502")))
	assert.False(t, allow.Contains(nil))

	_, err = LoadAllowList(p, "AS Number", table.Latin1)
	require.ErrorIs(t, err, table.ErrMissingColumn)
}

func TestLoadAllowListXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Member", "ASN"},
		{"Example", 64500},
		{"", ""},
		{"Other", "AS-FOO"},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	p := filepath.Join(t.TempDir(), "linx.xlsx")
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	allow, err := LoadAllowList(p, "ASN", table.UTF8)
	require.NoError(t, err)
	assert.Len(t, allow, 2)
	assert.True(t, allow.Contains(util.StringPtr("64500")))
	assert.True(t, allow.Contains(util.StringPtr("AS-FOO")))
}

func TestLoadCountries(t *testing.T) {
	p := filepath.Join(t.TempDir(), "countries.csv")
	require.NoError(t, os.WriteFile(p, []byte("index,name,flag_url,cc,asn_count,url\n1,Germany,,DE,10,\n2,Deutschland,,DE,1,\n3,Nowhere,,,0,\n"), 0o644))

	countries, err := LoadCountries(p, table.UTF8)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"DE": "Germany"}, countries)
}
