package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerdata/internal"
	"peerdata/internal/table"
)

func TestLoadSourcesDefaults(t *testing.T) {
	s, err := LoadSources("")
	require.NoError(t, err)

	assert.Equal(t, internal.DefaultPriority, s.Priority)
	require.Len(t, s.Sources, 4)

	pdb, ok := s.Source(internal.SourcePDB)
	require.True(t, ok)
	assert.Equal(t, table.Latin1, pdb.InputEncoding())
	assert.Equal(t, []internal.Column{internal.ColOrgCountryCode, internal.ColASNCountryCode}, pdb.Mapping()["country"])
	assert.Equal(t, []internal.Column{internal.ColASN}, pdb.Mapping()["asn_connection_peer"])

	ixpdb, ok := s.Source(internal.SourceIXPDB)
	require.True(t, ok)
	assert.Equal(t, table.UTF8, ixpdb.InputEncoding())

	rir, ok := s.Source(internal.SourceRIR)
	require.True(t, ok)
	assert.Equal(t, `row.type == "asn"`, rir.Filter)
	assert.Equal(t, []internal.Column{internal.ColASN}, rir.Mapping()["opaque"])

	he, ok := s.Source(internal.SourceHE)
	require.True(t, ok)
	assert.Equal(t, []internal.Column{internal.ColIXName}, he.Mapping()["Exchange Name"])

	assert.Equal(t, []internal.Column{internal.ColOrgWebsite, internal.ColIXWebsite, internal.ColIXURL}, s.Derive.URLCols())
	assert.Equal(t, []internal.Column{internal.ColASNCountryCode, internal.ColIXCountryCode, internal.ColOrgCountryCode}, s.Derive.CountryCols())
	assert.Equal(t, "Antarctica", s.Derive.CountryOverrides["AQ"])
}

func TestParseSourcesUnknownColumnSuggests(t *testing.T) {
	_, err := ParseSources([]byte(`
sources:
  - name: RIR
    path: RIR/*.csv
    fields:
      cc: ASN_Contry_Code
`))
	require.ErrorIs(t, err, ErrUnknownColumn)
	assert.Contains(t, err.Error(), `did you mean "ASN_Country_Code"`)
}

func TestParseSourcesRejectsDerivedTarget(t *testing.T) {
	_, err := ParseSources([]byte(`
sources:
  - name: HE
    fields:
      peer: IsPeering
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not mappable")
}

func TestParseSourcesRejectsUnknownKeys(t *testing.T) {
	_, err := ParseSources([]byte(`
sources:
  - name: HE
    pathh: HE/*.csv
`))
	require.Error(t, err)
}

func TestParseSourcesDuplicateName(t *testing.T) {
	_, err := ParseSources([]byte(`
sources:
  - name: HE
  - name: HE
`))
	require.Error(t, err)
}

func TestParseSourcesCustomPriority(t *testing.T) {
	s, err := ParseSources([]byte(`
priority: [RIR, HE]
sources:
  - name: RIR
    encoding: latin1
    fields:
      opaque: ASN
`))
	require.NoError(t, err)
	assert.Equal(t, []internal.Source{internal.SourceRIR, internal.SourceHE}, s.Priority)
	assert.Equal(t, "ASN", s.Derive.AllowListColumn)
}
