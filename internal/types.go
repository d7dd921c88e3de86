package internal

import "strconv"

type Source string

const (
	SourcePDB   Source = "PDB"
	SourceIXPDB Source = "IXPDB"
	SourceHE    Source = "HE"
	SourceRIR   Source = "RIR"
)

// DefaultPriority is the tie-break order used when the sources config does not set one.
var DefaultPriority = []Source{SourcePDB, SourceIXPDB, SourceHE, SourceRIR}

// Column is one field of the canonical consolidated schema.
type Column int

const (
	ColSource Column = iota
	ColOrganizationID
	ColOrganizationName
	ColOrgCountryCode
	ColOrgCity
	ColOrgRegionContinent
	ColIXID
	ColIXName
	ColIXCity
	ColIXCountryCode
	ColIXUpdated
	ColIXParticipantCount
	ColIXWebsite
	ColNetworkID
	ColNetworkName
	ColASN
	ColASNName
	ColASNCountryCode
	ColASNDate
	ColASNCity
	ColASNCountryName
	ColASNRegionContinent
	ColIPv4
	ColIPv6
	ColOrgWebsite
	ColOrgCountry
	ColOrgAssociation
	ColIXLocationCount
	ColIXLookingGlass
	ColIXManrs
	ColIXPDBID
	ColIXAddresses
	ColIXRouteServerASNs
	ColASNIsIPv6
	ColASNIPAddresses
	ColIXInternetExchange
	ColIXIsDataAvailable
	ColIXURL
	ColASNAdjacenciesV4
	ColASNRouteV4
	ColASNAdjacenciesV6
	ColASNRouteV6
	ColOrgAkaName
	ColOrgLongName
	ColOrgInfoType
	ColOrgInfoPrefixes4
	ColOrgInfoPrefixes6
	ColOrgInfoTraffic
	ColASNIsRSPeer
	ColASNNotes
	ColASNSpeed
	ColIXAkaName
	ColIXLongName

	// Derived after deduplication.
	ColIsPeering
	ColIsPublicNetwork
	ColConsolidatedCountryCode
	ColCountry

	NumColumns
)

// Header names are part of the published CSV layout, misspellings included.
var columnNames = [NumColumns]string{
	"Source", "Organization_Id", "Organization_Name", "Org_Country_Code", "Org_City", "Org_Region_Continent",
	"IX_ID", "IX_Name", "IX_City", "IX_Country_Code", "IX_Updated", "IX_Paricipant_Count", "IX_Website",
	"Network_ID", "Network_Name", "ASN", "ANS_Name", "ASN_Country_Code", "ASN_Date", "ASN_City",
	"ASN_Country_Name", "ASN_Region_Continent", "IPv4", "IPv6", "Org_Website", "Org_Country",
	"Org_Association", "IX_Location_Count", "IX_Looking_Glass", "IX_Manrs", "IX_PDB_ID", "IX_Addresses",
	"IX_Route_Server_ASNS", "ASN_Is_IPV6", "ASN_IP_Addresses", "IX_InternetExchange", "IX_IsDataAvailable",
	"IX_URL", "ASN_Adjacencies_v4", "ASN_Route_v4", "ASN_Adjacencies_v6", "ASN_Route_v6", "Org_Aka_Name",
	"Org_Long_Name", "Org_Info_Type", "Org_Info_Prefixes4", "Org_Info_Prefixes6", "Org_Info_traffic",
	"ANS_Is_Rs_Peer", "ASN_Notes", "ASN_Speed", "IX_Aka_Name", "IX_Long_Name",
	"IsPeering", "IsPublicNetwork", "ConsolidatedCountryCode", "Country",
}

var columnsByName = func() map[string]Column {
	out := make(map[string]Column, NumColumns)
	for i, name := range columnNames {
		out[name] = Column(i)
	}
	return out
}()

func (c Column) String() string {
	if c < 0 || c >= NumColumns {
		return "Column(" + strconv.Itoa(int(c)) + ")"
	}
	return columnNames[c]
}

// Mappable reports whether a source field may be mapped onto the column.
// Source is set by the normalizer and the derived columns are computed later.
func (c Column) Mappable() bool {
	return c > ColSource && c < ColIsPeering
}

func ColumnByName(name string) (Column, bool) {
	c, ok := columnsByName[name]
	return c, ok
}

// ColumnNames returns the output header in canonical order.
func ColumnNames() []string {
	out := make([]string, NumColumns)
	copy(out, columnNames[:])
	return out
}

// Record is one canonical row. A nil value is the only null marker.
type Record struct {
	Source Source
	Values [NumColumns]*string
}

func (r *Record) Get(c Column) *string {
	if c == ColSource {
		s := string(r.Source)
		return &s
	}
	return r.Values[c]
}

// Value returns the column as a plain string, empty when null.
func (r *Record) Value(c Column) string {
	if v := r.Get(c); v != nil {
		return *v
	}
	return ""
}

func (r *Record) Set(c Column, v *string) {
	if c == ColSource {
		if v != nil {
			r.Source = Source(*v)
		}
		return
	}
	r.Values[c] = v
}

// Strings renders the record in header order, nulls as empty strings.
func (r *Record) Strings() []string {
	out := make([]string, NumColumns)
	for i := Column(0); i < NumColumns; i++ {
		out[i] = r.Value(i)
	}
	return out
}
