package ixpdb

import (
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Text accepts any JSON value and keeps it as the string written to CSV.
// Arrays are joined with ", ", null becomes "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = Text(format(v))
	return nil
}

func (t Text) String() string { return string(t) }

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, format(item))
		}
		return strings.Join(parts, ", ")
	default:
		blob, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(blob)
	}
}

type apis struct {
	IXFExport Text `json:"ixfexport"`
	Traffic   Text `json:"traffic"`
}

type Provider struct {
	ID               Text `json:"id"`
	Name             Text `json:"name"`
	OrganizationID   Text `json:"organization_id"`
	City             Text `json:"city"`
	Country          Text `json:"country"`
	LocationCount    Text `json:"location_count"`
	LookingGlass     Text `json:"looking_glass"`
	Manrs            Text `json:"manrs"`
	ParticipantCount Text `json:"participant_count"`
	PDBID            Text `json:"pdb_id"`
	Updated          Text `json:"updated"`
	Website          Text `json:"website"`
	APIs             apis `json:"apis"`
}

type Contact struct {
	Phone   Text `json:"phone"`
	Name    Text `json:"name"`
	Email   Text `json:"email"`
	Address Text `json:"address"`
	City    Text `json:"city"`
	Country Text `json:"country"`
}

type Organization struct {
	ID          Text      `json:"id"`
	Name        Text      `json:"name"`
	Website     Text      `json:"website"`
	City        Text      `json:"city"`
	Country     Text      `json:"country"`
	Association Text      `json:"association"`
	Contacts    []Contact `json:"contacts"`
}

type Participant struct {
	ASN           Text `json:"asn"`
	Name          Text `json:"name"`
	IPv6          Text `json:"ipv6"`
	IPAddresses   Text `json:"ip_addresses"`
	Manrs         Text `json:"manrs"`
	ProviderCount Text `json:"provider_count"`
}

type Network struct {
	Name            Text `json:"name"`
	Addresses       Text `json:"addresses"`
	RouteServerASNs Text `json:"route_server_asns"`
}

type idOnly struct {
	ID Text `json:"id"`
}

// Generic is a record whose shape the collector does not model, such as traffic.
type Generic map[string]Text

// columnsOf returns the sorted union of keys so output is stable across runs.
func columnsOf(records []Generic) []string {
	seen := map[string]struct{}{}
	var cols []string
	for _, r := range records {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}
