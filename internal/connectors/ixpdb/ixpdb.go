// Package ixpdb exports the IXPDB REST API (providers, organizations,
// participants, networks, traffic) as flat tables.
package ixpdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"peerdata/internal/connectors"
	"peerdata/internal/table"
)

type Collector struct {
	client  *connectors.Client
	baseURL string
	workers int
	logger  *slog.Logger
}

func New(client *connectors.Client, baseURL string, workers int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		workers: workers,
		logger:  logger.With("collector", "IXPDB"),
	}
}

func (c *Collector) Name() string { return "IXPDB" }

type providerDetail struct {
	networks     []Network
	participants []Participant
}

type orgDetail struct {
	org       *Organization
	providers []idOnly
}

func (c *Collector) Collect(ctx context.Context) ([]connectors.Dataset, error) {
	var providers []Provider
	if err := c.client.GetJSON(ctx, c.baseURL+"/provider/list", &providers); err != nil {
		return nil, fmt.Errorf("provider list: %w", err)
	}
	c.logger.Info("providers listed", "count", humanize.Comma(int64(len(providers))))

	orgIDs := uniqueOrgIDs(providers)
	orgs := make([]orgDetail, len(orgIDs))
	err := connectors.ForEach(ctx, c.workers, len(orgIDs), func(ctx context.Context, i int) error {
		var org Organization
		if err := c.client.GetJSON(ctx, c.url("/organization/%s", orgIDs[i]), &org); err != nil {
			return err
		}
		var mapped []idOnly
		if err := c.client.GetJSON(ctx, c.url("/organization/%s/providers", orgIDs[i]), &mapped); err != nil {
			return err
		}
		orgs[i] = orgDetail{org: &org, providers: mapped}
		return nil
	}, func(i int, err error) {
		c.logger.Warn("organization skipped", "id", orgIDs[i], "error", err)
	})
	if err != nil {
		return nil, err
	}

	details := make([]providerDetail, len(providers))
	err = connectors.ForEach(ctx, c.workers, len(providers), func(ctx context.Context, i int) error {
		id := string(providers[i].ID)
		if err := c.client.GetJSON(ctx, c.url("/provider/%s/networks", id), &details[i].networks); err != nil {
			return err
		}
		return c.client.GetJSON(ctx, c.url("/provider/%s/participants", id), &details[i].participants)
	}, func(i int, err error) {
		c.logger.Warn("provider skipped", "id", string(providers[i].ID), "error", err)
	})
	if err != nil {
		return nil, err
	}

	var traffic []Generic
	if err := c.client.GetJSON(ctx, c.baseURL+"/traffic/list", &traffic); err != nil {
		c.logger.Warn("traffic list skipped", "error", err)
	}
	var participants []Participant
	if err := c.client.GetJSON(ctx, c.baseURL+"/participant/list", &participants); err != nil {
		c.logger.Warn("participant list skipped", "error", err)
	}

	return []connectors.Dataset{
		{Name: "Providers", Table: providersTable(providers)},
		{Name: "Providers_Participants", Table: providerParticipantsTable(providers, details)},
		{Name: "Providers_Networks", Table: providerNetworksTable(providers, details)},
		{Name: "Organizations", Table: organizationsTable(orgs)},
		{Name: "Organizations_Providers", Table: organizationProvidersTable(orgs)},
		{Name: "Traffic", Table: genericTable(traffic)},
		{Name: "Contacts", Table: contactsTable(orgs)},
		{Name: "Participants", Table: participantsTable(participants)},
		{Name: "Consolidated_Data", Table: consolidate(providers, details, orgs)},
	}, nil
}

func (c *Collector) url(format, id string) string {
	return c.baseURL + fmt.Sprintf(format, id)
}

func uniqueOrgIDs(providers []Provider) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range providers {
		id := string(p.OrganizationID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func providersTable(providers []Provider) *table.Table {
	t := table.New("apis_ixfexport", "apis_traffic", "city", "country", "id", "location_count", "looking_glass",
		"manrs", "name", "organization_id", "participant_count", "pdb_id", "updated", "website")
	for _, p := range providers {
		t.Append(string(p.APIs.IXFExport), string(p.APIs.Traffic), string(p.City), string(p.Country), string(p.ID),
			string(p.LocationCount), string(p.LookingGlass), string(p.Manrs), string(p.Name), string(p.OrganizationID),
			string(p.ParticipantCount), string(p.PDBID), string(p.Updated), string(p.Website))
	}
	return t
}

func providerParticipantsTable(providers []Provider, details []providerDetail) *table.Table {
	t := table.New("ProviderID", "asn", "name", "ipv6", "ip_addresses")
	for i, p := range providers {
		for _, pp := range details[i].participants {
			t.Append(string(p.ID), string(pp.ASN), string(pp.Name), string(pp.IPv6), string(pp.IPAddresses))
		}
	}
	return t
}

func providerNetworksTable(providers []Provider, details []providerDetail) *table.Table {
	t := table.New("ProviderID", "name", "addresses", "route_server_asns")
	for i, p := range providers {
		for _, n := range details[i].networks {
			t.Append(string(p.ID), string(n.Name), string(n.Addresses), string(n.RouteServerASNs))
		}
	}
	return t
}

func organizationsTable(orgs []orgDetail) *table.Table {
	t := table.New("name", "id", "website", "city", "country", "association")
	for _, o := range orgs {
		if o.org == nil {
			continue
		}
		t.Append(string(o.org.Name), string(o.org.ID), string(o.org.Website), string(o.org.City),
			string(o.org.Country), string(o.org.Association))
	}
	return t
}

func organizationProvidersTable(orgs []orgDetail) *table.Table {
	t := table.New("ProviderID", "OrganizationID")
	for _, o := range orgs {
		if o.org == nil {
			continue
		}
		for _, p := range o.providers {
			t.Append(string(p.ID), string(o.org.ID))
		}
	}
	return t
}

func contactsTable(orgs []orgDetail) *table.Table {
	t := table.New("organization_id", "phone", "name", "email", "address", "city", "country")
	for _, o := range orgs {
		if o.org == nil {
			continue
		}
		for _, ct := range o.org.Contacts {
			t.Append(string(o.org.ID), string(ct.Phone), string(ct.Name), string(ct.Email), string(ct.Address),
				string(ct.City), string(ct.Country))
		}
	}
	return t
}

func participantsTable(participants []Participant) *table.Table {
	t := table.New("asn", "ip_addresses", "ipv6", "manrs", "name", "provider_count")
	for _, p := range participants {
		t.Append(string(p.ASN), string(p.IPAddresses), string(p.IPv6), string(p.Manrs), string(p.Name), string(p.ProviderCount))
	}
	return t
}

func genericTable(records []Generic) *table.Table {
	cols := columnsOf(records)
	t := table.New(cols...)
	for _, r := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = string(r[c])
		}
		t.Append(row...)
	}
	return t
}

// consolidate flattens every provider participant with its provider and the
// provider's organization. Organization fields stay empty when that fetch failed.
func consolidate(providers []Provider, details []providerDetail, orgs []orgDetail) *table.Table {
	byID := make(map[string]*Organization, len(orgs))
	for _, o := range orgs {
		if o.org != nil {
			byID[string(o.org.ID)] = o.org
		}
	}

	t := table.New("organization_id", "organization_name", "org_website", "city", "country", "association",
		"provider_id", "location_count", "participant_count", "pdb_id", "updated", "asn", "name", "ip_addresses")
	for i, p := range providers {
		org := byID[string(p.OrganizationID)]
		if org == nil {
			org = &Organization{}
		}
		for _, pp := range details[i].participants {
			t.Append(string(p.OrganizationID), string(org.Name), string(org.Website), string(org.City),
				string(org.Country), string(org.Association), string(p.ID), string(p.LocationCount),
				string(p.ParticipantCount), string(p.PDBID), string(p.Updated), string(pp.ASN), string(pp.Name),
				string(pp.IPAddresses))
		}
	}
	return t
}
