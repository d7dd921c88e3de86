package pipeline

import (
	"fmt"
	"log/slog"

	"peerdata/internal/table"
)

var reportColumns = []string{"Country", "ASN", "ASN Name"}

// ReportInputs are the collector outputs the Country/ASN report reads. Any may be nil.
type ReportInputs struct {
	Records      *table.Table // RIR records
	Participants *table.Table // IXPDB provider participants
	Providers    *table.Table // IXPDB providers
	CountryLines *table.Table // HE country lines
}

// Default globs of the report inputs, relative to the data directory.
var reportGlobs = map[string]string{
	"records":       stampedGlob("RIR", "Records"),
	"participants":  stampedGlob("IXPDB", "Providers_Participants"),
	"providers":     stampedGlob("IXPDB", "Providers"),
	"country_lines": stampedGlob("HE", "Country_Lines"),
}

// stampedGlob matches <sub>/<stamp>_<name>.csv only, so a dataset name that is
// a suffix of another (Providers, Organizations_Providers) stays unambiguous.
func stampedGlob(sub, name string) string {
	const d2 = "[0-9][0-9]"
	stamp := d2 + "_" + d2 + "_" + d2 + "_" + d2 + "_" + d2 + "_" + d2
	return sub + "/" + stamp + "_" + name + ".csv"
}

// LoadReportInputs picks the newest collector outputs; missing ones are logged and left nil.
func LoadReportInputs(dataDir string, enc table.Encoding, logger *slog.Logger) ReportInputs {
	if logger == nil {
		logger = slog.Default()
	}
	load := func(key string) *table.Table {
		p, err := NewestMatch(dataDir, reportGlobs[key])
		if err != nil {
			logger.Warn("report input skipped", "input", key, "error", err)
			return nil
		}
		t, err := table.ReadFile(p, enc)
		if err != nil {
			logger.Warn("report input skipped", "input", key, "path", p, "error", err)
			return nil
		}
		return t
	}
	return ReportInputs{
		Records:      load("records"),
		Participants: load("participants"),
		Providers:    load("providers"),
		CountryLines: load("country_lines"),
	}
}

// BuildReport stacks assigned RIR records, IXPDB participants with their
// provider's country, and HE country lines into Country/ASN/ASN Name rows.
func BuildReport(in ReportInputs) (*table.Table, error) {
	out := table.New(reportColumns...)

	if in.Records != nil {
		sel, err := in.Records.Select("status", "cc", "opaque", "registry")
		if err != nil {
			return nil, fmt.Errorf("records: %w", err)
		}
		for _, row := range sel.Rows {
			if row[0] == "assigned" {
				out.Append(row[1], row[2], row[3])
			}
		}
	}

	if in.Participants != nil && in.Providers != nil {
		joined, err := table.Join(in.Participants, in.Providers, "ProviderID", "id", table.InnerJoin, [2]string{"_x", "_y"})
		if err != nil {
			return nil, fmt.Errorf("participants: %w", err)
		}
		sel, err := joined.Select("country", "asn", "name_x")
		if err != nil {
			return nil, fmt.Errorf("participants: %w", err)
		}
		out.Rows = append(out.Rows, sel.Rows...)
	}

	if in.CountryLines != nil {
		sel, err := in.CountryLines.Select("cc", "asn", "name")
		if err != nil {
			return nil, fmt.Errorf("country lines: %w", err)
		}
		out.Rows = append(out.Rows, sel.Rows...)
	}
	return out, nil
}

// CleanReport drops exact duplicate rows and orders by Country, keeping input order between ties.
func CleanReport(t *table.Table) (*table.Table, error) {
	out := t.DropDuplicates()
	if err := out.SortStable("Country"); err != nil {
		return nil, err
	}
	return out, nil
}
