package he

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"peerdata/internal/table"
	"peerdata/internal/util"
)

var (
	exchangeColumns    = []string{"index", "internetExchange", "members", "url", "isDataAvailable", "cc", "city", "website"}
	countryColumns     = []string{"index", "name", "flag_url", "cc", "asn_count", "url"}
	countryLineColumns = []string{"cc", "countryIndex", "index", "asn", "asn_url", "name", "adjacencies_v4", "routes_v4", "adjacencies_v6", "routes_v6"}
)

func cellText(s *goquery.Selection) string {
	return util.NormalizeSpaces(s.Text())
}

// absURL prefixes site-relative links found in attr of the first match.
func absURL(base string, s *goquery.Selection, attr string) string {
	v, ok := s.First().Attr(attr)
	if !ok || strings.TrimSpace(v) == "" {
		return ""
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	return strings.TrimRight(base, "/") + v
}

// ParseExchanges reads the /report/exchanges table. Rows are numbered from 1.
func ParseExchanges(doc *goquery.Document, base string) *table.Table {
	out := table.New(exchangeColumns...)
	count := 0
	doc.Find("table").First().Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 6 {
			return
		}
		count++
		out.Append(
			strconv.Itoa(count),
			cellText(cells.Eq(0)),
			cellText(cells.Eq(1)),
			absURL(base, cells.Eq(0).Find("a"), "href"),
			cellText(cells.Eq(2)),
			cellText(cells.Eq(3)),
			cellText(cells.Eq(4)),
			cellText(cells.Eq(5)),
		)
	})
	return out
}

// ParseMembers reads table#members of one exchange page. Cells are keyed by
// the table's own header row, then tagged with the exchange name and index.
func ParseMembers(doc *goquery.Document, exchangeName, parentIndex string) *table.Table {
	members := doc.Find("table#members").First()
	if members.Length() == 0 {
		return nil
	}

	var headers []string
	members.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, cellText(th))
	})
	out := table.New(append(append([]string(nil), headers...), "Exchange Name", "ParentIndex")...)

	members.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		row := make([]string, len(out.Columns))
		cells.Each(func(j int, td *goquery.Selection) {
			if j < len(headers) {
				row[j] = cellText(td)
			}
		})
		row[len(headers)] = exchangeName
		row[len(headers)+1] = parentIndex
		out.Append(row...)
	})
	return out
}

// ParseCountries reads the /report/world table. Rows are numbered from 1.
func ParseCountries(doc *goquery.Document, base string) *table.Table {
	out := table.New(countryColumns...)
	count := 0
	doc.Find("table").First().Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}
		count++
		out.Append(
			strconv.Itoa(count),
			cellText(cells.Eq(0)),
			absURL(base, cells.Eq(0).Find("img"), "src"),
			cellText(cells.Eq(1)),
			cellText(cells.Eq(2)),
			absURL(base, cells.Eq(3).Find("a"), "href"),
		)
	})
	return out
}

// ParseCountryLines reads the ASN table of one country report. Lines are numbered from 0.
func ParseCountryLines(doc *goquery.Document, base, cc, countryIndex string) *table.Table {
	out := table.New(countryLineColumns...)
	tbl := doc.Find("div.tabdata").First().Find("table").First()
	line := 0
	tbl.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 6 {
			return
		}
		out.Append(
			cc,
			countryIndex,
			strconv.Itoa(line),
			cellText(cells.Eq(0)),
			absURL(base, cells.Eq(0).Find("a"), "href"),
			cellText(cells.Eq(1)),
			cellText(cells.Eq(2)),
			cellText(cells.Eq(3)),
			cellText(cells.Eq(4)),
			cellText(cells.Eq(5)),
		)
		line++
	})
	return out
}
