package he

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerdata/internal/connectors"
)

const worldPage = `<html><body><table>
<thead><tr><th>Country</th><th>CC</th><th>ASNs</th><th>Report</th></tr></thead>
<tbody>
<tr><td><img src="/images/flags/gb.gif"> United Kingdom</td><td>GB</td><td>2</td><td><a href="/country/GB">Report</a></td></tr>
<tr><td><img src="/images/flags/us.gif"> United States</td><td>US</td><td>1</td><td><a href="/country/US">Report</a></td></tr>
</tbody></table></body></html>`

const countryGBPage = `<html><body><div class="tabdata"><table>
<thead><tr><th>ASN</th><th>Name</th><th>Adj v4</th><th>Routes v4</th><th>Adj v6</th><th>Routes v6</th></tr></thead>
<tbody>
<tr><td><a href="/AS64500">AS64500</a></td><td>Example  Net</td><td>1</td><td>2</td><td>3</td><td>4</td></tr>
</tbody></table></div></body></html>`

const exchangesPage = `<html><body><table>
<thead><tr><th>Exchange</th><th>Members</th><th>Data</th><th>CC</th><th>City</th><th>Website</th></tr></thead>
<tbody>
<tr><td><a href="/exchange/LINX">LINX LON1</a></td><td>2</td><td>Yes</td><td>GB</td><td>London</td><td>https://linx.net</td></tr>
<tr><td><a href="/exchange/AMS">AMS-IX</a></td><td>900</td><td>Yes</td><td>NL</td><td>Amsterdam</td><td>https://ams-ix.net</td></tr>
</tbody></table></body></html>`

const linxPage = `<html><body><table id="members">
<tr><th>ASN</th><th>Name</th><th>IPv4</th><th>IPv6</th></tr>
<tr><td>AS64500</td><td>Example Net</td><td>192.0.2.1</td><td>2001:db8::1</td></tr>
<tr><td>AS64999</td><td>No Line Net</td><td></td><td></td></tr>
</table></body></html>`

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.Handle("/report/world", page(worldPage))
	mux.Handle("/country/GB", page(countryGBPage))
	mux.HandleFunc("/country/US", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.Handle("/report/exchanges", page(exchangesPage))
	mux.Handle("/exchange/LINX", page(linxPage))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectorScrapesAndConsolidates(t *testing.T) {
	srv := fixtureServer(t)
	c := New(connectors.NewClient(srv.Client(), 1000, 1), srv.URL, 4, nil)

	datasets, err := c.Collect(context.Background())
	require.NoError(t, err)

	byName := map[string]int{}
	for i, ds := range datasets {
		byName[ds.Name] = i
	}
	require.Len(t, datasets, 5)

	countries := datasets[byName["Countries"]].Table
	require.Equal(t, 2, countries.Len())
	assert.Equal(t, []string{"1", "United Kingdom", srv.URL + "/images/flags/gb.gif", "GB", "2", srv.URL + "/country/GB"}, countries.Rows[0])

	lines := datasets[byName["Country_Lines"]].Table
	require.Equal(t, 1, lines.Len())
	assert.Equal(t, []string{"GB", "1", "0", "AS64500", srv.URL + "/AS64500", "Example Net", "1", "2", "3", "4"}, lines.Rows[0])

	exchanges := datasets[byName["Exchange_Data"]].Table
	require.Equal(t, 2, exchanges.Len())
	assert.Equal(t, srv.URL+"/exchange/LINX", exchanges.Cell(exchanges.Rows[0], "url"))
	assert.Equal(t, "2", exchanges.Cell(exchanges.Rows[1], "index"))

	members := datasets[byName["Exchange_Members"]].Table
	assert.Equal(t, []string{"ASN", "Name", "IPv4", "IPv6", "Exchange Name", "ParentIndex"}, members.Columns)
	require.Equal(t, 2, members.Len())
	assert.Equal(t, "LINX LON1", members.Cell(members.Rows[1], "Exchange Name"))

	consolidated := datasets[byName["Consolidated_Data"]].Table
	require.Equal(t, 1, consolidated.Len())
	row := consolidated.Rows[0]
	assert.Equal(t, "AS64500", consolidated.Cell(row, "ASN"))
	assert.Equal(t, "GB", consolidated.Cell(row, "exchange_cc"))
	assert.Equal(t, "GB", consolidated.Cell(row, "country_line_cc"))
	assert.Equal(t, "United Kingdom", consolidated.Cell(row, "name_country"))
	assert.Equal(t, "Example Net", consolidated.Cell(row, "name"))
	assert.Equal(t, "LINX LON1", consolidated.Cell(row, "internetExchange"))
	assert.False(t, consolidated.Has("cc"))
}
