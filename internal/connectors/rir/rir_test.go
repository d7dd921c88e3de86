package rir

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerdata/internal/connectors"
)

const delegated = `# comment before the header
2.3|nro|20241016|3|19821201|20241015|+0000
ripencc|*|asn|*|2|summary
apnic|*|ipv4|*|1|summary
ripencc|GB|asn|64500|1|20010101|assigned|a1b2c3
ripencc|NL|asn|64501|1|20020202|available

apnic|AU|ipv4|192.0.2.0|256|20030303|allocated|d4e5f6|extra
`

func TestParseDelegatedStats(t *testing.T) {
	s, err := ParseDelegatedStats(strings.NewReader(delegated))
	require.NoError(t, err)

	require.Equal(t, 1, s.Header.Len())
	assert.Equal(t, []string{"2.3", "nro", "20241016", "3", "19821201", "20241015", "+0000"}, s.Header.Rows[0])

	assert.Equal(t, [][]string{{"ripencc", "asn", "2"}, {"apnic", "ipv4", "1"}}, s.Summary.Rows)

	require.Equal(t, 3, s.Records.Len())
	assert.Equal(t, []string{"ripencc", "GB", "asn", "64500", "1", "20010101", "assigned", "a1b2c3"}, s.Records.Rows[0])
	assert.Equal(t, "", s.Records.Cell(s.Records.Rows[1], "opaque"))
	assert.Equal(t, "d4e5f6", s.Records.Cell(s.Records.Rows[2], "opaque"))
}

func TestCollectorSkipsMissingAdoptionReport(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rir-adoption.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("rir,adoption\nripencc,50\n"))
	})
	mux.HandleFunc("/economy-adoption.csv", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/nro-delegated-stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(delegated))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := New(connectors.NewClient(srv.Client(), 1000, 1), URLs{
		RIRAdoption:     srv.URL + "/rir-adoption.csv",
		EconomyAdoption: srv.URL + "/economy-adoption.csv",
		DelegatedStats:  srv.URL + "/nro-delegated-stats",
	}, nil)

	datasets, err := c.Collect(context.Background())
	require.NoError(t, err)

	var names []string
	for _, ds := range datasets {
		names = append(names, ds.Name)
	}
	assert.Equal(t, []string{"rir_adoption", "nro_extended", "Summary", "Records", "Header"}, names)
	assert.Equal(t, "rir,adoption\nripencc,50\n", string(datasets[0].Raw))
	assert.Equal(t, 3, datasets[3].Table.Len())
}

func TestCollectorRequiresDelegatedStats(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := New(connectors.NewClient(srv.Client(), 1000, 1), URLs{DelegatedStats: srv.URL + "/missing"}, nil)
	_, err := c.Collect(context.Background())
	require.Error(t, err)
}
