package connectors

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerdata/internal/output"
	"peerdata/internal/table"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	attempt := 0
	client := NewClient(&http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			if attempt == 1 {
				return response(http.StatusInternalServerError, `{"error":"boom"}`), nil
			}
			return response(http.StatusOK, `[{"id":7,"name":"LINX"}]`), nil
		}),
	}, 1000, 3)
	client.backoff = time.Millisecond

	var out []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "https://example.test/provider/list", &out))
	assert.Equal(t, 2, attempt)
	require.Len(t, out, 1)
	assert.Equal(t, "LINX", out[0].Name)
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	attempt := 0
	client := NewClient(&http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			return response(http.StatusNotFound, "missing"), nil
		}),
	}, 1000, 3)

	_, err := client.Get(context.Background(), "https://example.test/x")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, 1, attempt)
}

func TestGetGivesUpAfterMaxAttempts(t *testing.T) {
	attempt := 0
	client := NewClient(&http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			return nil, errors.New("connection reset")
		}),
	}, 1000, 3)

	_, err := client.Get(context.Background(), "https://example.test/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, attempt)
}

func TestForEachReportsFailuresWithoutCancelling(t *testing.T) {
	var done atomic.Int32
	var failed []int
	err := ForEach(context.Background(), 4, 10, func(ctx context.Context, i int) error {
		done.Add(1)
		if i%3 == 0 {
			return errors.New("boom")
		}
		return nil
	}, func(i int, err error) {
		failed = append(failed, i)
	})

	require.NoError(t, err)
	assert.Equal(t, int32(10), done.Load())
	assert.ElementsMatch(t, []int{0, 3, 6, 9}, failed)
}

func TestForEachStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ForEach(ctx, 2, 5, func(ctx context.Context, i int) error { return nil }, nil)
	require.ErrorIs(t, err, context.Canceled)
}

type stubCollector struct{}

func (stubCollector) Name() string { return "STUB" }

func (stubCollector) Collect(ctx context.Context) ([]Dataset, error) {
	tbl := table.New("asn")
	tbl.Append("64500")
	tbl.Append("64501")
	return []Dataset{
		{Name: "Table", Table: tbl},
		{Name: "download", Raw: []byte("raw|body\n"), Ext: ".txt"},
	}, nil
}

func TestExportServiceWritesDatasets(t *testing.T) {
	dir := t.TempDir()
	w := output.NewWriter(dir, table.UTF8, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), nil)

	res, err := NewExportService(stubCollector{}, w, nil).CollectAndWrite(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Datasets)
	assert.Equal(t, 2, res.Rows)
	require.Len(t, res.Files, 2)
	assert.True(t, strings.HasSuffix(res.Files[0], "02_01_24_03_04_05_Table.csv"))

	raw, err := os.ReadFile(res.Files[1])
	require.NoError(t, err)
	assert.Equal(t, "raw|body\n", string(raw))
}
