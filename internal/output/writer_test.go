package output

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerdata/internal/table"
)

type memUploader map[string]string

func (m memUploader) Upload(_ context.Context, key string, body io.Reader) error {
	blob, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m[key] = string(blob)
	return nil
}

func TestWriterTimestampedFileAndUpload(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 7, 9, 5, 1, 0, time.UTC)
	w := NewWriter(dir, table.UTF8, now, nil)
	up := memUploader{}
	w.Uploader = up

	tbl := table.New("ASN", "Name")
	tbl.Append("64500", "Example")

	p, err := w.WriteTable(context.Background(), "HE", "Countries", tbl)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "HE", "07_03_24_09_05_01_Countries.csv"), p)

	blob, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "ASN,Name\n64500,Example\n", string(blob))
	assert.Equal(t, "ASN,Name\n64500,Example\n", up["HE/07_03_24_09_05_01_Countries.csv"])
}

func TestWriterWriteRaw(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, table.UTF8, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), nil)

	p, err := w.WriteRaw(context.Background(), "RIR", "rir-adoption", ".csv", strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "31_12_24_23_59_59_rir-adoption.csv", filepath.Base(p))
}

type fakePutObject struct {
	input *s3.PutObjectInput
	body  string
}

func (f *fakePutObject) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	blob, _ := io.ReadAll(in.Body)
	f.body = string(blob)
	return &s3.PutObjectOutput{}, nil
}

func TestS3UploaderPrefixesKey(t *testing.T) {
	fake := &fakePutObject{}
	u := &S3Uploader{Bucket: "peering", Prefix: "/exports/", client: fake}

	require.NoError(t, u.Upload(context.Background(), "HE/x.csv", strings.NewReader("body")))
	assert.Equal(t, "peering", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "exports/HE/x.csv", aws.ToString(fake.input.Key))
	assert.Equal(t, "text/csv", aws.ToString(fake.input.ContentType))
	assert.Equal(t, "body", fake.body)
}
