package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		key     string
		wantErr bool
	}{
		{in: "s3://data/daily/orders.csv", bucket: "data", key: "daily/orders.csv"},
		{in: "s3://data/", wantErr: true},
		{in: "s3:///orders.csv", wantErr: true},
		{in: "gs://data/orders.csv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			b, k, err := parseS3Path(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, b)
			assert.Equal(t, tt.key, k)
		})
	}
}

func TestOpenLocalFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(p, []byte("id\n1\n"), 0o644))

	rc, name, err := NewOpener(S3Config{}).Open(context.Background(), p)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "orders.csv", name)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(b))

	_, _, err = NewOpener(S3Config{}).Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestOpenStdin(t *testing.T) {
	o := NewOpener(S3Config{})
	o.stdin = strings.NewReader("a\n1\n")
	rc, name, err := o.Open(context.Background(), Stdin)
	require.NoError(t, err)
	assert.Equal(t, "stdin", name)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "a\n1\n", string(b))
}

func TestOpenS3PathStyle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/lake/raw/orders.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "id,total\n1,9.5\n")
	}))
	defer srv.Close()

	o := NewOpener(S3Config{Endpoint: srv.URL, Region: "us-east-1", UsePathStyle: true})
	rc, name, err := o.Open(context.Background(), "s3://lake/raw/orders.csv")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "orders.csv", name)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id,total\n1,9.5\n", string(b))
}
