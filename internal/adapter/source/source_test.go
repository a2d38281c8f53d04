package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/climavida/heatzone-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `id,nome,latitude,longitude,temperatura,ndvi,densidade_populacional,regiao
1,Centro,-23.5505,-46.6333,38.0,0.1,15000,Centro
2,"Jardim Europa, Sul",-23.5800,-46.6800,22.0,0.7,12000,Oeste

3,Lapa,-23.5200,-46.7000,30.0,0.2,9000,Oeste
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadTable(t *testing.T) {
	tbl, err := readTable(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, "id", tbl.Header[0])
	require.Len(t, tbl.Records, 3, "blank lines are skipped")
	assert.Equal(t, "Jardim Europa, Sul", tbl.Records[1][1])
	assert.Equal(t, "3", tbl.Records[2][0])
}

func TestReadTable_EmptyInput(t *testing.T) {
	_, err := readTable(strings.NewReader(""))
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Reason, "empty")
}

func TestReadTable_MalformedQuoting(t *testing.T) {
	_, err := readTable(strings.NewReader("id,nome\n1,\"Centro\n"))
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Reason, "malformed csv")
}

func TestReadTable_RaggedRowsReachTheLoader(t *testing.T) {
	tbl, err := readTable(strings.NewReader("id,nome,latitude,longitude,temperatura,ndvi,densidade_populacional\n1,Centro\n"))
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)

	_, _, err = domain.ParseTable(tbl, domain.DefaultRegion)
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Reason, "row 1")
}

func TestFileSource_Fetch(t *testing.T) {
	path := writeFile(t, sampleCSV)
	src := NewFileSource(path)

	tbl, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, tbl.Records, 3)
	assert.Equal(t, path, src.Name())

	zones, warnings, err := domain.ParseTable(tbl, domain.DefaultRegion)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, zones, 3)
}

func TestFileSource_SeesUpdatedContents(t *testing.T) {
	path := writeFile(t, sampleCSV)
	src := NewFileSource(path)

	_, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("id,nome\n9,Sé\n"), 0o600))
	tbl, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"9", "Sé"}}, tbl.Records)
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.csv"))

	_, err := src.Fetch(context.Background())
	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, domain.IsLoadFailure(err))
}

func TestFileSource_CancelledContext(t *testing.T) {
	src := NewFileSource(writeFile(t, sampleCSV))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Fetch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/csv", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	t.Cleanup(srv.Close)

	src := NewHTTPSource(srv.URL, time.Second, discardLogger())
	tbl, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, tbl.Records, 3)
	assert.Equal(t, srv.URL, src.Name())
}

func TestHTTPSource_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone fishing", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPSource(srv.URL, time.Second, discardLogger()).Fetch(context.Background())
	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "gone fishing")
}

func TestHTTPSource_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := NewHTTPSource(srv.URL, 50*time.Millisecond, discardLogger()).Fetch(context.Background())
	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestHTTPSource_MalformedBodyIsSchemaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("id,nome\n1,\"open"))
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPSource(srv.URL, time.Second, discardLogger()).Fetch(context.Background())
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}
