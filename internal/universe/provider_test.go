package universe

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuffixLayoutCoversFullWidth(t *testing.T) {
	assert.Equal(t, SuffixWidth, suffixWidthSum())
}

func padTo(value string, width int) string {
	if len(value) > width {
		return value[:width]
	}
	return value + strings.Repeat(" ", width-len(value))
}

func buildRow(code, stdCode, name string, values map[string]string) string {
	var suffix bytes.Buffer
	for _, f := range suffixLayout {
		suffix.WriteString(padTo(values[f.name], f.width))
	}
	return padTo(code, shortCodeWidth) + padTo(stdCode, stdCodeWidth) + name + suffix.String()
}

func buildMasterZip(t *testing.T, rows ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("kospi_code.mst")
	require.NoError(t, err)
	for _, row := range rows {
		_, err := fmt.Fprintf(entry, "%s\r\n", row)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLoadParsesMembershipFlags(t *testing.T) {
	payload := buildMasterZip(t,
		buildRow("005930", "KR7005930003", "삼성전자", map[string]string{
			"kospi50": "Y", "kospi100": "Y", "kospi": "Y",
		}),
		buildRow("123456", "KR7123456789", "소형주", map[string]string{
			"kospi": "Y",
		}),
		"too-short-row",
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	meta, err := NewProvider(srv.URL, 5*time.Second).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, meta, 2)

	samsung := meta["005930"]
	require.NotNil(t, samsung)
	assert.True(t, samsung.HasFlag("kospi50"))
	assert.True(t, samsung.HasFlag("KOSPI100"))
	assert.Equal(t, "KR7005930003", samsung["standard_code"])
	assert.Equal(t, "삼성전자", samsung["name"])
	assert.NotContains(t, samsung, "filler")

	small := meta["123456"]
	require.NotNil(t, small)
	assert.False(t, small.HasFlag("kospi50"))
	assert.True(t, small.HasFlag("kospi"))
}

func TestLoadServerErrorIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewProvider(srv.URL, 5*time.Second).Load(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestLoadUnreachableHostIsSourceUnavailable(t *testing.T) {
	_, err := NewProvider("http://127.0.0.1:1", time.Second).Load(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestLoadBrokenArchiveIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a zip file"))
	}))
	defer srv.Close()

	_, err := NewProvider(srv.URL, 5*time.Second).Load(context.Background())
	assert.ErrorIs(t, err, ErrParse)
}

func TestLoadAllRowsShortIsParseError(t *testing.T) {
	payload := buildMasterZip(t, "short1", "short2")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	_, err := NewProvider(srv.URL, 5*time.Second).Load(context.Background())
	assert.ErrorIs(t, err, ErrParse)
}
