package universe

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rhetenor/internal/logger"
)

var (
	// ErrSourceUnavailable means the master file could not be fetched at all.
	// This is fatal for an ingestion run; there is no universe to work with.
	ErrSourceUnavailable = errors.New("universe source unavailable")
	// ErrParse means the master file layout does not match expectations.
	ErrParse = errors.New("universe master parse error")
)

const (
	shortCodeWidth = 9
	stdCodeWidth   = 12
)

// Metadata holds the named flag/attribute columns decoded from one master row.
type Metadata map[string]string

// HasFlag reports whether a Y/N column is set.
func (m Metadata) HasFlag(name string) bool {
	return m[strings.ToLower(strings.TrimSpace(name))] == "Y"
}

// Provider downloads and parses the exchange master file into a code->metadata
// mapping. Pure fetch-and-parse; no retries, the caller decides what a partial
// or empty universe means.
type Provider struct {
	url        string
	httpClient *http.Client
}

func NewProvider(url string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Provider{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Load fetches the zipped master file and parses every row.
func (p *Provider) Load(ctx context.Context) (map[string]Metadata, error) {
	if suffixWidthSum() != SuffixWidth {
		return nil, fmt.Errorf("%w: suffix layout covers %d bytes, want %d", ErrParse, suffixWidthSum(), SuffixWidth)
	}
	raw, err := p.download(ctx)
	if err != nil {
		return nil, err
	}
	body, err := unzipFirst(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return parseMaster(body)
}

func (p *Provider) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrSourceUnavailable, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return data, nil
}

func unzipFirst(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("master archive unreadable: %v", err)
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".mst") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("master archive holds no .mst entry")
}

// parseMaster splits each row into a variable-length textual prefix
// (short code, standard code, name) and the fixed 228-byte suffix decoded by
// suffixLayout. Rows shorter than the suffix are skipped, not errored.
func parseMaster(body []byte) (map[string]Metadata, error) {
	out := make(map[string]Metadata)
	skipped := 0
	for _, row := range bytes.Split(body, []byte("\n")) {
		row = bytes.TrimRight(row, "\r")
		if len(row) == 0 {
			continue
		}
		if len(row) < SuffixWidth+shortCodeWidth+stdCodeWidth {
			skipped++
			continue
		}
		prefix := row[:len(row)-SuffixWidth]
		suffix := row[len(row)-SuffixWidth:]

		code := strings.TrimSpace(string(prefix[:shortCodeWidth]))
		if code == "" {
			skipped++
			continue
		}
		meta := decodeSuffix(suffix)
		meta["standard_code"] = strings.TrimSpace(string(prefix[shortCodeWidth : shortCodeWidth+stdCodeWidth]))
		meta["name"] = strings.TrimSpace(string(prefix[shortCodeWidth+stdCodeWidth:]))
		out[code] = meta
	}
	if skipped > 0 {
		logger.Debugf("universe: skipped %d short master rows", skipped)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no parsable rows in master file", ErrParse)
	}
	return out, nil
}

func decodeSuffix(suffix []byte) Metadata {
	meta := make(Metadata, len(suffixLayout))
	off := 0
	for _, f := range suffixLayout {
		meta[f.name] = strings.TrimSpace(string(suffix[off : off+f.width]))
		off += f.width
	}
	delete(meta, "filler")
	return meta
}

func suffixWidthSum() int {
	sum := 0
	for _, f := range suffixLayout {
		sum += f.width
	}
	return sum
}
