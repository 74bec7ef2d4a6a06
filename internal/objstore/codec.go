package objstore

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"rhetenor/internal/logger"
	"rhetenor/internal/market"
)

// CompressLines frames the given JSON lines into a single zstd stream,
// newline-terminated, matching the format the Python loader reads back.
func CompressLines(lines [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if _, err := enc.Write(line); err != nil {
			enc.Close()
			return nil, err
		}
		if _, err := enc.Write([]byte("\n")); err != nil {
			enc.Close()
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRecords streams r through zstd and parses one record per line.
// Malformed lines are logged and skipped so one bad write can't poison a day.
func DecodeRecords(r io.Reader, key string, loc *time.Location) ([]market.Record, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader for %s: %w", key, err)
	}
	defer dec.Close()

	var out []market.Record
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := market.ParseRecord(line, loc)
		if err != nil {
			logger.Warnf("objstore: %s line %d skipped: %v", key, lineNo, err)
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", key, err)
	}
	return out, nil
}
