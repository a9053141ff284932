package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const defaultFollowInterval = 250 * time.Millisecond

// Record is one parsed log line.
type Record struct {
	Raw       string
	Time      time.Time
	Level     string
	Component string
	Message   string
	JobID     string
}

// Filter selects records.
type Filter struct {
	// JobID keeps only records tagged with this job.
	JobID string
}

func (f Filter) match(r Record) bool {
	return f.JobID == "" || r.JobID == f.JobID
}

// Parse decodes a JSON log line. Non-JSON lines yield a Record with only Raw set.
func Parse(line string) Record {
	rec := Record{Raw: line}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return rec
	}
	rec.Level, _ = fields["level"].(string)
	rec.Component, _ = fields["component"].(string)
	rec.Message, _ = fields["msg"].(string)
	rec.JobID, _ = fields["job_id"].(string)
	if ts, ok := fields["ts"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Time = parsed
		}
	}
	return rec
}

// Last returns up to limit matching records from the end of the file and the
// offset to follow from. A missing file yields no records and offset 0.
func Last(path string, limit int, filter Filter) ([]Record, int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	ring := make([]Record, limit)
	count, idx := 0, 0
	offset, err := scan(file, func(rec Record) {
		if !filter.match(rec) {
			return
		}
		ring[idx] = rec
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	records := make([]Record, count)
	if count == limit {
		for i := range count {
			records[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(records, ring[:count])
	}
	return records, offset, nil
}

// Follow delivers matching records appended after offset until ctx ends.
// The file is re-read from the start when it shrinks below offset.
func Follow(ctx context.Context, path string, offset int64, filter Filter, interval time.Duration, fn func(Record)) error {
	if interval <= 0 {
		interval = defaultFollowInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, fn)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, fn func(Record)) (int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	return scanFrom(file, offset, func(rec Record) {
		if filter.match(rec) {
			fn(rec)
		}
	})
}

func open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

func scan(file *os.File, fn func(Record)) (int64, error) {
	return scanFrom(file, 0, fn)
}

// scanFrom consumes complete lines only; a trailing partial line is left for
// the next read and the returned offset points at its start.
func scanFrom(r io.Reader, offset int64, fn func(Record)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if text := strings.TrimRight(line, "\r\n"); text != "" {
			fn(Parse(text))
		}
	}
}
