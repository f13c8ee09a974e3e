package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry is one parsed line of collab.log.
type Entry struct {
	Time          time.Time      `json:"time"`
	Level         string         `json:"level"`
	Message       string         `json:"msg"`
	SessionCode   string         `json:"session_code,omitempty"`
	ParticipantID string         `json:"participant_id,omitempty"`
	Component     string         `json:"component,omitempty"`
	Section       string         `json:"section,omitempty"`
	Attrs         map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries. Zero-valued fields match everything; set fields
// are combined with AND.
type Filter struct {
	// Level keeps entries at or above this level.
	Level         string
	Since         time.Time
	Until         time.Time
	SessionCode   string
	ParticipantID string
	Component     string
	Section       string
	// Contains matches a substring of the message.
	Contains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadLogs parses collab.log in dir together with up to backups rolled
// files (plain or gzipped) and returns the entries oldest first. Lines that
// are not JSON objects are skipped.
func ReadLogs(dir string, backups int) ([]Entry, error) {
	live := filepath.Join(dir, LogFileName)
	if _, err := os.Stat(live); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %s in %s: %w", LogFileName, dir, err)
		}
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	var entries []Entry
	for _, path := range append(Backups(live, backups), live) {
		got, err := readLogFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return entries, nil
}

func readLogFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	return ParseEntries(r)
}

// ParseEntries reads JSON lines from r in order.
func ParseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)

	// Increase buffer size for potentially long log lines
	const maxScanTokenSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := Entry{Attrs: make(map[string]any)}
	str := func(key string) string {
		s, _ := raw[key].(string)
		delete(raw, key)
		return s
	}
	if t, err := time.Parse(time.RFC3339Nano, str("time")); err == nil {
		entry.Time = t
	}
	entry.Level = str("level")
	entry.Message = str("msg")
	entry.SessionCode = str("session_code")
	entry.ParticipantID = str("participant_id")
	entry.Component = str("component")
	entry.Section = str("section")

	for k, v := range raw {
		entry.Attrs[k] = v
	}
	return entry, nil
}

// FilterEntries returns the entries matching f, preserving order.
func FilterEntries(entries []Entry, f Filter) []Entry {
	if f == (Filter{}) {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Match reports whether e satisfies every set criterion of f.
func (f Filter) Match(e Entry) bool {
	if f.Level != "" {
		want, wantOK := levelOrder[strings.ToUpper(f.Level)]
		got, gotOK := levelOrder[e.Level]
		if wantOK && gotOK && got < want {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Time.After(f.Until) {
		return false
	}
	if f.SessionCode != "" && e.SessionCode != f.SessionCode {
		return false
	}
	if f.ParticipantID != "" && e.ParticipantID != f.ParticipantID {
		return false
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.Section != "" && e.Section != f.Section {
		return false
	}
	if f.Contains != "" && !strings.Contains(e.Message, f.Contains) {
		return false
	}
	return true
}

// ExportFormats lists the formats accepted by [WriteEntries].
func ExportFormats() []string {
	return []string{"text", "json", "csv"}
}

// WriteEntries renders entries to w as "text", "json" or "csv".
func WriteEntries(w io.Writer, entries []Entry, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []Entry{}
		}
		return enc.Encode(entries)
	case "text", "":
		return writeText(w, entries)
	case "csv":
		return writeCSV(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: %s)", format, strings.Join(ExportFormats(), ", "))
	}
}

// writeText renders "[time] LEVEL component - msg (session=..., participant=...) {attrs}".
func writeText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		parts := []string{fmt.Sprintf("[%s]", e.Time.Format("2006-01-02 15:04:05.000")), e.Level}
		if e.Component != "" {
			parts = append(parts, e.Component)
		}
		parts = append(parts, "-", e.Message)

		var ctx []string
		if e.SessionCode != "" {
			ctx = append(ctx, "session="+e.SessionCode)
		}
		if e.ParticipantID != "" {
			ctx = append(ctx, "participant="+e.ParticipantID)
		}
		if e.Section != "" {
			ctx = append(ctx, "section="+e.Section)
		}
		if len(ctx) > 0 {
			parts = append(parts, "("+strings.Join(ctx, ", ")+")")
		}
		if len(e.Attrs) > 0 {
			attrs, _ := json.Marshal(e.Attrs)
			parts = append(parts, string(attrs))
		}

		if _, err := io.WriteString(w, strings.Join(parts, " ")+"\n"); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

func writeCSV(w io.Writer, entries []Entry) error {
	writer := csv.NewWriter(w)

	header := []string{"time", "level", "message", "session_code", "participant_id", "component", "section", "attrs"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		attrs := ""
		if len(e.Attrs) > 0 {
			if b, err := json.Marshal(e.Attrs); err == nil {
				attrs = string(b)
			}
		}
		record := []string{
			e.Time.Format(time.RFC3339Nano), e.Level, e.Message,
			e.SessionCode, e.ParticipantID, e.Component, e.Section, attrs,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
