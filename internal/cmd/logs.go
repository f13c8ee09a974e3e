package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/cvcollab/internal/config"
	"github.com/Iron-Ham/cvcollab/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View collaboration logs",
	Long: `View and filter the collaboration log, including rolled backups.

Examples:
  # Show the last 50 entries
  cvcollab logs

  # Everything one session did, as CSV
  cvcollab logs --session AB12CD -n 0 --format csv

  # Warnings and errors from the last hour
  cvcollab logs --level warn --since 1h

  # Follow new entries as they are written
  cvcollab logs -f --component simulate`,
	RunE: runLogs,
}

var (
	logsLevel       string
	logsSession     string
	logsParticipant string
	logsComponent   string
	logsSection     string
	logsGrep        string
	logsSince       string
	logsTail        int
	logsFormat      string
	logsOutput      string
	logsFollow      bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVarP(&logsSession, "session", "s", "", "Only entries for this session code")
	logsCmd.Flags().StringVar(&logsParticipant, "participant", "", "Only entries for this participant ID")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only entries from this component")
	logsCmd.Flags().StringVar(&logsSection, "section", "", "Only entries about this CV section")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Only entries whose message contains this text")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Only entries newer than this duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Output format: text, json, csv")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "O", "", "Write to this file instead of stdout")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow new entries (like tail -f)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !slices.Contains(logging.ExportFormats(), logsFormat) {
		return fmt.Errorf("unsupported format %q (supported: %s)", logsFormat, strings.Join(logging.ExportFormats(), ", "))
	}

	filter, err := logsFilter(time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if logsOutput != "" {
		file, err := os.Create(logsOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = file.Close() }()
		out = file
	}

	dir := cfg.Logging.ResolveDir()
	entries, err := logging.ReadLogs(dir, cfg.Logging.MaxBackups)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(cmd.OutOrStdout(), "No logs found in %s\n", dir)
			return nil
		}
		return err
	}

	entries = logging.FilterEntries(entries, filter)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	if len(entries) == 0 && !logsFollow {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching log entries found.")
		return nil
	}
	if err := logging.WriteEntries(out, entries, logsFormat); err != nil {
		return err
	}

	if !logsFollow {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return followLogs(ctx, filepath.Join(dir, logging.LogFileName), out, filter, logsFormat)
}

// logsFilter builds the entry filter from the command flags.
func logsFilter(now time.Time) (logging.Filter, error) {
	f := logging.Filter{
		SessionCode:   strings.ToUpper(logsSession),
		ParticipantID: logsParticipant,
		Component:     logsComponent,
		Section:       logsSection,
		Contains:      logsGrep,
	}
	if logsLevel != "" {
		f.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return logging.Filter{}, fmt.Errorf("invalid duration format: %w", err)
		}
		f.Since = now.Add(-d)
	}
	return f, nil
}

// followLogs prints entries appended to path until ctx is done. When the
// file is rolled over it is reopened from the start.
func followLogs(ctx context.Context, path string, w io.Writer, filter logging.Filter, format string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so renames and recreation of the file are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	tail := &logTail{path: path}
	if err := tail.open(true); err != nil {
		return err
	}
	defer tail.close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Create) {
				tail.close()
				if err := tail.open(false); err != nil {
					return err
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			entries, err := tail.read()
			if err != nil {
				return err
			}
			entries = logging.FilterEntries(entries, filter)
			if len(entries) == 0 {
				continue
			}
			if err := logging.WriteEntries(w, entries, format); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

// logTail reads complete lines appended to a file since the last read.
type logTail struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	partial string
}

func (t *logTail) open(atEnd bool) error {
	file, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if atEnd {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to seek to end: %w", err)
		}
	}
	t.file = file
	t.reader = bufio.NewReader(file)
	t.partial = ""
	return nil
}

func (t *logTail) read() ([]logging.Entry, error) {
	if t.file == nil {
		return nil, nil
	}
	var lines strings.Builder
	for {
		line, err := t.reader.ReadString('\n')
		if err == io.EOF {
			// Keep an unterminated line for the next read.
			t.partial += line
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading log file: %w", err)
		}
		lines.WriteString(t.partial)
		lines.WriteString(line)
		t.partial = ""
	}
	return logging.ParseEntries(strings.NewReader(lines.String()))
}

func (t *logTail) close() {
	if t.file != nil {
		_ = t.file.Close()
		t.file = nil
	}
}
