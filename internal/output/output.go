// Package output writes record lists as plain text, one record per line.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

const Stdout = "-"

// Kinds of result, used to pick a default file name.
const (
	KindTimeline  = "timeline"
	KindSearch    = "search"
	KindLocations = "locations"
	KindReport    = "report"
)

// Writer is a buffered destination: a truncated file or standard output.
type Writer struct {
	*bufio.Writer
	f    *os.File
	Path string
}

// Create opens path for writing, replacing any existing file. "" and "-"
// mean standard output.
func Create(path string) (*Writer, error) {
	if path == "" || path == Stdout {
		return &Writer{Writer: bufio.NewWriter(os.Stdout), Path: Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{Writer: bufio.NewWriter(f), f: f, Path: path}, nil
}

// Close flushes and, for files, closes. Standard output stays open.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// WriteLines writes each record's String() on its own line.
func WriteLines[T fmt.Stringer](w io.Writer, records []T) error {
	for _, r := range records {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport writes numbered messages followed by the author locations.
func WriteReport[M, L fmt.Stringer](w io.Writer, messages []M, locations []L) error {
	if _, err := fmt.Fprintln(w, "List of tweets"); err != nil {
		return err
	}
	for i, m := range messages {
		if _, err := fmt.Fprintf(w, "Tweet no. %d\n%s\n", i+1, m.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "List of users and locations"); err != nil {
		return err
	}
	return WriteLines(w, locations)
}

// DefaultPath names the output file after what was retrieved.
func DefaultPath(kind, subject string) string {
	if kind == KindTimeline && subject != "" {
		return fmt.Sprintf("timeline_%s.txt", subject)
	}
	return "tweets.txt"
}
