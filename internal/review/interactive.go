package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"reelsync/internal/store"
)

const lookupBaseURL = "https://www.themoviedb.org/search"

// StdinInteractive reports whether stdin is attached to a terminal.
func StdinInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SessionSummary counts the decisions made during one session.
type SessionSummary struct {
	Reviewed int
	Accepted int
	Rejected int
	Manual   int
	Skipped  int
}

// Session walks the pending queue one record at a time, reading
// single-letter commands from the reviewer.
type Session struct {
	reviewer *Reviewer
	in       *bufio.Reader
	out      io.Writer
	openLink func(link string) error
}

// NewSession builds an interactive review session over the given
// streams.
func NewSession(r *Reviewer, in io.Reader, out io.Writer) *Session {
	return &Session{
		reviewer: r,
		in:       bufio.NewReader(in),
		out:      out,
		openLink: openBrowser,
	}
}

// Run presents pending records until the queue is exhausted or the
// reviewer quits. A positive maxConfidence restricts the queue to
// records strictly below it.
func (s *Session) Run(ctx context.Context, limit, maxConfidence int) (*SessionSummary, error) {
	entries, err := s.reviewer.Pending(ctx, limit, maxConfidence)
	if err != nil {
		return nil, err
	}
	summary := &SessionSummary{}
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "Nothing pending review.")
		return summary, nil
	}

	for i := range entries {
		entry := &entries[i]
		s.render(entry, i+1, len(entries))

		done := false
		for !done {
			fmt.Fprint(s.out, "[y] accept  [n] reject  [m] manual id  [s] skip  [o] open lookup  [q] quit > ")
			line, err := s.in.ReadString('\n')
			if err != nil && line == "" {
				return summary, nil
			}
			cmd := strings.ToLower(strings.TrimSpace(line))

			switch cmd {
			case "", "y":
				if err := s.reviewer.Accept(ctx, entry.Match); err != nil {
					fmt.Fprintf(s.out, "cannot accept: %v\n", err)
					continue
				}
				summary.Accepted++
				summary.Reviewed++
				done = true
			case "n":
				if err := s.reviewer.Reject(ctx, entry.Match); err != nil {
					return summary, err
				}
				summary.Rejected++
				summary.Reviewed++
				done = true
			case "m":
				fmt.Fprint(s.out, "external id (tt...): ")
				id, err := s.in.ReadString('\n')
				if err != nil && id == "" {
					return summary, nil
				}
				if err := s.reviewer.ManualEntry(ctx, entry.Match, strings.TrimSpace(id)); err != nil {
					fmt.Fprintf(s.out, "rejected input: %v\n", err)
					continue
				}
				summary.Manual++
				summary.Reviewed++
				done = true
			case "s":
				summary.Skipped++
				done = true
			case "o":
				link := lookupBaseURL + "?query=" + url.QueryEscape(entry.Item.Title)
				if err := s.openLink(link); err != nil {
					fmt.Fprintf(s.out, "open %s manually: %v\n", link, err)
				}
			case "q":
				return summary, nil
			default:
				fmt.Fprintf(s.out, "unknown command %q\n", cmd)
			}
		}
	}
	return summary, nil
}

func (s *Session) render(entry *store.ReviewEntry, pos, total int) {
	fmt.Fprintf(s.out, "\nRecord %d of %d\n", pos, total)

	tw := table.NewWriter()
	tw.SetOutputMirror(s.out)
	tw.SetStyle(table.StyleLight)
	tw.AppendRow(table.Row{"Content ID", entry.Item.ContentID})
	tw.AppendRow(table.Row{"Title", entry.Item.Title})
	tw.AppendRow(table.Row{"Year", entry.Item.Year})
	tw.AppendRow(table.Row{"Duration", fmt.Sprintf("%d min", entry.Item.DurationSecs/60)})
	tw.AppendRow(table.Row{"Language", entry.Item.Language})
	tw.AppendRow(table.Row{"Suggestion", entry.Match.ExternalID})
	tw.AppendRow(table.Row{"Reference title", referenceTitle(entry.Match.Rationale)})
	tw.AppendRow(table.Row{"Confidence", entry.Match.Confidence})
	tw.AppendRow(table.Row{"Source", string(entry.Match.Source)})
	tw.Render()
}

// openBrowser launches the platform browser without waiting on it.
func openBrowser(link string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", link)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", link)
	default:
		cmd = exec.Command("xdg-open", link)
	}
	return cmd.Start()
}
