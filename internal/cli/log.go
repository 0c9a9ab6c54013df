package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lazypower/rapport/internal/client"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/spf13/cobra"
)

var (
	logMood int
	logNote string
	logAgo  string
	logAt   string

	historyLimit int
)

var logCmd = &cobra.Command{
	Use:   "log [person] [chat|call|meet|note]",
	Short: "Log an interaction with someone",
	Long: `Log an interaction. Person is an id or a label.

Examples:
  rapport log Alice meet --mood 2 --note "coffee downtown"
  rapport log Bob call --ago 3d`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := engine.Kind(strings.ToLower(strings.TrimSpace(args[1])))
		if !kind.Valid() {
			return fmt.Errorf("kind must be one of chat, call, meet, note; got %q", args[1])
		}

		req := client.LogRequest{Kind: string(kind)}
		if cmd.Flags().Changed("mood") {
			if logMood < engine.MinMood || logMood > engine.MaxMood {
				return fmt.Errorf("mood must be between %d and %d", engine.MinMood, engine.MaxMood)
			}
			m := logMood
			req.Mood = &m
		}
		if logNote != "" {
			n := logNote
			req.Note = &n
		}
		at, err := parseWhen(logAt, logAgo, time.Now())
		if err != nil {
			return err
		}
		req.HappenedAt = at

		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		p, err := resolvePerson(ctx, c, args[0])
		if err != nil {
			return err
		}
		req.PersonID = p.ID

		ix, err := c.LogInteraction(ctx, req)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), ix)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %s with %s\n", ix.Kind, p.Label)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent interactions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		ixs, err := c.History(ctx, historyLimit)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), ixs)
		}
		people, err := c.ListPeople(ctx)
		if err != nil {
			return err
		}
		if len(ixs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No interactions logged.")
			return nil
		}
		renderHistory(cmd.OutOrStdout(), ixs, labelsByID(people), time.Now())
		return nil
	},
}

func init() {
	logCmd.Flags().IntVarP(&logMood, "mood", "m", 0, "Mood from -3 (bad) to 3 (great)")
	logCmd.Flags().StringVarP(&logNote, "note", "n", "", "Short note")
	logCmd.Flags().StringVar(&logAgo, "ago", "", "How long ago, e.g. 3d or 2h30m")
	logCmd.Flags().StringVar(&logAt, "at", "", "When, as an RFC 3339 timestamp")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Maximum number of interactions (default 200)")
}

// parseWhen resolves --at / --ago into a timestamp. Neither means now,
// which is left to the server.
func parseWhen(at, ago string, now time.Time) (*time.Time, error) {
	if at != "" && ago != "" {
		return nil, fmt.Errorf("use either --at or --ago, not both")
	}
	if at != "" {
		t, err := engine.ParseTimestamp(at)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	if ago != "" {
		d, err := parseAgo(ago)
		if err != nil {
			return nil, err
		}
		t := now.Add(-d).UTC()
		return &t, nil
	}
	return nil, nil
}

// parseAgo accepts Go durations plus a whole-day form like "3d".
func parseAgo(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid --ago %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid --ago %q", s)
	}
	return d, nil
}

// renderHistory prints interactions. labels may be nil to omit the person column.
func renderHistory(w io.Writer, ixs []engine.Interaction, labels map[string]string, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if labels != nil {
		fmt.Fprintln(tw, "WHEN\tPERSON\tKIND\tMOOD\tNOTE")
	} else {
		fmt.Fprintln(tw, "WHEN\tKIND\tMOOD\tNOTE")
	}
	for _, ix := range ixs {
		when := humanize.RelTime(ix.HappenedAt, now, "ago", "from now")
		mood := "-"
		if ix.Mood != nil {
			mood = fmt.Sprintf("%+d", *ix.Mood)
		}
		note := ""
		if ix.Note != nil {
			note = *ix.Note
		}
		if labels != nil {
			label, ok := labels[ix.PersonID]
			if !ok {
				label = ix.PersonID
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", when, label, ix.Kind, mood, note)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", when, ix.Kind, mood, note)
		}
	}
	tw.Flush()
}
