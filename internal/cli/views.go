package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lazypower/rapport/internal/client"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		h, err := c.Health(ctx)
		if err != nil {
			return fmt.Errorf("server at %s not reachable: %w", c.URL(), err)
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), h)
		}
		renderHealth(cmd.OutOrStdout(), c.URL(), h)
		return nil
	},
}

var radarCmd = &cobra.Command{
	Use:   "radar",
	Short: "Show the five strongest connections of the last 60 days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		v, err := newClient().Radar(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), v)
		}
		renderRadar(cmd.OutOrStdout(), v)
		return nil
	},
}

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Suggest who to reach out to, most neglected first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		v, err := newClient().Ideas(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), v)
		}
		renderIdeas(cmd.OutOrStdout(), v, time.Now())
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [person]",
	Short: "Score one relationship and suggest a next step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		p, err := resolvePerson(ctx, c, args[0])
		if err != nil {
			return err
		}
		rep, err := c.Report(ctx, p.ID)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), rep)
		}
		renderReport(cmd.OutOrStdout(), rep)
		return nil
	},
}

func renderHealth(w io.Writer, url string, h *client.Health) {
	db := "ok"
	if !h.DB {
		db = "unreachable"
	}
	fmt.Fprintf(w, "rapport %s at %s\n", h.Version, url)
	fmt.Fprintf(w, "  status: %s\n", h.Status)
	fmt.Fprintf(w, "  store:  %s (%s)\n", h.Store, db)
	if h.Breaker != "" {
		fmt.Fprintf(w, "  breaker: %s\n", h.Breaker)
	}
	fmt.Fprintf(w, "  uptime: %s\n", (time.Duration(h.Uptime) * time.Second).String())
}

func renderRadar(w io.Writer, v *engine.RadarView) {
	if len(v.Top) == 0 {
		fmt.Fprintln(w, "No one to chart yet. Add people and log some interactions.")
		return
	}
	fmt.Fprintf(w, "## Radar (since %s)\n\n", v.Since.Local().Format("2006-01-02"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PERSON\tSCORE\tFREQ\tRECENCY\tVARIETY\tMOOD\t")
	for _, m := range v.Top {
		fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t\n",
			m.Label, m.Composite(), m.Frequency, m.Recency, m.Variety, m.MoodAvg)
	}
	tw.Flush()
	if v.Rejected > 0 {
		fmt.Fprintf(w, "\n(%d malformed records skipped)\n", v.Rejected)
	}
}

func renderIdeas(w io.Writer, v *engine.IdeasView, now time.Time) {
	if len(v.Ideas) == 0 {
		fmt.Fprintln(w, "No ideas yet. Add some people first.")
		return
	}
	for i, idea := range v.Ideas {
		last := "never"
		if idea.LastAt != nil {
			last = humanize.RelTime(*idea.LastAt, now, "ago", "from now")
		}
		fmt.Fprintf(w, "%d. %s (last contact: %s)\n", i+1, idea.Label, last)
		for _, item := range idea.Items {
			fmt.Fprintf(w, "   - %s\n", item)
		}
	}
}

func renderReport(w io.Writer, rep *engine.Report) {
	fmt.Fprintf(w, "## %s: %d/100\n\n", rep.Person.Label, rep.Score)

	recency := fmt.Sprintf("%.0f days", rep.Signals.RecencyDays)
	fmt.Fprintf(w, "  last contact:  %s\n", recency)
	fmt.Fprintf(w, "  last 30 days:  %d interactions\n", rep.Signals.Freq30)
	fmt.Fprintf(w, "  average mood:  %+.1f\n", rep.Signals.MoodAvg)
	if rep.Person.RoutineDays != nil {
		state := "on track"
		if rep.Signals.RoutineDue {
			state = "overdue"
		}
		fmt.Fprintf(w, "  routine:       every %d days (%s)\n", *rep.Person.RoutineDays, state)
	}

	fmt.Fprintln(w)
	for _, s := range rep.Suggestions {
		fmt.Fprintf(w, "* %s\n  %s\n", s.Title, strings.TrimSpace(s.Body))
	}
}
