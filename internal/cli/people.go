package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lazypower/rapport/internal/client"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/spf13/cobra"
)

var peopleNote string

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List the people you track",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		people, err := newClient().ListPeople(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), people)
		}
		renderPeople(cmd.OutOrStdout(), people)
		return nil
	},
}

var peopleAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Add a person",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		p, err := newClient().CreatePerson(ctx, strings.Join(args, " "), peopleNote)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", p.Label, p.ID)
		return nil
	},
}

var peopleRmCmd = &cobra.Command{
	Use:   "rm [person]",
	Short: "Remove a person and all their interactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		p, err := resolvePerson(ctx, c, args[0])
		if err != nil {
			return err
		}
		if err := c.DeletePerson(ctx, p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", p.Label)
		return nil
	},
}

var peopleRoutineCmd = &cobra.Command{
	Use:   "routine [person] [days|off]",
	Short: "Set how often you mean to be in touch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := parseRoutine(args[1])
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		p, err := resolvePerson(ctx, c, args[0])
		if err != nil {
			return err
		}
		if err := c.SetRoutine(ctx, p.ID, days); err != nil {
			return err
		}
		if days == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared routine for %s\n", p.Label)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: every %d days\n", p.Label, *days)
		}
		return nil
	},
}

var peopleShowCmd = &cobra.Command{
	Use:   "show [person]",
	Short: "Show a person and their latest interactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		p, err := resolvePerson(ctx, c, args[0])
		if err != nil {
			return err
		}
		d, err := c.GetPerson(ctx, p.ID)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), d)
		}
		renderPersonDetail(cmd.OutOrStdout(), d, time.Now())
		return nil
	},
}

func init() {
	peopleAddCmd.Flags().StringVar(&peopleNote, "note", "", "Free-form note about the person")

	peopleCmd.AddCommand(peopleAddCmd)
	peopleCmd.AddCommand(peopleRmCmd)
	peopleCmd.AddCommand(peopleRoutineCmd)
	peopleCmd.AddCommand(peopleShowCmd)
}

// parseRoutine accepts a positive day count, or "off"/"none" to clear.
func parseRoutine(s string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "clear":
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "d"))
	if err != nil || n < 1 {
		return nil, fmt.Errorf("routine must be a positive number of days or \"off\", got %q", s)
	}
	return &n, nil
}

func renderPeople(w io.Writer, people []engine.Person) {
	if len(people) == 0 {
		fmt.Fprintln(w, "No people yet. Add one with: rapport people add <name>")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tROUTINE\tID")
	for _, p := range people {
		routine := "-"
		if p.RoutineDays != nil {
			routine = fmt.Sprintf("%dd", *p.RoutineDays)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Label, routine, p.ID)
	}
	tw.Flush()
}

func renderPersonDetail(w io.Writer, d *client.PersonDetail, now time.Time) {
	fmt.Fprintf(w, "## %s\n", d.Person.Label)
	if d.Person.Note != "" {
		fmt.Fprintf(w, "%s\n", d.Person.Note)
	}
	if d.Person.RoutineDays != nil {
		fmt.Fprintf(w, "Routine: every %d days\n", *d.Person.RoutineDays)
	}
	fmt.Fprintln(w)
	if len(d.Interactions) == 0 {
		fmt.Fprintln(w, "No interactions logged.")
		return
	}
	renderHistory(w, d.Interactions, nil, now)
}
