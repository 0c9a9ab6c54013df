package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lazypower/rapport/internal/client"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/spf13/cobra"
)

const commandTimeout = 30 * time.Second

// newClient builds the server client from flags and environment.
func newClient() *client.Client {
	c := client.New()
	if serverURL != "" {
		c.SetURL(serverURL)
	}
	if ownerUser != "" {
		c.SetUser(ownerUser)
	}
	return c
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// peopleLister is the part of the client resolvePerson needs.
type peopleLister interface {
	ListPeople(ctx context.Context) ([]engine.Person, error)
}

// resolvePerson finds a person by exact id, then by case-insensitive label.
func resolvePerson(ctx context.Context, c peopleLister, arg string) (*engine.Person, error) {
	people, err := c.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	for i := range people {
		if people[i].ID == arg {
			return &people[i], nil
		}
	}

	var matches []engine.Person
	for _, p := range people {
		if strings.EqualFold(p.Label, strings.TrimSpace(arg)) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no person matches %q", arg)
	case 1:
		return &matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return nil, fmt.Errorf("%q matches %d people, use an id: %s", arg, len(matches), strings.Join(ids, ", "))
	}
}

// labelsByID maps person ids to labels for display.
func labelsByID(people []engine.Person) map[string]string {
	m := make(map[string]string, len(people))
	for _, p := range people {
		m[p.ID] = p.Label
	}
	return m
}
