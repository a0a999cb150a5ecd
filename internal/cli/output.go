package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/aurarings/internal/sqlite"
	"github.com/mesh-intelligence/aurarings/pkg/types"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func newTable(w io.Writer, header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func printDocuments(w io.Writer, docs []sqlite.DocumentInfo) error {
	tw := newTable(w, "ID", "NAME", "OWNER")
	for _, d := range docs {
		owner := d.Owner
		if owner == "" {
			owner = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, owner)
	}
	return tw.Flush()
}

func printRings(w io.Writer, rs []types.Ring) error {
	tw := newTable(w, "ID", "NAME", "RADIUS", "ANGLE", "VISIBILITY", "HIDDEN")
	for _, r := range rs {
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%s\t%t\n", r.ID, r.Name, r.Radius, r.Angle, r.Visibility, r.Hide)
	}
	return tw.Flush()
}

func printRing(w io.Writer, r types.Ring) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range types.Fields() {
		v, err := r.Field(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s:\t%v\n", f, v)
	}
	return tw.Flush()
}

// parseValue reads a command-line value as JSON when it parses, otherwise
// as a plain string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// fieldValue converts a command-line value for field f. Text fields take the
// argument as is, so a name like "42" stays a string.
func fieldValue(f types.Field, s string) any {
	if v, err := types.DefaultRing().Field(f); err == nil {
		if _, text := v.(string); text {
			return s
		}
	}
	return parseValue(s)
}
