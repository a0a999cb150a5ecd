package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/aurarings/internal/sqlite"
	"github.com/mesh-intelligence/aurarings/pkg/rings"
	"github.com/mesh-intelligence/aurarings/pkg/types"
)

func newRingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ring",
		Short: "Manage the aura rings of a token",
		Long: `Manage the aura rings of a token. Tokens are named by id or name.

Example:
  auraring ring create Goblin
  auraring ring set-value Goblin 1 radius 30
  auraring ring get Goblin Torch --field name`,
	}
	cmd.AddCommand(
		newRingListCmd(a),
		newRingGetCmd(a),
		newRingIndexCmd(a),
		newRingCreateCmd(a),
		newRingSetCmd(a),
		newRingSetValueCmd(a),
		newRingRenameCmd(a),
		newRingHideCmd(a),
		newRingDuplicateCmd(a),
		newRingDeleteCmd(a),
		newRingDeleteAllCmd(a),
		newRingMigrateCmd(a),
	)
	return cmd
}

// ringRunner is the body of a ring subcommand after the token is resolved.
type ringRunner func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, args []string) error

// ringCommand builds a subcommand whose first argument names the token.
func ringCommand(a *app, use, short string, nargs int, run ringRunner) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocument(cmd.Context(), args[0], func(doc *sqlite.Document) error {
				return run(cmd, a.store(), doc, args[1:])
			})
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < types.MinRingID || id > types.MaxRingID {
		return 0, fmt.Errorf("%w: ring id %q must be %d..%d", types.ErrInvalidValue, s, types.MinRingID, types.MaxRingID)
	}
	return id, nil
}

// writeRing prints one ring as JSON or as a field listing.
func (a *app) writeRing(w io.Writer, r types.Ring) error {
	if a.jsonMode {
		return printJSON(w, r)
	}
	return printRing(w, r)
}

func newRingListCmd(a *app) *cobra.Command {
	var byName bool
	cmd := ringCommand(a, "list <token>", "List the rings of a token", 0,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, _ []string) error {
			c, err := store.ListAll(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), c)
			}
			list := c.Rings()
			if byName {
				list = c.SortedByName()
			}
			return printRings(cmd.OutOrStdout(), list)
		})
	cmd.Flags().BoolVar(&byName, "by-name", false, "sort by name instead of id")
	return cmd
}

func newRingGetCmd(a *app) *cobra.Command {
	var field string
	cmd := ringCommand(a, "get <token> <term>", "Get the first ring whose field equals term", 1,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, args []string) error {
			f, err := types.ParseField(field)
			if err != nil {
				return err
			}
			r, err := store.Get(cmd.Context(), doc, parseValue(args[0]), f)
			if err != nil {
				return err
			}
			return a.writeRing(cmd.OutOrStdout(), r)
		})
	cmd.Flags().StringVar(&field, "field", string(types.FieldID), "field to match against")
	return cmd
}

func newRingIndexCmd(a *app) *cobra.Command {
	return ringCommand(a, "index <token>", "Print ring names keyed by id, without migrating", 0,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, _ []string) error {
			index, err := store.Index(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), index)
			}
			c := types.Container{}
			for id, name := range index {
				c.Put(types.Ring{ID: id, Name: name})
			}
			for _, r := range c.Rings() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", r.ID, r.Name)
			}
			return nil
		})
}

func newRingCreateCmd(a *app) *cobra.Command {
	return ringCommand(a, "create <token>", "Add a ring with default settings", 0,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, _ []string) error {
			r, err := store.Create(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return a.writeRing(cmd.OutOrStdout(), r)
		})
}

func newRingSetCmd(a *app) *cobra.Command {
	var file string
	var direct bool
	cmd := ringCommand(a, "set <token>", "Add or replace a ring from JSON", 0,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, _ []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			r, err := types.ParseRing(data)
			if err != nil {
				return err
			}
			var opts []rings.WriteOption
			if direct {
				opts = append(opts, rings.WithDirect())
			}
			saved, err := store.Set(cmd.Context(), doc, r, opts...)
			if err != nil {
				return err
			}
			return a.writeRing(cmd.OutOrStdout(), saved)
		})
	cmd.Long = `Add or replace a ring. The ring is read as JSON from --file or stdin;
fields left out take default values. A ring without an id gets the next free id.`
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the ring from this file instead of stdin")
	cmd.Flags().BoolVar(&direct, "direct", false, "merge into the stored rings without clearing them first")
	return cmd
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return data, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, sysError(fmt.Errorf("read stdin: %w", err))
	}
	return data, nil
}

func newRingSetValueCmd(a *app) *cobra.Command {
	return ringCommand(a, "set-value <token> <id> <field> <value>", "Change one field of a ring", 3,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := types.ParseField(args[1])
			if err != nil {
				return err
			}
			if err := store.SetValue(cmd.Context(), doc, id, f, fieldValue(f, args[2])); err != nil {
				return err
			}
			r, err := store.Get(cmd.Context(), doc, id, types.FieldID)
			if err != nil {
				return err
			}
			return a.writeRing(cmd.OutOrStdout(), r)
		})
}

func newRingRenameCmd(a *app) *cobra.Command {
	return ringCommand(a, "rename <token> <id> <name>", "Rename a ring", 2,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := store.Rename(cmd.Context(), doc, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed ring %d to %q\n", id, args[1])
			return nil
		})
}

func newRingHideCmd(a *app) *cobra.Command {
	return ringCommand(a, "hide <token> <id>", "Toggle whether a ring is hidden", 1,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			hidden, err := store.ToggleHide(cmd.Context(), doc, id)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "hide": hidden})
			}
			state := "shown"
			if hidden {
				state = "hidden"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ring %d %s\n", id, state)
			return nil
		})
}

func newRingDuplicateCmd(a *app) *cobra.Command {
	return ringCommand(a, "duplicate <token> <id>", "Copy a ring under the next free id", 1,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := store.Duplicate(cmd.Context(), doc, id)
			if err != nil {
				return err
			}
			return a.writeRing(cmd.OutOrStdout(), r)
		})
}

func newRingDeleteCmd(a *app) *cobra.Command {
	return ringCommand(a, "delete <token> <id>", "Delete a ring", 1,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), doc, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted ring %d\n", id)
			return nil
		})
}

func newRingDeleteAllCmd(a *app) *cobra.Command {
	return ringCommand(a, "delete-all <token>", "Delete every ring of a token", 0,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, _ []string) error {
			if err := store.DeleteAll(cmd.Context(), doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted all rings of %s\n", doc.Name())
			return nil
		})
}

func newRingMigrateCmd(a *app) *cobra.Command {
	return ringCommand(a, "migrate <token>", "Upgrade a token's rings to the current layout", 0,
		func(cmd *cobra.Command, store *rings.Store, doc *sqlite.Document, _ []string) error {
			wrote, err := store.Migrate(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]bool{"migrated": wrote})
			}
			if wrote {
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", doc.Name())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", doc.Name())
			}
			return nil
		})
}
