package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/aurarings/internal/sqlite"
	"github.com/mesh-intelligence/aurarings/pkg/types"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage tokens that carry aura rings",
	}
	cmd.AddCommand(newTokenCreateCmd(a), newTokenListCmd(a), newTokenShowCmd(a), newTokenDeleteCmd(a))
	return cmd
}

func newTokenCreateCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(b *sqlite.Backend) error {
				doc, err := b.CreateDocument(cmd.Context(), args[0], owner)
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), doc.Info())
				}
				fmt.Fprintln(cmd.OutOrStdout(), doc.ID())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "user allowed to edit the token's rings (default: anyone)")
	return cmd
}

func newTokenListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(b *sqlite.Backend) error {
				docs, err := b.ListDocuments(cmd.Context())
				if err != nil {
					return sysError(err)
				}
				if a.jsonMode {
					if docs == nil {
						docs = []sqlite.DocumentInfo{}
					}
					return printJSON(cmd.OutOrStdout(), docs)
				}
				return printDocuments(cmd.OutOrStdout(), docs)
			})
		},
	}
}

// tokenSummary is the JSON shape of token show.
type tokenSummary struct {
	sqlite.DocumentInfo
	Rings map[int]string `json:"rings"`
}

func newTokenShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <token>",
		Short: "Show a token and the names of its rings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocument(cmd.Context(), args[0], func(doc *sqlite.Document) error {
				c, err := a.store().ListAll(cmd.Context(), doc)
				if err != nil {
					return err
				}
				summary := tokenSummary{DocumentInfo: doc.Info(), Rings: make(map[int]string, len(c))}
				for _, r := range c {
					summary.Rings[r.ID] = r.Name
				}
				if a.jsonMode {
					return printJSON(cmd.OutOrStdout(), summary)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "id:      %s\nname:    %s\nowner:   %s\ncreated: %s\nrings:   %d\n",
					summary.ID, summary.Name, summary.Owner, summary.CreatedAt.Format("2006-01-02 15:04:05"), len(c))
				for _, r := range c.Rings() {
					fmt.Fprintf(w, "  %d  %s\n", r.ID, r.Name)
				}
				return nil
			})
		},
	}
}

func newTokenDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <token>",
		Short: "Delete a token and all of its flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(func(b *sqlite.Backend) error {
				doc, err := b.FindDocument(cmd.Context(), args[0], sqlite.AsUser(a.user))
				if err != nil {
					return fmt.Errorf("token %q: %w", args[0], err)
				}
				if !doc.IsOwner() {
					return fmt.Errorf("%w: token %q is owned by %s", types.ErrNotOwner, doc.Name(), doc.Info().Owner)
				}
				if err := b.DeleteDocument(cmd.Context(), doc.ID()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted token %s\n", doc.ID())
				return nil
			})
		},
	}
}
