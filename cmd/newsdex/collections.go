package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

func newCollectionsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Manage vector collections",
	}
	cmd.AddCommand(
		newCollectionsListCmd(c),
		newCollectionsEnsureCmd(c),
		newCollectionsDeleteCmd(c),
		newCollectionsDeleteAllCmd(c),
	)
	return cmd
}

func newCollectionsListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections with dimension and record count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			infos, err := a.collections.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVARIANT\tDIMENSION\tRECORDS")
			for _, info := range infos {
				v := string(info.Variant)
				if v == "" {
					v = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", info.Name, v, info.Dimension, info.Count)
			}
			return tw.Flush()
		},
	}
}

func newCollectionsEnsureCmd(c *cli) *cobra.Command {
	var (
		name string
		dim  int
	)
	cmd := &cobra.Command{
		Use:   "ensure <variant>",
		Short: "Create a variant's collection if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := variant.Parse(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if dim == 0 {
				if emb, err := a.embedders.Get(v); err == nil {
					dim = emb.Dimension()
				}
			}
			info, err := a.collections.Ensure(cmd.Context(), v, name, dim)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s ready (dimension %d, %d records)\n",
				info.Name, info.Dimension, info.Count)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Collection name (default news_<variant>)")
	cmd.Flags().IntVar(&dim, "dimension", 0, "Vector dimension (default: the variant's embedder)")
	return cmd
}

func newCollectionsDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete collections by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, name := range args {
				if err := a.collections.Delete(cmd.Context(), name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
			}
			return nil
		},
	}
}

func newCollectionsDeleteAllCmd(c *cli) *cobra.Command {
	var except []string
	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every collection except the listed ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := a.collections.DeleteAll(cmd.Context(), except)
			for _, name := range deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&except, "except", nil, "Collections to keep")
	return cmd
}
