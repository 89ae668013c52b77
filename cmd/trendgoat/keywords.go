package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// keywordsCmd creates the "keywords" command group.
func keywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage the tracked keywords",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the tracked keywords",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.keywords.Info()
			if err != nil {
				return err
			}
			fmt.Printf("Tracked keywords (%d of %d):\n", info.Count, info.MaxKeywords)
			for i, kw := range info.Keywords {
				fmt.Printf("  %d. %s\n", i+1, kw)
			}
			if info.LastCollection != nil {
				fmt.Printf("\nLast collection: %s (%d total)\n", info.LastCollection.Local().Format("2006-01-02 15:04"), info.CollectionCount)
			}
			return nil
		},
	})

	cmd.AddCommand(keywordMutationCmd("add <keyword>", "Track a keyword", cobra.MinimumNArgs(1),
		func(a *app, args []string) ([]string, error) { return a.keywords.Add(strings.Join(args, " ")) }))
	cmd.AddCommand(keywordMutationCmd("remove <keyword>", "Stop tracking a keyword", cobra.MinimumNArgs(1),
		func(a *app, args []string) ([]string, error) { return a.keywords.Remove(strings.Join(args, " ")) }))
	cmd.AddCommand(keywordMutationCmd("set <keyword>...", "Replace the tracked keywords", cobra.MinimumNArgs(1),
		func(a *app, args []string) ([]string, error) { return a.keywords.Set(args) }))
	cmd.AddCommand(keywordMutationCmd("reset", "Restore the default keywords", cobra.NoArgs,
		func(a *app, _ []string) ([]string, error) { return a.keywords.Reset() }))

	return cmd
}

func keywordMutationCmd(use, short string, args cobra.PositionalArgs, fn func(*app, []string) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := fn(a, args)
			if err != nil {
				return err
			}
			fmt.Printf("Tracked keywords: %s\n", strings.Join(list, ", "))
			return nil
		},
	}
}
