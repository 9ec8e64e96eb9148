package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/penenv/distkit/penenv"
)

func commandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Manage the pentest command library",
		Long: "List, add and remove the command templates penenv offers in its " +
			"command palette. Custom commands live in the penenv config " +
			"directory next to the application's own settings.",
	}
	cmd.AddCommand(commandsListCmd(), commandsAddCmd(), commandsRmCmd())
	return cmd
}

func commandsListCmd() *cobra.Command {
	var customOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in and custom command templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := penenv.DefaultConfig()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			defer w.Flush()

			if !customOnly {
				for _, t := range penenv.BuiltinTemplates() {
					fmt.Fprintf(w, "builtin\t%s\t%s\t%s\n", t.Category, t.Name, t.Command)
				}
			}
			custom, err := cfg.LoadCustomCommands()
			if err != nil {
				return err
			}
			for i, t := range custom {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, t.Category, t.Name, t.Command)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&customOnly, "custom", false, "only show custom commands")
	return cmd
}

func commandsAddCmd() *cobra.Command {
	var description, category string

	cmd := &cobra.Command{
		Use:   "add <name> <command>",
		Short: "Add a custom command template",
		Long: "Add a command template to the user's library. The command string " +
			"may contain {target} and {port} placeholders, expanded at run time.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := penenv.DefaultConfig()
			if err != nil {
				return err
			}
			template := penenv.CommandTemplate{
				Name:        args[0],
				Command:     args[1],
				Description: description,
				Category:    category,
			}
			if err := cfg.AddCustomCommand(template); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %q\n", template.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "what the command does")
	cmd.Flags().StringVarP(&category, "category", "c", "Custom", "palette category")
	return cmd
}

func commandsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove a custom command template by index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be a number, got %q", args[0])
			}
			cfg, err := penenv.DefaultConfig()
			if err != nil {
				return err
			}
			if err := cfg.DeleteCustomCommand(index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed command %d\n", index)
			return nil
		},
	}
}
