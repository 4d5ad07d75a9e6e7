package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pscheid92/guildboard/internal/adapter/filestore"
	"github.com/pscheid92/guildboard/internal/domain"
	"github.com/pscheid92/guildboard/internal/platform/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type options struct {
	dir    string
	format string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "templatectl",
		Short:         "Manage saved category templates",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", defaultDir(), "template directory (default from TEMPLATES_DIR)")

	root.AddCommand(newListCmd(opts), newShowCmd(opts), newDeleteCmd(opts))
	return root
}

func defaultDir() string {
	if dir := os.Getenv("TEMPLATES_DIR"); dir != "" {
		return dir
	}
	return "templates"
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List template names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := filestore.NewTemplateRepo(opts.dir).List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpl, err := filestore.NewTemplateRepo(opts.dir).Load(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrTemplateNotFound) {
				return fmt.Errorf("template %q not found in %s", args[0], opts.dir)
			}
			if err != nil {
				return err
			}
			return printTemplate(cmd, tpl, opts.format)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "output", "o", formatYAML, "output format: yaml or json")
	return cmd
}

func printTemplate(cmd *cobra.Command, tpl *domain.Template, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(tpl); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(tpl); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := filestore.NewTemplateRepo(opts.dir).Delete(cmd.Context(), args[0])
			if errors.Is(err, domain.ErrTemplateNotFound) {
				return fmt.Errorf("template %q not found in %s", args[0], opts.dir)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
