package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/islproof/internal/config"
)

// NewConfigCommand creates the config command with its subcommands.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
		Long: `Inspect the effective configuration or write a commented template.

Settings are layered: ISLPROOF_ environment variables override the
config file, which overrides the defaults.`,
	}

	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigInitCommand(rootOpts))

	return cmd
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the effective configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			formatter := opts.formatter(cmd)
			if formatter.Format == "json" {
				return formatter.Success(cfg)
			}
			data, err := cfg.YAML()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render config", err)
			}
			_, err = formatter.Writer.Write(data)
			return err
		},
	}
}

func newConfigInitCommand(opts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config template",
		Long: `Write a commented config file holding the defaults. The path
defaults to .islproof.yaml; "-" prints the template instead.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := opts.formatter(cmd)
			path := config.DefaultPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "-" {
				_, err := fmt.Fprint(formatter.Writer, config.Template())
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("%s already exists (use --force to overwrite)", path))
			}
			if err := os.WriteFile(path, []byte(config.Template()), 0o644); err != nil {
				return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("writing config: %v", err))
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]string{"path": path})
			}
			fmt.Fprintf(formatter.Writer, "✓ Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
