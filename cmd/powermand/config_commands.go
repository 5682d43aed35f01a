package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoYoZ/powerswitch-Klipper/pkg/template"
)

// configInitFlags holds flags for the config init command.
type configInitFlags struct {
	Material string
	Output   string
	Force    bool
}

func createConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(createConfigInitCommand(flags))
	return cmd
}

func createConfigInitCommand(flags *globalFlags) *cobra.Command {
	f := &configInitFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter powermand.toml for a filament material",
		Long: `Writes a ready-to-edit powermand.toml preset with the working and
standby temperatures for the chosen filament material.

Examples:
  powermand config init
  powermand config init --material=petg
  powermand config init --material=abs --output=/etc/powermand.toml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return configInit(cmd.OutOrStdout(), flags, f)
		},
	}
	cmd.Flags().StringVar(&f.Material, "material", "pla",
		"filament material preset ("+strings.Join(template.NewGenerator().SupportedMaterials(), ", ")+")")
	cmd.Flags().StringVar(&f.Output, "output", "", "output path (default: the --config path)")
	cmd.Flags().BoolVar(&f.Force, "force", false, "overwrite an existing file")
	return cmd
}

// configInit generates a material preset and writes it out.
func configInit(out io.Writer, flags *globalFlags, f *configInitFlags) error {
	outputPath := f.Output
	if outputPath == "" {
		outputPath = flags.ConfigPath
	}

	if _, err := os.Stat(outputPath); err == nil && !f.Force {
		return fmt.Errorf("config file '%s' already exists (use --force to overwrite)", outputPath)
	}

	generator := template.NewGenerator()
	content, err := generator.GenerateTOML(template.Material(f.Material))
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "Config '%s' created: %s\n", f.Material, outputPath)
	fmt.Fprintf(out, "Edit the file and start the daemon with: powermand --config %s\n", outputPath)
	return nil
}
