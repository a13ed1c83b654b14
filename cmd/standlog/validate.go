package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vlhsmylv/standlog-script/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a Standlog configuration without starting anything.

Examples:
  standlog validate -f standlog.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringP("file", "f", "", "YAML file to validate (required)")
	_ = validateCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	cfg, err := config.Load(filename)
	if err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	fmt.Printf("✓ %s is valid\n", filename)
	fmt.Printf("  Collector: %s\n", cfg.Collector)
	fmt.Printf("  Flush: %d events / %s\n", cfg.Flush.Size, cfg.Flush.Interval.D())
	fmt.Printf("  Funnels: %d\n", len(cfg.Funnels))
	fmt.Printf("  Personas: %d (builtins %v)\n",
		len(cfg.EffectivePersonas()), !cfg.DisableBuiltinPersonas)
	return nil
}
