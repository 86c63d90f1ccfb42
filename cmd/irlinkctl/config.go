package main

import (
	"fmt"

	"github.com/danmuck/irlink/internal/config"
	"github.com/danmuck/irlink/internal/observability"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate config files",
		// Skips the parent's resolve step, which would reject the file being validated.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.InitLogger(appName)
			return nil
		},
	}

	var (
		backend string
		force   bool
	)
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], backend, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config template to %s\n", backend, args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&backend, "kind", config.BackendSerial, "backend: disabled|serial|rendezvous|network")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate an existing config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %s config at %s\n", cfg.Backend, args[0])
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
