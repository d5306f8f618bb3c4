package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptarch/config"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage promptarch configuration",
		Long: `Get and set values in the global config file (~/.promptarch/config.yaml,
or the file given with --config). A workspace can override them in
.promptarch/config.yaml.`,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadGlobalFile(opts)
			if err != nil {
				return err
			}

			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], value)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cfg, path, err := loadGlobalFile(opts)
			if err != nil {
				return err
			}
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every configuration value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadGlobalFile(opts)
			if err != nil {
				return err
			}

			values := cfg.List()
			for _, key := range config.Keys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, values[key])
			}
			return nil
		},
	})

	return configCmd
}

func loadGlobalFile(opts *globalOptions) (*config.Config, string, error) {
	path, err := opts.globalConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
