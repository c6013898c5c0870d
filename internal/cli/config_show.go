package cli

import (
	"github.com/spf13/cobra"

	"github.com/vitalvas/sigauth/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(newConfigShowCmd(a))

	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `show prints the configuration after defaults and SIGAUTH_*
environment overrides are applied. Secrets are masked unless --reveal is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			data, err := config.Marshal(cfg, reveal)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print secrets and private keys unmasked")

	return cmd
}
