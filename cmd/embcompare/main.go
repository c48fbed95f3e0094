package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/embcompare/internal/config"
	"github.com/kailas-cloud/embcompare/internal/version"
)

var (
	cfgFile string
	envName string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "embcompare",
		Short: "Compare embedding providers side by side",
		Long: `embcompare embeds one query with every configured provider, searches each
provider's namespace in the vector database, and reports the results side by side.

It runs as a one-shot CLI (compare) or as an HTTP API (serve).`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: config/<env>.yaml)")
	root.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "environment name (local, dev, prod)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newCompareCommand())
	root.AddCommand(newProvidersCommand())
	root.AddCommand(newVersionCommand())

	return root
}

// loadConfig reads --config when given, otherwise config/<env>.yaml.
func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load(envName)
}
