// Package cmd implements matterd's Cobra command tree: "serve" runs a
// node, "show-payload" prints its QR/manual pairing codes without
// bringing the transport up.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "matterd",
	Short: "Run and inspect a Matter device node",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute runs the root command. Called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a matterd config file (YAML/JSON/TOML)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(showPayloadCmd)
}

// loadConfigFile reads the --config file, if one was given, into v
// before flags/env override it.
func loadConfigFile(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return nil
	}
	v.SetConfigFile(path)
	return v.ReadInConfig()
}
