package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/config"
)

var (
	configPath string
	cfg        *config.Config

	rootCmd = &cobra.Command{
		Use:   "draftsync",
		Short: "Draft a project document by typing or talking to an agent",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(tuiCmd, backendCmd, schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("draftsync: %v", err)
	}
}
