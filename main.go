package main

import (
	"os"

	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/fanout-concierge/pkg/config"
	logx "github.com/tanpawarit/fanout-concierge/pkg/logger"
	_ "github.com/tanpawarit/fanout-concierge/pkg/logger/autoload"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Fan-out customer concierge",
	Long: `concierge classifies each message, fans it out to the knowledge and
database agents in parallel, and merges their answers into one reply.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.Init(*logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(syncCSVCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
