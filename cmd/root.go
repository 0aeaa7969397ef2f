package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "voiceline",
	Short: "AI phone agent that answers calls and books appointments",
	Long: `Voiceline runs an automated telephone agent: it answers webhook
callbacks from your telephony provider, carries a natural conversation
backed by a language model and your business knowledge, and books
appointments from what callers say.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".voiceline.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
