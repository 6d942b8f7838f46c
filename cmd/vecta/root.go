package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vecta",
	Short: "Terminal client for the Vecta financial advisory service",
	Long: `vecta is a terminal client for the Vecta financial advisory chat
service. It keeps a realtime channel to the backend, persists your session
locally so it survives a restart, and lets you browse your saved
visualizations and financial profile.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(bookmarksCmd)
	rootCmd.AddCommand(profileCmd)
}
