package cli

import (
	"github.com/spf13/cobra"
)

var (
	serverURL string
	ownerUser string
	asJSON    bool
)

var rootCmd = &cobra.Command{
	Use:          "rapport",
	Short:        "Keep track of the people you care about",
	Long:         "Rapport logs your interactions with people and tells you who you have been drifting away from. Single Go binary, SQLite or Supabase backed.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "Server URL (default $RAPPORT_URL or http://127.0.0.1:37778)")
	rootCmd.PersistentFlags().StringVar(&ownerUser, "user", "", "Owner on a single-user server (default $RAPPORT_USER)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print raw JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(peopleCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(radarCmd)
	rootCmd.AddCommand(ideasCmd)
	rootCmd.AddCommand(reportCmd)
}
