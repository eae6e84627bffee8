package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the fittoken application
var rootCmd = &cobra.Command{
	Use:   "fittoken",
	Short: "Hands out Google Fit refresh tokens as downloadable files",
	Long: `fittoken is a small web endpoint that walks a user through Google's
consent screen for the Fit API and returns the resulting refresh token,
together with the OAuth client identity, as a JSON file download.

The downloaded file can be used by other tools to mint access tokens
without asking the user for consent again.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "fittoken version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
