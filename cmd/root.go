package cmd

import (
	"io"

	"github.com/joho/godotenv"
	"github.com/pawtrait-pals/pawtrait/internal/logging"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFile   string
		logCloser io.Closer
	)

	cmd := &cobra.Command{
		Use:   "pawtrait",
		Short: "Pet photo capture and AI portrait service",
		Long: `Pawtrait turns a photo of your pet into stylised portraits.

It serves the photo capture flow (drag and drop, in-page picker, and a
dedicated capture page for iOS devices) and generates portraits with
Gemini or OpenAI image models.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			closer, err := logging.Setup(logLevel, logFile)
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCatalogCmd())

	return cmd
}
