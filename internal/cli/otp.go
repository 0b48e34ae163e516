package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Show current dashboard token",
	Long:  `Show the current dashboard access token (for when you've scrolled past it).`,
	RunE:  runOTP,
}

func init() {
	rootCmd.AddCommand(otpCmd)
}

func runOTP(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(getTokenFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no server running (token file not found)\nStart the server with: abg serve")
		}
		return fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("token file is empty")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Current dashboard token: %s\n", token)
	fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: http://localhost:%d/dashboard?token=%s\n", cfg.Port, token)
	return nil
}
