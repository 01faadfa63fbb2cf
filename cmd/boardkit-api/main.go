package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "boardkit-api",
	Short: "BoardKit API - board access control service",
	Long:  `Boards, memberships and invitations with role based permission resolution, multi-issuer JWT auth, rate limiting, idempotency and observability.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
