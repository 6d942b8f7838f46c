package main

import (
	"encoding/json"
	"fmt"
	"os"

	"vecta-client/internal/bootstrap"
	"vecta-client/internal/config"
	"vecta-client/internal/rest"

	"github.com/spf13/cobra"
)

var (
	profileEmail    string
	profilePassword string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Fetch the current financial profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := bootstrap.NewContainer(config.Load())
		if err != nil {
			return err
		}
		defer container.Close()

		if profileEmail != "" {
			creds := rest.Credentials{Email: profileEmail, Password: profilePassword}
			if err := container.API.Login(cmd.Context(), creds); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
		}

		profile, err := container.API.GetCurrentProfile(cmd.Context())
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(profile)
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileEmail, "email", "", "account email (optional)")
	profileCmd.Flags().StringVar(&profilePassword, "password", "", "account password")
}
