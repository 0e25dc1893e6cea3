package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmerrifield20/SignalMiner/internal/auth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	tokenSecret string
	tokenSave   bool
)

var tokenCmd = &cobra.Command{
	Use:   "token <device-id>",
	Short: "Issue a device token signed with the daemon's auth secret",
	Long: `token signs a bearer token with the same secret minerd uses (auth.secret).
The secret is taken from --secret or AUTH_SECRET. With --save the token is
written to ~/.miner/config.yaml so later commands pick it up.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := tokenSecret
		if secret == "" {
			secret = os.Getenv("AUTH_SECRET")
		}
		if secret == "" {
			return errors.New("an auth secret is required (--secret or AUTH_SECRET)")
		}

		issuer, err := auth.NewTokenIssuer(secret, 0)
		if err != nil {
			return err
		}
		signed, err := issuer.Issue(args[0])
		if err != nil {
			return err
		}

		if !tokenSave {
			fmt.Println(signed)
			return nil
		}
		path, err := saveToken(signed)
		if err != nil {
			return err
		}
		fmt.Printf("token saved to %s\n", path)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "daemon auth secret")
	tokenCmd.Flags().BoolVar(&tokenSave, "save", false, "store the token in the CLI config file")
}

// saveToken writes daemon_url and token to the CLI config file.
func saveToken(signed string) (string, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = filepath.Join(configDir(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(map[string]string{
		"daemon_url": daemonURL,
		"token":      signed,
	})
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
