package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmerrifield20/SignalMiner/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const defaultDaemonURL = "http://localhost:8080"

var (
	daemonURL  string
	token      string
	cfgFile    string
	jsonOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "miner",
	Short: "SignalMiner CLI",
	Long: `miner drives a local minerd daemon: start mining sessions, claim task
rewards, buy tiers, swap points for SIGNAL and manage stakes.

Settings are read from ~/.miner/config.yaml (daemon_url, token) and can be
overridden with flags or MINER_DAEMON_URL / MINER_TOKEN.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath(configDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("miner")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if daemonURL == "" {
			daemonURL = viper.GetString("daemon_url")
		}
		if daemonURL == "" {
			daemonURL = defaultDaemonURL
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.miner/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&daemonURL, "daemon", "", "minerd base URL (default "+defaultDaemonURL+")")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "device bearer token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON")

	rootCmd.AddCommand(
		statusCmd, startCmd, settleCmd,
		tasksCmd, claimCmd,
		tiersCmd, upgradeCmd,
		swapCmd, stakeCmd, unstakeCmd,
		boostCmd,
		tokenCmd, versionCmd,
	)
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".miner"
	}
	return filepath.Join(home, ".miner")
}

func newClient() (*client.Client, error) {
	var opts []client.Option
	if token != "" {
		opts = append(opts, client.WithBearerToken(token))
	}
	return client.New(daemonURL, opts...)
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the miner CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("miner %s (SignalMiner)\n", version)
	},
}
