// File: cmd/muro/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags fall back to MURO_* variables and
// an optional muro.yaml.
func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "muro",
		Short:         "Chat with the Muro assistant from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
	}
	root.PersistentFlags().String("server", "http://localhost:3001", "API base URL")
	root.PersistentFlags().Duration("timeout", 0, "overall request timeout (0 for none)")
	root.PersistentFlags().String("config", "", "config file (default ./muro.yaml or $HOME/.muro/muro.yaml)")

	app := &app{v: v}
	root.AddCommand(
		app.listCmd(),
		app.newCmd(),
		app.renameCmd(),
		app.deleteCmd(),
		app.historyCmd(),
		app.sendCmd(),
		app.retryCmd(),
	)
	return root
}

func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix("muro")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("muro")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.muro")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return v.BindPFlags(cmd.Flags())
}
