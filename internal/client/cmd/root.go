package cmd

import (
	"fmt"
	"os"

	"github.com/rudransh-shrivastava/peer-drop/internal/client"
	"github.com/rudransh-shrivastava/peer-drop/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:  `peer-drop`,
	Long: `peer-drop shares files directly between peers, with a coordinator only brokering rooms and connections`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(roomCmd)
	rootCmd.AddCommand(transfersCmd)
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// newConnectedClient builds a client from the config on disk and dials
// the coordinator.
func newConnectedClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	c, err := client.NewClient(cfg.Client, newLogger())
	if err != nil {
		return nil, err
	}
	if err := c.Connect(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}
