package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	shareRoom     string
	sharePassword string
	shareName     string
	shareTTL      time.Duration
)

var shareCmd = &cobra.Command{
	Use:   "share <path>...",
	Short: "Share files and serve them until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConnectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if shareRoom != "" {
			if err := c.JoinRoom(cmd.Context(), shareRoom, sharePassword, shareName); err != nil {
				return err
			}
		}

		for _, path := range args {
			fileID, err := c.Share(cmd.Context(), path, shareTTL)
			if err != nil {
				return fmt.Errorf("sharing %s: %w", path, err)
			}
			fmt.Printf("Sharing %s as %s\n", path, fileID)
		}

		go c.RunTransfers(cmd.Context())

		fmt.Println("Serving files, press ctrl-c to stop")
		done := make(chan os.Signal, 1)
		signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
		<-done
		return nil
	},
}

func init() {
	shareCmd.Flags().StringVarP(&shareRoom, "room", "r", "", "share into a room instead of the global pool")
	shareCmd.Flags().StringVarP(&sharePassword, "password", "p", "", "room password, if the room is gated")
	shareCmd.Flags().StringVarP(&shareName, "name", "n", "", "display name shown to other peers")
	shareCmd.Flags().DurationVar(&shareTTL, "expires-in", 0, "withdraw the share after this duration")
}
