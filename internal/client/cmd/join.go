package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	joinPassword string
	joinName     string
)

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join a room and stay connected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConnectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.JoinRoom(cmd.Context(), args[0], joinPassword, joinName); err != nil {
			return err
		}
		fmt.Printf("Joined room %s as %s\n", args[0], c.ID)

		go c.RunTransfers(cmd.Context())

		done := make(chan os.Signal, 1)
		signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
		<-done
		fmt.Println("leaving room...")
		return c.LeaveRoom(cmd.Context())
	},
}

func init() {
	joinCmd.Flags().StringVarP(&joinPassword, "password", "p", "", "room password, if the room is gated")
	joinCmd.Flags().StringVarP(&joinName, "name", "n", "", "display name shown to other peers")
}
