package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	filesRoom     string
	filesPassword string
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files currently available in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConnectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if filesRoom != "" {
			if err := c.JoinRoom(cmd.Context(), filesRoom, filesPassword, ""); err != nil {
				return err
			}
		}

		// give the catalog push a moment to land
		time.Sleep(500 * time.Millisecond)

		files := c.Files()
		if len(files) == 0 {
			fmt.Println("No files available")
			return nil
		}
		for _, f := range files {
			fmt.Printf("%s  %s  %d bytes  from %s\n", f.ID, f.Name, f.Size, f.OwnerID)
		}
		return nil
	},
}

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "Show past and in-flight transfers",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConnectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		transfers, err := c.Transfers.List()
		if err != nil {
			return err
		}
		if len(transfers) == 0 {
			fmt.Println("No transfers recorded")
			return nil
		}
		for _, tr := range transfers {
			fmt.Printf("%d  %s  %s  %d/%d bytes  %s\n",
				tr.ID, tr.Name, tr.PeerID, tr.Received, tr.Size, tr.Status)
		}
		return nil
	},
}

func init() {
	filesCmd.Flags().StringVarP(&filesRoom, "room", "r", "", "list a room's catalog instead of the global one")
	filesCmd.Flags().StringVarP(&filesPassword, "password", "p", "", "room password, if the room is gated")
}
