package cmd

import (
	"fmt"

	"github.com/rudransh-shrivastava/peer-drop/internal/scheduler"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	downloadRoom     string
	downloadPassword string
	downloadDest     string
	downloadPriority int
)

var downloadCmd = &cobra.Command{
	Use:   "download <file-id>...",
	Short: "Download files from the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newConnectedClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if downloadRoom != "" {
			if err := c.JoinRoom(cmd.Context(), downloadRoom, downloadPassword, ""); err != nil {
				return err
			}
		}

		bars := make(map[string]*progressbar.ProgressBar)
		c.OnProgress = func(fileID string, received, total int64) {
			bar, ok := bars[fileID]
			if !ok {
				bar = progressbar.DefaultBytes(total, fileID)
				bars[fileID] = bar
			}
			bar.Set64(received)
		}

		events := c.Scheduler.Subscribe()
		go c.RunTransfers(cmd.Context())

		remaining := 0
		for _, fileID := range args {
			if _, err := c.Download(fileID, downloadDest, downloadPriority); err != nil {
				return err
			}
			remaining++
		}

		for remaining > 0 {
			select {
			case event := <-events:
				switch event.Type {
				case scheduler.EventCompleted:
					remaining--
				case scheduler.EventCancelled, scheduler.EventTimedOut:
					remaining--
					fmt.Printf("Transfer of %s did not finish (%s)\n", event.Item.FileRef, event.Type)
				}
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadRoom, "room", "r", "", "download from a room instead of the global pool")
	downloadCmd.Flags().StringVarP(&downloadPassword, "password", "p", "", "room password, if the room is gated")
	downloadCmd.Flags().StringVarP(&downloadDest, "dest", "d", ".", "directory to store downloads in")
	downloadCmd.Flags().IntVar(&downloadPriority, "priority", 1, "transfer priority, higher runs sooner")
}
