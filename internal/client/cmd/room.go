package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/config"
	"github.com/spf13/cobra"
)

var (
	roomPassword string
	roomTTL      time.Duration
	roomAPIURL   string
)

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Create a room on the coordinator",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configDir)
		if err != nil {
			return err
		}
		baseURL := roomAPIURL
		if baseURL == "" {
			baseURL = cfg.Coordinator.PublicURL
		}

		body, _ := json.Marshal(map[string]interface{}{
			"password":  roomPassword,
			"expiresIn": int(roomTTL.Seconds()),
		})

		resp, err := http.Post(baseURL+"/api/rooms", "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("coordinator returned %s", resp.Status)
		}

		var created struct {
			RoomID    string `json:"roomId"`
			ShareLink string `json:"shareLink"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return err
		}

		fmt.Printf("Room %s created\n", created.RoomID)
		fmt.Printf("Share link: %s\n", created.ShareLink)
		return nil
	},
}

func init() {
	roomCmd.Flags().StringVarP(&roomPassword, "password", "p", "", "password required to enter the room")
	roomCmd.Flags().DurationVar(&roomTTL, "expires-in", 0, "room lifetime, zero keeps it open")
	roomCmd.Flags().StringVar(&roomAPIURL, "url", "", "coordinator API base url, defaults to the configured one")
}
