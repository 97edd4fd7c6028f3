package coordinator

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	Password  string `json:"password"`
	ExpiresIn int    `json:"expiresIn"`
}

type createRoomResponse struct {
	RoomID    string `json:"roomId"`
	ShareLink string `json:"shareLink"`
}

type roomInfoResponse struct {
	RoomID           string    `json:"roomId"`
	RequiresPassword bool      `json:"requiresPassword"`
	MemberCount      int       `json:"memberCount"`
	FileCount        int       `json:"fileCount"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt,omitempty"`
}

// API is the HTTP surface for creating and inspecting rooms. Peers
// still join over the TCP protocol; this exists so share links can be
// minted and checked from a browser.
type API struct {
	state     *State
	publicURL string
	logger    *slog.Logger
}

func NewAPI(state *State, publicURL string, logger *slog.Logger) *API {
	return &API{state: state, publicURL: publicURL, logger: logger}
}

func (a *API) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.POST("/rooms", a.createRoom)
		api.GET("/rooms/:roomId", a.roomInfo)
		api.GET("/rooms/:roomId/activity", a.roomActivity)
	}

	return router
}

func (a *API) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ttl := time.Duration(req.ExpiresIn) * time.Second
	roomID, err := a.state.CreateRoom(req.Password, ttl)
	if err != nil {
		a.logger.Error("room creation failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	a.logger.Info("room created", "room", roomID, "protected", req.Password != "")
	c.JSON(http.StatusCreated, createRoomResponse{
		RoomID:    roomID,
		ShareLink: fmt.Sprintf("%s/room/%s", a.publicURL, roomID),
	})
}

type activityEntryResponse struct {
	At     time.Time `json:"at"`
	PeerID string    `json:"peerId"`
	Name   string    `json:"name"`
	Action string    `json:"action"`
}

func (a *API) roomActivity(c *gin.Context) {
	entries, err := a.state.RoomActivity(c.Param("roomId"))
	switch {
	case errors.Is(err, ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	case errors.Is(err, ErrRoomExpired):
		c.JSON(http.StatusGone, gin.H{"error": "room expired"})
		return
	}

	out := make([]activityEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, activityEntryResponse{
			At:     entry.At,
			PeerID: entry.PeerID,
			Name:   entry.Name,
			Action: entry.Action,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) roomInfo(c *gin.Context) {
	info, err := a.state.RoomInfo(c.Param("roomId"))
	switch {
	case errors.Is(err, ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	case errors.Is(err, ErrRoomExpired):
		c.JSON(http.StatusGone, gin.H{"error": "room expired"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, roomInfoResponse{
		RoomID:           info.ID,
		RequiresPassword: info.RequiresPassword,
		MemberCount:      info.MemberCount,
		FileCount:        info.FileCount,
		CreatedAt:        info.CreatedAt,
		ExpiresAt:        info.ExpiresAt,
	})
}
