package client

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/peer-drop/internal/keys"
	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
	"github.com/rudransh-shrivastava/peer-drop/internal/scheduler"
	"github.com/rudransh-shrivastava/peer-drop/internal/store"
)

const transferChunkSize = 64 * 1024

// control messages exchanged over the data channel before and after the
// binary chunk stream
type channelControl struct {
	Type     string `json:"type"`
	FileID   string `json:"fileId"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Checksum string `json:"checksum,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Binary chunks are framed with the file id so concurrent transfers
// sharing one data channel land in the right file.
func frameChunk(fileID string, sealed []byte) []byte {
	buf := make([]byte, 2+len(fileID)+len(sealed))
	binary.BigEndian.PutUint16(buf, uint16(len(fileID)))
	copy(buf[2:], fileID)
	copy(buf[2+len(fileID):], sealed)
	return buf
}

func splitChunk(data []byte) (fileID string, sealed []byte, ok bool) {
	if len(data) < 2 {
		return "", nil, false
	}
	n := int(binary.BigEndian.Uint16(data))
	if len(data) < 2+n {
		return "", nil, false
	}
	return string(data[2 : 2+n]), data[2+n:], true
}

type incomingTransfer struct {
	itemID   uint64
	recordID uint
	fileID   string
	file     *os.File
	path     string
	received int64
	size     int64
	checksum string
	digest   hash.Hash
}

// Share announces a local file to the current scope and records it so
// incoming requests can be served.
func (c *Client) Share(ctx context.Context, path string, ttl time.Duration) (string, error) {
	if c.peer == nil {
		return "", ErrNotConnected
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	checksum, err := fileChecksum(path)
	if err != nil {
		return "", err
	}

	share := &protocol.ShareFile{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MimeType: mime.TypeByExtension(filepath.Ext(path)),
	}
	if ttl > 0 {
		share.ExpiresAt = time.Now().Add(ttl)
	}
	if err := c.peer.Send(ctx, share); err != nil {
		return "", err
	}

	var confirmed *protocol.FileShared
	select {
	case confirmed = <-c.shareCh:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	err = c.SharedFiles.Create(&store.SharedFile{
		FileID:   confirmed.FileID,
		Name:     share.Name,
		Path:     path,
		Size:     info.Size(),
		MimeType: share.MimeType,
		Checksum: checksum,
		RoomID:   c.RoomID(),
		SharedAt: time.Now().Unix(),
	})
	if err != nil {
		return "", err
	}

	c.Logger.Infof("Shared %s as %s", share.Name, confirmed.FileID)
	return confirmed.FileID, nil
}

// Unshare withdraws a shared file from the catalog.
func (c *Client) Unshare(ctx context.Context, fileID string) error {
	if c.peer == nil {
		return ErrNotConnected
	}

	local, err := c.SharedFiles.GetByFileID(fileID)
	if err != nil {
		return err
	}
	msg := &protocol.UnshareFile{FileID: fileID, RoomID: local.RoomID}
	if err := c.peer.Send(ctx, msg); err != nil {
		return err
	}
	return c.SharedFiles.Delete(fileID)
}

// Download queues a catalog file for transfer. The scheduler decides
// when it actually starts; progress lands in OnProgress when set.
func (c *Client) Download(fileID, destDir string, priority int) (uint64, error) {
	c.mu.Lock()
	record, ok := c.files[fileID]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("file %s is not in the catalog", fileID)
	}

	transfer := &store.Transfer{
		FileID:    fileID,
		Name:      record.Name,
		PeerID:    record.OwnerID,
		Size:      record.Size,
		Priority:  priority,
		Status:    store.TransferPending,
		StartedAt: time.Now().Unix(),
	}
	if err := c.Transfers.Create(transfer); err != nil {
		return 0, err
	}

	// Enqueue can admit the item immediately, so the pending entry must
	// be on the map before startDownload can look for it. Holding the
	// lock across both makes startDownload wait out the write.
	c.mu.Lock()
	if c.pending == nil {
		c.pending = make(map[uint64]pendingDownload)
	}
	itemID := c.Scheduler.Enqueue(fileID, record.Size, priority)
	c.pending[itemID] = pendingDownload{
		record:   record,
		recordID: transfer.ID,
		destDir:  destDir,
	}
	c.mu.Unlock()
	return itemID, nil
}

type pendingDownload struct {
	record   protocol.FileRecord
	recordID uint
	destDir  string
}

// RunTransfers drains scheduler events and drives admitted downloads
// until ctx is cancelled. Run it once, after Connect.
func (c *Client) RunTransfers(ctx context.Context) {
	events := c.Scheduler.Subscribe()
	for {
		select {
		case event := <-events:
			switch event.Type {
			case scheduler.EventStarted:
				c.startDownload(ctx, event.Item)
			case scheduler.EventTimedOut:
				c.failDownload(event.Item.ID, "transfer timed out")
			case scheduler.EventCancelled:
				c.failDownload(event.Item.ID, "cancelled")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) startDownload(ctx context.Context, item scheduler.Item) {
	c.mu.Lock()
	pending, ok := c.pending[item.ID]
	c.mu.Unlock()
	if !ok {
		return
	}

	go func() {
		if err := c.requestFile(ctx, item.ID, pending); err != nil {
			c.Logger.Errorf("Download of %s failed: %v", pending.record.Name, err)
			c.Scheduler.Cancel(item.ID)
		}
	}()
}

func (c *Client) requestFile(ctx context.Context, itemID uint64, pending pendingDownload) error {
	c.Transfers.UpdateStatus(pending.recordID, store.TransferActive, 0)

	owner := pending.record.OwnerID
	if err := c.EnsureConnection(ctx, owner); err != nil {
		return err
	}

	dc, err := c.waitForChannel(ctx, owner)
	if err != nil {
		return err
	}

	path := filepath.Join(pending.destDir, pending.record.Name)
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	digest := sha256.New()
	c.mu.Lock()
	if c.incoming == nil {
		c.incoming = make(map[string]*incomingTransfer)
	}
	c.incoming[pending.record.ID] = &incomingTransfer{
		itemID:   itemID,
		recordID: pending.recordID,
		fileID:   pending.record.ID,
		file:     file,
		path:     path,
		size:     pending.record.Size,
		digest:   digest,
	}
	c.mu.Unlock()

	request, _ := json.Marshal(channelControl{Type: "request", FileID: pending.record.ID})
	return dc.SendText(string(request))
}

// waitForChannel blocks until the data channel to the peer opens.
func (c *Client) waitForChannel(ctx context.Context, peerID string) (*webrtc.DataChannel, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	deadline := time.After(30 * time.Second)
	for {
		c.mu.Lock()
		dc := c.channels[peerID]
		c.mu.Unlock()
		if dc != nil && dc.ReadyState() == webrtc.DataChannelStateOpen {
			return dc, nil
		}

		select {
		case <-ticker.C:
		case <-deadline:
			return nil, fmt.Errorf("data channel to %s never opened", peerID)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Client) handleChannelMessage(peerID string, msg webrtc.DataChannelMessage) {
	if msg.IsString {
		var control channelControl
		if err := json.Unmarshal(msg.Data, &control); err != nil {
			c.Logger.Warnf("Bad control message from %s: %v", peerID, err)
			return
		}
		c.handleChannelControl(peerID, control)
		return
	}

	c.handleChunk(peerID, msg.Data)
}

func (c *Client) handleChannelControl(peerID string, control channelControl) {
	switch control.Type {
	case "request":
		go c.serveFile(peerID, control.FileID)

	case "begin":
		c.mu.Lock()
		if in, ok := c.incoming[control.FileID]; ok {
			in.checksum = control.Checksum
			in.size = control.Size
		}
		c.mu.Unlock()

	case "end":
		c.finishDownload(control.FileID)

	case "error":
		c.Logger.Warnf("Peer %s refused transfer: %s", peerID, control.Reason)
		c.mu.Lock()
		in := c.incoming[control.FileID]
		delete(c.incoming, control.FileID)
		c.mu.Unlock()
		if in != nil {
			in.file.Close()
			os.Remove(in.path)
			c.failDownload(in.itemID, control.Reason)
			c.Scheduler.Cancel(in.itemID)
		}

	default:
		c.Logger.Debugf("Unknown control %q from %s", control.Type, peerID)
	}
}

func (c *Client) handleChunk(peerID string, data []byte) {
	fileID, sealed, framed := splitChunk(data)
	if !framed {
		c.Logger.Warnf("Malformed chunk from %s", peerID)
		return
	}

	c.mu.Lock()
	in, ok := c.incoming[fileID]
	key := c.scopeKey
	c.mu.Unlock()
	if !ok {
		return
	}

	chunk, err := keys.OpenChunk(key, sealed)
	if err != nil {
		c.Logger.Errorf("Chunk from %s failed to open: %v", peerID, err)
		return
	}

	if _, err := in.file.Write(chunk); err != nil {
		c.Logger.Errorf("Writing chunk: %v", err)
		return
	}
	in.digest.Write(chunk)
	in.received += int64(len(chunk))

	c.Transfers.UpdateProgress(in.recordID, in.received)
	if c.OnProgress != nil {
		c.OnProgress(in.fileID, in.received, in.size)
	}
}

func (c *Client) finishDownload(fileID string) {
	c.mu.Lock()
	in, ok := c.incoming[fileID]
	delete(c.incoming, fileID)
	c.mu.Unlock()
	if !ok {
		return
	}

	in.file.Close()

	sum := hex.EncodeToString(in.digest.Sum(nil))
	if in.checksum != "" && sum != in.checksum {
		os.Remove(in.path)
		c.Logger.Errorf("Checksum mismatch for %s", in.path)
		c.failDownload(in.itemID, "checksum mismatch")
		c.Scheduler.Cancel(in.itemID)
		return
	}

	c.Transfers.UpdateStatus(in.recordID, store.TransferCompleted, time.Now().Unix())
	if err := c.Scheduler.Complete(in.itemID); err != nil {
		c.Logger.Warnf("Completing transfer: %v", err)
	}
	c.Logger.Infof("Downloaded %s (%d bytes)", in.path, in.received)
}

func (c *Client) failDownload(itemID uint64, reason string) {
	c.mu.Lock()
	pending, ok := c.pending[itemID]
	delete(c.pending, itemID)
	c.mu.Unlock()
	if !ok {
		return
	}
	c.Transfers.UpdateStatus(pending.recordID, store.TransferFailed, time.Now().Unix())
	c.Logger.Warnf("Transfer of %s failed: %s", pending.record.Name, reason)
}

// serveFile streams a shared file to a requesting peer, sealed chunk by
// chunk with the scope key.
func (c *Client) serveFile(peerID, fileID string) {
	c.mu.Lock()
	dc := c.channels[peerID]
	key := c.scopeKey
	c.mu.Unlock()
	if dc == nil {
		return
	}

	refuse := func(reason string) {
		control, _ := json.Marshal(channelControl{Type: "error", FileID: fileID, Reason: reason})
		dc.SendText(string(control))
	}

	local, err := c.SharedFiles.GetByFileID(fileID)
	if err != nil {
		refuse("file not shared")
		return
	}

	file, err := os.Open(local.Path)
	if err != nil {
		refuse("file unavailable")
		return
	}
	defer file.Close()

	begin, _ := json.Marshal(channelControl{
		Type:     "begin",
		FileID:   fileID,
		Name:     local.Name,
		Size:     local.Size,
		Checksum: local.Checksum,
	})
	if err := dc.SendText(string(begin)); err != nil {
		c.Logger.Warnf("Starting transfer to %s: %v", peerID, err)
		return
	}

	buf := make([]byte, transferChunkSize)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			sealed, sealErr := keys.SealChunk(key, buf[:n])
			if sealErr != nil {
				c.Logger.Errorf("Sealing chunk: %v", sealErr)
				return
			}
			if sendErr := dc.Send(frameChunk(fileID, sealed)); sendErr != nil {
				c.Logger.Warnf("Sending chunk to %s: %v", peerID, sendErr)
				return
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			c.Logger.Errorf("Reading %s: %v", local.Path, err)
			return
		}
	}

	end, _ := json.Marshal(channelControl{Type: "end", FileID: fileID})
	dc.SendText(string(end))
	c.Logger.Infof("Served %s to %s", local.Name, peerID)
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	digest := sha256.New()
	if _, err := io.Copy(digest, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
