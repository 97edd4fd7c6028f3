package coordinator

import (
	"fmt"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

// ShareFile publishes a file record. Files shared while the owner is in
// a room are visible to that room's members; files shared outside any
// room land in the global catalog.
func (s *State) ShareFile(peerID string, req *protocol.ShareFile) []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	peer, ok := s.peers[peerID]
	if !ok {
		return nil
	}

	record := protocol.FileRecord{
		ID:        fmt.Sprintf("%s-%d-%s", peerID, s.now().UnixMilli(), req.Name),
		Name:      req.Name,
		Size:      req.Size,
		MimeType:  req.MimeType,
		OwnerID:   peerID,
		RoomID:    peer.RoomID,
		SharedAt:  s.now(),
		ExpiresAt: req.ExpiresAt,
	}

	deliveries := []Delivery{{PeerID: peerID, Msg: &protocol.FileShared{FileID: record.ID, Name: record.Name}}}

	if peer.RoomID != "" {
		room, ok := s.rooms[peer.RoomID]
		if !ok {
			return []Delivery{errorTo(peerID, protocol.ErrRoomNotFound, "Room not found")}
		}
		room.Files[record.ID] = record
		peer.RoomFiles = append(peer.RoomFiles, record.ID)
		room.Activity = append(room.Activity, ActivityEntry{
			At:     s.now(),
			PeerID: peerID,
			Name:   displayName(peer.Identity),
			Action: "shared",
			File:   record.Name,
		})

		for memberID := range room.Members {
			if memberID == peerID {
				continue
			}
			deliveries = append(deliveries, Delivery{PeerID: memberID, Msg: &protocol.FileAvailable{File: record}})
		}
		return deliveries
	}

	s.globalFiles[record.ID] = record
	peer.GlobalFiles = append(peer.GlobalFiles, record.ID)

	for _, p := range s.globalPeersLocked() {
		if p.ID == peerID {
			continue
		}
		deliveries = append(deliveries, Delivery{PeerID: p.ID, Msg: &protocol.FileAvailable{File: record}})
	}
	return deliveries
}

// UnshareFile withdraws a previously shared file. Only the owner may
// remove a record. The full audience, sender included, gets the removal
// event and a refreshed list.
func (s *State) UnshareFile(peerID string, req *protocol.UnshareFile) []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	peer, ok := s.peers[peerID]
	if !ok {
		return nil
	}

	if req.RoomID != "" {
		room, ok := s.rooms[req.RoomID]
		if !ok {
			return []Delivery{errorTo(peerID, protocol.ErrRoomNotFound, "Room not found")}
		}
		record, ok := room.Files[req.FileID]
		if !ok || record.OwnerID != peerID {
			return []Delivery{errorTo(peerID, protocol.ErrFileNotFound, "File not found")}
		}
		delete(room.Files, req.FileID)
		peer.RoomFiles = removeID(peer.RoomFiles, req.FileID)
		room.Activity = append(room.Activity, ActivityEntry{
			At:     s.now(),
			PeerID: peerID,
			Name:   displayName(peer.Identity),
			Action: "unshared",
			File:   record.Name,
		})

		var deliveries []Delivery
		roomFiles := room.filesLocked()
		for memberID := range room.Members {
			deliveries = append(deliveries,
				Delivery{PeerID: memberID, Msg: &protocol.FileRemoved{FileID: req.FileID, RoomID: room.ID}},
				Delivery{PeerID: memberID, Msg: &protocol.FilesList{RoomID: room.ID, Files: roomFiles}},
			)
		}
		return deliveries
	}

	record, ok := s.globalFiles[req.FileID]
	if !ok || record.OwnerID != peerID {
		return []Delivery{errorTo(peerID, protocol.ErrFileNotFound, "File not found")}
	}
	delete(s.globalFiles, req.FileID)
	peer.GlobalFiles = removeID(peer.GlobalFiles, req.FileID)

	var deliveries []Delivery
	globalFiles := s.globalFilesLocked()
	for _, p := range s.globalPeersLocked() {
		deliveries = append(deliveries,
			Delivery{PeerID: p.ID, Msg: &protocol.FileRemoved{FileID: req.FileID}},
			Delivery{PeerID: p.ID, Msg: &protocol.FilesList{Files: globalFiles}},
		)
	}
	return deliveries
}

// SweepFiles expires file records whose ExpiresAt has passed, notifying
// each record's audience.
func (s *State) SweepFiles() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var deliveries []Delivery

	for fileID, record := range s.globalFiles {
		if !fileExpired(record, now) {
			continue
		}
		delete(s.globalFiles, fileID)
		if owner, ok := s.peers[record.OwnerID]; ok {
			owner.GlobalFiles = removeID(owner.GlobalFiles, fileID)
		}
		for _, p := range s.globalPeersLocked() {
			deliveries = append(deliveries, Delivery{PeerID: p.ID, Msg: &protocol.FileRemoved{FileID: fileID}})
		}
	}

	for _, room := range s.rooms {
		for fileID, record := range room.Files {
			if !fileExpired(record, now) {
				continue
			}
			delete(room.Files, fileID)
			if owner, ok := s.peers[record.OwnerID]; ok {
				owner.RoomFiles = removeID(owner.RoomFiles, fileID)
			}
			for memberID := range room.Members {
				deliveries = append(deliveries, Delivery{PeerID: memberID, Msg: &protocol.FileRemoved{FileID: fileID, RoomID: room.ID}})
			}
		}
	}

	return deliveries
}

// FileCount reports the number of records in the global catalog.
func (s *State) FileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.globalFiles)
}

func fileExpired(record protocol.FileRecord, now time.Time) bool {
	return !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
