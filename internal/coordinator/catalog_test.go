package coordinator

import (
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-drop/internal/protocol"
)

func TestShareFileInRoom(t *testing.T) {
	state, _ := newTestState(t)

	roomID, _ := state.CreateRoom("", 0)
	alice := registerPeer(t, state)
	bob := registerPeer(t, state)
	carol := registerPeer(t, state)
	state.JoinRoom(alice, &protocol.JoinRoom{RoomID: roomID, Identity: identity("alice")})
	state.JoinRoom(bob, &protocol.JoinRoom{RoomID: roomID, Identity: identity("bob")})

	deliveries := state.ShareFile(alice, &protocol.ShareFile{Name: "photo.jpg", Size: 4096, MimeType: "image/jpeg"})
	shared := findMsg[*protocol.FileShared](t, deliveries, alice)
	if shared.Name != "photo.jpg" {
		t.Fatalf("confirmed name %s, want photo.jpg", shared.Name)
	}

	available := findMsg[*protocol.FileAvailable](t, deliveries, bob)
	if available.File.OwnerID != alice || available.File.RoomID != roomID {
		t.Fatalf("bad record: owner %s room %s", available.File.OwnerID, available.File.RoomID)
	}

	// carol is outside the room and must not see it
	if hasMsg[*protocol.FileAvailable](deliveries, carol) {
		t.Fatal("room file leaked to a global peer")
	}
}

func TestShareFileGlobal(t *testing.T) {
	state, _ := newTestState(t)

	roomID, _ := state.CreateRoom("", 0)
	alice := registerPeer(t, state)
	bob := registerPeer(t, state)
	member := registerPeer(t, state)
	state.JoinRoom(member, &protocol.JoinRoom{RoomID: roomID, Identity: identity("member")})

	deliveries := state.ShareFile(alice, &protocol.ShareFile{Name: "readme.txt", Size: 64})
	available := findMsg[*protocol.FileAvailable](t, deliveries, bob)
	if available.File.RoomID != "" {
		t.Fatalf("global file carries room id %s", available.File.RoomID)
	}
	if hasMsg[*protocol.FileAvailable](deliveries, member) {
		t.Fatal("global file leaked into a room")
	}
	if state.FileCount() != 1 {
		t.Fatalf("expected 1 global file, got %d", state.FileCount())
	}
}

func TestUnshareFileOwnerOnly(t *testing.T) {
	state, _ := newTestState(t)

	alice := registerPeer(t, state)
	bob := registerPeer(t, state)

	deliveries := state.ShareFile(alice, &protocol.ShareFile{Name: "secret.zip", Size: 99})
	shared := findMsg[*protocol.FileShared](t, deliveries, alice)

	deliveries = state.UnshareFile(bob, &protocol.UnshareFile{FileID: shared.FileID})
	errMsg := findMsg[*protocol.Error](t, deliveries, bob)
	if errMsg.Code != protocol.ErrFileNotFound {
		t.Fatalf("expected file not found for non-owner, got %v", errMsg.Code)
	}

	deliveries = state.UnshareFile(alice, &protocol.UnshareFile{FileID: shared.FileID})
	removed := findMsg[*protocol.FileRemoved](t, deliveries, bob)
	if removed.FileID != shared.FileID {
		t.Fatalf("removed %s, want %s", removed.FileID, shared.FileID)
	}
	list := findMsg[*protocol.FilesList](t, deliveries, alice)
	if len(list.Files) != 0 {
		t.Fatalf("expected empty list after unshare, got %d", len(list.Files))
	}
}

func TestFileExpirySweep(t *testing.T) {
	state, clock := newTestState(t)

	alice := registerPeer(t, state)
	bob := registerPeer(t, state)

	deliveries := state.ShareFile(alice, &protocol.ShareFile{
		Name:      "temp.bin",
		Size:      2048,
		ExpiresAt: clock.Now().Add(time.Hour),
	})
	shared := findMsg[*protocol.FileShared](t, deliveries, alice)

	if deliveries := state.SweepFiles(); len(deliveries) != 0 {
		t.Fatalf("nothing should expire yet, got %d deliveries", len(deliveries))
	}

	clock.Advance(2 * time.Hour)

	deliveries = state.SweepFiles()
	removed := findMsg[*protocol.FileRemoved](t, deliveries, bob)
	if removed.FileID != shared.FileID {
		t.Fatalf("expired %s, want %s", removed.FileID, shared.FileID)
	}
	if state.FileCount() != 0 {
		t.Fatalf("expected empty catalog, got %d", state.FileCount())
	}
}

func TestDisconnectRemovesGlobalFiles(t *testing.T) {
	state, _ := newTestState(t)

	alice := registerPeer(t, state)
	bob := registerPeer(t, state)

	state.ShareFile(alice, &protocol.ShareFile{Name: "gone.txt", Size: 1})

	deliveries := state.UnregisterPeer(alice)
	list := findMsg[*protocol.FilesList](t, deliveries, bob)
	if len(list.Files) != 0 {
		t.Fatalf("alice's files should vanish on disconnect, got %d", len(list.Files))
	}
}
