package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	return db
}

func TestSharedFileRoundTrip(t *testing.T) {
	files := NewSharedFileStore(newTestDB(t))

	err := files.Create(&SharedFile{
		FileID:   "peer-1-100-notes.pdf",
		Name:     "notes.pdf",
		Path:     "/tmp/notes.pdf",
		Size:     2048,
		MimeType: "application/pdf",
		SharedAt: time.Now().Unix(),
	})
	require.NoError(t, err)

	file, err := files.GetByFileID("peer-1-100-notes.pdf")
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", file.Name)
	assert.EqualValues(t, 2048, file.Size)

	exists, err := files.Exists("peer-1-100-notes.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, files.Delete("peer-1-100-notes.pdf"))
	_, err = files.GetByFileID("peer-1-100-notes.pdf")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSharedFileListOrder(t *testing.T) {
	files := NewSharedFileStore(newTestDB(t))

	require.NoError(t, files.Create(&SharedFile{FileID: "old", Name: "old.txt", SharedAt: 100}))
	require.NoError(t, files.Create(&SharedFile{FileID: "new", Name: "new.txt", SharedAt: 200}))

	list, err := files.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].FileID)
}

func TestTransferLifecycle(t *testing.T) {
	transfers := NewTransferStore(newTestDB(t))

	transfer := &Transfer{
		FileID:    "peer-2-200-video.mp4",
		Name:      "video.mp4",
		PeerID:    "peer-2",
		Size:      1 << 20,
		Status:    TransferPending,
		StartedAt: time.Now().Unix(),
	}
	require.NoError(t, transfers.Create(transfer))

	require.NoError(t, transfers.UpdateStatus(transfer.ID, TransferActive, 0))
	require.NoError(t, transfers.UpdateProgress(transfer.ID, 512))

	got, err := transfers.Get(transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, TransferActive, got.Status)
	assert.EqualValues(t, 512, got.Received)

	incomplete, err := transfers.Incomplete()
	require.NoError(t, err)
	assert.Len(t, incomplete, 1)

	require.NoError(t, transfers.UpdateStatus(transfer.ID, TransferCompleted, time.Now().Unix()))
	incomplete, err = transfers.Incomplete()
	require.NoError(t, err)
	assert.Empty(t, incomplete)
}
