package store

// SharedFile is a local file announced to the coordinator. FileID is
// the catalog id assigned when the share was confirmed.
type SharedFile struct {
	ID       uint   `gorm:"primaryKey"`
	FileID   string `gorm:"uniqueIndex"`
	Name     string
	Path     string
	Size     int64
	MimeType string
	Checksum string
	RoomID   string
	SharedAt int64
}

// Transfer is one download attempt, kept for history and resume.
type Transfer struct {
	ID         uint   `gorm:"primaryKey"`
	FileID     string `gorm:"index"`
	Name       string
	PeerID     string
	Size       int64
	Received   int64
	Priority   int
	Status     string
	StartedAt  int64
	FinishedAt int64
}
