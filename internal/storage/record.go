package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TranscriptRecord is the optional database row written once per committed
// save. Artifact paths are immutable after the write; SpeakerNames may be
// amended later (metadata overlay), never the artifacts themselves.
type TranscriptRecord struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID string `gorm:"uniqueIndex;size:64"`
	Backend        string
	AudioPath      string
	TranscriptPath string
	MetadataPath   string
	Duration       float64
	SpeakerCount   int
	SpeakerNames   string // JSON object speaker_id -> display name
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecordStore keeps TranscriptRecords in a sqlite database.
type RecordStore struct {
	db *gorm.DB
}

func OpenRecordStore(path string) (*RecordStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	if err := db.AutoMigrate(&TranscriptRecord{}); err != nil {
		return nil, fmt.Errorf("migrate record store: %w", err)
	}
	return &RecordStore{db: db}, nil
}

// Insert writes the record row for a committed save.
func (s *RecordStore) Insert(rec *TranscriptRecord) error {
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get fetches the record for a conversation.
func (s *RecordStore) Get(conversationID string) (*TranscriptRecord, error) {
	var rec TranscriptRecord
	if err := s.db.First(&rec, "conversation_id = ?", conversationID).Error; err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	return &rec, nil
}

// UpdateSpeakerNames amends the display-name overlay on an existing record.
// The stored transcript artifacts are not touched.
func (s *RecordStore) UpdateSpeakerNames(conversationID string, names map[int]string) error {
	blob, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode speaker names: %w", err)
	}
	res := s.db.Model(&TranscriptRecord{}).
		Where("conversation_id = ?", conversationID).
		Update("speaker_names", string(blob))
	if res.Error != nil {
		return fmt.Errorf("update speaker names: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no record for conversation %s", conversationID)
	}
	return nil
}
