package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerIdentity is one row per local profile.
type PlayerIdentity struct {
	Profile   string `gorm:"primaryKey"`
	PlayerID  string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

// Store keeps player ids in postgres so several machines sharing a profile
// present the same identity.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func OpenStore(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open identity db: %w", err)
	}
	return NewStore(db, log)
}

func NewStore(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&PlayerIdentity{}); err != nil {
		return nil, fmt.Errorf("migrate identity table: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Resolve returns the profile's id, creating one if the profile is new.
func (s *Store) Resolve(profile string) (Provider, error) {
	row := PlayerIdentity{Profile: profile, PlayerID: uuid.NewString()}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("create identity for %q: %w", profile, err)
	}

	var got PlayerIdentity
	if err := s.db.First(&got, "profile = ?", profile).Error; err != nil {
		return nil, fmt.Errorf("load identity for %q: %w", profile, err)
	}
	if got.PlayerID == "" {
		return nil, fmt.Errorf("identity for %q: %w", profile, ErrEmptyID)
	}
	s.log.Info("resolved player identity", zap.String("profile", profile), zap.String("player_id", got.PlayerID))
	return Static(got.PlayerID), nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
