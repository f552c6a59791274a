package store

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/universal-inbox/universal-inbox/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// SQLite handles one writer at a time; a larger pool only produces
	// "database is locked" errors, and in-memory databases are per
	// connection.
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.IntegrationConnection{},
		&models.ThirdPartyItem{},
		&models.Task{},
		&models.Notification{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Transaction runs fn against a store bound to a single database
// transaction. fn returning an error rolls the transaction back; each sync
// job runs inside one Transaction call so a failing pass leaves no partial
// writes behind.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Health pings the underlying database connection.
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
