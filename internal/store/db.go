package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Session{}, &Turn{}, &GroundingExample{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSession starts a new training session.
func (d *Database) CreateSession(domain, trainee string) (*Session, error) {
	session := &Session{
		ID:      uuid.NewString(),
		Domain:  strings.TrimSpace(domain),
		Trainee: strings.TrimSpace(trainee),
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetSession loads a session by ID.
func (d *Database) GetSession(id string) (*Session, error) {
	var session Session
	if err := d.gorm.First(&session, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions returns sessions newest first along with the total count.
func (d *Database) ListSessions(offset, limit int) ([]Session, int64, error) {
	var total int64
	if err := d.gorm.Model(&Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query := d.gorm.Model(&Session{}).Order("created_at DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []Session
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SaveTurn appends a turn to its session, assigning the next sequence number.
func (d *Database) SaveTurn(turn *Turn) error {
	if turn == nil {
		return errors.New("turn is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		var session Session
		if err := tx.First(&session, "id = ?", turn.SessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrSessionNotFound, turn.SessionID)
			}
			return err
		}
		turn.Seq = session.TurnCount + 1
		if err := tx.Create(turn).Error; err != nil {
			return fmt.Errorf("create turn: %w", err)
		}
		return tx.Model(&Session{}).Where("id = ?", session.ID).Updates(map[string]any{
			"turn_count": turn.Seq,
			"updated_at": time.Now().UTC(),
		}).Error
	})
}

// ListTurns returns a session's turns in conversation order.
func (d *Database) ListTurns(sessionID string) ([]Turn, error) {
	var rows []Turn
	if err := d.gorm.Where("session_id = ?", sessionID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
