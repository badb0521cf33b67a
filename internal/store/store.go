// Package store is the optional persistence sink for completed matches and
// tournaments. Writes are queued and flushed by a single goroutine; the
// coordinator never blocks on the database, and a full queue drops the
// record rather than applying backpressure.
package store

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MatchRecord struct {
	ID           uint   `gorm:"primaryKey"`
	TournamentID string `gorm:"index"`
	MatchID      string
	Round        int
	MatchIndex   int
	Player1      string
	Player2      string
	WinnerID     string
	Score1       int
	Score2       int
	CompletedAt  time.Time
}

type TournamentRecord struct {
	ID           uint   `gorm:"primaryKey"`
	TournamentID string `gorm:"index"`
	Code         string
	Name         string
	Size         int
	PlayerCount  int
	WinnerID     string
	WinnerName   string
	CompletedAt  time.Time
}

// Recorder is what the coordinator writes completed results to. All methods
// are fire-and-forget.
type Recorder interface {
	RecordMatch(MatchRecord)
	RecordTournament(TournamentRecord)
	Close()
}

// Noop is the recorder used when no DATABASE_URL is configured.
type Noop struct{}

func (Noop) RecordMatch(MatchRecord) {}

func (Noop) RecordTournament(TournamentRecord) {}

func (Noop) Close() {}

type DB struct {
	db    *gorm.DB
	queue chan any
	done  chan struct{}
	log   *zap.Logger
}

// Open connects to postgres, migrates the record tables, and starts the
// writer goroutine.
func Open(dsn string, log *zap.Logger) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&MatchRecord{}, &TournamentRecord{}); err != nil {
		return nil, err
	}

	s := &DB{
		db:    gdb,
		queue: make(chan any, 256),
		done:  make(chan struct{}),
		log:   log,
	}
	go s.writer()
	return s, nil
}

func (s *DB) RecordMatch(r MatchRecord) { s.enqueue(r) }

func (s *DB) RecordTournament(r TournamentRecord) { s.enqueue(r) }

func (s *DB) enqueue(r any) {
	select {
	case s.queue <- r:
	default:
		s.log.Warn("store queue full, dropping record")
	}
}

func (s *DB) writer() {
	defer close(s.done)
	for r := range s.queue {
		var err error
		switch rec := r.(type) {
		case MatchRecord:
			err = s.db.Create(&rec).Error
		case TournamentRecord:
			err = s.db.Create(&rec).Error
		}
		if err != nil {
			s.log.Error("store write failed", zap.Error(err))
		}
	}
}

// Close drains the queue and stops the writer.
func (s *DB) Close() {
	close(s.queue)
	<-s.done
}
