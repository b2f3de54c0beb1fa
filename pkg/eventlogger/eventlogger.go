package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/sirupsen/logrus"
)

const (
	defaultDuckDBPath = ":memory:"
	defaultRecent     = 50
)

type EventLoggerConfig struct {
	// BaseDir receives the hourly partitioned JSON files on Stop. Empty
	// disables writing files.
	BaseDir           string
	RetainInDB        bool
	DuckDBPath        string
	PopulateFromFiles bool
}

// Event is one recorded inventory mutation.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType string                 `json:"event_type"`
	EventData map[string]interface{} `json:"event_data"`
}

// EventLogger writes every event as a JSON log line and keeps it in a
// DuckDB table until it is flushed to disk.
type EventLogger struct {
	db     *sql.DB
	log    *logrus.Logger
	config EventLoggerConfig
	seq    atomic.Int64
	wg     sync.WaitGroup
	stop   sync.Once
}

func NewEventLogger(config EventLoggerConfig) (*EventLogger, error) {
	if config.DuckDBPath == "" {
		config.DuckDBPath = defaultDuckDBPath
	}

	var db *sql.DB
	var err error

	if config.DuckDBPath == ":memory:" {
		db, err = sql.Open("duckdb", "")
	} else {
		db, err = sql.Open("duckdb", config.DuckDBPath)
	}
	if err != nil {
		return nil, err
	}

	// Initialize DuckDB table
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS events (
		seq BIGINT,
		timestamp TIMESTAMP,
		event_type STRING,
		event_data JSON,
		flushed BOOLEAN DEFAULT false
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	el := &EventLogger{
		db:     db,
		log:    log,
		config: config,
	}

	var maxSeq sql.NullInt64
	if err := db.QueryRow(`SELECT max(seq) FROM events`).Scan(&maxSeq); err != nil {
		db.Close()
		return nil, err
	}
	el.seq.Store(maxSeq.Int64)

	if config.PopulateFromFiles && config.BaseDir != "" {
		if err := el.populateDBFromFiles(); err != nil {
			db.Close()
			return nil, err
		}
	}

	return el, nil
}

// SetOutput redirects the JSON log lines, which go to stdout by default.
func (el *EventLogger) SetOutput(out io.Writer) {
	el.log.SetOutput(out)
}

func (el *EventLogger) LogEvent(eventType string, eventData map[string]interface{}) {
	timestamp := time.Now().UTC()

	el.log.WithFields(logrus.Fields{
		"event":      eventType,
		"timestamp":  timestamp.Format(time.RFC3339Nano),
		"event_data": eventData,
	}).Info("Event logged")

	eventDataJSON, err := json.Marshal(eventData)
	if err != nil {
		el.log.WithError(err).Error("Failed to encode event data")
		return
	}
	if err := el.insert(timestamp, eventType, string(eventDataJSON), false); err != nil {
		el.log.WithError(err).Error("Failed to insert event into DuckDB")
	}
}

func (el *EventLogger) insert(timestamp time.Time, eventType, eventData string, flushed bool) error {
	_, err := el.db.Exec(`INSERT INTO events (seq, timestamp, event_type, event_data, flushed) VALUES (?, ?, ?, ?, ?)`,
		el.seq.Add(1), timestamp, eventType, eventData, flushed)
	return err
}

// Recent returns up to limit events, newest first.
func (el *EventLogger) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	rows, err := el.db.Query(`SELECT timestamp, event_type, event_data FROM events ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Timestamp, &e.EventType, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &e.EventData); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (el *EventLogger) populateDBFromFiles() error {
	files, err := filepath.Glob(filepath.Join(el.config.BaseDir, "*", "*", "*", "*", "part-*.json"))
	if err != nil {
		return err
	}

	for _, file := range files {
		err := el.loadFileIntoDB(file)
		if err != nil {
			el.log.WithError(err).Errorf("Failed to load file %s into DuckDB", file)
		}
	}

	return nil
}

func (el *EventLogger) loadFileIntoDB(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for decoder.More() {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			return err
		}
		eventData, err := json.Marshal(event.EventData)
		if err != nil {
			return err
		}
		// Already on disk, so never flushed again.
		if err := el.insert(event.Timestamp.UTC(), event.EventType, string(eventData), true); err != nil {
			return err
		}
	}

	return nil
}

// FlushEvents appends every unflushed event to
// BaseDir/year=YYYY/month=MM/day=DD/hour=HH/part-00000.json.
func (el *EventLogger) FlushEvents() {
	if el.config.BaseDir == "" {
		return
	}
	el.wg.Add(1)
	defer el.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	events, maxSeq, err := el.unflushed(ctx)
	if err != nil {
		el.log.WithError(err).Error("Failed to query events from DuckDB")
		return
	}

	eventFiles := make(map[string]*os.File)
	defer func() {
		for _, file := range eventFiles {
			file.Close()
		}
	}()

	for _, event := range events {
		t := event.Timestamp.UTC()
		dir := fmt.Sprintf("%s/year=%d/month=%02d/day=%02d/hour=%02d",
			el.config.BaseDir, t.Year(), t.Month(), t.Day(), t.Hour())

		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			el.log.WithError(err).Error("Failed to create directory")
			return
		}

		filePath := fmt.Sprintf("%s/part-00000.json", dir)

		file, ok := eventFiles[filePath]
		if !ok {
			file, err = os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				el.log.WithError(err).Error("Failed to open event file")
				return
			}
			eventFiles[filePath] = file
		}

		line, err := json.Marshal(event)
		if err != nil {
			el.log.WithError(err).Error("Failed to encode event")
			continue
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			el.log.WithError(err).Error("Failed to write event to file")
			return
		}
	}

	if el.config.RetainInDB {
		_, err = el.db.ExecContext(ctx, `UPDATE events SET flushed = true WHERE seq <= ?`, maxSeq)
	} else {
		_, err = el.db.ExecContext(ctx, `DELETE FROM events WHERE seq <= ?`, maxSeq)
	}
	if err != nil {
		el.log.WithError(err).Error("Failed to mark flushed events in DuckDB")
	}
}

func (el *EventLogger) unflushed(ctx context.Context) ([]Event, int64, error) {
	rows, err := el.db.QueryContext(ctx, `SELECT seq, timestamp, event_type, event_data FROM events WHERE NOT flushed ORDER BY seq`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []Event
	var maxSeq int64
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&maxSeq, &e.Timestamp, &e.EventType, &data); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal([]byte(data), &e.EventData); err != nil {
			el.log.WithError(err).Error("Failed to decode event row")
			continue
		}
		events = append(events, e)
	}
	return events, maxSeq, rows.Err()
}

// Stop flushes pending events and closes the database. It is safe to call
// more than once.
func (el *EventLogger) Stop() {
	el.stop.Do(func() {
		el.FlushEvents()
		el.wg.Wait()
		if err := el.db.Close(); err != nil {
			el.log.WithError(err).Error("Failed to close event database")
		}
	})
}
