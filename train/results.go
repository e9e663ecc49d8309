package train

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Results persists run metadata and per-epoch metrics to sqlite. One row
// in runs per training invocation, one row in epochs per epoch.
type Results struct {
	db    *sql.DB
	runID string
}

// OpenResults opens (creating if needed) the results database and
// registers a new run.
func OpenResults(path string, cfg Config) (*Results, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs(
			id TEXT PRIMARY KEY,
			ts REAL NOT NULL,
			task_id INTEGER NOT NULL,
			config TEXT NOT NULL,
			test_loss REAL,
			test_acc REAL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("results: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS epochs(
			run_id TEXT NOT NULL,
			epoch INTEGER NOT NULL,
			lr REAL NOT NULL,
			train_loss REAL NOT NULL,
			train_acc REAL NOT NULL,
			val_loss REAL,
			val_acc REAL,
			PRIMARY KEY(run_id, epoch)
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("results: %w", err)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("results: %w", err)
	}
	r := &Results{db: db, runID: uuid.NewString()}
	_, err = db.Exec("INSERT INTO runs(id, ts, task_id, config) VALUES(?,?,?,?)",
		r.runID, float64(time.Now().UnixMilli())/1000.0, cfg.TaskID, string(cfgJSON))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("results: %w", err)
	}
	return r, nil
}

// RunID returns the uuid of this run.
func (r *Results) RunID() string { return r.runID }

// LogEpoch records one epoch's metrics.
func (r *Results) LogEpoch(epoch int, lr, trainLoss, trainAcc, valLoss, valAcc float64) error {
	_, err := r.db.Exec(
		"INSERT OR REPLACE INTO epochs(run_id, epoch, lr, train_loss, train_acc, val_loss, val_acc) VALUES(?,?,?,?,?,?,?)",
		r.runID, epoch, lr, trainLoss, trainAcc, valLoss, valAcc)
	return err
}

// LogTest records the final test metrics on the run row.
func (r *Results) LogTest(loss, acc float64) error {
	_, err := r.db.Exec("UPDATE runs SET test_loss=?, test_acc=? WHERE id=?", loss, acc, r.runID)
	return err
}

// Close closes the database.
func (r *Results) Close() error { return r.db.Close() }
