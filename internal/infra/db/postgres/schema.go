package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
  id            TEXT PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE,
  full_name     TEXT,
  role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin','doctor','user')),
  organization  TEXT,
  password_hash TEXT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
)`,

	`CREATE TABLE IF NOT EXISTS analyses (
  id                      TEXT PRIMARY KEY,
  user_id                 TEXT NOT NULL,
  patient_id              TEXT,
  file_name               TEXT NOT NULL,
  file_url                TEXT NOT NULL,
  file_type               TEXT NOT NULL,
  status                  TEXT NOT NULL DEFAULT 'pending'
                          CHECK (status IN ('pending','processing','completed','failed')),
  severity                TEXT CHECK (severity IN ('healthy','mild','moderate','severe')),
  condition_text          TEXT,
  confidence              DOUBLE PRECISION,
  total_frames            INTEGER,
  abnormal_frames         INTEGER,
  region_of_interest      TEXT,
  device_model            TEXT,
  notes                   TEXT,
  ai_insights             TEXT,
  processing_time_seconds DOUBLE PRECISION,
  created_at              TIMESTAMPTZ NOT NULL,
  completed_at            TIMESTAMPTZ
)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses (user_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS analysis_frames (
  id                  TEXT PRIMARY KEY,
  analysis_id         TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
  frame_number        INTEGER NOT NULL,
  timestamp_ms        BIGINT,
  is_abnormal         BOOLEAN NOT NULL DEFAULT FALSE,
  severity            TEXT CHECK (severity IN ('healthy','mild','moderate','severe')),
  confidence          DOUBLE PRECISION,
  detected_conditions TEXT,
  overlay_data        TEXT,
  created_at          TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_frames_analysis ON analysis_frames (analysis_id, frame_number)`,

	`CREATE TABLE IF NOT EXISTS feedback (
  id             TEXT PRIMARY KEY,
  user_id        TEXT,
  full_name      TEXT NOT NULL,
  email          TEXT NOT NULL,
  organization   TEXT,
  subject        TEXT NOT NULL,
  message        TEXT NOT NULL,
  attachment_url TEXT,
  status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','reviewed','resolved')),
  admin_notes    TEXT,
  created_at     TIMESTAMPTZ NOT NULL,
  updated_at     TIMESTAMPTZ NOT NULL
)`,

	`CREATE TABLE IF NOT EXISTS system_metrics (
  id                  TEXT PRIMARY KEY,
  metric_date         DATE NOT NULL UNIQUE,
  total_analyses      INTEGER NOT NULL DEFAULT 0,
  normal_cases        INTEGER NOT NULL DEFAULT 0,
  abnormal_cases      INTEGER NOT NULL DEFAULT 0,
  avg_confidence      DOUBLE PRECISION,
  avg_processing_time DOUBLE PRECISION,
  active_users        INTEGER NOT NULL DEFAULT 0,
  created_at          TIMESTAMPTZ NOT NULL
)`,
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
