package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is applied statement by statement; the driver runs one per Exec.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
  id            CHAR(36)     NOT NULL PRIMARY KEY,
  email         VARCHAR(255) NOT NULL UNIQUE,
  full_name     VARCHAR(255) NULL,
  role          ENUM('admin','doctor','user') NOT NULL DEFAULT 'user',
  organization  VARCHAR(255) NULL,
  password_hash VARCHAR(255) NOT NULL,
  created_at    DATETIME(3)  NOT NULL,
  updated_at    DATETIME(3)  NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS analyses (
  id                      CHAR(36)     NOT NULL PRIMARY KEY,
  user_id                 CHAR(36)     NOT NULL,
  patient_id              VARCHAR(128) NULL,
  file_name               VARCHAR(512) NOT NULL,
  file_url                TEXT         NOT NULL,
  file_type               VARCHAR(64)  NOT NULL,
  status                  ENUM('pending','processing','completed','failed') NOT NULL DEFAULT 'pending',
  severity                ENUM('healthy','mild','moderate','severe') NULL,
  condition_text          VARCHAR(255) NULL,
  confidence              DOUBLE       NULL,
  total_frames            INT          NULL,
  abnormal_frames         INT          NULL,
  region_of_interest      VARCHAR(255) NULL,
  device_model            VARCHAR(255) NULL,
  notes                   TEXT         NULL,
  ai_insights             TEXT         NULL,
  processing_time_seconds DOUBLE       NULL,
  created_at              DATETIME(3)  NOT NULL,
  completed_at            DATETIME(3)  NULL,
  INDEX idx_analyses_user_created (user_id, created_at),
  INDEX idx_analyses_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS analysis_frames (
  id                  CHAR(36)    NOT NULL PRIMARY KEY,
  analysis_id         CHAR(36)    NOT NULL,
  frame_number        INT         NOT NULL,
  timestamp_ms        BIGINT      NULL,
  is_abnormal         BOOLEAN     NOT NULL DEFAULT FALSE,
  severity            ENUM('healthy','mild','moderate','severe') NULL,
  confidence          DOUBLE      NULL,
  detected_conditions TEXT        NULL,
  overlay_data        TEXT        NULL,
  created_at          DATETIME(3) NOT NULL,
  INDEX idx_frames_analysis (analysis_id, frame_number),
  CONSTRAINT fk_frames_analysis FOREIGN KEY (analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS feedback (
  id             CHAR(36)     NOT NULL PRIMARY KEY,
  user_id        CHAR(36)     NULL,
  full_name      VARCHAR(255) NOT NULL,
  email          VARCHAR(255) NOT NULL,
  organization   VARCHAR(255) NULL,
  subject        VARCHAR(255) NOT NULL,
  message        TEXT         NOT NULL,
  attachment_url TEXT         NULL,
  status         ENUM('pending','reviewed','resolved') NOT NULL DEFAULT 'pending',
  admin_notes    TEXT         NULL,
  created_at     DATETIME(3)  NOT NULL,
  updated_at     DATETIME(3)  NOT NULL,
  INDEX idx_feedback_status_created (status, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS system_metrics (
  id                  CHAR(36)    NOT NULL PRIMARY KEY,
  metric_date         DATE        NOT NULL UNIQUE,
  total_analyses      INT         NOT NULL DEFAULT 0,
  normal_cases        INT         NOT NULL DEFAULT 0,
  abnormal_cases      INT         NOT NULL DEFAULT 0,
  avg_confidence      DOUBLE      NULL,
  avg_processing_time DOUBLE      NULL,
  active_users        INT         NOT NULL DEFAULT 0,
  created_at          DATETIME(3) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
