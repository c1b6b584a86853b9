package analyses

import "errors"

var (
	ErrNotFound            = errors.New("analysis not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConflict            = errors.New("analysis status changed concurrently")
	ErrInvalidStatus       = errors.New("invalid analysis status")
	ErrInvalidSeverity     = errors.New("invalid severity")
	ErrInvalidAnalysis     = errors.New("invalid analysis")
	ErrNotCompleted        = errors.New("analysis is not completed")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)
