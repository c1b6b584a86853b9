package analyses

import (
	"fmt"
	"strings"
	"time"
)

// MaxUploadBytes is the largest accepted upload (500MB).
const MaxUploadBytes int64 = 500 << 20

var acceptedTypes = map[string]bool{
	"video/mp4":       true,
	"video/avi":       true,
	"video/x-msvideo": true,
	"video/quicktime": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// CheckUpload validates the declared content type and size of an upload.
func CheckUpload(contentType string, size int64) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !acceptedTypes[ct] {
		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, contentType)
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	return nil
}

// BlobKey builds the storage key {user_id}/{unix_millis}.{ext}. The extension
// is whatever follows the last dot of the file name, or the whole name if it
// has none.
func BlobKey(userID, fileName string, at time.Time) string {
	ext := fileName
	if i := strings.LastIndexByte(fileName, '.'); i >= 0 {
		ext = fileName[i+1:]
	}
	return fmt.Sprintf("%s/%d.%s", userID, at.UnixMilli(), ext)
}
