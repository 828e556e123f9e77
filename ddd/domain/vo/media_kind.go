package vo

import (
	"path/filepath"
	"strings"
)

// MediaKind distinguishes audio uploads from video containers.
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".flac": true,
	".aac": true, ".wma": true, ".aiff": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
	".flv": true, ".wmv": true, ".m4v": true, ".3gp": true,
}

// IsValid reports whether the kind is known.
func (k MediaKind) IsValid() bool {
	return k == MediaKindAudio || k == MediaKindVideo
}

// String returns the kind string.
func (k MediaKind) String() string {
	return string(k)
}

// KindFromPath derives the media kind from the file extension. The second
// return value is false for unsupported formats.
func KindFromPath(path string) (MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case audioExtensions[ext]:
		return MediaKindAudio, true
	case videoExtensions[ext]:
		return MediaKindVideo, true
	default:
		return "", false
	}
}
