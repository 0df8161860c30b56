package blob

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

var unsafeName = regexp.MustCompile(`[^\w\-.]`)

// UploadError reports a failed blob write for a single key.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SanitizeFilename replaces every character outside [A-Za-z0-9_.-] with an underscore.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return unsafeName.ReplaceAllString(name, "_")
}

// Key composes an object key from a prefix, a timestamp and the file name.
// Distinct runs never share a key because the timestamp has nanosecond resolution.
func Key(prefix, filename string, now time.Time) string {
	name := fmt.Sprintf("%d-%s", now.UnixNano(), SanitizeFilename(filename))
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// PublicURL joins a base URL and an object key.
func PublicURL(base, key string) string {
	base = strings.TrimRight(base, "/")
	escaped := make([]string, 0, strings.Count(key, "/")+1)
	for _, seg := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	return base + "/" + strings.Join(escaped, "/")
}
