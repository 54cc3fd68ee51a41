package media

import (
	"path"
	"strings"

	"github.com/yungbote/moldindex-backend/internal/domain"
)

var (
	imageExtensions = map[string]struct{}{"png": {}, "jpg": {}, "jpeg": {}, "gif": {}}
	videoExtensions = map[string]struct{}{"mp4": {}, "mov": {}}
)

// DefaultAllowedExtensions is every extension the catalog can classify.
var DefaultAllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "mp4", "mov"}

// Policy decides which uploads are accepted and what media type they become.
type Policy struct {
	allowed map[string]struct{}
}

// NewPolicy builds a policy from an allowed-extension list. Extensions outside the
// image/video sets are ignored since they could never be classified.
func NewPolicy(allowed []string) Policy {
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	p := Policy{allowed: map[string]struct{}{}}
	for _, ext := range allowed {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" {
			continue
		}
		_, img := imageExtensions[ext]
		_, vid := videoExtensions[ext]
		if img || vid {
			p.allowed[ext] = struct{}{}
		}
	}
	return p
}

// Classify returns the media type for filename, or ok=false when the file must be skipped.
func (p Policy) Classify(filename string) (domain.MediaType, bool) {
	ext := Extension(filename)
	if _, ok := p.allowed[ext]; !ok {
		return "", false
	}
	if _, ok := videoExtensions[ext]; ok {
		return domain.MediaTypeVideo, true
	}
	return domain.MediaTypeImage, true
}

// Extension is the lower-cased text after the last dot, without the dot.
func Extension(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}

// ContentType maps a key or filename to the MIME type it is served with.
func ContentType(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(s, ".mov"):
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
