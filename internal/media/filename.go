package media

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
)

// SanitizeFilename reduces an uploaded filename to a safe single path segment:
// ASCII only, separators turned into spaces, whitespace runs joined with "_",
// and only letters, digits, "_", "." and "-" kept.
func SanitizeFilename(name string) (string, error) {
	decomposed := norm.NFKD.String(name)
	var ascii strings.Builder
	for _, r := range decomposed {
		if r < unicode.MaxASCII {
			ascii.WriteRune(r)
		}
	}
	s := strings.NewReplacer("/", " ", "\\", " ").Replace(ascii.String())
	s = strings.Join(strings.Fields(s), "_")

	var out strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			out.WriteRune(r)
		}
	}
	clean := strings.Trim(out.String(), "._")
	if clean == "" {
		return "", apierr.Validation("invalid_filename", "filename %q has no usable characters", name)
	}
	return clean, nil
}

// StoredName is the name a blob is kept under. It is the sanitized filename unless
// sanitizing loses the stem or the extension (names in non-Latin scripts), in which case
// a random stem carries the original extension.
func StoredName(original string) (string, error) {
	ext := Extension(original)
	clean, err := SanitizeFilename(original)
	if err == nil && Extension(clean) == ext && stem(clean) != "" {
		return clean, nil
	}
	if ext == "" {
		if err == nil {
			err = apierr.Validation("invalid_filename", "filename %q has no extension", original)
		}
		return "", err
	}
	if cleanExt, extErr := SanitizeFilename(ext); extErr != nil || cleanExt != ext {
		return "", apierr.Validation("invalid_filename", "filename %q has an unusable extension", original)
	}
	return uuid.New().String() + "." + ext, nil
}

// UniqueName keeps name's stem and extension and inserts a random suffix between them.
func UniqueName(name string) string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	ext := Extension(name)
	if ext == "" {
		return name + "-" + suffix
	}
	return stem(name) + "-" + suffix + name[len(name)-len(ext)-1:]
}

func stem(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name
	}
	return name[:i]
}
