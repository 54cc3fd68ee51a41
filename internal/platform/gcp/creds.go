package gcp

import (
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Credentials holds the service-account material for the gcs mode. JSON wins over File;
// both empty means application default credentials.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) clientOptions() []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeFullControl)}
	if js := strings.TrimSpace(c.JSON); js != "" {
		return append(opts, option.WithCredentialsJSON([]byte(js)))
	}
	file := strings.TrimSpace(c.File)
	switch {
	case file == "":
		return opts
	case strings.HasPrefix(file, "{"):
		// Inline JSON pasted into the file variable.
		return append(opts, option.WithCredentialsJSON([]byte(file)))
	default:
		return append(opts, option.WithCredentialsFile(file))
	}
}
