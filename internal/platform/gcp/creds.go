package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

type credentialSource string

const (
	credsInlineJSON credentialSource = "inline_json"
	credsFile       credentialSource = "file"
	credsDefault    credentialSource = "application_default"
)

// readOnlyClientOptions scopes the storage client to reads; document sources
// are never written back. Inline JSON wins over a credentials file path.
func readOnlyClientOptions() ([]option.ClientOption, credentialSource) {
	opts := []option.ClientOption{option.WithScopes(storageReadOnlyScope)}
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")); inline != "" {
		return append(opts, option.WithCredentialsJSON([]byte(inline))), credsInlineJSON
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	switch {
	case path == "":
		return opts, credsDefault
	case strings.HasPrefix(path, "{"):
		// Some deploy tooling stuffs the JSON into the path variable.
		return append(opts, option.WithCredentialsJSON([]byte(path))), credsInlineJSON
	default:
		return append(opts, option.WithCredentialsFile(path)), credsFile
	}
}
