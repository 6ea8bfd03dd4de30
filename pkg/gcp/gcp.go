// Package gcp holds the bits shared by the Pub/Sub and BigQuery clients.
package gcp

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
)

var ErrProjectIDRequired = errors.New("gcp project id is required")

// ProjectID returns the trimmed project or ErrProjectIDRequired.
func ProjectID(cfg config.GCPConfig) (string, error) {
	id := strings.TrimSpace(cfg.ProjectID)
	if id == "" {
		return "", ErrProjectIDRequired
	}
	return id, nil
}

// ClientOptions picks inline JSON credentials over a credentials file and
// falls back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// ResourceName expands a short ID to projects/<project>/<collection>/<id>.
// Fully qualified names for the same collection pass through unchanged.
func ResourceName(project, collection, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+collection+"/") {
		return id
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/" + collection + "/" + id
}

// IsNotFound recognises both REST and gRPC not-found responses.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return status.Code(err) == codes.NotFound
}
