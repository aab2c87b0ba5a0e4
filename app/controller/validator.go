package controller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dbforge/mongomigrate/app/entity"
)

var ErrSameEndpoint = errors.New("source and target endpoints are identical")
var ErrProtectedDatabase = errors.New("database is system-reserved")

var protectedDatabases = []string{"admin", "local", "config"}

// productionMarkers flag endpoints that look like managed or production
// deployments; migrating into them demands the high-friction token.
var productionMarkers = []string{"prod", "production", "atlas", "amazonaws", "azure"}

// ValidateRequest applies the safety policy checks, first violation wins.
// It performs no network activity.
func ValidateRequest(request entity.MigrationRequest) error {
	if request.SourceURI == request.TargetURI {
		return fmt.Errorf("%w: %s", ErrSameEndpoint, request.SourceURI)
	}
	for _, name := range protectedDatabases {
		if request.Database == name {
			return fmt.Errorf("%w: %s", ErrProtectedDatabase, request.Database)
		}
	}
	return nil
}

// LooksProduction reports whether an endpoint matches any production marker,
// case-insensitively.
func LooksProduction(endpoint string) bool {
	lowered := strings.ToLower(endpoint)
	for _, marker := range productionMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
