package controller

import (
	"errors"
	"testing"

	"github.com/dbforge/mongomigrate/app/entity"
)

func TestValidateRequest(t *testing.T) {
	testCases := []struct {
		name          string
		request       entity.MigrationRequest
		expectedError error
	}{
		{
			name: "valid request",
			request: entity.MigrationRequest{
				SourceURI: "mongodb://srcHost:27017",
				TargetURI: "mongodb://dstHost:27017",
				Database:  "app",
			},
			expectedError: nil,
		},
		{
			name: "identical endpoints",
			request: entity.MigrationRequest{
				SourceURI: "mongodb://srcHost:27017",
				TargetURI: "mongodb://srcHost:27017",
				Database:  "app",
			},
			expectedError: ErrSameEndpoint,
		},
		{
			name: "admin database",
			request: entity.MigrationRequest{
				SourceURI: "mongodb://srcHost:27017",
				TargetURI: "mongodb://dstHost:27017",
				Database:  "admin",
			},
			expectedError: ErrProtectedDatabase,
		},
		{
			name: "local database",
			request: entity.MigrationRequest{
				SourceURI: "mongodb://srcHost:27017",
				TargetURI: "mongodb://dstHost:27017",
				Database:  "local",
			},
			expectedError: ErrProtectedDatabase,
		},
		{
			name: "config database",
			request: entity.MigrationRequest{
				SourceURI: "mongodb://srcHost:27017",
				TargetURI: "mongodb://dstHost:27017",
				Database:  "config",
			},
			expectedError: ErrProtectedDatabase,
		},
		{
			name: "same endpoint wins over protected database",
			request: entity.MigrationRequest{
				SourceURI: "mongodb://srcHost:27017",
				TargetURI: "mongodb://srcHost:27017",
				Database:  "admin",
			},
			expectedError: ErrSameEndpoint,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(tc.request)
			if !errors.Is(err, tc.expectedError) {
				t.Fatalf("Expected error %v, got %v", tc.expectedError, err)
			}
		})
	}
}

func TestLooksProduction(t *testing.T) {
	testCases := []struct {
		name     string
		endpoint string
		expected bool
	}{
		{name: "plain host", endpoint: "mongodb://localhost:27017", expected: false},
		{name: "prod substring", endpoint: "mongodb://db-prod-01:27017", expected: true},
		{name: "uppercase prod", endpoint: "mongodb://DB-PROD:27017", expected: true},
		{name: "atlas cluster", endpoint: "mongodb+srv://cluster0.abcde.mongodb.Atlas.net", expected: true},
		{name: "aws host", endpoint: "mongodb://ec2-1-2-3-4.compute.amazonaws.com:27017", expected: true},
		{name: "azure host", endpoint: "mongodb://db.azure.example.com:27017", expected: true},
		{name: "staging host", endpoint: "mongodb://db-staging:27017", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LooksProduction(tc.endpoint); got != tc.expected {
				t.Fatalf("Expected %v for %s, got %v", tc.expected, tc.endpoint, got)
			}
		})
	}
}
