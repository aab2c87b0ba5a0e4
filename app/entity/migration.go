package entity

// MigrationRequest describes a single database migration. It is built once
// from the command line and never mutated afterwards.
type MigrationRequest struct {
	SourceURI string
	TargetURI string
	Database  string
}

// ArchiveArtifact is the temp dump file shared by the export and import
// steps. Artifacts are owned by one pipeline run and removed on exit.
type ArchiveArtifact struct {
	Path   string
	Origin string
	Size   int64
}

// ProbeResult carries the read-only diagnostic facts gathered before the
// transfer. Size and target inventory are best-effort.
type ProbeResult struct {
	SourceSizeMB      float64
	SourceSizeKnown   bool
	TargetExists      bool
	TargetCollections int
}
