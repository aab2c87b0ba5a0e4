package controller

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/dbforge/mongomigrate/app/entity"
	"github.com/dbforge/mongomigrate/app/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrDeclined = errors.New("migration declined by operator")
var ErrSourceDatabaseMissing = errors.New("source database not found")
var ErrEmptyArtifact = errors.New("dump produced a missing or empty archive")

type PipelineUseCase interface {
	Run(ctx context.Context, request entity.MigrationRequest) error
	Cleanup()
}

// Pipeline runs one migration top to bottom: safety checks, probes,
// confirmations, disk guard, dump, restore, verification and backups.
// Fatal errors abort; ErrDeclined means the operator said no at a gate.
type Pipeline struct {
	storage    repo.StorageRepository
	journal    repo.JournalRepository
	executor   CommandExecutor
	prober     Prober
	prompter   Prompter
	s3Client   S3ClientRepository
	s3Enabled  bool
	logger     *zap.SugaredLogger
	sizeWarnMB float64
	minFreeMB  int64

	mu          sync.Mutex
	tempFiles   []string
	cleanupOnce sync.Once
}

func NewPipeline(storage repo.StorageRepository, journal repo.JournalRepository,
	executor CommandExecutor, prober Prober, prompter Prompter, s3Client S3ClientRepository,
	s3Enabled bool, logger *zap.SugaredLogger, sizeWarnMB float64, minFreeMB int64) *Pipeline {
	return &Pipeline{
		storage:    storage,
		journal:    journal,
		executor:   executor,
		prober:     prober,
		prompter:   prompter,
		s3Client:   s3Client,
		s3Enabled:  s3Enabled,
		logger:     logger,
		sizeWarnMB: sizeWarnMB,
		minFreeMB:  minFreeMB,
	}
}

func (p *Pipeline) Run(ctx context.Context, request entity.MigrationRequest) error {
	run := entity.Run{
		RunID:     uuid.New().String(),
		Source:    request.SourceURI,
		Target:    request.TargetURI,
		Database:  request.Database,
		Status:    entity.RunStatusQueued,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	p.recordRun(ctx, run)

	err := p.migrate(ctx, request, &run)

	run.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	switch {
	case err == nil:
		run.Status = entity.RunStatusSuccessful
	case errors.Is(err, ErrDeclined):
		run.Status = entity.RunStatusDeclined
	default:
		run.Status = entity.RunStatusFailed
		run.Err = err.Error()
	}
	p.recordRun(ctx, run)
	return err
}

func (p *Pipeline) migrate(ctx context.Context, request entity.MigrationRequest, run *entity.Run) error {
	if err := ValidateRequest(request); err != nil {
		return err
	}

	if LooksProduction(request.TargetURI) {
		p.logger.Warnf("target endpoint %s looks like a production deployment", request.TargetURI)
		ok, err := p.prompter.ConfirmToken("You are about to write into what looks like a production database.", "YES")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: production endpoint not confirmed", ErrDeclined)
		}
	}

	if err := p.executor.CheckTools(); err != nil {
		return err
	}

	source, err := p.prober.Connect(ctx, request.SourceURI)
	if err != nil {
		return fmt.Errorf("source endpoint unreachable: %w", err)
	}
	defer func() {
		if cerr := source.Close(ctx); cerr != nil {
			p.logger.Warnf("failed to close source connection: %v", cerr)
		}
	}()

	target, err := p.prober.Connect(ctx, request.TargetURI)
	if err != nil {
		return fmt.Errorf("target endpoint unreachable: %w", err)
	}
	defer func() {
		if cerr := target.Close(ctx); cerr != nil {
			p.logger.Warnf("failed to close target connection: %v", cerr)
		}
	}()

	probe, err := p.inventory(ctx, request, source, target)
	if err != nil {
		return err
	}

	withBackups, err := p.confirmations(probe)
	if err != nil {
		return err
	}

	if err := p.diskGuard(); err != nil {
		return err
	}

	run.Status = entity.RunStatusProcessing
	p.recordRun(ctx, *run)

	artifact, err := p.export(ctx, request)
	if err != nil {
		return err
	}

	var backupFiles []string
	if withBackups {
		if backupPath, berr := p.storage.CopyToBackups(artifact.Path, repo.SourceBackupPrefix, request.Database); berr != nil {
			p.logger.Warnf("failed to back up source archive: %v (migration continues, the dump itself is intact)", berr)
		} else {
			backupFiles = append(backupFiles, backupPath)
			p.logger.Infof("source backup written to %s", backupPath)
		}
	}

	if err := p.executor.Restore(ctx, request.TargetURI, request.Database, artifact.Path); err != nil {
		p.logger.Errorf("restore failed; the source database was not modified at any point")
		return fmt.Errorf("import into target failed (source data is untouched): %w", err)
	}

	p.verify(ctx, source, target, request.Database)

	if withBackups {
		backupFiles = p.finalizeBackups(ctx, request, backupFiles)
		if p.s3Enabled && len(backupFiles) > 0 {
			prefix := path.Join("mongomigrate", request.Database)
			if s3err := p.s3Client.UploadFiles(ctx, backupFiles, prefix); s3err != nil {
				p.logger.Warnf("failed to upload backups to s3: %v", s3err)
			} else {
				p.logger.Infof("uploaded %d backup archive(s) to s3 under %s", len(backupFiles), prefix)
			}
		}
		if all, lerr := p.storage.ListBackups(request.Database); lerr == nil {
			p.logger.Infof("%d backup archive(s) for %s in the backup directory", len(all), request.Database)
		}
	}

	p.logger.Infof("migration of %s finished", request.Database)
	return nil
}

// inventory gathers the read-only facts that drive the confirmation gates.
// Connectivity and source existence are hard prerequisites; stats are not.
func (p *Pipeline) inventory(ctx context.Context, request entity.MigrationRequest, source Endpoint, target Endpoint) (entity.ProbeResult, error) {
	var probe entity.ProbeResult

	exists, err := source.DatabaseExists(ctx, request.Database)
	if err != nil {
		return probe, fmt.Errorf("failed to check source database: %w", err)
	}
	if !exists {
		return probe, fmt.Errorf("%w: %s on %s", ErrSourceDatabaseMissing, request.Database, request.SourceURI)
	}

	sizeMB, err := source.DataSizeMB(ctx, request.Database)
	if err != nil {
		p.logger.Warnf("could not read source size stats: %v (size unknown)", err)
	} else {
		probe.SourceSizeMB = sizeMB
		probe.SourceSizeKnown = true
		if sizeMB > p.sizeWarnMB {
			p.logger.Warnf("source database is large (%.0f MB); the transfer may take a while", sizeMB)
		} else {
			p.logger.Infof("source database size: %.1f MB", sizeMB)
		}
	}

	targetExists, err := target.DatabaseExists(ctx, request.Database)
	if err != nil {
		p.logger.Warnf("could not check target database: %v", err)
		return probe, nil
	}
	probe.TargetExists = targetExists
	if targetExists {
		count, err := target.CollectionCount(ctx, request.Database)
		if err != nil {
			p.logger.Warnf("could not count target collections: %v", err)
		} else {
			probe.TargetCollections = count
		}
	}
	return probe, nil
}

func (p *Pipeline) confirmations(probe entity.ProbeResult) (bool, error) {
	withBackups, err := p.prompter.Confirm("Create backup archives of source and target?")
	if err != nil {
		return false, err
	}

	if probe.TargetExists && probe.TargetCollections >= 1 {
		p.logger.Warnf("target database already holds %d collection(s); restore merges into them and never overwrites existing documents", probe.TargetCollections)
		ok, err := p.prompter.Confirm("Merge into the existing target database?")
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("%w: merge into existing target not confirmed", ErrDeclined)
		}
	}

	ok, err := p.prompter.Confirm("Continue with the migration?")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w: final confirmation not given", ErrDeclined)
	}
	return withBackups, nil
}

func (p *Pipeline) diskGuard() error {
	freeMB, err := p.storage.FreeSpaceMB()
	if err != nil {
		p.logger.Warnf("could not determine free disk space: %v", err)
		return nil
	}
	if freeMB < p.minFreeMB {
		p.logger.Warnf("only %d MB free on the temp filesystem (threshold %d MB)", freeMB, p.minFreeMB)
		ok, err := p.prompter.Confirm("Proceed despite low disk space?")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: low disk space not accepted", ErrDeclined)
		}
		return nil
	}
	p.logger.Infof("%d MB free on the temp filesystem", freeMB)
	return nil
}

func (p *Pipeline) export(ctx context.Context, request entity.MigrationRequest) (entity.ArchiveArtifact, error) {
	artifactPath := p.storage.TempArtifactPath(request.Database)
	p.trackTemp(artifactPath)

	if err := p.executor.Dump(ctx, request.SourceURI, request.Database, artifactPath); err != nil {
		return entity.ArchiveArtifact{}, fmt.Errorf("export from source failed: %w", err)
	}

	artifact, err := p.storage.ArtifactInfo(artifactPath)
	if err != nil || artifact.Size == 0 {
		return entity.ArchiveArtifact{}, fmt.Errorf("%w: %s", ErrEmptyArtifact, artifactPath)
	}
	artifact.Origin = request.SourceURI
	p.logger.Infof("exported %s into %s (%d bytes)", request.Database, artifact.Path, artifact.Size)
	return artifact, nil
}

// verify compares collection counts after the import. Counts are a health
// signal, not a correctness proof, so a mismatch only warns.
func (p *Pipeline) verify(ctx context.Context, source Endpoint, target Endpoint, database string) {
	sourceCount, err := source.CollectionCount(ctx, database)
	if err != nil {
		p.logger.Warnf("post-transfer verification skipped: %v", err)
		return
	}
	targetCount, err := target.CollectionCount(ctx, database)
	if err != nil {
		p.logger.Warnf("post-transfer verification skipped: %v", err)
		return
	}
	if targetCount < sourceCount {
		p.logger.Warnf("target has %d collection(s), source has %d; inspect the restore log output", targetCount, sourceCount)
		return
	}
	p.logger.Infof("verified: target holds %d collection(s), source %d", targetCount, sourceCount)
}

// finalizeBackups re-dumps the migrated target into a second archive. The
// migration already succeeded, so every failure in here only warns.
func (p *Pipeline) finalizeBackups(ctx context.Context, request entity.MigrationRequest, backupFiles []string) []string {
	postArtifact := p.storage.TempArtifactPath(request.Database)
	p.trackTemp(postArtifact)

	if err := p.executor.Dump(ctx, request.TargetURI, request.Database, postArtifact); err != nil {
		p.logger.Warnf("failed to dump target for backup: %v", err)
		return backupFiles
	}
	backupPath, err := p.storage.CopyToBackups(postArtifact, repo.TargetBackupPrefix, request.Database)
	if err != nil {
		p.logger.Warnf("failed to back up target archive: %v", err)
		return backupFiles
	}
	p.logger.Infof("target backup written to %s", backupPath)
	if err := p.storage.Remove(postArtifact); err != nil {
		p.logger.Warnf("failed to remove intermediate archive: %v", err)
	}
	return append(backupFiles, backupPath)
}

func (p *Pipeline) trackTemp(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tempFiles = append(p.tempFiles, path)
}

// Cleanup removes every temp artifact this run created. It is registered for
// normal exit and for signal-driven termination, and is safe to call twice.
func (p *Pipeline) Cleanup() {
	p.cleanupOnce.Do(func() {
		p.mu.Lock()
		files := make([]string, len(p.tempFiles))
		copy(files, p.tempFiles)
		p.mu.Unlock()
		for _, file := range files {
			if err := p.storage.Remove(file); err != nil {
				p.logger.Warnf("cleanup: %v", err)
			}
		}
	})
}

func (p *Pipeline) recordRun(ctx context.Context, run entity.Run) {
	if err := p.journal.UpdateRun(ctx, run); err != nil {
		p.logger.Warnf("failed to record run in journal: %v", err)
	}
}
