package applicator

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dbforge/mongomigrate/app/config"
	"github.com/dbforge/mongomigrate/app/controller"
	"github.com/dbforge/mongomigrate/app/db"
	"github.com/dbforge/mongomigrate/app/entity"
	"github.com/dbforge/mongomigrate/app/repo"
	"go.uber.org/zap"
)

const ExitOK = 0
const ExitFailure = 1

type App struct {
	logger *zap.SugaredLogger
	config *config.Config
}

func NewApp(logger *zap.SugaredLogger, config *config.Config) *App {
	return &App{
		logger: logger,
		config: config,
	}
}

// Run wires the pipeline together and executes one migration. The returned
// code is the process exit code: declines are 0, fatal failures are 1.
func (a *App) Run() int {
	var cfg = a.config
	var l = a.logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageRepo := repo.NewStorageRepo(cfg.BackupDir, cfg.TempDir)

	var journal repo.JournalRepository
	dbConnections, err := db.NewConnection(cfg.JournalPath)
	if err != nil {
		l.Warnf("journal disabled, could not open %s: %v", cfg.JournalPath, err)
		journal = repo.NoopJournal{}
	} else {
		journal = repo.NewJournalRepo(dbConnections)
		defer func() {
			if errDb := dbConnections.Close(); errDb != nil {
				l.Warnf("could not close journal database: %v", errDb)
			}
		}()
	}

	executor := controller.NewExecutor(cfg.DumpCmd, cfg.RestoreCmd, l)

	prober := controller.NewMongoProber(cfg.ConnectTimeout)

	prompter := controller.NewTerminalPrompter(os.Stdin, os.Stdout)

	var s3Client controller.S3ClientRepository
	if cfg.S3Enabled {
		s3Client, err = controller.NewS3Client(ctx, cfg.S3URL, cfg.AccessKeyID, cfg.AccessKeySecret, cfg.BucketName, cfg.Region, cfg.S3SslVerify)
		if err != nil {
			l.Errorf("could not create s3 client: %v", err)
			return ExitFailure
		}
	}

	var pipeline controller.PipelineUseCase = controller.NewPipeline(storageRepo, journal, executor, prober, prompter,
		s3Client, cfg.S3Enabled, l, cfg.SizeWarnMB, cfg.MinFreeMB)
	defer pipeline.Cleanup()

	a.handleSignals(cancel, pipeline)

	request := entity.MigrationRequest{
		SourceURI: cfg.Args.Source,
		TargetURI: cfg.Args.Target,
		Database:  cfg.Args.Database,
	}

	err = pipeline.Run(ctx, request)
	if err != nil {
		if errors.Is(err, controller.ErrDeclined) {
			l.Infof("migration aborted: %v", err)
			return ExitOK
		}
		l.Errorf("migration failed: %v", err)
		return ExitFailure
	}
	return ExitOK
}

// handleSignals removes temp artifacts before dying on SIGINT/SIGTERM. The
// external tools in flight are killed through context cancellation.
func (a *App) handleSignals(cancel context.CancelFunc, pipeline controller.PipelineUseCase) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-ch
		signal.Stop(ch)
		a.logger.Warnf("received %s, cleaning up", sig)
		cancel()
		pipeline.Cleanup()
		_ = a.logger.Sync()
		os.Exit(ExitFailure)
	}()
}
