package config

import "time"

type Config struct {
	BackupDir string `long:"backup-dir" description:"Directory for persisted backup archives" default:"backups" env:"BACKUP_DIR"`
	TempDir   string `long:"temp-dir" description:"Directory for intermediate dump archives (defaults to the system temp dir)" env:"TEMP_DIR"`

	DumpCmd    string `long:"dump-cmd" description:"Command template to export a database" default:"mongodump --uri={{.uri}} --db={{.db}} --archive={{.archive}} --gzip" env:"DUMP_CMD"`
	RestoreCmd string `long:"restore-cmd" description:"Command template to import an archive" default:"mongorestore --uri={{.uri}} --nsInclude={{.db}}.* --archive={{.archive}} --gzip" env:"RESTORE_CMD"`

	ConnectTimeout time.Duration `long:"connect-timeout" description:"Timeout for endpoint connectivity probes" default:"10s"`
	MinFreeMB      int64         `long:"min-free-mb" description:"Free space threshold (MB) below which a confirmation is required" default:"1000"`
	SizeWarnMB     float64       `long:"size-warn-mb" description:"Source data size (MB) above which an advisory is printed" default:"1000"`

	JournalPath string `long:"journal-path" description:"SQLite journal file for migration history" default:"backups/history.db" env:"JOURNAL_PATH"`

	S3URL           string `long:"s3-url" description:"S3 endpoint URL for backup offload" env:"S3_URL"`
	AccessKeyID     string `long:"s3-access-key-id" description:"S3 access key ID" env:"S3_KEY_ID"`
	AccessKeySecret string `long:"s3-access-key-secret" description:"S3 access key secret" env:"S3_KEY_SECRET"`
	BucketName      string `long:"s3-bucket" description:"S3 bucket name" env:"S3_BUCKET"`
	Region          string `long:"s3-region" description:"S3 region" default:"us-east-1"`
	S3Enabled       bool   `long:"s3-enabled" description:"Upload created backups to S3" env:"S3_ENABLED"`
	S3SslVerify     bool   `long:"s3-ssl-verify" description:"Verify S3 certificates" env:"S3_SSL_VERIFY"`

	Args struct {
		Source   string `positional-arg-name:"SOURCE_URI" description:"Source MongoDB endpoint"`
		Target   string `positional-arg-name:"TARGET_URI" description:"Target MongoDB endpoint"`
		Database string `positional-arg-name:"DATABASE" description:"Database to migrate"`
	} `positional-args:"yes" required:"yes"`
}
