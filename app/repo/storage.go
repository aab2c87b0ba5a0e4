package repo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"syscall"
	"time"

	"github.com/dbforge/mongomigrate/app/entity"
)

const ArchiveNameFormat = "20060102T150405"
const SourceBackupPrefix = "from"
const TargetBackupPrefix = "to"

var ErrNoBackups = errors.New("no backups found")

type StorageRepository interface {
	TempArtifactPath(database string) string
	ArtifactInfo(path string) (entity.ArchiveArtifact, error)
	CopyToBackups(artifactPath string, prefix string, database string) (string, error)
	ListBackups(database string) ([]string, error)
	Remove(path string) error
	FreeSpaceMB() (int64, error)
}

type StorageRepo struct {
	backupDir      string
	tempDir        string
	archiveMatcher *regexp.Regexp
}

func NewStorageRepo(backupDir string, tempDir string) StorageRepository {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &StorageRepo{
		backupDir:      backupDir,
		tempDir:        tempDir,
		archiveMatcher: regexp.MustCompile(`^(from|to)_.+_\d{8}T\d{6}\.archive$`),
	}
}

// TempArtifactPath builds the intermediate dump location under the temp
// directory. The name embeds the database and a timestamp so concurrent
// migrations of different databases cannot collide.
func (s *StorageRepo) TempArtifactPath(database string) string {
	name := fmt.Sprintf("%s_%s.archive", database, time.Now().Format(ArchiveNameFormat))
	return filepath.Join(s.tempDir, name)
}

func (s *StorageRepo) ArtifactInfo(path string) (entity.ArchiveArtifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entity.ArchiveArtifact{}, fmt.Errorf("failed to stat artifact %s: %w", path, err)
	}
	return entity.ArchiveArtifact{
		Path: path,
		Size: info.Size(),
	}, nil
}

// CopyToBackups persists a temp artifact into the backup directory under the
// {from|to}_{db}_{ts}.archive pattern and returns the backup path.
func (s *StorageRepo) CopyToBackups(artifactPath string, prefix string, database string) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir %s: %w", s.backupDir, err)
	}
	name := fmt.Sprintf("%s_%s_%s.archive", prefix, database, time.Now().Format(ArchiveNameFormat))
	backupPath := filepath.Join(s.backupDir, name)
	if err := s.copyFile(artifactPath, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

func (s *StorageRepo) ListBackups(database string) ([]string, error) {
	files, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBackups
		}
		return nil, fmt.Errorf("failed to read dir %s: %v", s.backupDir, err)
	}
	var backups []string
	for _, file := range files {
		if file.IsDir() || !s.archiveMatcher.MatchString(file.Name()) {
			continue
		}
		if database != "" && !matchesDatabase(file.Name(), database) {
			continue
		}
		backups = append(backups, filepath.Join(s.backupDir, file.Name()))
	}
	if len(backups) == 0 {
		return nil, ErrNoBackups
	}
	sort.Strings(backups)
	return backups, nil
}

// Remove deletes a temp artifact. Already-absent files are not an error so
// the cleanup handler stays idempotent across exit paths.
func (s *StorageRepo) Remove(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %v", path, err)
	}
	return nil
}

// FreeSpaceMB reports free space on the filesystem holding the temp dir.
func (s *StorageRepo) FreeSpaceMB() (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.tempDir, &stat); err != nil {
		return 0, fmt.Errorf("failed to statfs %s: %v", s.tempDir, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize) / (1024 * 1024), nil
}

func (s *StorageRepo) copyFile(src string, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %v", src, cerr)
		}
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %v", dst, cerr)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %v", src, dst, err)
	}
	return nil
}

func matchesDatabase(fileName string, database string) bool {
	withoutExt := fileName[:len(fileName)-len(".archive")]
	re := regexp.MustCompile(`^(from|to)_(.+)_\d{8}T\d{6}$`)
	m := re.FindStringSubmatch(withoutExt)
	if m == nil {
		return false
	}
	return m[2] == database
}
