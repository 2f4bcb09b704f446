package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/config"
	"github.com/ivanmoreno/cartera/internal/database"
)

const (
	backupPrefix    = "cartera-backup-"
	backupTimeLabel = "2006-01-02-150405"
	backupTimeout   = 10 * time.Minute
)

// BackupService stages consistent copies of every database with VACUUM INTO,
// packs them into a tar.gz archive and uploads it to an S3-compatible bucket.
// Old archives are rotated down to the configured retention count.
type BackupService struct {
	databases map[string]*database.DB
	cfg       *config.BackupConfig
	dataDir   string
	client    *s3.Client
	uploader  *manager.Uploader
	log       zerolog.Logger
}

// backupManifest describes the databases inside an archive.
type backupManifest struct {
	Timestamp time.Time        `json:"timestamp"`
	Databases []databaseEntry `json:"databases"`
}

type databaseEntry struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// NewBackupService creates a backup service against the configured bucket.
func NewBackupService(databases map[string]*database.DB, cfg *config.BackupConfig, dataDir string, log zerolog.Logger) (*BackupService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &BackupService{
		databases: databases,
		cfg:       cfg,
		dataDir:   dataDir,
		client:    client,
		uploader:  manager.NewUploader(client),
		log:       log.With().Str("service", "backup").Logger(),
	}, nil
}

// Run creates one archive of all databases, uploads it and rotates old ones.
func (s *BackupService) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	start := time.Now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	manifest := backupManifest{
		Timestamp: time.Now().UTC(),
		Databases: make([]databaseEntry, 0, len(s.databases)),
	}

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, err := s.stageDatabase(name, stagingDir)
		if err != nil {
			return err
		}
		manifest.Databases = append(manifest.Databases, entry)
	}

	manifestPath := filepath.Join(stagingDir, "manifest.json")
	if err := writeManifest(manifestPath, manifest); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	archiveName := backupPrefix + manifest.Timestamp.Format(backupTimeLabel) + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, stagingDir, manifest.Databases); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	if err := s.upload(ctx, archivePath, archiveName); err != nil {
		return err
	}

	if err := s.rotate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	s.log.Info().
		Str("archive", archiveName).
		Int("databases", len(manifest.Databases)).
		Dur("elapsed", time.Since(start)).
		Msg("Backup completed")
	return nil
}

// stageDatabase copies one database into the staging directory. VACUUM INTO
// produces a consistent snapshot without blocking writers.
func (s *BackupService) stageDatabase(name, stagingDir string) (databaseEntry, error) {
	db := s.databases[name]
	destPath := filepath.Join(stagingDir, name+".db")

	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return databaseEntry{}, fmt.Errorf("VACUUM INTO failed for %s: %w", name, err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return databaseEntry{}, fmt.Errorf("failed to stat staged %s: %w", name, err)
	}

	checksum, err := fileChecksum(destPath)
	if err != nil {
		return databaseEntry{}, fmt.Errorf("failed to checksum staged %s: %w", name, err)
	}

	return databaseEntry{
		Name:      name,
		Filename:  name + ".db",
		SizeBytes: info.Size(),
		Checksum:  checksum,
	}, nil
}

func (s *BackupService) upload(ctx context.Context, archivePath, archiveName string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	key := path.Join(s.cfg.Prefix, archiveName)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return nil
}

// rotate deletes the oldest archives beyond the retention count. At least
// one archive always survives, whatever the configuration says.
func (s *BackupService) rotate(ctx context.Context) error {
	keep := s.cfg.Keep
	if keep < 1 {
		keep = 1
	}

	listPrefix := path.Join(s.cfg.Prefix, backupPrefix)
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(listPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list backups: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil && strings.HasSuffix(*obj.Key, ".tar.gz") {
				keys = append(keys, *obj.Key)
			}
		}
	}

	if len(keys) <= keep {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(keys)
	for _, key := range keys[:len(keys)-keep] {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete old backup %s: %w", key, err)
		}
		s.log.Info().Str("key", key).Msg("Rotated old backup")
	}

	return nil
}

func writeManifest(destPath string, manifest backupManifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0644)
}

func createArchive(archivePath, stagingDir string, entries []databaseEntry) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gzWriter := gzip.NewWriter(out)
	defer gzWriter.Close()
	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	files := []string{"manifest.json"}
	for _, entry := range entries {
		files = append(files, entry.Filename)
	}

	for _, name := range files {
		if err := addToArchive(tarWriter, filepath.Join(stagingDir, name), name); err != nil {
			return fmt.Errorf("failed to archive %s: %w", name, err)
		}
	}

	return nil
}

func addToArchive(tarWriter *tar.Writer, srcPath, name string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}

func fileChecksum(srcPath string) (string, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
