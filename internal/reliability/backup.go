// Package reliability handles off-box durability for the pipeline's single
// embedded-file store: periodic snapshot, compression, checksum, and
// optional upload to an S3-compatible bucket. It snapshots to a staging
// directory, tar+gzips, checksums, then hands the archive to an
// object-storage client.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

// BackupConfig controls where snapshots are staged and, optionally, where
// they are uploaded.
type BackupConfig struct {
	DataDir     string
	AccessKey   string
	SecretKey   string
	Bucket      string
	Endpoint    string // S3-compatible endpoint (e.g. R2 account endpoint)
}

// BackupService snapshots the embedded store and, when S3 credentials are
// configured, uploads the compressed archive off-box. Absent credentials,
// it writes locally only.
type BackupService struct {
	cfg BackupConfig
	s3  *s3.Client // nil when no credentials are configured
	log zerolog.Logger
}

// NewBackupService builds a BackupService. The S3 client is constructed
// once here (not on every backup call) since credential resolution is a
// one-time cost.
func NewBackupService(cfg BackupConfig, log zerolog.Logger) *BackupService {
	svc := &BackupService{cfg: cfg, log: log.With().Str("component", "reliability").Logger()}
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return svc
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load S3 config, backups will be local-only")
		return svc
	}
	svc.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})
	return svc
}

// Snapshot runs VACUUM INTO on the store to a staging file, tars+gzips it
// alongside the JSON feed mirror, and uploads the result when an S3 client
// is configured. Returns the local archive path.
func (b *BackupService) Snapshot(ctx context.Context, db *store.Store) (string, error) {
	stagingDir := filepath.Join(b.cfg.DataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	snapshotPath := filepath.Join(stagingDir, "market_intelligence.db")
	if _, err := db.Conn().ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", snapshotPath)); err != nil {
		return "", fmt.Errorf("vacuum snapshot: %w", err)
	}

	feedPath := filepath.Join(b.cfg.DataDir, "news_feed.json")
	files := []string{snapshotPath}
	if _, err := os.Stat(feedPath); err == nil {
		files = append(files, feedPath)
	}

	timestamp := time.Now().UTC().Format("2006-01-02-150405")
	archiveName := fmt.Sprintf("market-intelligence-backup-%s.tar.gz", timestamp)
	archivePath := filepath.Join(b.cfg.DataDir, archiveName)

	checksum, err := createArchive(archivePath, files)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	b.log.Info().Str("archive", archiveName).Str("sha256", checksum).Msg("backup snapshot created")

	if b.s3 != nil {
		if err := b.upload(ctx, archivePath, archiveName); err != nil {
			b.log.Error().Err(err).Msg("backup archive upload failed, kept locally")
			return archivePath, nil
		}
		b.log.Info().Str("bucket", b.cfg.Bucket).Str("archive", archiveName).Msg("backup uploaded")
	}
	return archivePath, nil
}

func (b *BackupService) upload(ctx context.Context, archivePath, key string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	_, err = b.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func createArchive(archivePath string, files []string) (checksum string, err error) {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	defer archiveFile.Close()

	hasher := sha256.New()
	gw := gzip.NewWriter(io.MultiWriter(archiveFile, hasher))
	tw := tar.NewWriter(gw)

	for _, path := range files {
		if err := addFileToTar(tw, path); err != nil {
			return "", err
		}
	}
	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := gw.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func addFileToTar(tw *tar.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
