// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/PabloB07/mcshop/internal/config"
)

const (
	maxJarSize     = 50 << 20 // 50 MB
	localUploadDir = "./uploads"
)

// StorageService keeps plugin jars in S3, or on local disk when no AWS
// credentials are configured (development mode).
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type UploadResult struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	if cfg.AWS.AccessKeyID == "" {
		// Local disk fallback for development
		return &StorageService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// UploadJar validates and stores a plugin jar, returning its storage key.
func (s *StorageService) UploadJar(file multipart.File, header *multipart.FileHeader) (*UploadResult, error) {
	if header.Size > maxJarSize {
		return nil, fmt.Errorf("file size %d bytes exceeds maximum of %d bytes", header.Size, maxJarSize)
	}
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".jar" {
		return nil, fmt.Errorf("file type %s is not allowed, only .jar", ext)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	key := fmt.Sprintf("plugins/%s/%d%s",
		uuid.New().String(),
		time.Now().Unix(),
		filepath.Ext(header.Filename))

	if s.s3Client != nil {
		_, err := s.s3Client.PutObject(&s3.PutObjectInput{
			Bucket:        aws.String(s.config.AWS.S3Bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(content),
			ContentType:   aws.String("application/java-archive"),
			ContentLength: aws.Int64(int64(len(content))),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload to S3: %w", err)
		}
	} else {
		path := filepath.Join(localUploadDir, key)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write file: %w", err)
		}
	}

	return &UploadResult{
		Key:  key,
		Size: int64(len(content)),
	}, nil
}

// FetchJar loads a stored jar by its key.
func (s *StorageService) FetchJar(key string) ([]byte, error) {
	if s.s3Client != nil {
		out, err := s.s3Client.GetObject(&s3.GetObjectInput{
			Bucket: aws.String(s.config.AWS.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch from S3: %w", err)
		}
		defer out.Body.Close()
		return io.ReadAll(out.Body)
	}

	return os.ReadFile(filepath.Join(localUploadDir, key))
}

// DeleteJar removes a stored jar, used when an upload is superseded.
func (s *StorageService) DeleteJar(key string) error {
	if s.s3Client != nil {
		_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.config.AWS.S3Bucket),
			Key:    aws.String(key),
		})
		return err
	}

	return os.Remove(filepath.Join(localUploadDir, key))
}
