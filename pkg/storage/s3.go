package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxEvidenceFileSize is the maximum allowed size for a payment screenshot (5MB).
	MaxEvidenceFileSize = 5 * 1024 * 1024
	// FolderEvidence is the S3 prefix for payment evidence objects.
	FolderEvidence = "evidence"
)

// Allowed screenshot MIME types and extensions.
var (
	AllowedEvidenceTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}
	AllowedEvidenceExtensions = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
	}
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	EvidenceBucket       string
	PresignExpireMinutes int
}

// S3 stores payment evidence screenshots with validation and pre-signed review URLs.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
	} else if logger != nil {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ValidateEvidenceFileType returns true if the content type and/or extension are allowed.
func ValidateEvidenceFileType(contentType, filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	if contentType != "" {
		if _, ok := AllowedEvidenceTypes[strings.ToLower(contentType)]; ok {
			return true
		}
	}
	if ext != "" {
		if _, ok := AllowedEvidenceExtensions[ext]; ok {
			return true
		}
	}
	return false
}

// EvidenceKey returns the S3 object key for a screenshot: evidence/{event_id}/{random}{ext}.
func EvidenceKey(eventID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := AllowedEvidenceExtensions[ext]; !ok {
		ext = ".jpg"
	}
	return path.Join(FolderEvidence, eventID, uuid.New().String()+ext)
}

// StoreEvidence uploads a payment screenshot and returns its object key and URL.
func (s *S3) StoreEvidence(ctx context.Context, eventID, filename, contentType string, body io.Reader, size int64) (key, url string, err error) {
	if size > MaxEvidenceFileSize {
		return "", "", fmt.Errorf("evidence file too large: %d bytes", size)
	}
	if !ValidateEvidenceFileType(contentType, filename) {
		return "", "", fmt.Errorf("unsupported evidence file type: %s", contentType)
	}
	key = EvidenceKey(eventID, filename)
	var contentLengthPtr *int64
	if size > 0 {
		contentLengthPtr = &size
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.EvidenceBucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
	})
	if err != nil {
		return "", "", fmt.Errorf("upload evidence: %w", err)
	}
	url = fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.EvidenceBucket, s.cfg.Region, key)
	return key, url, nil
}

// PresignEvidenceURL returns a pre-signed GET URL so staff can view a screenshot during review.
func (s *S3) PresignEvidenceURL(ctx context.Context, key string) (string, error) {
	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.EvidenceBucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.PresignExpire()
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// DeleteEvidence removes an evidence object left orphaned when a submit failed
// after the upload.
func (s *S3) DeleteEvidence(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.EvidenceBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	return nil
}
