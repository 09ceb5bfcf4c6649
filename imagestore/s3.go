package imagestore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type S3Config struct {
	Bucket string
	Region string
	// PublicURL is the base URL objects of the bucket are served from.
	PublicURL string
}

// S3Uploader stores images in an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	cfg    S3Config
	logger zerolog.Logger
}

// NewS3Uploader loads the AWS credentials from the environment.
func NewS3Uploader(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg),
		cfg:    cfg,
		logger: logger.With().Str("component", "imagestore").Logger(),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.cfg.Bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	u.logger.Debug().Str("key", key).Msg("image uploaded")
	return u.cfg.PublicURL + "/" + key, nil
}
