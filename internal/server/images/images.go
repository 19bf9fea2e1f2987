// Package images stores uploaded campground pictures on an S3-compatible
// host and deletes them by storage key.
package images

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/google/uuid"
)

// Host accepts uploaded content and returns where it can be fetched.
type Host interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (models.Image, error)
	Delete(ctx context.Context, key string) error
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}

	now = time.Now
)

type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
	// PublicURL is the prefix under which stored keys are served.
	PublicURL string
}

type S3Host struct {
	client    objectAPI
	bucket    string
	publicURL string
}

var _ Host = (*S3Host)(nil)

func NewS3Host(ctx context.Context, c S3Config) (*S3Host, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.RootUser,
			c.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Host{
		client:    client,
		bucket:    c.Bucket,
		publicURL: strings.TrimRight(c.PublicURL, "/") + "/",
	}, nil
}

// GetRandomStorageKey returns a fresh date-partitioned key keeping the
// extension of name.
func GetRandomStorageKey(name string) string {
	d := now()
	return fmt.Sprintf("campgrounds/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), strings.ToLower(path.Ext(name)))
}

func (h *S3Host) Upload(ctx context.Context, name, contentType string, body io.Reader) (models.Image, error) {
	key := GetRandomStorageKey(name)

	in := &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := h.client.PutObject(ctx, in); err != nil {
		return models.Image{}, fmt.Errorf("%w: put object: %w", common.ErrorUpstream, err)
	}

	return models.Image{URL: h.publicURL + key, Filename: key}, nil
}

func (h *S3Host) Delete(ctx context.Context, key string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: delete object: %w", common.ErrorUpstream, err)
	}
	return nil
}
