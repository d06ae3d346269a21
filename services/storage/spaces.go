package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// SpacesConfig holds configuration for the Spaces (S3 compatible) store
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	CDNURL    string
	Prefix    string
}

// SpacesStore stores uploads in a DigitalOcean Spaces bucket
type SpacesStore struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
	cdnURL   string
	prefix   string
}

// NewSpacesStore creates a new Spaces store
func NewSpacesStore(config SpacesConfig) (*SpacesStore, error) {
	if config.Bucket == "" || config.Region == "" {
		return nil, fmt.Errorf("DO_SPACES_BUCKET and DO_SPACES_REGION must be configured")
	}
	if config.AccessKey == "" || config.SecretKey == "" {
		return nil, fmt.Errorf("DO_SPACES_ACCESS_KEY and DO_SPACES_SECRET_KEY must be configured")
	}

	// Default endpoint without scheme, used for URL construction
	endpoint := strings.TrimPrefix(config.Endpoint, "https://")
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s.digitaloceanspaces.com", config.Region)
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String("https://" + endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	prefix := strings.Trim(config.Prefix, "/")
	if prefix == "" {
		prefix = "uploads"
	}

	return &SpacesStore{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
		endpoint: endpoint,
		cdnURL:   strings.TrimRight(config.CDNURL, "/"),
		prefix:   prefix,
	}, nil
}

func (s *SpacesStore) objectKey(key string) string {
	return s.prefix + "/" + key
}

func (s *SpacesStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          aws.ReadSeekCloser(r),
		ACL:           aws.String("public-read"),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return s.URL(key), nil
}

func (s *SpacesStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *SpacesStore) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	err := s.s3Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "/"),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:     strings.TrimPrefix(aws.StringValue(obj.Key), s.prefix+"/"),
				Size:    aws.Int64Value(obj.Size),
				ModTime: aws.TimeValue(obj.LastModified),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return objects, nil
}

// URL returns the CDN URL if configured, otherwise the bucket URL
func (s *SpacesStore) URL(key string) string {
	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, s.objectKey(key))
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, s.endpoint, s.objectKey(key))
}

func (s *SpacesStore) Driver() string {
	return "spaces"
}
