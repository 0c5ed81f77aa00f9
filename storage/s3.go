package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// S3Pinner stores documents in Amazon S3 or a compatible service under their CIDv1.
type S3Pinner struct {
	client     s3iface.S3API
	bucketName string
	prefix     string
	gatewayURL string
	log        *slog.Logger
}

// NewS3Pinner creates an S3 pinner. Without accessKey and secretKey the default AWS
// credential chain is used. Retrieval URLs are built from gatewayURL when set,
// otherwise from the endpoint or the virtual-hosted bucket URL.
func NewS3Pinner(bucketName, prefix, region, endpoint, accessKey, secretKey, gatewayURL string, log *slog.Logger) (*S3Pinner, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	if gatewayURL == "" {
		if endpoint != "" {
			gatewayURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(endpoint, "/"), bucketName)
		} else {
			gatewayURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucketName, region)
		}
	}

	return newS3Pinner(s3.New(sess), bucketName, prefix, gatewayURL, log), nil
}

func newS3Pinner(client s3iface.S3API, bucketName, prefix, gatewayURL string, log *slog.Logger) *S3Pinner {
	return &S3Pinner{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		log:        log,
	}
}

// Pin uploads data keyed by its locally computed CID. Pin metadata is stored as object metadata.
func (b *S3Pinner) Pin(ctx context.Context, data []byte, meta interfaces.PinMetadata) (*interfaces.PinResult, error) {
	start := time.Now()

	cid, err := ComputeCID(data)
	if err != nil {
		return nil, &interfaces.PinningError{Backend: b.Name(), Err: err}
	}
	key := b.objectKey(cid)

	objectMeta := make(map[string]*string, len(meta.KeyValues)+1)
	if meta.Name != "" {
		objectMeta["name"] = aws.String(meta.Name)
	}
	for k, v := range meta.KeyValues {
		objectMeta[k] = aws.String(v)
	}

	_, err = b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(b.bucketName),
		Key:      aws.String(key),
		Body:     bytes.NewReader(data),
		Metadata: objectMeta,
	})
	if err != nil {
		b.log.Error("Failed to upload object to S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, &interfaces.PinningError{Backend: b.Name(), Err: fmt.Errorf("failed to upload object to S3: %w", err)}
	}

	b.log.Debug("Stored document in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Duration("duration", time.Since(start)))

	return &interfaces.PinResult{
		CID:       cid,
		URL:       b.GatewayURL(cid),
		Size:      int64(len(data)),
		Timestamp: time.Now().UTC(),
	}, nil
}

func (b *S3Pinner) GatewayURL(cid string) string {
	return fmt.Sprintf("%s/%s", b.gatewayURL, b.objectKey(cid))
}

// Available checks if the bucket is accessible.
func (b *S3Pinner) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err)
		return false
	}
	return true
}

func (b *S3Pinner) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

func (b *S3Pinner) objectKey(cid string) string {
	if b.prefix == "" {
		return cid
	}
	return path.Join(b.prefix, cid)
}
