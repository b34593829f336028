package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/bulksend/internal/domain"
)

// S3Store keeps the quota state as a single JSON object in a bucket,
// for operators whose machines share state through S3 rather than a
// database.
type S3Store struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Store builds an S3-backed quota store. An empty profile uses the
// default credential chain.
func NewS3Store(ctx context.Context, bucket, key, region, profile string) (*S3Store, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		key:    key,
	}, nil
}

// Load reads the state object. A missing key is a fresh start.
func (s *S3Store) Load(ctx context.Context) (domain.DailyQuotaState, error) {
	var state domain.DailyQuotaState

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return state, nil
		}
		return state, fmt.Errorf("getting quota state from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return state, fmt.Errorf("reading quota state body: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.DailyQuotaState{}, fmt.Errorf("parsing quota state: %w", err)
	}
	return state, nil
}

// Save writes the state object. S3 PUTs replace the whole object, so
// the write is atomic from a reader's point of view.
func (s *S3Store) Save(ctx context.Context, state domain.DailyQuotaState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling quota state: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting quota state to S3: %w", err)
	}
	return nil
}

// Close is a no-op for the S3 store.
func (s *S3Store) Close() error { return nil }
