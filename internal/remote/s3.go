package remote

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"photovault/internal/photo"
)

// S3Store keeps backup generations as S3 objects under
// <prefix>/<userID>/<generationID>.db. Generation IDs sort lexically in
// creation order, so the newest generation is the last key.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	clock    photo.Clock
}

// S3Options configures an S3Store. AccessKey/SecretKey are optional; when
// empty the SDK's default credential chain is used.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Store creates a store over the given bucket.
func NewS3Store(ctx context.Context, opts S3Options, clock photo.Clock) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 backup store requires a bucket")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		prefix:   strings.Trim(opts.Prefix, "/"),
		clock:    clock,
	}, nil
}

func (s *S3Store) userPrefix(userID string) string {
	return path.Join(s.prefix, userID) + "/"
}

func (s *S3Store) key(userID, generationID string) string {
	return s.userPrefix(userID) + generationID + ".db"
}

// Put uploads a new generation and prunes older ones beyond MaxGenerations.
func (s *S3Store) Put(ctx context.Context, userID string, r io.Reader, size int64) (*photo.Generation, error) {
	now := s.clock.Now()
	gen := &photo.Generation{ID: generationID(now), CreatedAt: now, Size: size}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(userID, gen.ID)),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading backup to s3: %w", err)
	}

	if err := s.prune(ctx, userID); err != nil {
		return nil, err
	}
	return gen, nil
}

func (s *S3Store) prune(ctx context.Context, userID string) error {
	gens, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	for len(gens) > MaxGenerations {
		old := gens[0]
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(userID, old.ID)),
		})
		if err != nil {
			return fmt.Errorf("pruning generation %s: %w", old.ID, err)
		}
		gens = gens[1:]
	}
	return nil
}

// List returns the user's generations, oldest first.
func (s *S3Store) List(ctx context.Context, userID string) ([]photo.Generation, error) {
	prefix := s.userPrefix(userID)

	var gens []photo.Generation
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing backups in s3: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if !strings.HasSuffix(name, ".db") {
				continue
			}
			id := strings.TrimSuffix(name, ".db")
			nanos, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				continue // not a generation object
			}
			gens = append(gens, photo.Generation{
				ID:        id,
				CreatedAt: time.Unix(0, nanos),
				Size:      aws.ToInt64(obj.Size),
			})
		}
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i].ID < gens[j].ID })
	return gens, nil
}

// Latest streams the newest generation to w, or returns (nil, nil) when
// the user has no backup.
func (s *S3Store) Latest(ctx context.Context, userID string, w io.Writer) (*photo.Generation, error) {
	gens, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, nil
	}

	newest := gens[len(gens)-1]
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(userID, newest.ID)),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading generation %s: %w", newest.ID, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return nil, fmt.Errorf("reading generation %s: %w", newest.ID, err)
	}
	return &newest, nil
}

// ValidateSetup verifies the bucket is reachable with the configured
// credentials.
func (s *S3Store) ValidateSetup(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

// Compile-time check that S3Store implements photo.RemoteStore.
var _ photo.RemoteStore = (*S3Store)(nil)
