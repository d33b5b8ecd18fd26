package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ContentType is the content type of archived patch objects.
const ContentType = "application/x-sprout-patch"

// PutObjectAPI is the subset of the S3 client the archiver uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region    string
	Endpoint  string // Custom endpoint, e.g. for MinIO; empty for AWS
	PathStyle bool
}

// NewS3Client creates an S3 client. Credentials come from the standard
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN variables.
func NewS3Client(opts S3Options) *s3.Client {
	o := s3.Options{
		Region:       opts.Region,
		UsePathStyle: opts.PathStyle,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			key, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
			if key == "" || secret == "" {
				return aws.Credentials{}, errors.New("archive: AWS credentials not set")
			}
			return aws.Credentials{
				AccessKeyID:     key,
				SecretAccessKey: secret,
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				Source:          "environment",
			}, nil
		}),
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return s3.New(o)
}

// S3Archiver uploads every recorded patch as its own object, keyed
// <prefix><session>/<seq>.patch. Uploads happen on a background goroutine;
// Record never blocks and drops records when the queue is full.
type S3Archiver struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *slog.Logger

	queue   chan Record
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex // guards queue against send-after-close
	closed  bool
	dropped atomic.Int64
	failed  atomic.Int64
	stored  atomic.Int64
}

var _ Recorder = (*S3Archiver)(nil)

// NewS3Archiver starts an archiver writing to bucket.
func NewS3Archiver(client PutObjectAPI, bucket, prefix string, queue int, logger *slog.Logger) *S3Archiver {
	if queue <= 0 {
		queue = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &S3Archiver{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: 30 * time.Second,
		logger:  logger.With("component", "archive", "bucket", bucket),
		queue:   make(chan Record, queue),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Key returns the object key for a record.
func (a *S3Archiver) Key(r Record) string {
	return fmt.Sprintf("%s%s/%010d.patch", a.prefix, r.Session, r.Seq)
}

// Record implements Recorder.
func (a *S3Archiver) Record(r Record) {
	cp := make([]byte, len(r.Patch))
	copy(cp, r.Patch)
	r.Patch = cp

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.queue <- r:
	default:
		a.dropped.Add(1)
		a.logger.Warn("archive queue full, dropping patch", "session", r.Session, "seq", r.Seq)
	}
}

func (a *S3Archiver) run() {
	defer close(a.done)
	for r := range a.queue {
		if err := a.put(r); err != nil {
			a.failed.Add(1)
			a.logger.Error("archive upload failed", "key", a.Key(r), "error", err)
			continue
		}
		a.stored.Add(1)
	}
}

func (a *S3Archiver) put(r Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(r)),
		Body:        bytes.NewReader(r.Patch),
		ContentType: aws.String(ContentType),
		Metadata: map[string]string{
			"session": r.Session,
			"seq":     strconv.FormatUint(r.Seq, 10),
			"sent-at": r.SentAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

// Close stops accepting records and waits until queued uploads finish or
// ctx is done.
func (a *S3Archiver) Close(ctx context.Context) error {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns how many records were stored, failed and dropped.
func (a *S3Archiver) Stats() (stored, failed, dropped int64) {
	return a.stored.Load(), a.failed.Load(), a.dropped.Load()
}
