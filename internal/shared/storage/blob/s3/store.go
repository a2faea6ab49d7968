package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"interntrack-backend/internal/shared/storage/blob"
	"interntrack-backend/internal/shared/util"
)

// Display names are kept in object metadata so that a rename never moves the key.
const nameMetaKey = "display-name"

// Store implements blob.Store using Amazon S3. Folders are key prefixes.
type Store struct {
	client   *s3.Client
	bucket   string
	prefix   string
	kmsKeyID string
}

// New creates a new S3-backed blob store.
func New(ctx context.Context, region, bucket, prefix, kmsKeyID string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Store{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		prefix:   normalizePrefix(prefix),
		kmsKeyID: strings.TrimSpace(kmsKeyID),
	}, nil
}

// CreateFolder returns the key prefix used for name. S3 has no real folders.
func (s *Store) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folderID, err := util.FolderKey(name)
	if err != nil {
		return "", fmt.Errorf("folder name %q: %w", name, err)
	}
	return folderID, nil
}

// Create uploads r under folderID with a fresh key.
func (s *Store) Create(ctx context.Context, folderID, name, mimeType string, r io.Reader) (blob.Blob, error) {
	if err := ctx.Err(); err != nil {
		return blob.Blob{}, err
	}
	if folderID == "" || strings.Contains(folderID, "/") {
		return blob.Blob{}, fmt.Errorf("invalid folder id %q", folderID)
	}

	id := path.Join(folderID, uuid.NewString())
	objectKey := applyPrefix(s.prefix, id)

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return blob.Blob{}, fmt.Errorf("read sniff: %w", readErr)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(sniff[:n])
	}

	counter := &countingReader{r: io.MultiReader(bytes.NewReader(sniff[:n]), r)}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        counter,
		ContentType: aws.String(mimeType),
		Metadata:    map[string]string{nameMetaKey: url.QueryEscape(name)},
	}
	s.applySSE(&input.ServerSideEncryption, &input.SSEKMSKeyId)

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return blob.Blob{}, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}

	return blob.Blob{
		ID:        id,
		Name:      name,
		FolderID:  folderID,
		MimeType:  mimeType,
		SizeBytes: counter.n,
	}, nil
}

// Get downloads a stored blob.
func (s *Store) Get(ctx context.Context, id string) (blob.Blob, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return blob.Blob{}, nil, err
	}

	objectKey := applyPrefix(s.prefix, id)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return blob.Blob{}, nil, wrapNotFound(fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, objectKey, err))
	}
	b := blob.Blob{
		ID:        id,
		Name:      displayName(out.Metadata, id),
		FolderID:  folderOf(id),
		MimeType:  aws.ToString(out.ContentType),
		SizeBytes: aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		b.CreatedAt = out.LastModified.UTC()
	}
	return b, out.Body, nil
}

// Rename rewrites the display name by copying the object onto itself with
// replaced metadata.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objectKey := applyPrefix(s.prefix, id)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return wrapNotFound(fmt.Errorf("s3 head object bucket=%s key=%s: %w", s.bucket, objectKey, err))
	}

	meta := make(map[string]string, len(head.Metadata)+1)
	for k, v := range head.Metadata {
		meta[k] = v
	}
	meta[nameMetaKey] = url.QueryEscape(name)

	input := &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(objectKey),
		CopySource:        aws.String(s.bucket + "/" + url.PathEscape(objectKey)),
		ContentType:       head.ContentType,
		Metadata:          meta,
		MetadataDirective: s3types.MetadataDirectiveReplace,
	}
	s.applySSE(&input.ServerSideEncryption, &input.SSEKMSKeyId)

	if _, err := s.client.CopyObject(ctx, input); err != nil {
		return fmt.Errorf("s3 copy object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

// List returns the blobs stored under folderID.
func (s *Store) List(ctx context.Context, folderID string) ([]blob.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	listPrefix := applyPrefix(s.prefix, folderID) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix),
	})

	var out []blob.Blob
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects bucket=%s prefix=%s: %w", s.bucket, listPrefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			id := path.Join(folderID, strings.TrimPrefix(key, listPrefix))
			head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return nil, fmt.Errorf("s3 head object bucket=%s key=%s: %w", s.bucket, key, err)
			}
			b := blob.Blob{
				ID:        id,
				Name:      displayName(head.Metadata, id),
				FolderID:  folderID,
				MimeType:  aws.ToString(head.ContentType),
				SizeBytes: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				b.CreatedAt = obj.LastModified.UTC()
			}
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) applySSE(sse *s3types.ServerSideEncryption, kmsKey **string) {
	if s.kmsKeyID != "" {
		*sse = s3types.ServerSideEncryptionAwsKms
		*kmsKey = aws.String(s.kmsKeyID)
		return
	}
	*sse = s3types.ServerSideEncryptionAes256
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func wrapNotFound(err error) error {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
	}
	return err
}

func displayName(meta map[string]string, id string) string {
	if raw, ok := meta[nameMetaKey]; ok {
		if name, err := url.QueryUnescape(raw); err == nil {
			return name
		}
		return raw
	}
	return path.Base(id)
}

func folderOf(id string) string {
	if i := strings.Index(id, "/"); i >= 0 {
		return id[:i]
	}
	return ""
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ blob.Store = (*Store)(nil)
