package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultPartSize is the smallest part size S3 accepts for non-final parts.
	DefaultPartSize int64 = 5 << 20

	presignExpiry = 15 * time.Minute
	urlCacheTTL   = 10 * time.Minute
	urlCacheSize  = 512
)

type s3API interface {
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	ListParts(ctx context.Context, in *s3.ListPartsInput, optFns ...func(*s3.Options)) (*s3.ListPartsOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Store is a Store over an S3 compatible service. The multipart upload id
// is the session token.
type S3Store struct {
	api      s3API
	presign  presigner
	bucket   string
	partSize int64
	urlCache *expirable.LRU[string, string]
}

func NewS3Store(ctx context.Context, c S3Config) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, s3.NewPresignClient(client), c.Bucket), nil
}

func newS3Store(api s3API, p presigner, bucket string) *S3Store {
	return &S3Store{
		api:      api,
		presign:  p,
		bucket:   bucket,
		partSize: DefaultPartSize,
		urlCache: expirable.NewLRU[string, string](urlCacheSize, nil, urlCacheTTL),
	}
}

func isAPIError(err error, codes ...string) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && slices.Contains(codes, ae.ErrorCode())
}

// uploadedParts returns the parts already stored for the session, or
// ok=false when S3 no longer knows the upload.
func (s *S3Store) uploadedParts(ctx context.Context, path, token string) (map[int32]types.Part, bool, error) {
	parts := make(map[int32]types.Part)
	p := s3.NewListPartsPaginator(s.api, &s3.ListPartsInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(path),
		UploadId: aws.String(token),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if isAPIError(err, "NoSuchUpload") {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to list parts: %w", err)
		}
		for _, part := range page.Parts {
			parts[aws.ToInt32(part.PartNumber)] = part
		}
	}
	return parts, true, nil
}

func (s *S3Store) Upload(ctx context.Context, path, contentRef, token string, onSession func(string) error) error {
	f, size, err := openContent(contentRef)
	if err != nil {
		return err
	}
	defer f.Close()

	var done map[int32]types.Part
	if token != "" {
		var ok bool
		done, ok, err = s.uploadedParts(ctx, path, token)
		if err != nil {
			return err
		}
		if !ok {
			token = ""
		}
	}

	if token == "" {
		out, err := s.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(path),
		})
		if err != nil {
			return fmt.Errorf("failed to create upload: %w", err)
		}
		token = aws.ToString(out.UploadId)
		done = nil
		if onSession != nil {
			if err := onSession(token); err != nil {
				return fmt.Errorf("failed to record upload session: %w", err)
			}
		}
	}

	completed, err := s.uploadParts(ctx, f, size, path, token, done)
	if err != nil {
		return err
	}

	_, err = s.api.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(path),
		UploadId:        aws.String(token),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf("failed to complete upload: %w", err)
	}
	s.urlCache.Remove(path)
	return nil
}

func (s *S3Store) uploadParts(ctx context.Context, f *os.File, size int64, path, token string, done map[int32]types.Part) ([]types.CompletedPart, error) {
	count := max((size+s.partSize-1)/s.partSize, 1)

	completed := make([]types.CompletedPart, 0, count)
	for i := range count {
		num := int32(i + 1)
		offset := i * s.partSize
		length := min(s.partSize, size-offset)

		if part, ok := done[num]; ok && aws.ToInt64(part.Size) == length {
			completed = append(completed, types.CompletedPart{ETag: part.ETag, PartNumber: aws.Int32(num)})
			continue
		}

		out, err := s.api.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(path),
			UploadId:      aws.String(token),
			PartNumber:    aws.Int32(num),
			Body:          io.NewSectionReader(f, offset, length),
			ContentLength: aws.Int64(length),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload part %d: %w", num, err)
		}
		completed = append(completed, types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(num)})
	}
	return completed, nil
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	s.urlCache.Remove(path)
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil && !isAPIError(err, "NoSuchKey", "NotFound") {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// DownloadURL returns a presigned GET URL. URLs are cached for less than
// their validity.
func (s *S3Store) DownloadURL(ctx context.Context, path string) (string, error) {
	if u, ok := s.urlCache.Get(path); ok {
		return u, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	s.urlCache.Add(path, req.URL)
	return req.URL, nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}
