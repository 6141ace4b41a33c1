package storage

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/minio/minio-go"
)

const s3NoSuchKey = "NoSuchKey"

// S3Storage keeps each file as one object in a bucket. Folders are key
// prefixes, so MkdirAll only has to make sure the bucket exists.
type S3Storage struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3Storage(client *minio.Client, bucket, prefix string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Storage) key(name string) string {
	return strings.TrimPrefix(path.Join(s.prefix, name), "/")
}

func (s *S3Storage) MkdirAll(ctx context.Context, dir string) error {
	exists, err := s.client.BucketExists(s.bucket)
	if err != nil {
		return wrap("mkdir", dir, err)
	}

	if !exists {
		if err := s.client.MakeBucket(s.bucket, ""); err != nil {
			return wrap("mkdir", dir, err)
		}
	}

	return nil
}

func (s *S3Storage) Create(ctx context.Context, name string) (File, error) {
	key := s.key(name)
	if err := s.put(ctx, key, []byte{}); err != nil {
		return nil, wrap("create", name, err)
	}

	return newBlobFile(ctx, s, key, 0), nil
}

func (s *S3Storage) Open(ctx context.Context, name string) (File, error) {
	key := s.key(name)

	info, err := s.client.StatObject(s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == s3NoSuchKey {
			return nil, wrap("open", name, fs.ErrNotExist)
		}

		return nil, wrap("open", name, err)
	}

	return newBlobFile(ctx, s, key, info.Size), nil
}

func (s *S3Storage) Remove(ctx context.Context, name string) error {
	return wrap("remove", name, s.client.RemoveObject(s.bucket, s.key(name)))
}

func (s *S3Storage) Exists(ctx context.Context, name string) (bool, error) {
	if _, err := s.client.StatObject(s.bucket, s.key(name), minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == s3NoSuchKey {
			return false, nil
		}

		return false, wrap("stat", name, err)
	}

	return true, nil
}

func (s *S3Storage) Probe(ctx context.Context, root string, need int64) error {
	if _, err := s.client.BucketExists(s.bucket); err != nil {
		return wrap("probe", root, err)
	}

	return nil
}

func (s *S3Storage) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObjectWithContext(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

func (s *S3Storage) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObjectWithContext(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)

	return err
}
