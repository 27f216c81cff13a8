package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/yocto"
	"github.com/hupe1980/yocto/blobstore"
	yminio "github.com/hupe1980/yocto/blobstore/minio"
	ys3 "github.com/hupe1980/yocto/blobstore/s3"
)

// Environment read for minio:// locations.
const (
	envMinioAccessKey = "YOCTO_MINIO_ACCESS_KEY"
	envMinioSecretKey = "YOCTO_MINIO_SECRET_KEY"
	envMinioInsecure  = "YOCTO_MINIO_INSECURE"
)

// location is where a container lives: a local path, or a blob in an
// object store.
//
//	db.yocto
//	s3://bucket/prefix/db.yocto
//	minio://host:9000/bucket/prefix/db.yocto
type location struct {
	path   string
	scheme string
	host   string
	bucket string
	prefix string
	name   string
}

func parseLocation(s string) (location, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return location{path: s}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return location{}, fmt.Errorf("%w: %q: %w", errUsage, s, err)
	}
	loc := location{scheme: scheme}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch scheme {
	case "s3":
		loc.bucket = u.Host
	case "minio":
		if len(parts) < 2 {
			return location{}, fmt.Errorf("%w: %q needs a bucket and a name", errUsage, s)
		}
		loc.host, loc.bucket, parts = u.Host, parts[0], parts[1:]
	case "file":
		return location{path: "/" + strings.TrimPrefix(rest, "/")}, nil
	default:
		return location{}, fmt.Errorf("%w: unsupported scheme %q", errUsage, scheme)
	}
	if loc.bucket == "" || len(parts) == 0 || parts[len(parts)-1] == "" {
		return location{}, fmt.Errorf("%w: %q needs a bucket and a name", errUsage, s)
	}
	loc.prefix = path.Join(parts[:len(parts)-1]...)
	loc.name = parts[len(parts)-1]
	return loc, nil
}

func (l location) remote() bool { return l.scheme != "" }

func (l location) String() string {
	if !l.remote() {
		return l.path
	}
	host := l.bucket
	if l.host != "" {
		host = l.host + "/" + l.bucket
	}
	return l.scheme + "://" + path.Join(host, l.prefix, l.name)
}

// store connects to the object store holding l. S3 credentials and region
// come from the default AWS configuration chain.
func (l location) store(ctx context.Context) (blobstore.BlobStore, error) {
	switch l.scheme {
	case "s3":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return ys3.NewStore(s3.NewFromConfig(cfg), l.bucket, l.prefix), nil
	case "minio":
		client, err := minio.New(l.host, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv(envMinioAccessKey), os.Getenv(envMinioSecretKey), ""),
			Secure: os.Getenv(envMinioInsecure) == "",
		})
		if err != nil {
			return nil, fmt.Errorf("minio %s: %w", l.host, err)
		}
		return yminio.NewStore(client, l.bucket, l.prefix), nil
	default:
		return nil, fmt.Errorf("%s is a local path", l.path)
	}
}

// openDatabase opens a local container by memory mapping or downloads a
// remote one.
func openDatabase(ctx context.Context, l location, opts ...yocto.Option) (*yocto.Database, error) {
	if !l.remote() {
		return yocto.Open(l.path, opts...)
	}
	store, err := l.store(ctx)
	if err != nil {
		return nil, err
	}
	return yocto.OpenBlob(ctx, store, l.name, opts...)
}

// writeDatabase writes a local container atomically or publishes a remote
// one.
func writeDatabase(ctx context.Context, w *yocto.Writable, l location) error {
	if !l.remote() {
		return w.WriteFile(ctx, l.path)
	}
	store, err := l.store(ctx)
	if err != nil {
		return err
	}
	return w.Publish(ctx, store, l.name)
}
