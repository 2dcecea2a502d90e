// internal/store/document/source.go
package document

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/solatis/lifter/internal/types"
)

/*
 * Document sources.
 *
 * A source yields a payload and its content type. The content type drives
 * parser selection when no parser is forced:
 *   - file://   content type guessed from the extension (.log and .txt are
 *               read as lines)
 *   - http(s):// GET with the Lifter user agent; status >= 400 fails with
 *               *types.StatusError
 *   - s3://bucket/key  fetched through minio; the object's stored
 *               content type is used
 */

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 4096

// Source yields a document payload.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, string, error)
	String() string
}

// S3Config holds object storage connection settings for s3:// sources.
type S3Config struct {
	Endpoint        string // e.g. "localhost:9000"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
}

// ParseSource selects a source by URI scheme. A bare path is a file.
func ParseSource(uri string, s3cfg S3Config) (Source, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid source %q: %w", uri, err)
	}
	switch u.Scheme {
	case "", "file":
		path := u.Path
		if u.Scheme == "" {
			path = uri
		} else if u.Host != "" {
			path = u.Host + u.Path
		}
		return FileSource{Path: path}, nil
	case "http", "https":
		return HTTPSource{URL: uri}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 source %q: want s3://bucket/key", uri)
		}
		client, err := NewS3Client(s3cfg)
		if err != nil {
			return nil, err
		}
		return S3Source{Client: client, Bucket: u.Host, Key: key}, nil
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

// FileSource reads a local file.
type FileSource struct {
	Path string
}

func (s FileSource) Open(_ context.Context) (io.ReadCloser, string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	return f, contentTypeForExt(filepath.Ext(s.Path)), nil
}

func (s FileSource) String() string { return "file://" + s.Path }

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".log", ".txt":
		return "text/plain"
	}
	return mime.TypeByExtension(ext)
}

// HTTPSource fetches a document over HTTP.
type HTTPSource struct {
	URL       string
	Client    *http.Client
	UserAgent string
}

func (s HTTPSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	ua := s.UserAgent
	if ua == "" {
		ua = "Lifter/" + types.Version
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("X-Request-Id", types.NewRequestID())

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, "", &types.StatusError{URL: s.URL, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (s HTTPSource) String() string { return s.URL }

// NewS3Client connects to an S3-compatible endpoint.
func NewS3Client(cfg S3Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is not configured")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return mc, nil
}

// S3Source reads one object from a bucket.
type S3Source struct {
	Client *minio.Client
	Bucket string
	Key    string
}

func (s S3Source) Open(ctx context.Context) (io.ReadCloser, string, error) {
	obj, err := s.Client.GetObject(ctx, s.Bucket, s.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.StatusCode >= 400 {
			return nil, "", &types.StatusError{URL: s.String(), StatusCode: resp.StatusCode, Body: resp.Message}
		}
		return nil, "", fmt.Errorf("%w: %w", types.ErrStoreError, err)
	}
	return obj, info.ContentType, nil
}

func (s S3Source) String() string { return "s3://" + s.Bucket + "/" + s.Key }
