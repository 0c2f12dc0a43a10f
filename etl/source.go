package etl

import (
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// Compression names the codec applied to a dataset source.
type Compression string

const (
	// CompressionInfer picks the codec from the source path suffix.
	CompressionInfer Compression = "infer"
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionZstd  Compression = "zstd"
	CompressionXz    Compression = "xz"
	CompressionBzip2 Compression = "bz2"
)

// ParseCompression maps a user-supplied codec name to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "infer":
		return CompressionInfer, nil
	case "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "xz":
		return CompressionXz, nil
	case "bz2", "bzip2":
		return CompressionBzip2, nil
	}
	return "", errors.NewValidationError("compression", "unknown codec", s)
}

func inferCompression(path string) Compression {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(p, ".zst"):
		return CompressionZstd
	case strings.HasSuffix(p, ".xz"):
		return CompressionXz
	case strings.HasSuffix(p, ".bz2"):
		return CompressionBzip2
	}
	return CompressionNone
}

func decompress(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		return zr, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open zstd stream")
		}
		return zr.IOReadCloser(), nil
	case CompressionXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open xz stream")
		}
		return io.NopCloser(xr), nil
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	}
	return nil, errors.NewValidationError("compression", "unknown codec", string(c))
}

// openSource opens src for reading and returns the path used for codec
// inference. http and https sources are fetched with client; file URLs and
// plain paths are read from disk.
func openSource(ctx context.Context, src string, client *http.Client) (io.ReadCloser, string, error) {
	if src == "" {
		return nil, "", errors.NewValueError("LoadData", "empty dataset URL")
	}
	u, err := url.Parse(src)
	// Single-letter schemes are Windows drive letters.
	if err != nil || len(u.Scheme) <= 1 {
		return openFile(src)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, "", errors.NewFetchError(src, 0, err)
		}
		req.Header.Set("Accept", "application/json, */*")
		resp, err := client.Do(req)
		if err != nil {
			return nil, "", errors.NewFetchError(src, 0, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, "", errors.NewFetchError(src, resp.StatusCode, nil)
		}
		return resp.Body, u.Path, nil
	case "file":
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = "//" + u.Host + u.Path
		}
		return openFile(path)
	}
	return nil, "", errors.NewValueError("LoadData", fmt.Sprintf("unsupported URL scheme %q", u.Scheme))
}

func openFile(path string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "open dataset %s", path)
	}
	return f, path, nil
}

// countingReader tracks how many compressed bytes were read.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
