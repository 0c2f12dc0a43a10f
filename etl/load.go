package etl

import (
	"context"
	"net/http"
	"time"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

// Option configures LoadDataContext.
type Option func(*loadOptions)

type loadOptions struct {
	client      *http.Client
	compression Compression
	logger      log.Logger
}

// WithHTTPClient sets the client used for http and https sources.
func WithHTTPClient(client *http.Client) Option {
	return func(o *loadOptions) {
		if client != nil {
			o.client = client
		}
	}
}

// WithCompression overrides codec inference.
func WithCompression(c Compression) Option {
	return func(o *loadOptions) {
		o.compression = c
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// LoadData loads a row-record JSON dataset from url.
//
//	frame, err := etl.LoadData("https://example.com/churn.json")
func LoadData(url string) (*Frame, error) {
	return LoadDataContext(context.Background(), url)
}

// LoadDataContext is LoadData with a context and options. The context bounds
// the HTTP request and the whole body read.
func LoadDataContext(ctx context.Context, url string, opts ...Option) (*Frame, error) {
	o := loadOptions{
		client:      http.DefaultClient,
		compression: CompressionInfer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("etl")
	}

	start := time.Now()
	rc, path, err := openSource(ctx, url, o.client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	codec := o.compression
	if codec == CompressionInfer || codec == "" {
		codec = inferCompression(path)
	}
	counter := &countingReader{r: rc}
	body, err := decompress(counter, codec)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", url)
	}
	defer body.Close()

	frame, err := ReadRecords(body)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", url)
	}

	o.logger.Debug("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, url,
		log.CompressionKey, string(codec),
		log.DataSizeKey, counter.n,
		log.SamplesKey, frame.Len(),
		log.ColumnsKey, len(frame.columns),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return frame, nil
}
