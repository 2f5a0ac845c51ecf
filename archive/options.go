package archive

import (
	"log/slog"

	"github.com/hupe1980/scoredef/codec"
	"github.com/hupe1980/scoredef/internal/compress"
	"github.com/hupe1980/scoredef/internal/resource"
)

type options struct {
	codec       codec.Codec
	compression compress.Type
	controller  *resource.Controller
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		codec:       codec.Default,
		compression: compress.ZSTD,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures Write and Read.
type Option func(*options)

// WithCodec selects the payload codec of definition and mapping blobs.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithCompression selects the block compression of written blobs.
func WithCompression(t compress.Type) Option {
	return func(o *options) {
		o.compression = t
	}
}

// WithController bounds upload concurrency and throttles written bytes.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
