package unify

import (
	"log/slog"
	"time"

	"github.com/hupe1980/scoredef/codec"
	"github.com/hupe1980/scoredef/definitions"
	"github.com/hupe1980/scoredef/internal/compress"
)

type options struct {
	codec       codec.Codec
	compression compress.Type
	logger      *slog.Logger
	observer    func(definitions.Kind, State)
	roundHook   func(definitions.Kind, int, time.Duration)
	onOOM       func(error)
}

// Option configures an Engine.
type Option func(*options)

// WithCodec selects the frame codec. Every rank must use the same codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithCompression selects frame compression.
func WithCompression(t compress.Type) Option {
	return func(o *options) {
		o.compression = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver is called on every state transition of a kind's round.
func WithObserver(fn func(definitions.Kind, State)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithRoundHook is called after each collective round with the kind, the
// number of records this rank contributed and the round's duration.
func WithRoundHook(fn func(definitions.Kind, int, time.Duration)) Option {
	return func(o *options) {
		o.roundHook = fn
	}
}

// WithOutOfMemory is passed to every definition manager the engine creates.
func WithOutOfMemory(fn func(error)) Option {
	return func(o *options) {
		o.onOOM = fn
	}
}
