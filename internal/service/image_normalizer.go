package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"
	"time"

	"slide-capture/internal/config"
	"slide-capture/internal/domain"
	"slide-capture/internal/logger"
	"slide-capture/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxUploadBytes       int64 = 15 << 20
	DefaultResizeThresholdBytes int64 = 1 << 20
	DefaultMaxDimension               = 1024
	DefaultQuality                    = 0.8
	DefaultMaxPixels            int64 = 50_000_000
	outputMimeType                    = "image/jpeg"
)

var acceptedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// NormalizerOptions bounds the normalizer output.
type NormalizerOptions struct {
	MaxUploadBytes       int64
	ResizeThresholdBytes int64
	MaxWidth             int
	MaxHeight            int
	// Quality is the lossy re-encode quality in (0, 1].
	Quality float64
	// MaxPixels caps width*height as declared in the image header. A small
	// file can declare a huge canvas, and decoding allocates for all of it.
	MaxPixels int64
	// Workers caps concurrent decodes across all uploads. Zero means unbounded.
	Workers int
}

// NormalizerOptionsFromConfig fills unset values with the defaults.
func NormalizerOptionsFromConfig(cfg config.NormalizerConfig) NormalizerOptions {
	opts := NormalizerOptions{
		MaxUploadBytes:       cfg.MaxUploadBytes,
		ResizeThresholdBytes: cfg.ResizeThresholdBytes,
		MaxWidth:             cfg.MaxWidth,
		MaxHeight:            cfg.MaxHeight,
		Quality:              cfg.Quality,
		MaxPixels:            cfg.MaxPixels,
		Workers:              cfg.Workers,
	}
	return opts.withDefaults()
}

func (o NormalizerOptions) withDefaults() NormalizerOptions {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if o.ResizeThresholdBytes <= 0 {
		o.ResizeThresholdBytes = DefaultResizeThresholdBytes
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxDimension
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = DefaultQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	return o
}

// NormalizedImage is the bounded result of one normalization.
type NormalizedImage struct {
	Data         []byte
	MimeType     string
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	SourceBytes  int64
	// Reencoded is false when the original bytes were returned unchanged.
	Reencoded bool
	Resized   bool
}

// DataURI renders the image as a self-contained base64 data URI.
func (n *NormalizedImage) DataURI() string {
	return "data:" + n.MimeType + ";base64," + base64.StdEncoding.EncodeToString(n.Data)
}

// Answer converts the image into an answer value.
func (n *NormalizedImage) Answer() domain.ImageAnswer {
	return domain.ImageAnswer{
		DataURI:  n.DataURI(),
		MimeType: n.MimeType,
		Width:    n.Width,
		Height:   n.Height,
		Bytes:    len(n.Data),
	}
}

// Normalizer bounds uploaded images.
type Normalizer interface {
	Normalize(ctx context.Context, upload *domain.ImageUpload) (*NormalizedImage, error)
}

// ImageNormalizer decodes uploads and re-encodes oversized ones as JPEG within
// MaxWidth x MaxHeight.
type ImageNormalizer struct {
	opts    NormalizerOptions
	workers *semaphore.Weighted
	metrics *metrics.Collector
}

func NewImageNormalizer(opts NormalizerOptions, collector *metrics.Collector) *ImageNormalizer {
	opts = opts.withDefaults()
	n := &ImageNormalizer{opts: opts, metrics: collector}
	if opts.Workers > 0 {
		n.workers = semaphore.NewWeighted(int64(opts.Workers))
	}
	return n
}

func (n *ImageNormalizer) Options() NormalizerOptions {
	return n.opts
}

// Normalize rejects oversize input before reading it, reads the image header
// and either returns the original bytes (below the resize threshold) or a
// re-rendered JPEG bounded by the configured dimensions. Only the resize path
// decodes pixels, and only after the header passed the pixel limit.
func (n *ImageNormalizer) Normalize(ctx context.Context, upload *domain.ImageUpload) (*NormalizedImage, error) {
	start := time.Now()
	if upload == nil || upload.Reader == nil {
		return nil, domain.NewInvalidInputError("no file provided")
	}
	log := logger.Get().With(zap.String("filename", upload.Filename), zap.Int64("size", upload.Size))

	if upload.Size > n.opts.MaxUploadBytes {
		log.Info("Normalizer: upload rejected before decode", zap.Int64("limit", n.opts.MaxUploadBytes))
		n.metrics.ImageNormalized(metrics.OutcomeTooLarge, time.Since(start))
		return nil, domain.NewFileTooLargeError(upload.Size, n.opts.MaxUploadBytes)
	}

	data, err := io.ReadAll(io.LimitReader(upload.Reader, n.opts.MaxUploadBytes+1))
	if err != nil {
		n.metrics.ImageNormalized(metrics.OutcomeDecodeFailed, time.Since(start))
		return nil, domain.NewImageProcessingError(fmt.Errorf("read upload: %w", err))
	}
	if int64(len(data)) > n.opts.MaxUploadBytes {
		log.Info("Normalizer: upload exceeded limit while reading", zap.Int64("limit", n.opts.MaxUploadBytes))
		n.metrics.ImageNormalized(metrics.OutcomeTooLarge, time.Since(start))
		return nil, domain.NewFileTooLargeError(int64(len(data)), n.opts.MaxUploadBytes)
	}

	if n.workers != nil {
		if err := n.workers.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer n.workers.Release(1)
	}

	result, err := n.normalize(data)
	if err != nil {
		log.Warn("Normalizer: could not process image", zap.Error(err))
		n.metrics.ImageNormalized(metrics.OutcomeDecodeFailed, time.Since(start))
		return nil, domain.NewImageProcessingError(err)
	}

	outcome := metrics.OutcomePassthrough
	if result.Reencoded {
		outcome = metrics.OutcomeReencoded
	}
	n.metrics.ImageNormalized(outcome, time.Since(start))
	log.Debug("Normalizer: image normalized",
		zap.String("outcome", outcome),
		zap.Int("source_width", result.SourceWidth),
		zap.Int("source_height", result.SourceHeight),
		zap.Int("width", result.Width),
		zap.Int("height", result.Height),
		zap.Int("bytes", len(result.Data)),
	)
	return result, nil
}

func (n *ImageNormalizer) normalize(data []byte) (*NormalizedImage, error) {
	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), acceptedImageTypes...) {
		return nil, fmt.Errorf("unsupported file type %s", mime.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s header: %w", mime.String(), err)
	}
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	if int64(w)*int64(h) > n.opts.MaxPixels {
		return nil, fmt.Errorf("%dx%d exceeds the %d pixel limit", w, h, n.opts.MaxPixels)
	}

	result := &NormalizedImage{
		SourceWidth:  w,
		SourceHeight: h,
		SourceBytes:  int64(len(data)),
	}

	if int64(len(data)) < n.opts.ResizeThresholdBytes {
		result.Data = data
		result.MimeType = mime.String()
		result.Width, result.Height = w, h
		return result, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mime.String(), err)
	}

	tw, th := TargetDimensions(w, h, n.opts.MaxWidth, n.opts.MaxHeight)
	canvas := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, canvas.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality(n.opts.Quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	result.Data = buf.Bytes()
	result.MimeType = outputMimeType
	result.Width, result.Height = tw, th
	result.Reencoded = true
	result.Resized = tw != w || th != h
	return result, nil
}

// TargetDimensions preserves the aspect ratio. Landscape and square images are
// bounded by maxWidth, portrait images by maxHeight; images already inside the
// bound keep their size. Neither side drops below one pixel.
func TargetDimensions(w, h, maxWidth, maxHeight int) (int, int) {
	tw, th := w, h
	if w >= h {
		tw = min(w, maxWidth)
		th = scaleSide(h, tw, w)
	} else {
		th = min(h, maxHeight)
		tw = scaleSide(w, th, h)
	}
	// the other side can still overflow when the two bounds differ
	if th > maxHeight {
		tw, th = scaleSide(tw, maxHeight, th), maxHeight
	}
	if tw > maxWidth {
		tw, th = maxWidth, scaleSide(th, maxWidth, tw)
	}
	return tw, th
}

func scaleSide(side, num, den int) int {
	return max(1, int(math.Round(float64(side)*float64(num)/float64(den))))
}

func jpegQuality(q float64) int {
	return min(100, max(1, int(math.Round(q*100))))
}
