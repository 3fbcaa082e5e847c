package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"slide-capture/internal/config"
	"slide-capture/internal/domain"
	"slide-capture/internal/logger"
	"slide-capture/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// normalize_image runs the upload normalizer over local files.
//
//	normalize_image [-out dir] [-workers n] photo1.png photo2.jpg ...
func main() {
	outDir := flag.String("out", "", "directory to write <name>.datauri files into")
	workers := flag.Int("workers", 0, "concurrent files (defaults to normalizer.workers)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: normalize_image [-out dir] [-workers n] file...")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	normalizer := service.NewImageNormalizer(service.NormalizerOptionsFromConfig(cfg.Normalizer), nil)

	limit := *workers
	if limit <= 0 {
		limit = max(cfg.Normalizer.Workers, 1)
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			logger.Get().Fatal("Failed to create output directory", zap.String("dir", *outDir), zap.Error(err))
		}
	}

	results := make([]string, flag.NArg())
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(limit)
	for i, path := range flag.Args() {
		g.Go(func() error {
			line, err := normalizeFile(ctx, normalizer, path, *outDir)
			if err != nil {
				// One bad file should not stop the others.
				results[i] = fmt.Sprintf("%s: %s", path, userMessage(err))
				logger.Get().Warn("normalize_image: file failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			results[i] = line
			return nil
		})
	}
	_ = g.Wait()

	for _, line := range results {
		fmt.Println(line)
	}
}

func normalizeFile(ctx context.Context, normalizer service.Normalizer, path, outDir string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	out, err := normalizer.Normalize(ctx, &domain.ImageUpload{
		Filename: filepath.Base(path),
		Size:     info.Size(),
		Reader:   f,
	})
	if err != nil {
		return "", err
	}

	line := fmt.Sprintf("%s: %s %dx%d -> %dx%d, %d -> %d bytes",
		path, out.MimeType, out.SourceWidth, out.SourceHeight, out.Width, out.Height, info.Size(), len(out.Data))

	if outDir != "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".datauri"
		target := filepath.Join(outDir, name)
		if err := os.WriteFile(target, []byte(out.DataURI()), 0o644); err != nil {
			return "", err
		}
		line += " (" + target + ")"
	}
	return line, nil
}

func userMessage(err error) string {
	if de, ok := domain.AsDomainError(err); ok {
		return de.Message
	}
	return err.Error()
}
