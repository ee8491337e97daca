// Package app orchestrates the patch pipeline's operations (decompress,
// compress, extract, inject, import-to-image, archive-texts,
// restore-texts) plus the composite "all", wiring the pure pkg/ccscript
// codec to a filesystem and an image writer through small interfaces so
// the whole thing is testable against fakes.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aikika/ccpatch/internal/patch/batch"
	"github.com/aikika/ccpatch/internal/patch/config"
	"github.com/aikika/ccpatch/internal/patch/errors"
	"github.com/aikika/ccpatch/internal/patch/fileutil"
	"github.com/aikika/ccpatch/internal/patch/interfaces"
	"github.com/aikika/ccpatch/internal/patch/models"
	"github.com/aikika/ccpatch/internal/patch/textarchive"
	"github.com/aikika/ccpatch/pkg/ccscript"
	"github.com/aikika/ccpatch/pkg/hdi"
)

// scriptExt and txtExt are the fixed extensions this pipeline reads and
// writes at each stage.
const (
	scriptExt = ".CC"
	txtExt    = ".txt"
)

// inImageDir is where the game expects scenario scripts inside the disk
// image.
const inImageDir = "/EVE/"

// ImageOpener opens the disk image for writing. Production code points
// this at hdi.Open; tests substitute an in-memory fake.
type ImageOpener func(path string) (interfaces.ImageWriter, error)

// Options carries the collaborators App depends on. Any left nil in a call
// to NewWithOptions default to the real, os-backed implementations.
type Options struct {
	FS          interfaces.FileSystem
	Logger      interfaces.Logger
	ImageOpener ImageOpener
}

// App holds one run's configuration and collaborators.
type App struct {
	cfg    *config.Config
	fs     interfaces.FileSystem
	logger interfaces.Logger
	open   ImageOpener
}

// New builds an App with the real filesystem, real disk-image writer, and
// a debug logger gated on cfg.DebugMode.
func New(cfg *config.Config) *App {
	return NewWithOptions(cfg, nil)
}

// NewWithOptions builds an App, substituting any collaborator opts sets.
func NewWithOptions(cfg *config.Config, opts *Options) *App {
	a := &App{
		cfg:    cfg,
		fs:     fileutil.OSFileSystem{},
		logger: config.NewDebugLogger(cfg.DebugMode),
		open: func(path string) (interfaces.ImageWriter, error) {
			return hdi.Open(path)
		},
	}
	if opts != nil {
		if opts.FS != nil {
			a.fs = opts.FS
		}
		if opts.Logger != nil {
			a.logger = opts.Logger
		}
		if opts.ImageOpener != nil {
			a.open = opts.ImageOpener
		}
	}
	return a
}

// Run dispatches cfg.Operation to the matching batch and returns the
// aggregated summary. A non-nil error means the operation name itself was
// invalid, a directory could not be listed, the disk image could not be
// opened, ctx was cancelled between the stages of "all", or archive-texts /
// restore-texts hit a read, encode or write error (those two operations
// stop at the first failing file). In the per-directory batches, per-file
// failures are reported in the summary, not returned as an error.
func (a *App) Run(ctx context.Context) (models.BatchSummary, error) {
	switch a.cfg.Operation {
	case "decompress":
		return a.runDir(ctx, a.cfg.JPCC, scriptExt, a.decompressOne(a.cfg.JPCC, a.cfg.DecompressJPCC))
	case "compress":
		return a.runDir(ctx, a.cfg.DecompressENCC, scriptExt, a.compressOne(a.cfg.DecompressENCC, a.cfg.ENCC))
	case "extract":
		return a.runDir(ctx, a.cfg.DecompressJPCC, scriptExt, a.extractOne(a.cfg.DecompressJPCC, a.cfg.JPTXT))
	case "inject":
		return a.runDir(ctx, a.cfg.DecompressJPCC, scriptExt, a.injectOne(a.cfg.DecompressJPCC, a.cfg.ENTXT, a.cfg.DecompressENCC))
	case "import-to-image":
		return a.runImportToImage(ctx)
	case "archive-texts":
		return a.runArchiveTexts(ctx)
	case "restore-texts":
		return a.runRestoreTexts(ctx)
	case "all":
		return a.runAll(ctx)
	default:
		return models.BatchSummary{}, fmt.Errorf("app: unknown operation %q", a.cfg.Operation)
	}
}

func (a *App) runAll(ctx context.Context) (models.BatchSummary, error) {
	var all models.BatchSummary

	injectSummary, err := a.runDir(ctx, a.cfg.DecompressJPCC, scriptExt, a.injectOne(a.cfg.DecompressJPCC, a.cfg.ENTXT, a.cfg.DecompressENCC))
	all.Reports = append(all.Reports, injectSummary.Reports...)
	if err != nil {
		return all, err
	}
	select {
	case <-ctx.Done():
		return all, ctx.Err()
	default:
	}

	compressSummary, err := a.runDir(ctx, a.cfg.DecompressENCC, scriptExt, a.compressOne(a.cfg.DecompressENCC, a.cfg.ENCC))
	all.Reports = append(all.Reports, compressSummary.Reports...)
	if err != nil {
		return all, err
	}
	select {
	case <-ctx.Done():
		return all, ctx.Err()
	default:
	}

	importSummary, err := a.runImportToImage(ctx)
	all.Reports = append(all.Reports, importSummary.Reports...)
	return all, err
}

// runDir lists dir for files with ext and runs fn over them, in parallel
// or sequentially per a.cfg.Parallel.
func (a *App) runDir(ctx context.Context, dir, ext string, fn batch.ProcessFunc) (models.BatchSummary, error) {
	entries, err := a.fs.ReadDir(dir)
	if err != nil {
		return models.BatchSummary{}, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, e.Name())
	}
	return batch.Run(ctx, files, a.cfg.Parallel, batch.DefaultWorkers, fn), nil
}

// decompressOne returns a ProcessFunc that unframes one compressed script.
func (a *App) decompressOne(srcDir, dstDir string) batch.ProcessFunc {
	return func(ctx context.Context, name string) (models.Report, error) {
		raw, err := a.fs.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			pe := errors.New(errors.KindFileTooSmall, name, err)
			return models.Report{Kind: pe.Kind.String()}, pe
		}
		c, err := ccscript.Unframe(raw)
		if err != nil {
			pe := classifyUnframeErr(name, err)
			return models.Report{Kind: pe.Kind.String()}, pe
		}
		if err := a.fs.WriteFile(filepath.Join(dstDir, name), c.Decompressed(), 0o644); err != nil {
			return models.Report{}, err
		}
		return models.Report{}, nil
	}
}

// compressOne returns a ProcessFunc that reframes one decompressed script.
func (a *App) compressOne(srcDir, dstDir string) batch.ProcessFunc {
	return func(ctx context.Context, name string) (models.Report, error) {
		raw, err := a.fs.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			return models.Report{}, err
		}
		c, err := ccscript.ParseDecompressed(raw)
		if err != nil {
			pe := errors.New(errors.KindFileTooSmall, name, err)
			return models.Report{Kind: pe.Kind.String()}, pe
		}
		if err := a.fs.WriteFile(filepath.Join(dstDir, name), ccscript.Frame(c), 0o644); err != nil {
			return models.Report{}, err
		}
		return models.Report{}, nil
	}
}

// extractOne returns a ProcessFunc that scans one decompressed script and
// writes its translator text file.
func (a *App) extractOne(srcDir, dstDir string) batch.ProcessFunc {
	return func(ctx context.Context, name string) (models.Report, error) {
		raw, err := a.fs.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			return models.Report{}, err
		}
		c, err := ccscript.ParseDecompressed(raw)
		if err != nil {
			pe := errors.New(errors.KindFileTooSmall, name, err)
			return models.Report{Kind: pe.Kind.String()}, pe
		}
		records := ccscript.Scan(c.Body)
		text := ccscript.ExtractText(records)
		dst := filepath.Join(dstDir, txtName(name))
		if err := a.fs.WriteFile(dst, []byte(text), 0o644); err != nil {
			return models.Report{}, err
		}
		return models.Report{}, nil
	}
}

// injectOne returns a ProcessFunc that rebuilds one decompressed script
// from its translator text file. A missing translator file is skipped
// silently rather than counted as a failure.
func (a *App) injectOne(scriptDir, txtDir, dstDir string) batch.ProcessFunc {
	return func(ctx context.Context, name string) (models.Report, error) {
		txtPath := filepath.Join(txtDir, txtName(name))
		text, err := a.fs.ReadFile(txtPath)
		if err != nil {
			// No translator text yet is a silent skip: no Kind is set so
			// this does not count as a batch failure.
			a.logger.Printf("skipping %s: no translator text at %s", name, txtPath)
			return models.Report{}, nil
		}

		raw, err := a.fs.ReadFile(filepath.Join(scriptDir, name))
		if err != nil {
			return models.Report{}, err
		}
		c, err := ccscript.ParseDecompressed(raw)
		if err != nil {
			pe := errors.New(errors.KindFileTooSmall, name, err)
			return models.Report{Kind: pe.Kind.String()}, pe
		}

		replacements := ccscript.SplitTranslatorText(string(text))
		outcome := ccscript.Inject(c, replacements)
		if outcome.Err != nil {
			pe := errors.New(classifyInjectErr(outcome.Err), name, outcome.Err)
			return models.Report{Kind: pe.Kind.String()}, pe
		}

		if err := a.fs.WriteFile(filepath.Join(dstDir, name), outcome.Container.Decompressed(), 0o644); err != nil {
			return models.Report{}, err
		}

		return models.Report{
			Partial:        outcome.Partial,
			SkippedRecords: outcome.SkippedRecords,
			OverflowBytes:  outcome.OverflowBytes,
		}, nil
	}
}

// runImportToImage writes every compressed script in cfg.ENCC into the
// disk image at cfg.HDIFile, serializing the writes since the image
// handle must see at most one concurrent writer.
func (a *App) runImportToImage(ctx context.Context) (models.BatchSummary, error) {
	img, err := a.open(a.cfg.HDIFile)
	if err != nil {
		return models.BatchSummary{}, err
	}
	defer img.Close()

	var mu sync.Mutex
	fn := func(ctx context.Context, name string) (models.Report, error) {
		data, err := a.fs.ReadFile(filepath.Join(a.cfg.ENCC, name))
		if err != nil {
			return models.Report{}, err
		}
		mu.Lock()
		err = img.ReplaceFile(inImageDir+name, data)
		mu.Unlock()
		if err != nil {
			pe := errors.New(classifyImageErr(err), name, err)
			return models.Report{Kind: pe.Kind.String()}, pe
		}
		return models.Report{}, nil
	}

	return a.runDir(ctx, a.cfg.ENCC, scriptExt, fn)
}

// runArchiveTexts bundles every translator text file in cfg.ENTXT into one
// blob at cfg.TextArchive, so a completed translation pass can be shipped
// or checked in as a single artifact.
func (a *App) runArchiveTexts(ctx context.Context) (models.BatchSummary, error) {
	entries, err := a.fs.ReadDir(a.cfg.ENTXT)
	if err != nil {
		return models.BatchSummary{}, err
	}

	var names, texts []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), txtExt) {
			continue
		}
		data, err := a.fs.ReadFile(filepath.Join(a.cfg.ENTXT, e.Name()))
		if err != nil {
			return models.BatchSummary{}, err
		}
		names = append(names, e.Name())
		texts = append(texts, string(data))
	}

	blob, err := textarchive.Bundle(names, texts)
	if err != nil {
		return models.BatchSummary{}, err
	}
	if err := a.fs.WriteFile(a.cfg.TextArchive, blob, 0o644); err != nil {
		return models.BatchSummary{}, err
	}
	return models.BatchSummary{Reports: []models.Report{{File: a.cfg.TextArchive}}}, nil
}

// runRestoreTexts unpacks cfg.TextArchive back into individual translator
// text files under cfg.ENTXT, the inverse of runArchiveTexts.
func (a *App) runRestoreTexts(ctx context.Context) (models.BatchSummary, error) {
	blob, err := a.fs.ReadFile(a.cfg.TextArchive)
	if err != nil {
		return models.BatchSummary{}, err
	}
	names, texts, err := textarchive.Unbundle(blob)
	if err != nil {
		return models.BatchSummary{}, err
	}

	var summary models.BatchSummary
	for i, name := range names {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}
		dst := filepath.Join(a.cfg.ENTXT, name)
		if err := a.fs.WriteFile(dst, []byte(texts[i]), 0o644); err != nil {
			return summary, err
		}
		summary.Add(models.Report{File: dst})
	}
	return summary, nil
}

func txtName(scriptName string) string {
	return strings.TrimSuffix(scriptName, filepath.Ext(scriptName)) + txtExt
}

func classifyUnframeErr(name string, err error) *errors.PatchError {
	if err == ccscript.ErrFileTooSmall {
		return errors.New(errors.KindFileTooSmall, name, err)
	}
	return errors.New(errors.KindCorruptLZSS, name, err)
}

func classifyInjectErr(err error) errors.Kind {
	switch err {
	case ccscript.ErrLostAnchor:
		return errors.KindLostAnchor
	default:
		return errors.KindMismatch
	}
}

func classifyImageErr(err error) errors.Kind {
	switch err {
	case hdi.ErrNotFound:
		return errors.KindImageNotFound
	case hdi.ErrNoSpace:
		return errors.KindImageNoSpace
	default:
		return errors.KindImageCorrupt
	}
}
