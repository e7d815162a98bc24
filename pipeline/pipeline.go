// Package pipeline wires the codec, diff, placeholder, batch, and
// translation layers into per-file, per-language translation runs.
//
// Each (source file × target language) pair is independent and may run
// on its own worker; within one pair batches are translated strictly in
// sequence because the merge step needs every batch result. The abort
// signal (context) is checked between pairs and between batches; an
// in-flight network call is bounded by the client timeout rather than
// interrupted mid-call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/openlocale/langsync/batch"
	"github.com/openlocale/langsync/diff"
	"github.com/openlocale/langsync/doctree"
	"github.com/openlocale/langsync/jsonfile"
	"github.com/openlocale/langsync/mdfile"
	"github.com/openlocale/langsync/placeholder"
	"github.com/openlocale/langsync/translate"
	"github.com/openlocale/langsync/yamlfile"
)

// Format selects the document codec.
type Format string

const (
	FormatAuto     Format = "auto"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// DetectFormat resolves a file's format from its extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("cannot detect format of %s (use an explicit format)", path)
}

// Options configures one pipeline run.
type Options struct {
	// SourceLang is the source language code; empty lets the service detect.
	SourceLang string
	// TargetLangs are the target language codes, one run per language.
	TargetLangs []string
	// Files are the source documents.
	Files []string
	// OutputPattern is the target path template. "{lang}" is replaced by
	// the target language code; "{name}" by the source file's base name
	// without extension. It must contain "{lang}".
	OutputPattern string
	// Format forces a codec; FormatAuto detects per file.
	Format Format
	// DryRun computes diffs and sizes but performs no network call or write.
	DryRun bool
	// Concurrency bounds the worker pool over (file × language) pairs.
	// Values below 1 mean sequential.
	Concurrency int
	// MaxBatchItems and MaxBatchChars bound one translation request.
	MaxBatchItems int
	MaxBatchChars int
	// ContinueOnError isolates failures to their pair instead of
	// cancelling the whole run.
	ContinueOnError bool
	// Logf receives progress and warning lines. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

const (
	defaultMaxBatchItems = 50
	defaultMaxBatchChars = 5000
)

func (o Options) maxBatchItems() int {
	if o.MaxBatchItems > 0 {
		return o.MaxBatchItems
	}
	return defaultMaxBatchItems
}

func (o Options) maxBatchChars() int {
	if o.MaxBatchChars > 0 {
		return o.MaxBatchChars
	}
	return defaultMaxBatchChars
}

func (o Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Totals aggregates a run.
type Totals struct {
	// FilesWritten counts output files actually written.
	FilesWritten int
	// CharsSubmitted counts source characters sent to the service.
	CharsSubmitted int
}

// pairResult is one worker's contribution, merged after the pool drains.
type pairResult struct {
	written bool
	chars   int
}

// Run processes every (file × language) pair and returns aggregate
// totals. With ContinueOnError set, pair failures are collected and
// returned joined after all pairs finish; otherwise the first failure
// cancels the remaining pairs.
func Run(ctx context.Context, svc translate.Service, opts Options) (Totals, error) {
	if len(opts.Files) == 0 {
		return Totals{}, fmt.Errorf("no input files")
	}
	if len(opts.TargetLangs) == 0 {
		return Totals{}, fmt.Errorf("no target languages")
	}
	if !strings.Contains(opts.OutputPattern, "{lang}") {
		return Totals{}, fmt.Errorf("output pattern %q must contain {lang}", opts.OutputPattern)
	}

	type pair struct {
		file string
		lang string
	}
	var pairs []pair
	for _, file := range opts.Files {
		for _, lang := range opts.TargetLangs {
			pairs = append(pairs, pair{file: file, lang: lang})
		}
	}

	results := make([]pairResult, len(pairs))
	pairErrs := make([]error, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := runPair(gctx, svc, p.file, p.lang, opts)
			if err != nil {
				err = fmt.Errorf("%s [%s]: %w", p.file, p.lang, err)
				if opts.ContinueOnError {
					opts.logf("[WARN] %v", err)
					pairErrs[i] = err
					return nil
				}
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Totals{}, err
	}

	var totals Totals
	for _, r := range results {
		if r.written {
			totals.FilesWritten++
		}
		totals.CharsSubmitted += r.chars
	}
	return totals, errors.Join(pairErrs...)
}

// OutputPath expands the output pattern for one (file, lang) pair.
func OutputPath(pattern, file, lang string) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	out := strings.ReplaceAll(pattern, "{lang}", lang)
	return strings.ReplaceAll(out, "{name}", name)
}

func runPair(ctx context.Context, svc translate.Service, file, lang string, opts Options) (pairResult, error) {
	format := opts.Format
	if format == "" || format == FormatAuto {
		var err error
		if format, err = DetectFormat(file); err != nil {
			return pairResult{}, err
		}
	}

	outPath := OutputPath(opts.OutputPattern, file, lang)
	switch format {
	case FormatJSON, FormatYAML:
		return runKeyed(ctx, svc, format, file, outPath, lang, opts)
	case FormatMarkdown:
		return runMarkdown(ctx, svc, file, outPath, lang, opts)
	}
	return pairResult{}, fmt.Errorf("unsupported format %q", format)
}

// runKeyed is the JSON/YAML path: flatten, diff against the existing
// target, mask placeholders, batch, translate, restore, merge, write.
func runKeyed(ctx context.Context, svc translate.Service, format Format, file, outPath, lang string, opts Options) (pairResult, error) {
	source, indent, err := parseKeyed(format, file)
	if err != nil {
		return pairResult{}, err
	}

	entries := doctree.Flatten(source)
	if len(entries) == 0 {
		return pairResult{}, nil
	}

	existing, err := parseExisting(format, outPath)
	if err != nil {
		return pairResult{}, err
	}

	delta := diff.Diff(entries, existing)
	if len(delta) == 0 {
		opts.logf("%s [%s]: up to date", file, lang)
		return pairResult{}, nil
	}

	// Mask placeholders per entry; indexes stay aligned with delta.
	masked := make([]string, len(delta))
	guards := make([]placeholder.ProtectedText, len(delta))
	chars := 0
	for i, e := range delta {
		guards[i] = placeholder.Protect(e.Value)
		masked[i] = guards[i].Text
		chars += len(masked[i])
	}

	batches := batch.Split(masked, opts.maxBatchItems(), opts.maxBatchChars())
	if opts.DryRun {
		opts.logf("%s [%s]: dry run, %d units in %d batches (%d chars)", file, lang, len(delta), len(batches), chars)
		return pairResult{chars: chars}, nil
	}

	// Batches run strictly in sequence: the merge needs all of them.
	translatedMap := make(map[string]string, len(delta))
	next := 0
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return pairResult{}, err
		}
		translations, err := svc.Translate(ctx, translate.Request{
			Texts:      b,
			TargetLang: lang,
			SourceLang: opts.SourceLang,
			Format:     translate.FormatText,
		})
		if err != nil {
			return pairResult{}, err
		}
		if len(translations) != len(b) {
			return pairResult{}, fmt.Errorf("service returned %d translations for a batch of %d", len(translations), len(b))
		}
		for j, tr := range translations {
			entry := delta[next+j]
			restored, missing := placeholder.Restore(tr.Text, guards[next+j].Placeholders)
			for _, lost := range missing {
				opts.logf("[WARN] %s [%s]: placeholder %q lost in translation of %q", file, lang, lost, entry.Key)
			}
			translatedMap[entry.Key] = restored
		}
		next += len(b)
	}

	merged := diff.Merge(source, translatedMap, existing)
	if err := writeKeyed(format, outPath, merged, indent); err != nil {
		return pairResult{}, err
	}
	opts.logf("%s [%s]: translated %d units -> %s", file, lang, len(delta), outPath)
	return pairResult{written: true, chars: chars}, nil
}

// runMarkdown retranslates the whole body every run: Markdown has no
// per-unit key model to diff on. The body is submitted as HTML-formatted
// content; placeholders are not masked on this path.
func runMarkdown(ctx context.Context, svc translate.Service, file, outPath, lang string, opts Options) (pairResult, error) {
	doc, err := mdfile.ParseFile(file)
	if err != nil {
		return pairResult{}, err
	}
	if strings.TrimSpace(doc.Body) == "" {
		return pairResult{}, nil
	}

	chars := len(doc.Body)
	if opts.DryRun {
		opts.logf("%s [%s]: dry run, %d body chars", file, lang, chars)
		return pairResult{chars: chars}, nil
	}

	translations, err := svc.Translate(ctx, translate.Request{
		Texts:      []string{doc.Body},
		TargetLang: lang,
		SourceLang: opts.SourceLang,
		Format:     translate.FormatHTML,
	})
	if err != nil {
		return pairResult{}, err
	}
	if len(translations) != 1 {
		return pairResult{}, fmt.Errorf("service returned %d translations for one document body", len(translations))
	}

	out := mdfile.Document{Frontmatter: doc.Frontmatter, Body: translations[0].Text}
	if err := out.WriteFile(outPath); err != nil {
		return pairResult{}, err
	}
	opts.logf("%s [%s]: translated body -> %s", file, lang, outPath)
	return pairResult{written: true, chars: chars}, nil
}

// parseKeyed loads a source document. The indent is only meaningful for
// JSON and is carried to the output writer.
func parseKeyed(format Format, path string) (*doctree.Node, string, error) {
	switch format {
	case FormatJSON:
		f, err := jsonfile.ParseFile(path)
		if err != nil {
			return nil, "", err
		}
		return f.Root, f.Indent, nil
	case FormatYAML:
		f, err := yamlfile.ParseFile(path)
		if err != nil {
			return nil, "", err
		}
		return f.Root, "", nil
	}
	return nil, "", fmt.Errorf("unsupported keyed format %q", format)
}

// parseExisting loads a prior target document. A missing file means
// "translate everything" and is not an error.
func parseExisting(format Format, path string) (*doctree.Node, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}
	root, _, err := parseKeyed(format, path)
	return root, err
}

func writeKeyed(format Format, path string, root *doctree.Node, indent string) error {
	switch format {
	case FormatJSON:
		return (&jsonfile.File{Root: root, Indent: indent}).WriteFile(path)
	case FormatYAML:
		return (&yamlfile.File{Root: root}).WriteFile(path)
	}
	return fmt.Errorf("unsupported keyed format %q", format)
}
