package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/openlocale/langsync/translate"
)

// fakeService prefixes every input with "lang:" and records requests.
type fakeService struct {
	mu       sync.Mutex
	requests []translate.Request
	fail     error
}

func (f *fakeService) Translate(ctx context.Context, req translate.Request) ([]translate.Translation, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([]translate.Translation, len(req.Texts))
	for i, text := range req.Texts {
		out[i] = translate.Translation{Text: req.TargetLang + ":" + text, DetectedSourceLang: req.SourceLang}
	}
	return out, nil
}

func (f *fakeService) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func quietOptions(dir string) Options {
	return Options{
		SourceLang:    "en",
		OutputPattern: filepath.Join(dir, "out", "{lang}", "{name}.json"),
		Logf:          func(string, ...any) {},
	}
}

func TestRunTranslatesNewJSONTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.json")
	writeFile(t, src, `{
  "nav": {
    "home": "Home"
  }
}`)

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"fr"}

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if totals.FilesWritten != 1 {
		t.Fatalf("FilesWritten = %d, want 1", totals.FilesWritten)
	}
	if totals.CharsSubmitted != len("Home") {
		t.Fatalf("CharsSubmitted = %d, want %d", totals.CharsSubmitted, len("Home"))
	}

	out, err := os.ReadFile(filepath.Join(dir, "out", "fr", "app.json"))
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"nav\": {\n    \"home\": \"fr:Home\"\n  }\n}\n"
	if string(out) != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestRunPreservesExistingTranslationsAndOrder(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.json")
	writeFile(t, src, `{
  "a": "A",
  "b": "B",
  "c": "C"
}`)
	// Existing target with manual edits for a and b, in a different order.
	writeFile(t, filepath.Join(dir, "out", "de", "app.json"), `{
  "b": "B-manual",
  "a": "A-manual"
}`)

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"de"}

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if totals.CharsSubmitted != len("C") {
		t.Fatalf("CharsSubmitted = %d, want only the missing key", totals.CharsSubmitted)
	}

	out, err := os.ReadFile(filepath.Join(dir, "out", "de", "app.json"))
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"a\": \"A-manual\",\n  \"b\": \"B-manual\",\n  \"c\": \"de:C\"\n}\n"
	if string(out) != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestRunSkipsUpToDatePairWithoutRequests(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.json")
	writeFile(t, src, `{"a": "A"}`)
	writeFile(t, filepath.Join(dir, "out", "fr", "app.json"), `{"a": "Ah"}`)

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"fr"}

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if totals.FilesWritten != 0 || totals.CharsSubmitted != 0 {
		t.Fatalf("totals = %+v, want zero", totals)
	}
	if svc.requestCount() != 0 {
		t.Fatalf("requests = %d, want 0", svc.requestCount())
	}
}

func TestRunDryRunMakesNoCallsAndNoWrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.json")
	writeFile(t, src, `{"greeting": "Hello"}`)

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"fr"}
	opts.DryRun = true

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.requestCount() != 0 {
		t.Fatalf("dry run made %d requests", svc.requestCount())
	}
	if totals.FilesWritten != 0 {
		t.Fatalf("dry run wrote %d files", totals.FilesWritten)
	}
	if totals.CharsSubmitted != len("Hello") {
		t.Fatalf("CharsSubmitted = %d, want %d", totals.CharsSubmitted, len("Hello"))
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "fr", "app.json")); !os.IsNotExist(err) {
		t.Fatal("dry run should not write output")
	}
}

func TestRunMasksPlaceholdersOnKeyedPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.json")
	writeFile(t, src, `{"welcome": "Hello {name}, you have {{count}} items"}`)

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"fr"}

	if _, err := Run(context.Background(), svc, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The service never saw the raw placeholders.
	if len(svc.requests) != 1 {
		t.Fatalf("requests = %d", len(svc.requests))
	}
	sent := svc.requests[0].Texts[0]
	if strings.Contains(sent, "{name}") || strings.Contains(sent, "{{count}}") {
		t.Fatalf("placeholders leaked to the service: %q", sent)
	}

	// The output has them restored around the translated text.
	out, err := os.ReadFile(filepath.Join(dir, "out", "fr", "app.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "{name}") || !strings.Contains(string(out), "{{count}}") {
		t.Fatalf("placeholders not restored in output: %s", out)
	}
}

func TestRunYAMLPair(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.yaml")
	writeFile(t, src, "nav:\n  home: Home\ncount: 7\n")

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"es"}
	opts.OutputPattern = filepath.Join(dir, "out", "{lang}", "{name}.yaml")

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if totals.FilesWritten != 1 {
		t.Fatalf("FilesWritten = %d", totals.FilesWritten)
	}

	out, err := os.ReadFile(filepath.Join(dir, "out", "es", "app.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "home: es:Home") {
		t.Fatalf("output = %s", out)
	}
	if !strings.Contains(string(out), "count: 7") {
		t.Fatalf("opaque value lost: %s", out)
	}
}

func TestRunMarkdownRetranslatesBodyKeepsFrontmatter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "post.md")
	writeFile(t, src, "---\ntitle: Post\n---\n# Hello {name}\n")

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"fr"}
	opts.OutputPattern = filepath.Join(dir, "out", "{lang}", "{name}.md")

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if totals.FilesWritten != 1 {
		t.Fatalf("FilesWritten = %d", totals.FilesWritten)
	}

	// Markdown goes out unmasked as HTML-formatted content.
	if len(svc.requests) != 1 {
		t.Fatalf("requests = %d", len(svc.requests))
	}
	req := svc.requests[0]
	if req.Format != translate.FormatHTML {
		t.Fatalf("format = %q, want html", req.Format)
	}
	if !strings.Contains(req.Texts[0], "{name}") {
		t.Fatalf("markdown body should not be masked: %q", req.Texts[0])
	}

	out, err := os.ReadFile(filepath.Join(dir, "out", "fr", "post.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "---\ntitle: Post\n---\n") {
		t.Fatalf("frontmatter not preserved: %q", out)
	}
	if !strings.Contains(string(out), "fr:# Hello {name}") {
		t.Fatalf("body not translated: %q", out)
	}
}

func TestRunEmptyMarkdownBodySkipped(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.md")
	writeFile(t, src, "---\ntitle: Only frontmatter\n---\n\n")

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"fr"}
	opts.OutputPattern = filepath.Join(dir, "out", "{lang}", "{name}.md")

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if totals.FilesWritten != 0 || svc.requestCount() != 0 {
		t.Fatalf("empty body should be skipped, totals %+v requests %d", totals, svc.requestCount())
	}
}

func TestRunBatchesSequentiallyWithinPair(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.json")
	writeFile(t, src, `{"a": "aaaa", "b": "bbbb", "c": "cccc"}`)

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"fr"}
	opts.MaxBatchItems = 50
	opts.MaxBatchChars = 8 // forces 4+4, then 4

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.requestCount() != 2 {
		t.Fatalf("requests = %d, want 2 batches", svc.requestCount())
	}
	if totals.CharsSubmitted != 12 {
		t.Fatalf("CharsSubmitted = %d, want 12", totals.CharsSubmitted)
	}
}

func TestRunMultiplePairsBoundedPool(t *testing.T) {
	dir := t.TempDir()
	src1 := filepath.Join(dir, "one.json")
	src2 := filepath.Join(dir, "two.json")
	writeFile(t, src1, `{"k": "v1"}`)
	writeFile(t, src2, `{"k": "v2"}`)

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{src1, src2}
	opts.TargetLangs = []string{"fr", "de"}
	opts.Concurrency = 3

	totals, err := Run(context.Background(), svc, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if totals.FilesWritten != 4 {
		t.Fatalf("FilesWritten = %d, want 4", totals.FilesWritten)
	}
	for _, p := range []string{
		filepath.Join(dir, "out", "fr", "one.json"),
		filepath.Join(dir, "out", "de", "one.json"),
		filepath.Join(dir, "out", "fr", "two.json"),
		filepath.Join(dir, "out", "de", "two.json"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing output %s", p)
		}
	}
}

func TestRunContinueOnErrorIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	writeFile(t, good, `{"k": "v"}`)
	writeFile(t, bad, `{"broken":`)

	svc := &fakeService{}
	opts := quietOptions(dir)
	opts.Files = []string{bad, good}
	opts.TargetLangs = []string{"fr"}
	opts.ContinueOnError = true

	totals, err := Run(context.Background(), svc, opts)
	if err == nil {
		t.Fatal("expected joined pair error")
	}
	if !strings.Contains(err.Error(), "bad.json") {
		t.Fatalf("error should name the failing file: %v", err)
	}
	if totals.FilesWritten != 1 {
		t.Fatalf("good pair should still be written, totals %+v", totals)
	}
}

func TestRunFailFastStopsOnServiceError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.json")
	writeFile(t, src, `{"k": "v"}`)

	svc := &fakeService{fail: fmt.Errorf("service down")}
	opts := quietOptions(dir)
	opts.Files = []string{src}
	opts.TargetLangs = []string{"fr"}

	_, err := Run(context.Background(), svc, opts)
	if err == nil {
		t.Fatal("expected error")
	}
	// Pair context: file path and language.
	if !strings.Contains(err.Error(), "app.json") || !strings.Contains(err.Error(), "[fr]") {
		t.Fatalf("error lacks pair context: %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("locales/{lang}/{name}.json", "src/app.json", "pt")
	if got != "locales/pt/app.json" {
		t.Fatalf("OutputPath = %q", got)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.json", FormatJSON},
		{"a.yaml", FormatYAML},
		{"a.yml", FormatYAML},
		{"a.md", FormatMarkdown},
		{"a.markdown", FormatMarkdown},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if err != nil || got != tt.want {
			t.Fatalf("DetectFormat(%s) = %v, %v", tt.path, got, err)
		}
	}
	if _, err := DetectFormat("a.txt"); err == nil {
		t.Fatal("expected error for unknown extension")
	}
}
