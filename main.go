// langsync translates structured text resources (JSON/YAML key-value
// trees, Markdown) incrementally via a remote translation service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openlocale/langsync/config"
	"github.com/openlocale/langsync/i18n"
	"github.com/openlocale/langsync/pipeline"
	"github.com/openlocale/langsync/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var cfgFile string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "langsync",
		Short: "Incremental translation of JSON/YAML/Markdown resources",
		Long: `langsync translates structured text resources incrementally.

Flattens JSON/YAML key-value trees into translation units, diffs them
against previously produced target files so only missing keys are sent,
masks interpolation placeholders across the translation call, and merges
results back without clobbering manual edits. Markdown documents keep
their frontmatter and have their body retranslated each run.

Commands:
  translate   Translate configured files into all target languages
  status      Show per-file/per-language translation progress
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./.langsync.yaml)")

	root.AddCommand(
		newTranslateCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("langsync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate (run the pipeline)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "translate [files...]",
		Short: "Translate configured files into all target languages",
		Long: `Translate source documents into every configured target language.

Only units missing from the target files are submitted; existing
translations (including manual edits) are preserved. Positional
arguments override the configured file list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				v.Set("files", args)
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return runTranslate(cmd.Context(), cfg)
		},
	}

	bindPipelineFlags(cmd, v)
	cmd.Flags().Bool("dry-run", false, "Compute diff and size, no network calls or writes")
	cmd.Flags().Bool("create-pr", false, "Request pull-request creation from the CI wrapper")
	cmd.Flags().String("service", "http", "Translation backend: http or openai")
	cmd.Flags().String("endpoint", "", "HTTP translation service URL")
	cmd.Flags().String("api-key", "", "Service API key (or LANGSYNC_API_KEY)")
	cmd.Flags().String("model", "", "Model name for the openai backend")
	cmd.Flags().Int("concurrency", 4, "Parallel file/language pairs")
	cmd.Flags().Int("max-retries", 3, "Retry budget per network call")
	cmd.Flags().Bool("continue-on-error", false, "Finish remaining pairs when one fails")
	v.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	v.BindPFlag("continue_on_error", cmd.Flags().Lookup("continue-on-error"))
	v.BindPFlag("create_pull_request", cmd.Flags().Lookup("create-pr"))
	v.BindPFlag("service", cmd.Flags().Lookup("service"))
	v.BindPFlag("endpoint", cmd.Flags().Lookup("endpoint"))
	v.BindPFlag("api_key", cmd.Flags().Lookup("api-key"))
	v.BindPFlag("model", cmd.Flags().Lookup("model"))
	v.BindPFlag("concurrency", cmd.Flags().Lookup("concurrency"))
	v.BindPFlag("max_retries", cmd.Flags().Lookup("max-retries"))

	return cmd
}

func runTranslate(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	logInfo(i18n.N("Translating %d file into %d language", "Translating %d files into %d languages", len(cfg.Files)),
		len(cfg.Files), len(cfg.TargetLangs))

	totals, err := pipeline.Run(ctx, svc, pipelineOptions(cfg))
	if err != nil {
		// With continue-on-error some pairs may have completed.
		if totals.FilesWritten > 0 {
			logWarning(i18n.T("Wrote %d files before failing"), totals.FilesWritten)
		}
		return err
	}

	if cfg.DryRun {
		logInfo(i18n.T("Dry run: no requests sent, no files written"))
	}
	if totals.FilesWritten == 0 && totals.CharsSubmitted == 0 {
		logInfo(i18n.T("Nothing to translate"))
		return nil
	}
	logSuccess(i18n.T("Wrote %d files (%d characters submitted)"), totals.FilesWritten, totals.CharsSubmitted)

	if cfg.CreatePullRequest && !cfg.DryRun {
		logInfo(i18n.T("Pull request creation is delegated to external CI tooling"))
	}
	return nil
}

// newService builds the configured translation backend.
func newService(cfg *config.Config) (translate.Service, error) {
	opts := translate.Options{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Logf:       logWarning,
	}
	switch cfg.Service {
	case "openai":
		return translate.NewOpenAIClient(cfg.APIKey, cfg.Model, opts), nil
	default:
		if cfg.DryRun && cfg.Endpoint == "" {
			// The dry-run path never calls the service.
			return translate.NewClient("http://dry-run.invalid", "", opts), nil
		}
		return translate.NewClient(cfg.Endpoint, cfg.APIKey, opts), nil
	}
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		SourceLang:      cfg.SourceLang,
		TargetLangs:     cfg.TargetLangs,
		Files:           cfg.Files,
		OutputPattern:   cfg.OutputPattern,
		Format:          pipeline.Format(cfg.Format),
		DryRun:          cfg.DryRun,
		Concurrency:     cfg.Concurrency,
		MaxBatchItems:   cfg.MaxBatchItems,
		MaxBatchChars:   cfg.MaxBatchChars,
		ContinueOnError: cfg.ContinueOnError,
		Logf:            logInfo,
	}
}

// ---------------------------------------------------------------------------
// status (read-only translation progress)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "status [files...]",
		Short: "Show per-file/per-language translation progress",
		Long: `Show how many translation units each target file is missing.

Reads source and target files only; never contacts the translation
service and never writes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				v.Set("files", args)
			}
			// Status needs no service; skip endpoint validation via dry-run.
			v.Set("dry_run", true)
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}

			statuses, err := pipeline.Status(pipelineOptions(cfg))
			if err != nil {
				return err
			}
			for _, st := range statuses {
				state := colorGreen + "up to date" + colorReset
				if st.Missing > 0 {
					state = fmt.Sprintf(colorYellow+"%d missing"+colorReset, st.Missing)
				}
				fmt.Printf("%-40s %-6s %3d units  %s\n", st.File, st.Lang, st.Total, state)
			}
			return nil
		},
	}

	bindPipelineFlags(cmd, v)
	return cmd
}

// bindPipelineFlags registers the flags shared by translate and status.
func bindPipelineFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().String("source-lang", "en", "Source language code")
	cmd.Flags().StringSlice("target-langs", nil, "Target language codes")
	cmd.Flags().String("output", "", "Output path pattern with {lang} (and optional {name})")
	cmd.Flags().String("format", "auto", "Input format: json, yaml, markdown, or auto")
	v.BindPFlag("source_lang", cmd.Flags().Lookup("source-lang"))
	v.BindPFlag("target_langs", cmd.Flags().Lookup("target-langs"))
	v.BindPFlag("output_pattern", cmd.Flags().Lookup("output"))
	v.BindPFlag("format", cmd.Flags().Lookup("format"))
}
