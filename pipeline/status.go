package pipeline

import (
	"strings"

	"github.com/openlocale/langsync/diff"
	"github.com/openlocale/langsync/doctree"
	"github.com/openlocale/langsync/mdfile"
)

// PairStatus reports translation progress for one (file, language) pair.
type PairStatus struct {
	File   string
	Lang   string
	Format Format
	// Total is the number of translatable units in the source.
	Total int
	// Missing is how many units the next run would submit. Markdown
	// reports its whole body as one unit that is always missing.
	Missing int
}

// Status inspects every (file × language) pair without any network
// calls or writes.
func Status(opts Options) ([]PairStatus, error) {
	var statuses []PairStatus
	for _, file := range opts.Files {
		format := opts.Format
		if format == "" || format == FormatAuto {
			var err error
			if format, err = DetectFormat(file); err != nil {
				return nil, err
			}
		}

		for _, lang := range opts.TargetLangs {
			st := PairStatus{File: file, Lang: lang, Format: format}
			outPath := OutputPath(opts.OutputPattern, file, lang)

			switch format {
			case FormatMarkdown:
				doc, err := mdfile.ParseFile(file)
				if err != nil {
					return nil, err
				}
				if strings.TrimSpace(doc.Body) != "" {
					st.Total = 1
					st.Missing = 1
				}
			default:
				source, _, err := parseKeyed(format, file)
				if err != nil {
					return nil, err
				}
				entries := doctree.Flatten(source)
				existing, err := parseExisting(format, outPath)
				if err != nil {
					return nil, err
				}
				st.Total = len(entries)
				st.Missing = len(diff.Diff(entries, existing))
			}

			statuses = append(statuses, st)
		}
	}
	return statuses, nil
}
