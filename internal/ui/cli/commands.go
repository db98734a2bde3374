package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"proscope/internal/core/analysis"
	"proscope/internal/core/document"
	"proscope/internal/core/errors"
	"proscope/internal/engine/highlight"
	"proscope/internal/engine/index"
	"proscope/internal/engine/parser"
	"proscope/internal/shared/util"
	"proscope/internal/ui/report"

	"github.com/spf13/cobra"
)

func newOutlineCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "outline <file>",
		Short: "Print the code outline of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := rt.openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			renderOutline(cmd.OutOrStdout(), s.Outline())
			return nil
		},
	}
}

func newCompleteCmd(rt *runtime) *cobra.Command {
	var (
		line   int
		prefix string
		limit  int
		params bool
	)
	cmd := &cobra.Command{
		Use:   "complete <file>",
		Short: "List completion entries visible from a line",
		Long: `List the completion entries visible from a line, prefix matches first in
document order, then near matches by similarity.

Examples:
  proscope complete order.p --line 40 --prefix cust
  proscope complete order.p -l 40 -p get --params`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := rt.openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			items := s.Complete(prefix, line-1)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			out := cmd.OutOrStdout()
			for _, c := range items {
				fmt.Fprintf(out, "%s\t%s\t%s\n", c.Text, c.Type, c.Owner)
				if params && (c.Type == index.CompletionProcedure || c.Type == index.CompletionFunction) {
					for _, p := range s.ProcedureParameters(c) {
						fmt.Fprintf(out, "  %s\n", formatParameter(p))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&line, "line", "l", 1, "1-based line the caret is on")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "typed prefix")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries (0 for all)")
	cmd.Flags().BoolVar(&params, "params", false, "list parameters of procedures and functions")
	return cmd
}

func newHighlightCmd(rt *runtime) *cobra.Command {
	var (
		from, to int
		raw      bool
	)
	cmd := &cobra.Command{
		Use:   "highlight <file>",
		Short: "Print a line range with syntax styles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := document.New()
			if err := doc.Load(args[0]); err != nil {
				return err
			}
			h := highlight.Highlighter{Editor: doc}

			last := to - 1
			if to <= 0 {
				last = len(lineBounds(doc.Text())) - 1
			}
			spans := h.Colorize(from-1, last)

			out := cmd.OutOrStdout()
			if raw {
				for _, s := range spans {
					fmt.Fprintf(out, "%d:%d-%d\t%s\n", s.Line+1, s.Start, s.End, s.Style)
				}
				return nil
			}
			first := from - 1
			if first > last {
				first, last = last, first
			}
			renderSource(out, doc.Text(), spans, first, last)
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 1, "first 1-based line")
	cmd.Flags().IntVar(&to, "to", 0, "last 1-based line (0 for end of file)")
	cmd.Flags().BoolVar(&raw, "spans", false, "print style spans instead of styled source")
	return cmd
}

func newFindCmd(rt *runtime) *cobra.Command {
	var (
		exts string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Locate a source file through the propath",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extensions := rt.cfg.Propath.Extensions
			if exts != "" {
				extensions = util.NormalizeExtensions(util.SplitList(exts))
			}

			var found []string
			if all {
				found = rt.locator.FindFiles(args[0], extensions)
			} else if path, ok := rt.locator.FindFile(args[0], extensions); ok {
				found = []string{path}
			}
			if len(found) == 0 {
				return errors.AddContext(errors.New(errors.CodeNotFound, "file not found in propath"), "name", args[0])
			}
			for _, path := range found {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&exts, "ext", "", "comma separated extensions to try (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "list every match in propath order")
	return cmd
}

func newCheckCmd(rt *runtime) *cobra.Command {
	var sarifPath, markdownPath string
	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Report block balance and unresolved references",
		Long: `Analyse each file once and report unbalanced blocks, includes missing from
the propath and RUN targets that resolve to nothing.

Examples:
  proscope check src/order.p src/customer.p
  proscope check src/*.p --sarif check.sarif --markdown check.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := document.New()
			s, err := analysis.New(doc, rt.sessionOptions())
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			var findings []report.Finding
			unbalanced, failed := 0, 0
			for _, path := range args {
				if err := doc.Load(path); err != nil {
					return err
				}
				snap, err := analyseNow(s, path)
				if err != nil {
					fmt.Fprintf(out, "%s: %s\n", path, errorStyle.Render("analysis failed"))
					failed++
					continue
				}

				status := successStyle.Render("ok")
				if !snap.ParsingOk {
					status = errorStyle.Render("unbalanced blocks")
					unbalanced++
				}
				fmt.Fprintf(out, "%s: %s (%d items, %d lines)\n", path, status, len(snap.Items), snap.LineCount())
				found := report.Collect(snap, s)
				for _, f := range found {
					fmt.Fprintf(out, "  %d:%d %s %s\n", f.Line, f.Column, levelStyle(f.Level).Render(f.Level), f.Message)
				}
				findings = append(findings, found...)
			}

			if err := writeReports(sarifPath, markdownPath, len(args), unbalanced, findings); err != nil {
				return err
			}
			if failed > 0 {
				return errors.New(errors.CodeInternal, fmt.Sprintf("%d file(s) failed analysis", failed))
			}
			if unbalanced > 0 {
				return fmt.Errorf("%d file(s) with unbalanced blocks", unbalanced)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sarifPath, "sarif", "", "write findings as SARIF to this file")
	cmd.Flags().StringVar(&markdownPath, "markdown", "", "write a markdown report to this file")
	return cmd
}

// analyseNow runs one immediate pass and returns its snapshot. A pass that
// faulted publishes nothing, which leaves the previous file's snapshot in
// place; that case is reported as an error instead of being checked.
func analyseNow(s *analysis.Session, path string) (*analysis.Snapshot, error) {
	before := s.Snapshot().Version
	s.RequestReanalysis(true)
	snap := s.Snapshot()
	if snap.Version == before || snap.FilePath != path {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "analysis pass failed"), errors.CtxPath, path)
	}
	return snap, nil
}

func writeReports(sarifPath, markdownPath string, files, unbalanced int, findings []report.Finding) error {
	if sarifPath == "" && markdownPath == "" {
		return nil
	}
	root, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "resolve working directory")
	}
	if sarifPath != "" {
		data, err := report.GenerateSARIF(root, versionString, findings)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "generate SARIF report")
		}
		if err := os.WriteFile(sarifPath, data, 0o644); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeIO, "write SARIF report"), "path", sarifPath)
		}
	}
	if markdownPath != "" {
		md, err := report.NewMarkdownGenerator().Generate(
			report.MarkdownReportData{TotalFiles: files, UnbalancedFiles: unbalanced, Findings: findings},
			report.MarkdownReportOptions{
				ProjectName:         filepath.Base(root),
				ProjectRoot:         root,
				Version:             versionString,
				TableOfContents:     true,
				CollapsibleSections: true,
			},
		)
		if err != nil {
			return err
		}
		if err := os.WriteFile(markdownPath, []byte(md), 0o644); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeIO, "write markdown report"), "path", markdownPath)
		}
	}
	return nil
}

func formatParameter(p *parser.Definition) string {
	parts := []string{p.Direction.String(), p.Name}
	if p.DataType != "" {
		kw := "AS"
		if p.IsLike {
			kw = "LIKE"
		}
		parts = append(parts, kw, p.DataType)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
