package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type MarkdownReportData struct {
	TotalFiles      int
	UnbalancedFiles int
	Findings        []Finding
}

type MarkdownReportOptions struct {
	ProjectName         string
	ProjectRoot         string
	Version             string
	GeneratedAt         time.Time
	TableOfContents     bool
	CollapsibleSections bool
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

type section struct {
	title   string
	anchor  string
	rule    string
	summary string
	empty   string
}

var sections = []section{
	{"Unbalanced Blocks", "unbalanced-blocks", RuleUnbalancedBlocks, "Block details", "All blocks are balanced."},
	{"Unresolved Includes", "unresolved-includes", RuleUnresolvedInclude, "Include details", "No unresolved includes detected."},
	{"Unresolved RUN Targets", "unresolved-run-targets", RuleUnresolvedRun, "RUN target details", "No unresolved RUN targets detected."},
}

func (m *MarkdownGenerator) Generate(data MarkdownReportData, opts MarkdownReportOptions) (string, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	byRule := make(map[string][]Finding)
	for _, f := range data.Findings {
		byRule[f.RuleID] = append(byRule[f.RuleID], f)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: ABL Check Report\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, "unknown") + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Check Report\n\n")
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Executive Summary](#executive-summary)\n")
		for _, s := range sections {
			b.WriteString(fmt.Sprintf("- [%s](#%s)\n", s.title, s.anchor))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Executive Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Files Checked | %d |\n", data.TotalFiles))
	b.WriteString(fmt.Sprintf("| Files With Unbalanced Blocks | %d |\n", data.UnbalancedFiles))
	b.WriteString(fmt.Sprintf("| Unresolved Includes | %d |\n", len(byRule[RuleUnresolvedInclude])))
	b.WriteString(fmt.Sprintf("| Unresolved RUN Targets | %d |\n\n", len(byRule[RuleUnresolvedRun])))

	for _, s := range sections {
		m.writeSection(&b, s, byRule[s.rule], opts.ProjectRoot, opts.CollapsibleSections)
	}
	return b.String(), nil
}

func (m *MarkdownGenerator) writeSection(b *strings.Builder, s section, rows []Finding, projectRoot string, collapsible bool) {
	b.WriteString("## " + s.title + "\n")
	if len(rows) == 0 {
		b.WriteString(s.empty + "\n\n")
		return
	}
	rendered := make([]string, 0, len(rows))
	for _, row := range rows {
		rendered = append(rendered, fmt.Sprintf(
			"| `%s` | %s | `%s:%d:%d` |\n",
			row.RuleID,
			row.Message,
			relPath(projectRoot, row.File),
			row.Line,
			row.Column,
		))
	}
	m.writeTableWithCollapse(
		b,
		s.summary,
		collapsible,
		len(rendered) > 10,
		[]string{"| Rule | Message | Location |\n", "| --- | --- | --- |\n"},
		rendered,
	)
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}

func relPath(root, path string) string {
	root = strings.TrimSpace(root)
	path = strings.TrimSpace(path)
	if root == "" || path == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
