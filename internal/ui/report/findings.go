package report

import (
	"fmt"
	"sort"

	"proscope/internal/core/analysis"
	"proscope/internal/engine/parser"
)

const (
	RuleUnbalancedBlocks  = "PRO001"
	RuleUnresolvedInclude = "PRO002"
	RuleUnresolvedRun     = "PRO003"
)

// Finding is one problem reported by a check run. Line and Column are
// 1-based; zero means the finding applies to the whole file.
type Finding struct {
	RuleID  string
	Level   string
	File    string
	Line    int
	Column  int
	Message string
}

// Resolver maps references of a snapshot to files.
type Resolver interface {
	ResolveInclude(inc *parser.Include) (string, bool)
	RunParameters(use *parser.UsePoint) ([]*parser.Definition, bool)
}

// Collect returns the findings of one analysed file in line order.
func Collect(snap *analysis.Snapshot, r Resolver) []Finding {
	var out []Finding
	if !snap.ParsingOk {
		out = append(out, unbalanced(snap)...)
	}
	for _, it := range snap.Items {
		switch v := it.(type) {
		case *parser.Include:
			if _, ok := r.ResolveInclude(v); !ok {
				out = append(out, at(snap.FilePath, v.Position, Finding{
					RuleID:  RuleUnresolvedInclude,
					Level:   "warning",
					Message: fmt.Sprintf("include %s not found in propath", v.Name),
				}))
			}
		case *parser.UsePoint:
			if _, ok := r.RunParameters(v); !ok {
				out = append(out, at(snap.FilePath, v.Position, Finding{
					RuleID:  RuleUnresolvedRun,
					Level:   "warning",
					Message: fmt.Sprintf("RUN target %s not found", v.Name),
				}))
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func unbalanced(snap *analysis.Snapshot) []Finding {
	var out []Finding
	for _, it := range snap.Items {
		s, ok := it.(*parser.Scope)
		if !ok || s.Closed || s.Prototype {
			continue
		}
		out = append(out, at(snap.FilePath, s.Position, Finding{
			RuleID:  RuleUnbalancedBlocks,
			Level:   "error",
			Message: fmt.Sprintf("%s %s is never closed", s.Kind, s.Name),
		}))
	}
	if len(out) == 0 {
		out = append(out, Finding{
			RuleID:  RuleUnbalancedBlocks,
			Level:   "error",
			File:    snap.FilePath,
			Message: "block structure is unbalanced",
		})
	}
	return out
}

func at(file string, pos parser.Position, f Finding) Finding {
	f.File = file
	f.Line = pos.Line + 1
	f.Column = pos.Column + 1
	return f
}
