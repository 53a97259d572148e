// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/codemap/internal/gaps"
	"github.com/jonathan/codemap/internal/matching"
	"github.com/jonathan/codemap/internal/proficiency"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintReadiness outputs the service load state.
func (p *Printer) PrintReadiness(r matching.Readiness) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:   %s\n", r.Status))
	sb.WriteString(fmt.Sprintf("State:    %s\n", r.State))
	sb.WriteString(fmt.Sprintf("Postings: %d", r.Postings))
	if r.Message != "" {
		sb.WriteString(fmt.Sprintf("\n%s", r.Message))
	}
	p.printBox("READINESS", sb.String())
}

// PrintMatches outputs ranked postings with scores and requirements.
func (p *Printer) PrintMatches(resp *matching.RankResponse) {
	if resp == nil {
		return
	}
	if len(resp.TopMatches) == 0 {
		p.printBox("TOP MATCHES", "No matching postings")
		return
	}

	var sb strings.Builder
	if resp.UserTestID != 0 {
		sb.WriteString(fmt.Sprintf("User: %d\n\n", resp.UserTestID))
	}

	for i, m := range resp.TopMatches {
		sb.WriteString(fmt.Sprintf("#%d  %s  (job %d)\n", i+1, m.JobTitle, m.JobIndex))
		sb.WriteString(fmt.Sprintf("    Similarity: %.2f%%\n", m.SimilarityPercentage))
		if skills := levelList(m.RequiredSkills); skills != "" {
			sb.WriteString(fmt.Sprintf("    Skills: %s\n", skills))
		}
		if knowledge := levelList(m.RequiredKnowledge); knowledge != "" {
			sb.WriteString(fmt.Sprintf("    Knowledge: %s\n", knowledge))
		}
		if m.Degraded() {
			sb.WriteString(fmt.Sprintf("    ⚠ fallback: %s\n", strings.Join(m.DegradedFields, ", ")))
		}
		if i < len(resp.TopMatches)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("TOP MATCHES", strings.TrimSuffix(sb.String(), "\n"))
}

func levelList(m proficiency.Map) string {
	entries := m.Entries()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s (%s)", e.Name, e.Level))
	}
	return strings.Join(parts, ", ")
}

// PrintGapRecord outputs one classification with per-item status.
func (p *Printer) PrintGapRecord(rec *gaps.Record) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:  %s (%d)\n", rec.JobTitle, rec.JobIndex))
	sb.WriteString(fmt.Sprintf("User: %d\n", rec.UserTestID))
	writeStatusSection(&sb, "Skills", rec.SkillStatus)
	writeStatusSection(&sb, "Knowledge", rec.KnowledgeStatus)

	p.printBox("SKILL GAP ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

var statusMarks = map[gaps.Status]string{
	gaps.Achieved: "✓",
	gaps.Weak:     "~",
	gaps.Missing:  "✗",
}

func writeStatusSection(sb *strings.Builder, title string, m gaps.StatusMap) {
	if len(m) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s:\n", title))
	for _, item := range m {
		sb.WriteString(fmt.Sprintf("  %s %s: %s (have %s, need %s)\n",
			statusMarks[item.Status], item.Name, item.Status, item.UserLevel, item.RequiredLevel))
	}
}

// PrintGapSummary outputs per-posting counts from a batch classification.
func (p *Printer) PrintGapSummary(results []gaps.JobGap) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	failed := 0
	for _, g := range results {
		if g.Failed {
			failed++
		}
	}
	sb.WriteString(fmt.Sprintf("Postings: %d  Failed: %d\n\n", len(results), failed))

	shown := 0
	for _, g := range results {
		if shown == maxItemsToShow {
			break
		}
		shown++
		if g.Failed {
			sb.WriteString(fmt.Sprintf("✗ %s (%d): %s\n", g.JobTitle, g.JobIndex, g.Error))
			continue
		}
		a := g.GapAnalysis
		sb.WriteString(fmt.Sprintf("%s (%d)\n", g.JobTitle, g.JobIndex))
		sb.WriteString(fmt.Sprintf("    achieved %d  weak %d  missing %d\n",
			a.Skills.Count(gaps.Achieved)+a.Knowledge.Count(gaps.Achieved),
			a.Skills.Count(gaps.Weak)+a.Knowledge.Count(gaps.Weak),
			a.Skills.Count(gaps.Missing)+a.Knowledge.Count(gaps.Missing)))
	}
	if len(results) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more postings\n", len(results)-maxItemsToShow))
	}

	p.printBox("SKILL GAPS ACROSS CORPUS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintUserSkills outputs the stored skills and knowledge for a user.
func (p *Printer) PrintUserSkills(us *gaps.UserSkills) {
	if us == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("User: %d\n", us.UserTestID))
	for _, sec := range []struct {
		title string
		m     proficiency.Map
	}{{"Skills", us.Skills}, {"Knowledge", us.Knowledge}} {
		sb.WriteString(fmt.Sprintf("\n%s:\n", sec.title))
		if sec.m.Len() == 0 {
			sb.WriteString("  (none)\n")
			continue
		}
		for _, e := range sec.m.Entries() {
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", e.Name, e.Level))
		}
	}

	p.printBox("USER SKILLS AND KNOWLEDGE", strings.TrimSuffix(sb.String(), "\n"))
}
