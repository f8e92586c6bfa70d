package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

// keepMarker in a file opts it out of fix plans.
const keepMarker = "antislop:keep"

type fixAction struct {
	File      string           `json:"file"`
	Line      int              `json:"line,omitempty"`
	SignalID  string           `json:"signalId"`
	Severity  signals.Severity `json:"severity"`
	Effort    signals.Effort   `json:"effort,omitempty"`
	Fix       string           `json:"fix"`
	Literal   string           `json:"literal"`
	Before    string           `json:"before,omitempty"`
	After     string           `json:"after,omitempty"`
	Patchable bool             `json:"patchable"`
}

type fixSkip struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

type fixPlan struct {
	GeneratedAt string      `json:"generatedAt"`
	Catalog     string      `json:"catalogVersion"`
	Files       int         `json:"files"`
	Actions     []fixAction `json:"actions"`
	Patchable   int         `json:"patchable"`
	Skipped     []fixSkip   `json:"skipped,omitempty"`
	Preview     bool        `json:"preview"`
}

func newPlanCmd(a *app) *cobra.Command {
	var severity string
	cmd := &cobra.Command{
		Use:   "plan [paths|globs...]",
		Short: "Write a fix plan and a preview patch",
		Long: `Plan grades the given files and writes fix-plan.json and fix.patch to the
output directory. Nothing is applied: review the patch and apply it yourself
with git apply. Files containing "antislop:keep" are left out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, patch, err := a.buildPlan(cmd.Context(), args, severity)
			if err != nil {
				return err
			}
			planPath, patchPath := a.output("fix-plan.json"), a.output("fix.patch")
			if err := support.WriteJSONAtomic(planPath, plan); err != nil {
				return failed(fmt.Errorf("cannot write fix-plan.json: %w", err))
			}
			if err := support.WriteFileAtomic(patchPath, []byte(patch)); err != nil {
				return failed(fmt.Errorf("cannot write fix.patch: %w", err))
			}
			a.audit(support.AuditEntry{
				Command: "plan",
				Files:   plan.Files,
				Catalog: plan.Catalog,
				Result:  "PREVIEW",
				Detail:  fmt.Sprintf("%d actions, %d patchable", len(plan.Actions), plan.Patchable),
			})
			fmt.Fprintf(a.stdout, "%d actions (%d patchable) across %d files\n", len(plan.Actions), plan.Patchable, plan.Files)
			fmt.Fprintf(a.stdout, "Plan:  %s\nPatch: %s\n", planPath, patchPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&severity, "severity", "", "minimum severity: info, warning, critical")
	return cmd
}

func (a *app) buildPlan(ctx context.Context, args []string, severity string) (*fixPlan, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	root := a.root()
	an := engine.NewAnalyzer(nil)
	if severity != "" {
		min, err := signals.ParseSeverity(severity)
		if err != nil {
			return nil, "", usageError(err)
		}
		an.MinSeverity = min
	}
	paths, missing, err := collectFiles(root, args, a.cfg.Scan.Extensions, a.cfg.Scan.Ignore)
	if err != nil {
		return nil, "", usageError(err)
	}
	if len(paths) == 0 {
		return nil, "", usagef("no files to plan under %s", root)
	}

	plan := &fixPlan{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Catalog:     an.Catalog.Version(),
		Actions:     []fixAction{},
		Preview:     true,
	}
	for _, m := range missing {
		plan.Skipped = append(plan.Skipped, fixSkip{File: m, Reason: "no such file"})
	}

	files, _ := a.analyzeFiles(ctx, an, root, paths, a.cfg.Scan.Concurrency)
	var patch strings.Builder
	for _, fr := range files {
		if fr.Result == nil || len(fr.Result.Detections) == 0 {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(fr.Path)))
		if err != nil {
			plan.Skipped = append(plan.Skipped, fixSkip{File: fr.Path, Reason: err.Error()})
			continue
		}
		text := normalizeNewlines(string(data))
		if strings.Contains(text, keepMarker) {
			plan.Skipped = append(plan.Skipped, fixSkip{File: fr.Path, Reason: keepMarker})
			continue
		}
		plan.Files++
		actions, hunks := planFile(an.Catalog, fr.Path, strings.Split(text, "\n"), fr.Result.Detections)
		plan.Actions = append(plan.Actions, actions...)
		for _, act := range actions {
			if act.Patchable {
				plan.Patchable++
			}
		}
		patch.WriteString(hunks)
	}
	return plan, patch.String(), nil
}

// planFile turns one file's detections into actions and a unified diff.
// An action is patchable when its replacement maps onto the matched line.
func planFile(cat *signals.Catalog, path string, lines []string, dets []engine.Detection) ([]fixAction, string) {
	edited := map[int]string{}
	var actions []fixAction
	for _, d := range dets {
		sig, ok := cat.Lookup(d.SignalID)
		if !ok {
			continue
		}
		fix, ok := firstFix(sig, d.Literals())
		if !ok {
			continue
		}
		seen := map[string]bool{}
		for _, m := range d.Matches {
			key := fmt.Sprintf("%d|%s", m.Location.Line, m.Literal)
			if seen[key] {
				continue
			}
			seen[key] = true
			act := fixAction{
				File:     path,
				Line:     m.Location.Line,
				SignalID: d.SignalID,
				Severity: d.Severity,
				Effort:   fix.Effort,
				Fix:      fix.Description,
				Literal:  m.Literal,
			}
			ln := m.Location.Line
			if ln > 0 && ln <= len(lines) && fix.Replacement != "" {
				current, ok := edited[ln]
				if !ok {
					current = lines[ln-1]
				}
				if next, ok := rewriteLine(current, m.Literal, fix.Replacement); ok {
					act.Before, act.After, act.Patchable = lines[ln-1], next, true
					edited[ln] = next
				}
			}
			actions = append(actions, act)
		}
	}
	return actions, renderPatch(path, lines, edited)
}

func firstFix(sig signals.Signal, literals []string) (signals.QuickFix, bool) {
	for _, f := range sig.QuickFixes {
		if f.AppliesTo(literals) {
			return f, true
		}
	}
	return signals.QuickFix{}, false
}

var replacementDecl = regexp.MustCompile(`^\s*(--?[A-Za-z][-\w]*|[A-Za-z][-\w]*)\s*:`)

// rewriteLine applies a replacement to one line. A declaration replacement
// swaps the declaration of the same property; plain text swaps the matched
// literal. ok is false when the replacement does not fit the line.
func rewriteLine(line, literal, replacement string) (string, bool) {
	if m := replacementDecl.FindStringSubmatch(replacement); m != nil {
		prop := regexp.QuoteMeta(m[1])
		existing := regexp.MustCompile(`(^|[\s;{"'])` + prop + `\s*:\s*[^;"'}]*;?`)
		loc := existing.FindStringSubmatchIndex(line)
		if loc == nil || !strings.Contains(line[loc[0]:loc[1]], literal) {
			return line, false
		}
		start := loc[3]
		out := line[:start] + strings.TrimSpace(replacement) + line[loc[1]:]
		return out, out != line
	}
	i := strings.Index(line, literal)
	if i < 0 {
		return line, false
	}
	out := line[:i] + replacement + line[i+len(literal):]
	return out, out != line
}

// renderPatch emits a git-apply compatible diff with one zero-context hunk
// per edited line.
func renderPatch(path string, lines []string, edited map[int]string) string {
	if len(edited) == 0 {
		return ""
	}
	nums := make([]int, 0, len(edited))
	for n := range edited {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)
	for _, n := range nums {
		fmt.Fprintf(&b, "@@ -%d,1 +%d,1 @@\n-%s\n+%s\n", n, n, lines[n-1], edited[n])
	}
	return b.String()
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
