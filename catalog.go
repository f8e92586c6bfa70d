package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/kits"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

func newSuggestCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "suggest <category>",
		Short: "Print alternatives for a category",
		Long:  "Suggest prints replacement tokens for one of: " + categoryList() + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := signals.ParseCategory(args[0])
			if err != nil {
				return usageError(err)
			}
			alts, err := signals.Alternatives(cat)
			if err != nil {
				return usageError(err)
			}
			if asJSON {
				return a.printJSON(map[string]any{"category": cat, "alternatives": alts})
			}
			fmt.Fprintf(a.stdout, "Alternatives for %s:\n", colorCyan.Sprint(cat))
			for _, alt := range alts {
				fmt.Fprintf(a.stdout, "  %s\n      %s\n", alt.Name, alt.Value)
				if alt.Replace != "" {
					fmt.Fprintf(a.stdout, "      instead of %s\n", alt.Replace)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func categoryList() string {
	names := make([]string, len(signals.Categories))
	for i, c := range signals.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func newSignalsCmd(a *app) *cobra.Command {
	var (
		category string
		severity string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List the signal catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := filterSignals(signals.Default(), category, severity)
			if err != nil {
				return usageError(err)
			}
			if asJSON {
				return a.printJSON(map[string]any{
					"catalogVersion": signals.Default().Version(),
					"count":          len(list),
					"signals":        list,
				})
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tSEVERITY\tNAME")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Category, severityColor(s.Severity).Sprint(s.Severity), s.Name)
			}
			if err := tw.Flush(); err != nil {
				return failed(err)
			}
			fmt.Fprintf(a.stdout, "\n%d signals, catalog %s\n", len(list), signals.Default().Version())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&category, "category", "", "only this category")
	f.StringVar(&severity, "severity", "", "only this severity and above")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// filterSignals applies the optional category and minimum severity.
func filterSignals(cat *signals.Catalog, category, severity string) ([]signals.Signal, error) {
	list := cat.List()
	if category != "" {
		c, err := signals.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		list = cat.ByCategory(c)
	}
	if severity != "" {
		min, err := signals.ParseSeverity(severity)
		if err != nil {
			return nil, err
		}
		kept := list[:0:0]
		for _, s := range list {
			if s.Severity.AtLeast(min) {
				kept = append(kept, s)
			}
		}
		list = kept
	}
	return list, nil
}

func newKitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kit",
		Short: "List, show and validate design kits",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List built-in kits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range kits.All() {
				fmt.Fprintf(a.stdout, "%-12s %s\n", k.Name, k.Description)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a kit as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := kits.Resolve(args[0])
			if err != nil {
				return usageError(err)
			}
			return a.printJSON(k)
		},
	}

	var asJSON bool
	validate := &cobra.Command{
		Use:   "validate <name|file>",
		Short: "Validate a built-in kit or a kit file",
		Long: `Validate grades every font, color, recipe and layout note in the kit and
checks the type scale, the required components and dark mode coverage. It
exits 1 when the kit does not pass.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			if strings.ContainsAny(ref, `/\.`) {
				ref = a.resolveArg(ref)
			}
			k, err := kits.Resolve(ref)
			if err != nil {
				return usageError(err)
			}
			res := kits.Validate(k, engine.NewAnalyzer(nil))
			if asJSON {
				if err := a.printJSON(res); err != nil {
					return err
				}
			} else {
				writeKitResult(a, res)
			}
			a.audit(support.AuditEntry{
				Command: "kit validate",
				Score:   res.Score,
				Grade:   string(res.Grade),
				Catalog: signals.Default().Version(),
				Result:  passFail(res.Passed),
				Detail:  res.Kit,
			})
			if !res.Passed {
				return failed(nil)
			}
			return nil
		},
	}
	validate.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(list, show, validate)
	return cmd
}

func writeKitResult(a *app, res kits.KitValidationResult) {
	status := colorGreen.Sprint("PASSED")
	if !res.Passed {
		status = colorRed.Sprint("FAILED")
	}
	fmt.Fprintf(a.stdout, "%s  kit %s: grade %s, score %d\n", status, res.Kit, res.Grade, res.Score)
	fmt.Fprintf(a.stdout, "  font sizes:  %d (max %d)\n", res.UniqueFontSizes, kits.MaxFontSizes)
	if res.HasAllComponents {
		fmt.Fprintln(a.stdout, "  components:  complete")
	} else {
		fmt.Fprintf(a.stdout, "  components:  missing %s\n", strings.Join(res.MissingComponents, ", "))
	}
	if res.DarkModeComplete {
		fmt.Fprintln(a.stdout, "  dark mode:   complete")
	} else {
		fmt.Fprintf(a.stdout, "  dark mode:   missing %s\n", strings.Join(res.MissingDarkTokens, ", "))
	}
	for _, d := range res.Detections {
		fmt.Fprintf(a.stdout, "  %s %s (%s)\n", severityColor(d.Severity).Sprintf("%-8s", d.Severity), d.Name, strings.Join(d.Literals(), ", "))
	}
	for _, p := range res.Problems {
		fmt.Fprintf(a.stdout, "  - %s\n", p)
	}
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return failed(err)
	}
	fmt.Fprintln(a.stdout, string(data))
	return nil
}
