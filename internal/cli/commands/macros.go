package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultgen/internal/cli/output"
	"github.com/leapstack-labs/vaultgen/internal/macro"
)

// NewMacrosCommand creates the macros command.
func NewMacrosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "macros",
		Short: "List the macro namespaces and their functions",
		Long: `List the Starlark macros of the macros directory. Every .star file is a
namespace whose public functions are callable from templates as
namespace.function(...). Files are parsed, not executed.`,
		Example: `  # List macros
  vaultgen macros

  # List macros as JSON
  vaultgen macros --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMacros(cmd)
		},
	}

	return cmd
}

func runMacros(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return err
	}

	namespaces, err := macro.ParseDir(cmdCtx.Cfg.MacrosDir)
	if err != nil {
		return fmt.Errorf("failed to parse macros: %w", err)
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(macrosJSON(namespaces))
	case output.ModeMarkdown:
		r.Header(1, fmt.Sprintf("Macros (%d namespaces)", len(namespaces)))
		for _, ns := range namespaces {
			r.Println(output.FormatHeader(2, ns.Name))
			r.Println(output.FormatKeyValue("File", ns.FilePath))
			r.Println("")
			for _, f := range ns.Functions {
				line := "`" + ns.Name + "." + f.Signature() + "`"
				if f.HasDocstring() {
					line += ": " + firstLine(f.Docstring)
				}
				r.Println("- " + line)
			}
			r.Println("")
		}
	default:
		r.Header(1, fmt.Sprintf("Macros (%d namespaces)", len(namespaces)))
		if len(namespaces) == 0 {
			r.Muted("No macros found in " + cmdCtx.Cfg.MacrosDir)
			return nil
		}
		for _, ns := range namespaces {
			r.Header(2, ns.Name)
			for _, f := range ns.Functions {
				line := "  " + r.Styles().TargetName.Render(ns.Name+"."+f.Signature())
				if f.HasDocstring() {
					line += r.Styles().Muted.Render("  " + firstLine(f.Docstring))
				}
				r.Println(line)
			}
		}
	}
	return nil
}

func macrosJSON(namespaces []*macro.ParsedNamespace) output.MacrosOutput {
	out := output.MacrosOutput{Namespaces: make([]output.MacroInfo, len(namespaces))}
	for i, ns := range namespaces {
		mi := output.MacroInfo{
			Namespace: ns.Name,
			FilePath:  ns.FilePath,
			Functions: make([]output.FunctionInfo, len(ns.Functions)),
		}
		for j, f := range ns.Functions {
			mi.Functions[j] = output.FunctionInfo{
				Name:      f.Name,
				Args:      nonNil(f.Args),
				Docstring: f.Docstring,
				Line:      f.Line,
			}
		}
		out.Namespaces[i] = mi
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
