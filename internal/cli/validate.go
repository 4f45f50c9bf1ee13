package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formgraph/internal/compiler"
)

// ValidateResult is the validate command's payload.
type ValidateResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <principles-file>",
		Short: "Validate a principles document",
		Long: `Parse a CUE or YAML principles document and report every semantic
problem, plus warnings for cycles in the morph graph.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	p, err := ParsePrinciples(path)
	if err != nil {
		formatter.Error(ErrCodeParse, err.Error(), nil)
		return err
	}

	result := &ValidateResult{
		Errors:   compiler.Validate(p),
		Warnings: compiler.AnalyzeCycles(p),
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		if formatter.Format != "json" {
			for _, e := range result.Errors {
				fmt.Fprintf(formatter.Writer, "error: %s\n", e.Error())
			}
		}
		formatter.Error(ErrCodeValidation,
			fmt.Sprintf("%d validation error(s)", len(result.Errors)), result.Errors)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d validation error(s)", path, len(result.Errors)))
	}

	if formatter.Format != "json" {
		for _, w := range result.Warnings {
			fmt.Fprintf(formatter.Writer, "warning: %s\n", w.Message)
		}
	}

	return formatter.Successf(result, "%s is valid (%d warning(s))", path, len(result.Warnings))
}
