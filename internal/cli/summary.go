package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scoreslides/pkg/aggregate"
	"github.com/matzehuels/scoreslides/pkg/dataset"
	"github.com/matzehuels/scoreslides/pkg/errors"
)

// defaultSummaryDimensions are the dimensions the slides cover.
var defaultSummaryDimensions = []string{"gender", "parental education", "race/ethnicity", "lunch"}

// summaryOpts holds the command-line flags for the summary command.
type summaryOpts struct {
	sortBy string // metric to sort groups by, descending
	asJSON bool   // print JSON instead of tables
}

// dimensionSummary is the JSON form of one summary table.
type dimensionSummary struct {
	Dimension string              `json:"dimension"`
	Groups    []aggregate.Summary `json:"groups"`
}

// summaryCommand creates the summary command, which prints the group means
// behind the slides.
func (c *CLI) summaryCommand() *cobra.Command {
	var opts summaryOpts

	cmd := &cobra.Command{
		Use:   "summary [dimension...]",
		Short: "Print mean scores per group",
		Long: `Print the number of students and the mean scores of every group of a
dimension. Without arguments the dimensions shown on the slides are printed.`,
		Example: `  scoreslides summary
  scoreslides summary gender lunch --sort math
  scoreslides summary "test preparation" --json`,
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return dataset.Dimensions(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = defaultSummaryDimensions
			}
			return c.runSummary(cmd.Context(), os.Stdout, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "sort groups by metric: average, math, reading, writing")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON")

	return cmd
}

// runSummary aggregates the records once per dimension and prints the results.
func (c *CLI) runSummary(ctx context.Context, w io.Writer, dims []string, opts summaryOpts) error {
	store, err := c.loadStore(ctx)
	if err != nil {
		return err
	}
	summaries, err := summarize(store, dims, opts.sortBy)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	for _, s := range summaries {
		fmt.Fprintln(w, StyleTitle.Render(s.Dimension))
		fmt.Fprintln(w, summaryTable(s))
	}
	return nil
}

// summarize aggregates store by each dimension. Groups keep their data order
// unless sortBy names a metric.
func summarize(store *dataset.Store, dims []string, sortBy string) ([]dimensionSummary, error) {
	if sortBy != "" && !validMetric(sortBy) {
		return nil, errors.New(errors.ErrCodeUnknownMetric, "unknown metric %q", sortBy)
	}
	out := make([]dimensionSummary, 0, len(dims))
	for _, dim := range dims {
		by, err := dataset.Dimension(dim)
		if err != nil {
			return nil, err
		}
		res, err := aggregate.Aggregate(store.Records(), by, aggregate.AllScores)
		if err != nil {
			return nil, err
		}
		s := dimensionSummary{Dimension: dim}
		for _, g := range res.Groups() {
			sum, _ := res.Summary(g)
			s.Groups = append(s.Groups, sum)
		}
		if sortBy != "" {
			sort.SliceStable(s.Groups, func(i, j int) bool {
				return s.Groups[i].Values[sortBy] > s.Groups[j].Values[sortBy]
			})
		}
		out = append(out, s)
	}
	return out, nil
}

func validMetric(name string) bool {
	for _, m := range aggregate.AllScores {
		if m.Name == name {
			return true
		}
	}
	return false
}

// summaryTable renders one dimension as a table.
func summaryTable(s dimensionSummary) string {
	metrics := aggregate.Names(aggregate.AllScores)
	headers := append([]string{"Group", "Students"}, metrics...)

	rows := make([][]string, 0, len(s.Groups))
	for _, g := range s.Groups {
		row := []string{g.Group, strconv.Itoa(g.Count)}
		for _, m := range metrics {
			row = append(row, strconv.FormatFloat(g.Values[m], 'f', 1, 64))
		}
		rows = append(rows, row)
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return cellStyle.Foreground(colorWhite)
			}
			return cellStyle.Foreground(colorGray).Align(lipgloss.Right)
		})
	return t.Render()
}
