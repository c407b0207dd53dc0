package slides

import (
	"github.com/matzehuels/scoreslides/pkg/chart"
	"github.com/matzehuels/scoreslides/pkg/dataset"
)

// Default returns the six slides of the student performance presentation:
// introduction, gender, parental education, race/ethnicity, lunch type and
// conclusion. opts apply to every chart.
func Default(store *dataset.Store, opts ...chart.Option) []Slide {
	return []Slide{
		{
			Name:  chart.Intro.Name,
			Title: chart.Intro.Title,
			New:   func() (chart.Chart, error) { return chart.NewText(store, chart.Intro, opts...), nil },
		},
		{
			Name:  chart.GenderBar.Name,
			Title: chart.GenderBar.Title,
			New:   func() (chart.Chart, error) { return chart.NewBar(store, chart.GenderBar, opts...) },
		},
		{
			Name:  chart.EducationGrouped.Name,
			Title: chart.EducationGrouped.Title,
			New:   func() (chart.Chart, error) { return chart.NewGrouped(store, chart.EducationGrouped, opts...) },
		},
		{
			Name:  chart.RaceStacked.Name,
			Title: chart.RaceStacked.Title,
			New:   func() (chart.Chart, error) { return chart.NewStacked(store, chart.RaceStacked, opts...) },
		},
		{
			Name:  chart.LunchScatter.Name,
			Title: chart.LunchScatter.Title,
			New:   func() (chart.Chart, error) { return chart.NewScatter(store, chart.LunchScatter, opts...) },
		},
		{
			Name:  chart.Conclusion.Name,
			Title: chart.Conclusion.Title,
			New:   func() (chart.Chart, error) { return chart.NewText(store, chart.Conclusion, opts...), nil },
		},
	}
}
