package chart

import (
	"fmt"
	"io"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/train"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderLearningCurve writes an HTML page plotting the windowed mean reward
// and the exploration rate against training rounds.
func RenderLearningCurve(w io.Writer, title string, curve []train.CurvePoint) error {
	if len(curve) == 0 {
		return fmt.Errorf("render curve: no points")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "mean behaviour reward per window",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "round"}),
	)

	rounds := make([]string, 0, len(curve))
	rewards := make([]opts.LineData, 0, len(curve))
	eps := make([]opts.LineData, 0, len(curve))
	for _, p := range curve {
		rounds = append(rounds, fmt.Sprintf("%d", p.Round))
		rewards = append(rewards, opts.LineData{Value: p.AvgReward})
		eps = append(eps, opts.LineData{Value: p.Epsilon})
	}

	line = line.SetXAxis(rounds)
	line.AddSeries("avg reward", rewards)
	line.AddSeries("epsilon", eps)

	page := components.NewPage()
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render curve: %w", err)
	}
	return nil
}
