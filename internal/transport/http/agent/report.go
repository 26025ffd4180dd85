package agenthttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleReport renders the per-action outcome totals as an HTML bar chart.
func (r *Router) handleReport(c *gin.Context) {
	totals, err := r.Actions.ActionTotals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	axis := make([]string, 0, len(totals))
	successes := make([]opts.BarData, 0, len(totals))
	errorsBar := make([]opts.BarData, 0, len(totals))
	for _, t := range totals {
		axis = append(axis, t.Action)
		successes = append(successes, opts.BarData{Value: t.Successes})
		errorsBar = append(errorsBar, opts.BarData{Value: t.Errors})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Agent action outcomes",
			Subtitle: "success and error counts per catalog action",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45}}),
	)
	bar.SetXAxis(axis).
		AddSeries("success", successes).
		AddSeries("error", errorsBar)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := bar.Render(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
