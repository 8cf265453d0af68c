package livehttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"arena/internal/store/decisionlog"
)

// equityChartHandler renders the portfolio value per decision as a line chart.
func equityChartHandler(store *decisionlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := store.All(c.Request.Context())
		if err != nil {
			c.String(http.StatusInternalServerError, "loading decisions: %v", err)
			return
		}

		labels := make([]string, 0, len(records))
		points := make([]opts.LineData, 0, len(records))
		for _, rec := range records {
			labels = append(labels, rec.Timestamp.Format("01-02 15:04"))
			value, _ := rec.PortfolioValue.Float64()
			points = append(points, opts.LineData{Value: value})
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Theme:     types.ThemeWesteros,
				PageTitle: "Portfolio Equity",
				Width:     "1200px",
				Height:    "560px",
			}),
			charts.WithTitleOpts(opts.Title{
				Title:    "Portfolio value per decision",
				Subtitle: "USD, marked at the end of each trading cycle",
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		)
		line.SetXAxis(labels).
			AddSeries("portfolio", points).
			SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := line.Render(c.Writer); err != nil {
			c.String(http.StatusInternalServerError, "rendering chart: %v", err)
		}
	}
}
