package collector

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"shrinkray/internal/engine"
	"shrinkray/internal/model"
)

// FormatText writes a summary in human-readable format.
func FormatText(w io.Writer, s *Summary, thresholds *ThresholdResults) {
	if s.Processed == 0 {
		fmt.Fprintln(w, "No customers simulated")
		return
	}

	status := "complete"
	if !s.Complete {
		status = "partial"
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Shrink Ray - Simulation Results")
	fmt.Fprintln(w, "===============================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:       %s\n", FormatDuration(s.Duration))
	fmt.Fprintf(w, "Customers:      %s / %s (%s)\n",
		humanize.Comma(int64(s.Processed)), humanize.Comma(int64(s.N)), status)
	fmt.Fprintf(w, "Decisions/sec:  %s\n", humanize.CommafWithDigits(math.Round(s.DecisionsPerSec), 0))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Simulated:")
	fmt.Fprintf(w, "  Sold:         %s (informed %s / uninformed %s)\n",
		humanize.Comma(int64(s.Sold)), humanize.Comma(int64(s.SoldInformed)), humanize.Comma(int64(s.SoldUninformed)))
	fmt.Fprintf(w, "  Sell-through: %s\n", FormatPercent(s.SoldShare*100))
	fmt.Fprintf(w, "  Revenue:      %s\n", FormatMoney(s.Revenue))
	fmt.Fprintf(w, "  Cost:         %s\n", FormatMoney(s.Cost))
	fmt.Fprintf(w, "  Profit:       %s\n", FormatMoney(s.Profit))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Analytic:")
	fmt.Fprintf(w, "  Sold:         %s\n", humanize.CommafWithDigits(math.Round(s.ExpectedSold), 0))
	fmt.Fprintf(w, "  Profit:       %s\n", FormatMoney(s.ExpectedProfit))
	fmt.Fprintf(w, "  Margin/box:   %s\n", FormatMoney(s.Margin))
	fmt.Fprintf(w, "  Shares:       D_I=%.4f D_U=%.4f total=%.4f\n", s.Shares.DI, s.Shares.DU, s.Shares.Total)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Error vs analytic:")
	fmt.Fprintf(w, "  Sold:         %s\n", FormatPercent(s.SoldError))
	fmt.Fprintf(w, "  Profit:       %s\n", FormatPercent(s.ProfitError))

	if thresholds != nil && len(thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Thresholds:")
		for _, result := range thresholds.Results {
			symbol := "✓"
			if !result.Passed {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s |%s| < %s (actual: %s)\n",
				symbol, result.Name, result.Threshold, result.Actual)
		}
	}
}

// FormatJSON writes a summary in JSON format. Undefined errors encode as null.
func FormatJSON(w io.Writer, s *Summary, thresholds *ThresholdResults) {
	output := struct {
		Duration        string            `json:"duration"`
		Processed       int               `json:"processed"`
		N               int               `json:"N"`
		Complete        bool              `json:"complete"`
		Sold            int               `json:"sold"`
		SoldInformed    int               `json:"soldInformed"`
		SoldUninformed  int               `json:"soldUninformed"`
		Revenue         float64           `json:"revenue"`
		Cost            float64           `json:"cost"`
		Profit          float64           `json:"profit"`
		SoldShare       float64           `json:"soldShare"`
		ExpectedSold    *float64          `json:"expectedSold"`
		ExpectedProfit  *float64          `json:"expectedProfit"`
		Margin          *float64          `json:"margin"`
		Shares          model.Shares      `json:"shares"`
		SoldError       *float64          `json:"soldErrorPct"`
		ProfitError     *float64          `json:"profitErrorPct"`
		DecisionsPerSec float64           `json:"decisionsPerSec"`
		Thresholds      *ThresholdResults `json:"thresholds,omitempty"`
	}{
		Duration:        s.Duration.Round(time.Millisecond).String(),
		Processed:       s.Processed,
		N:               s.N,
		Complete:        s.Complete,
		Sold:            s.Sold,
		SoldInformed:    s.SoldInformed,
		SoldUninformed:  s.SoldUninformed,
		Revenue:         s.Revenue,
		Cost:            s.Cost,
		Profit:          s.Profit,
		SoldShare:       s.SoldShare,
		ExpectedSold:    jsonFloat(s.ExpectedSold),
		ExpectedProfit:  jsonFloat(s.ExpectedProfit),
		Margin:          jsonFloat(s.Margin),
		Shares:          s.Shares,
		SoldError:       jsonFloat(s.SoldError),
		ProfitError:     jsonFloat(s.ProfitError),
		DecisionsPerSec: s.DecisionsPerSec,
		Thresholds:      thresholds,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

// FormatSweepText writes the sweep table followed by the best box size.
func FormatSweepText(w io.Writer, p model.Params, points []model.SweepPoint) {
	if len(points) == 0 {
		fmt.Fprintln(w, "No sweep points")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Q\texpected sold\texpected profit\tmargin/box\tD_total\tregime\t")
	for _, pt := range points {
		q := p
		q.Q = pt.Q
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%s\t\n",
			strconv.FormatFloat(pt.Q, 'f', -1, 64),
			humanize.CommafWithDigits(math.Round(pt.Projection.ExpectedSold*10)/10, 1),
			FormatMoney(pt.Projection.ExpectedProfit),
			FormatMoney(pt.Projection.Margin),
			pt.Projection.Shares.Total,
			model.ClassifyRegime(q))
	}
	_ = tw.Flush()

	if best, ok := model.Best(points); ok {
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "Best Q: %s g (expected profit %s, margin/box %s)\n",
			strconv.FormatFloat(best.Q, 'f', -1, 64),
			FormatMoney(best.Projection.ExpectedProfit),
			FormatMoney(best.Projection.Margin))
	}
}

// FormatSweepJSON writes the sweep points and the best box size.
func FormatSweepJSON(w io.Writer, points []model.SweepPoint) {
	type row struct {
		Q              float64      `json:"Q"`
		ExpectedSold   *float64     `json:"expectedSold"`
		ExpectedProfit *float64     `json:"expectedProfit"`
		Margin         *float64     `json:"margin"`
		Shares         model.Shares `json:"shares"`
	}
	output := struct {
		Points []row `json:"points"`
		Best   *row  `json:"best,omitempty"`
	}{Points: make([]row, 0, len(points))}

	toRow := func(pt model.SweepPoint) row {
		return row{
			Q:              pt.Q,
			ExpectedSold:   jsonFloat(pt.Projection.ExpectedSold),
			ExpectedProfit: jsonFloat(pt.Projection.ExpectedProfit),
			Margin:         jsonFloat(pt.Projection.Margin),
			Shares:         pt.Projection.Shares,
		}
	}
	for _, pt := range points {
		output.Points = append(output.Points, toRow(pt))
	}
	if best, ok := model.Best(points); ok {
		b := toRow(best)
		output.Best = &b
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}

// SweepCSVHeader is the column set of the sweep export.
var SweepCSVHeader = []string{
	"Q", "expected_sold", "expected_profit", "margin_per_box",
	"D_i", "D_u", "D_total",
	"P", "C", "alpha", "V_I", "V_U", "Q_star", "strictQStar", "N",
}

// WriteSweepCSV writes one row per sweep point. The model parameters are
// repeated on every row so the file stands alone.
func WriteSweepCSV(w io.Writer, p model.Params, points []model.SweepPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SweepCSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	strict := "0"
	if p.StrictQStar {
		strict = "1"
	}
	for _, pt := range points {
		pr := pt.Projection
		record := []string{
			csvFloat(pt.Q),
			csvFloat(pr.ExpectedSold),
			csvFloat(pr.ExpectedProfit),
			csvFloat(pr.Margin),
			csvFloat(pr.Shares.DI),
			csvFloat(pr.Shares.DU),
			csvFloat(pr.Shares.Total),
			csvFloat(p.P),
			csvFloat(p.C),
			csvFloat(p.Alpha),
			csvFloat(p.VI),
			csvFloat(p.VU),
			csvFloat(p.QStar),
			strict,
			strconv.Itoa(p.N),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SweepFilename is the default export name for a sweep of p.
func SweepFilename(p model.Params) string {
	return fmt.Sprintf("shrink-ray-sweep_P%.2f_alpha%.3f.csv", p.P, p.Alpha)
}

// FormatConvergenceText writes one row per study size.
func FormatConvergenceText(w io.Writer, points []engine.ConvergencePoint) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "N\tsold\tsell-through\texpected\trelative error\t")
	for _, pt := range points {
		fmt.Fprintf(tw, "%s\t%s\t%.5f\t%.5f\t%s\t\n",
			humanize.Comma(int64(pt.N)),
			humanize.Comma(int64(pt.Sold)),
			pt.SoldShare,
			pt.ExpectedShare,
			FormatPercent(pt.RelativeError*100))
	}
	_ = tw.Flush()
}

// FormatConvergenceJSON writes the study as a JSON array.
func FormatConvergenceJSON(w io.Writer, points []engine.ConvergencePoint) {
	type row struct {
		N             int      `json:"N"`
		Sold          int      `json:"sold"`
		SoldShare     float64  `json:"soldShare"`
		ExpectedShare float64  `json:"expectedShare"`
		RelativeError *float64 `json:"relativeError"`
	}
	rows := make([]row, 0, len(points))
	for _, pt := range points {
		rows = append(rows, row{
			N:             pt.N,
			Sold:          pt.Sold,
			SoldShare:     pt.SoldShare,
			ExpectedShare: pt.ExpectedShare,
			RelativeError: jsonFloat(pt.RelativeError),
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(rows)
}

// FormatMoney prints dollars with cents below $10 and whole dollars
// otherwise. Non-finite values print as "-".
func FormatMoney(x float64) string {
	if !finite(x) {
		return "-"
	}
	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	if x < 10 {
		return sign + "$" + strconv.FormatFloat(x, 'f', 2, 64)
	}
	return sign + "$" + humanize.CommafWithDigits(math.Round(x), 0)
}

// FormatPercent prints a percentage with two decimals, or "-" when undefined.
func FormatPercent(x float64) string {
	if !finite(x) {
		return "-"
	}
	return strconv.FormatFloat(x, 'f', 2, 64) + "%"
}

func jsonFloat(x float64) *float64 {
	if !finite(x) {
		return nil
	}
	return &x
}

func csvFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
