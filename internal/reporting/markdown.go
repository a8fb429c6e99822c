package reporting

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Market Analytics Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Benchmark: %s\n\n", r.Benchmark))

	// Coverage
	sb.WriteString("## Coverage\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tickers | %d |\n", r.TickerCount))
	sb.WriteString(fmt.Sprintf("| Analytics Rows | %d |\n", r.StockRowCount))
	if !r.DateRangeStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", r.DateRangeStart.Format(dateLayout)))
		sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", r.DateRangeEnd.Format(dateLayout)))
	}
	sb.WriteString("\n")

	// Market breadth
	sb.WriteString("## Market Breadth\n\n")
	if len(r.Market) == 0 {
		sb.WriteString("No market indicator rows.\n\n")
	} else {
		sb.WriteString("| Date | Advancers | Decliners | A/D Line | Breakouts | % Above Avg Vol |\n")
		sb.WriteString("|------|-----------|-----------|----------|-----------|-----------------|\n")
		for _, m := range r.Market {
			breakouts := "-"
			if m.BreakoutCount != nil {
				breakouts = fmt.Sprintf("%d", *m.BreakoutCount)
			}
			pct := "-"
			if m.PctAboveAvgVolume != nil {
				pct = fmt.Sprintf("%.2f", *m.PctAboveAvgVolume)
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s | %s |\n",
				m.Date.Format(dateLayout), m.Advancers, m.Decliners, m.ADLine, breakouts, pct))
		}
		sb.WriteString("\n")
	}

	// Sector rotation, strongest ROC first
	sb.WriteString("## Sector Rotation\n\n")
	if len(r.Sectors) == 0 {
		sb.WriteString("No sector analytics for the latest date.\n\n")
	} else {
		sb.WriteString("| Sector | Group RS | ROC 20 | Above SMA20 | Above SMA50 | Above SMA200 |\n")
		sb.WriteString("|--------|----------|--------|-------------|-------------|--------------|\n")
		for _, s := range r.Sectors {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.2f | %s | %s | %s |\n",
				s.GroupName, s.GroupRSValue, s.ROC20,
				yesNo(s.AboveSMA20), yesNo(s.AboveSMA50), yesNo(s.AboveSMA200)))
		}
		sb.WriteString("\n")
	}

	// Breakouts
	sb.WriteString("## Latest Breakouts\n\n")
	if len(r.LatestBreakouts) == 0 {
		sb.WriteString("No high-volume breakouts on the latest date.\n")
	} else {
		for _, t := range r.LatestBreakouts {
			sb.WriteString(fmt.Sprintf("- %s\n", t))
		}
	}

	return sb.String()
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "no"
}
