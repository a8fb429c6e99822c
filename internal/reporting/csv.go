package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders market indicator rows as CSV string.
func RenderCSV(rows []MarketRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("date,advancers,decliners,ad_line,high_volume_breakout_count,pct_above_avg_volume\n")

	// Rows
	for _, m := range rows {
		breakouts := ""
		if m.BreakoutCount != nil {
			breakouts = fmt.Sprintf("%d", *m.BreakoutCount)
		}
		pct := ""
		if m.PctAboveAvgVolume != nil {
			pct = fmt.Sprintf("%.6f", *m.PctAboveAvgVolume)
		}
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%s,%s\n",
			m.Date.Format(dateLayout),
			m.Advancers,
			m.Decliners,
			m.ADLine,
			breakouts,
			pct,
		))
	}

	return sb.String()
}
