package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

const tableTimeLayout = "2006-01-02 15:04 MST"

// RenderTable writes one row per bar, with prices grouped in thousands.
func RenderTable[B eventmodels.ConsolidatedBar](w io.Writer, bars []B) {
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Start", "End", "Open", "High", "Low", "Close"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, bar := range bars {
		table.Append([]string{
			bar.GetSymbol().String(),
			bar.GetTime().Format(tableTimeLayout),
			bar.GetEndTime().Format(tableTimeLayout),
			p.Sprintf("%.5f", bar.GetOpen()),
			p.Sprintf("%.5f", bar.GetHigh()),
			p.Sprintf("%.5f", bar.GetLow()),
			p.Sprintf("%.5f", bar.GetClose()),
		})
	}

	table.SetFooter([]string{"", "", "", "", "", "Bars", fmt.Sprintf("%d", len(bars))})
	table.Render()
}
