package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

// Summary describes a run of consolidated bars. Ranges are high minus low,
// returns are close over previous close minus one.
type Summary struct {
	Count        int
	MeanRange    float64
	StdDevRange  float64
	MeanReturn   float64
	StdDevReturn float64
	MinDuration  time.Duration
	MaxDuration  time.Duration
}

func Summarize[B eventmodels.ConsolidatedBar](bars []B) (Summary, error) {
	summary := Summary{Count: len(bars)}
	if len(bars) == 0 {
		return summary, nil
	}

	ranges := make([]float64, 0, len(bars))
	durations := make([]float64, 0, len(bars))
	var returns []float64

	for i, bar := range bars {
		ranges = append(ranges, bar.GetHigh()-bar.GetLow())
		durations = append(durations, float64(bar.GetEndTime().Sub(bar.GetTime())))

		if i > 0 && bars[i-1].GetClose() != 0 {
			returns = append(returns, bar.GetClose()/bars[i-1].GetClose()-1)
		}
	}

	var err error
	if summary.MeanRange, err = stats.Mean(ranges); err != nil {
		return Summary{}, fmt.Errorf("Summarize: mean range: %w", err)
	}

	if summary.StdDevRange, err = stats.StandardDeviation(ranges); err != nil {
		return Summary{}, fmt.Errorf("Summarize: range deviation: %w", err)
	}

	if len(returns) > 0 {
		if summary.MeanReturn, err = stats.Mean(returns); err != nil {
			return Summary{}, fmt.Errorf("Summarize: mean return: %w", err)
		}

		if summary.StdDevReturn, err = stats.StandardDeviation(returns); err != nil {
			return Summary{}, fmt.Errorf("Summarize: return deviation: %w", err)
		}
	}

	minDuration, err := stats.Min(durations)
	if err != nil {
		return Summary{}, fmt.Errorf("Summarize: min duration: %w", err)
	}

	maxDuration, err := stats.Max(durations)
	if err != nil {
		return Summary{}, fmt.Errorf("Summarize: max duration: %w", err)
	}

	summary.MinDuration = time.Duration(minDuration)
	summary.MaxDuration = time.Duration(maxDuration)

	return summary, nil
}

func (s Summary) String() string {
	p := message.NewPrinter(language.English)

	display := &strings.Builder{}
	display.WriteString(p.Sprintf("Bars: %d\n", s.Count))
	display.WriteString(p.Sprintf("Range: mean %.5f, std dev %.5f\n", s.MeanRange, s.StdDevRange))
	display.WriteString(p.Sprintf("Return: mean %.4f%%, std dev %.4f%%\n", s.MeanReturn*100, s.StdDevReturn*100))
	display.WriteString(fmt.Sprintf("Bar length: min %v, max %v\n", s.MinDuration, s.MaxDuration))

	return display.String()
}
