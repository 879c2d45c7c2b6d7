package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

func ReadQuoteBarsCSV(path string) ([]*eventmodels.QuoteBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadQuoteBarsCSV: failed to open %s: %w", path, err)
	}

	defer f.Close()

	var rows []*eventmodels.QuoteBarCSVDTO
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("ReadQuoteBarsCSV: failed to unmarshal %s: %w", path, err)
	}

	return quoteBarsFromRows(rows)
}

func ReadQuoteBarsCSVFrom(r io.Reader) ([]*eventmodels.QuoteBar, error) {
	var rows []*eventmodels.QuoteBarCSVDTO
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("ReadQuoteBarsCSVFrom: failed to unmarshal: %w", err)
	}

	return quoteBarsFromRows(rows)
}

func quoteBarsFromRows(rows []*eventmodels.QuoteBarCSVDTO) ([]*eventmodels.QuoteBar, error) {
	bars := make([]*eventmodels.QuoteBar, 0, len(rows))
	for i, row := range rows {
		bar, err := row.ToModel()
		if err != nil {
			// header is line 1
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}

		bars = append(bars, bar)
	}

	return bars, nil
}
