package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/jiaming2012/daily-consolidator/src/eventmodels"
)

func WriteCSV[B eventmodels.ConsolidatedBar](w io.Writer, bars []B) error {
	rows := make([]*eventmodels.ConsolidatedBarDTO, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, eventmodels.NewConsolidatedBarDTO(bar))
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}

	return nil
}

func WriteCSVFile[B eventmodels.ConsolidatedBar](path string, bars []B) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("WriteCSVFile: failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteCSVFile: failed to create %s: %w", path, err)
	}

	defer file.Close()

	return WriteCSV(file, bars)
}
