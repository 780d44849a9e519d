package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"straddle-stream/internal/storage"
)

// Export renders archived straddle history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.Add(-24 * time.Hour)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	samples, err := store.ListSamplesBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		a.Logger.Info().Msg("no samples found for export window")
		return nil
	}

	a.Logger.Info().Int("samples", len(samples)).Msg("exporting straddle history")

	if opts.CSVPath != "" {
		if err := writeSamplesCSV(opts.CSVPath, samples); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSamplesPNG(opts.PNGPath, samples); err != nil {
			return err
		}
	}

	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func writeSamplesCSV(path string, samples []storage.StraddleSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"created_at", "index_id", "atm_strike", "call_price", "put_price", "straddle_price", "ltp"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		record := []string{
			sample.CreatedAt.UTC().Format(time.RFC3339),
			sample.IndexID,
			strconv.FormatInt(sample.AtmStrike, 10),
			sample.CallPrice.String(),
			sample.PutPrice.String(),
			sample.StraddlePrice.String(),
			sample.LTP.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// writeSamplesPNG charts the straddle price over time, one series per index.
func writeSamplesPNG(path string, samples []storage.StraddleSample) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	byIndex := make(map[string][]storage.StraddleSample)
	for _, sample := range samples {
		byIndex[sample.IndexID] = append(byIndex[sample.IndexID], sample)
	}

	indexIDs := make([]string, 0, len(byIndex))
	for id := range byIndex {
		indexIDs = append(indexIDs, id)
	}
	sort.Strings(indexIDs)

	series := make([]chart.Series, 0, len(indexIDs))
	for _, id := range indexIDs {
		rows := byIndex[id]
		x := make([]time.Time, len(rows))
		y := make([]float64, len(rows))
		for i, row := range rows {
			x[i] = row.CreatedAt
			y[i] = row.StraddlePrice.InexactFloat64()
		}
		series = append(series, chart.TimeSeries{
			Name:    id,
			XValues: x,
			YValues: y,
		})
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Straddle Price",
			ValueFormatter: priceFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}
