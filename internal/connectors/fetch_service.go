package connectors

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"

	"peerdata/internal/output"
)

type ExportService struct {
	collector Collector
	writer    *output.Writer
	logger    *slog.Logger
}

type ExportResult struct {
	Datasets int
	Rows     int
	Files    []string
}

func NewExportService(collector Collector, writer *output.Writer, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		collector: collector,
		writer:    writer,
		logger:    logger.With("collector", collector.Name()),
	}
}

// CollectAndWrite runs the collector and writes each dataset under its subdirectory.
func (s *ExportService) CollectAndWrite(ctx context.Context) (ExportResult, error) {
	datasets, err := s.collector.Collect(ctx)
	if err != nil {
		return ExportResult{}, err
	}

	res := ExportResult{}
	for _, ds := range datasets {
		var (
			p   string
			err error
		)
		if ds.Table != nil {
			p, err = s.writer.WriteTable(ctx, s.collector.Name(), ds.Name, ds.Table)
			res.Rows += ds.Table.Len()
		} else {
			ext := ds.Ext
			if ext == "" {
				ext = ".csv"
			}
			p, err = s.writer.WriteRaw(ctx, s.collector.Name(), ds.Name, ext, bytes.NewReader(ds.Raw))
		}
		if err != nil {
			return res, err
		}
		res.Datasets++
		res.Files = append(res.Files, p)
	}

	s.logger.Info("export finished",
		"datasets", res.Datasets,
		"rows", humanize.Comma(int64(res.Rows)))
	return res, nil
}
