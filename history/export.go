package history

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetRow struct {
	Season      int64  `parquet:"name=season, type=INT64"`
	Timestamp   string `parquet:"name=timestamp, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Caller      string `parquet:"name=caller, type=UTF8, encoding=PLAIN_DICTIONARY"`
	CaseID      int32  `parquet:"name=case_id, type=INT32"`
	DeltaB      string `parquet:"name=delta_b, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Price       string `parquet:"name=price, type=UTF8, encoding=PLAIN_DICTIONARY"`
	PodRate     string `parquet:"name=pod_rate, type=UTF8, encoding=PLAIN_DICTIONARY"`
	L2SR        string `parquet:"name=l2sr, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Minted      string `parquet:"name=minted, type=UTF8, encoding=PLAIN_DICTIONARY"`
	SiloBeans   string `parquet:"name=silo_beans, type=UTF8, encoding=PLAIN_DICTIONARY"`
	FieldBeans  string `parquet:"name=field_beans, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Soil        string `parquet:"name=soil, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Temperature string `parquet:"name=temperature, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Raining     bool   `parquet:"name=raining, type=BOOLEAN"`
	FloodAmount string `parquet:"name=flood_amount, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Incentive   string `parquet:"name=incentive, type=UTF8, encoding=PLAIN_DICTIONARY"`
	StalkTotal  string `parquet:"name=stalk_total, type=UTF8, encoding=PLAIN_DICTIONARY"`
	RootsTotal  string `parquet:"name=roots_total, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Digest      string `parquet:"name=digest, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

// ExportParquet writes the seasons in [from, to] to path and returns the
// number of rows written.
func (s *Store) ExportParquet(ctx context.Context, path string, from, to uint64) (int, error) {
	records, err := s.Range(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if err := writeParquet(path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func writeParquet(path string, records []SeasonRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("history: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("history: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range records {
		if err := pw.Write(toRow(&records[i])); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("history: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("history: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("history: close parquet file: %w", err)
	}
	return nil
}

func toRow(r *SeasonRecord) *parquetRow {
	row := &parquetRow{
		Season:      int64(r.Season),
		Timestamp:   r.Timestamp.UTC().Format(time.RFC3339),
		Caller:      r.Caller,
		CaseID:      int32(r.CaseID),
		DeltaB:      r.DeltaB,
		Price:       r.Price,
		PodRate:     r.PodRate,
		L2SR:        r.L2SR,
		Minted:      r.Minted,
		SiloBeans:   "0",
		FieldBeans:  "0",
		Soil:        r.Soil,
		Temperature: r.Temperature,
		Raining:     r.Raining,
		FloodAmount: r.FloodAmount,
		Incentive:   r.Incentive,
		StalkTotal:  r.StalkTotal,
		RootsTotal:  r.RootsTotal,
		Digest:      r.Digest,
	}
	for _, shipment := range r.Shipments {
		switch shipment.Route {
		case "silo":
			row.SiloBeans = shipment.Accepted
		case "field":
			row.FieldBeans = shipment.Accepted
		}
	}
	return row
}
