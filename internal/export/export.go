// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrNothingToExport is returned when no transaction matches the filters.
var ErrNothingToExport = errors.New("no transactions match the export criteria")

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// Options configures the export behavior
type Options struct {
	Format       Format
	StartTime    time.Time
	EndTime      time.Time
	SymbolFilter string
	SideFilter   domain.Side
	OutputDir    string
}

// Exporter writes transaction history to files.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates a new history exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Export writes the transactions matching options and returns the file path.
func (e *Exporter) Export(txs []domain.Transaction, options Options) (string, error) {
	filtered := Filter(txs, options)
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}

	if options.OutputDir == "" {
		options.OutputDir = "."
	}
	outputPath := filepath.Join(options.OutputDir, e.filename(options))

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = writeCSV(filtered, outputPath)
	case FormatJSON:
		err = e.writeJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("History exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// Filter returns the transactions matching options, oldest first.
func Filter(txs []domain.Transaction, options Options) []domain.Transaction {
	symbol := domain.CanonicalSymbol(options.SymbolFilter)

	var filtered []domain.Transaction
	for _, tx := range txs {
		if !options.StartTime.IsZero() && tx.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !tx.Timestamp.Before(options.EndTime) {
			continue
		}
		if symbol != "" && tx.Symbol != symbol {
			continue
		}
		if options.SideFilter != "" && tx.Side != options.SideFilter {
			continue
		}
		filtered = append(filtered, tx)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})
	return filtered
}

func (e *Exporter) filename(options Options) string {
	prefix := "history_all"
	if options.SideFilter != "" {
		prefix = "history_" + options.SideFilter.Lower()
	}
	if s := domain.CanonicalSymbol(options.SymbolFilter); s != "" {
		prefix += "_" + s
	}
	return fmt.Sprintf("%s_%s.%s", prefix, e.now().Format("20060102_150405"), options.Format)
}

// CSVHeaders returns the column names of a CSV export.
func CSVHeaders() []string {
	return []string{"id", "timestamp", "side", "symbol", "quantity", "price", "amount"}
}

func csvRecord(tx domain.Transaction) []string {
	return []string{
		strconv.FormatInt(tx.ID, 10),
		tx.Timestamp.UTC().Format(time.RFC3339),
		string(tx.Side),
		tx.Symbol,
		strconv.FormatInt(tx.Quantity, 10),
		tx.Price.StringFixed(2),
		tx.Amount().StringFixed(2),
	}
}

func writeCSV(txs []domain.Transaction, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, tx := range txs {
		if err := writer.Write(csvRecord(tx)); err != nil {
			return fmt.Errorf("failed to write transaction: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

type jsonTransaction struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Side      domain.Side     `json:"side"`
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
}

func (e *Exporter) writeJSON(txs []domain.Transaction, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	rows := make([]jsonTransaction, len(txs))
	for i, tx := range txs {
		rows[i] = jsonTransaction{
			ID:        tx.ID,
			Timestamp: tx.Timestamp.UTC(),
			Side:      tx.Side,
			Symbol:    tx.Symbol,
			Quantity:  tx.Quantity,
			Price:     tx.Price,
			Amount:    tx.Amount(),
		}
	}

	exportData := struct {
		ExportTime   time.Time         `json:"export_time"`
		Count        int               `json:"count"`
		Summary      Summary           `json:"summary"`
		Transactions []jsonTransaction `json:"transactions"`
	}{
		ExportTime:   e.now().UTC(),
		Count:        len(txs),
		Summary:      Summarize(txs),
		Transactions: rows,
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary aggregates a set of transactions.
type Summary struct {
	Total         int             `json:"total"`
	BuyCount      int             `json:"buy_count"`
	SellCount     int             `json:"sell_count"`
	UniqueSymbols int             `json:"unique_symbols"`
	BoughtAmount  decimal.Decimal `json:"bought_amount"`
	SoldAmount    decimal.Decimal `json:"sold_amount"`
	NetCashFlow   decimal.Decimal `json:"net_cash_flow"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
}

// Summarize computes totals over txs, which must be sorted oldest first.
func Summarize(txs []domain.Transaction) Summary {
	summary := Summary{Total: len(txs)}
	if len(txs) == 0 {
		return summary
	}
	summary.StartDate = txs[0].Timestamp.UTC()
	summary.EndDate = txs[len(txs)-1].Timestamp.UTC()

	symbols := make(map[string]struct{})
	for _, tx := range txs {
		symbols[tx.Symbol] = struct{}{}
		switch tx.Side {
		case domain.SideBuy:
			summary.BuyCount++
			summary.BoughtAmount = summary.BoughtAmount.Add(tx.Amount())
		case domain.SideSell:
			summary.SellCount++
			summary.SoldAmount = summary.SoldAmount.Add(tx.Amount())
		}
	}
	summary.UniqueSymbols = len(symbols)
	summary.NetCashFlow = summary.SoldAmount.Sub(summary.BoughtAmount)
	return summary
}

// HourlyStats represents trading activity within one hour of a day.
type HourlyStats struct {
	Hour      int             `json:"hour"`
	Count     int             `json:"count"`
	BuyCount  int             `json:"buy_count"`
	SellCount int             `json:"sell_count"`
	Volume    decimal.Decimal `json:"volume"`
}

// DailyReport summarizes one calendar day of history.
type DailyReport struct {
	Date            time.Time     `json:"date"`
	Summary         Summary       `json:"summary"`
	HourlyBreakdown []HourlyStats `json:"hourly_breakdown"`
}

// ExportDailyReport writes a JSON report of the transactions made on date.
// It returns an empty path when that day has no activity.
func (e *Exporter) ExportDailyReport(txs []domain.Transaction, date time.Time, outputDir string) (string, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	filtered := Filter(txs, Options{StartTime: startOfDay, EndTime: startOfDay.AddDate(0, 0, 1)})
	if len(filtered) == 0 {
		e.logger.Info("No transactions for daily report", zap.Time("date", startOfDay))
		return "", nil
	}

	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))

	report := DailyReport{
		Date:            startOfDay,
		Summary:         Summarize(filtered),
		HourlyBreakdown: hourlyBreakdown(filtered, date.Location()),
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	e.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("transactions", len(filtered)))

	return outputPath, nil
}

func hourlyBreakdown(txs []domain.Transaction, loc *time.Location) []HourlyStats {
	byHour := make(map[int]*HourlyStats)
	for _, tx := range txs {
		hour := tx.Timestamp.In(loc).Hour()
		stats, ok := byHour[hour]
		if !ok {
			stats = &HourlyStats{Hour: hour}
			byHour[hour] = stats
		}
		stats.Count++
		stats.Volume = stats.Volume.Add(tx.Amount())
		if tx.Side == domain.SideBuy {
			stats.BuyCount++
		} else {
			stats.SellCount++
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, ok := byHour[hour]; ok {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
