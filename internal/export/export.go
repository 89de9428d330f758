package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/registry"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format    ExportFormat
	StartTime time.Time
	EndTime   time.Time
	// Exchange and Symbol filter case-insensitively when set.
	Exchange  string
	Symbol    string
	OutputDir string
}

// GraduationExporter writes registry entries to files.
type GraduationExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewGraduationExporter(logger *zap.Logger) *GraduationExporter {
	return &GraduationExporter{
		logger: logger,
		now:    time.Now,
	}
}

// CSVHeaders is the column layout of CSV exports.
func CSVHeaders() []string {
	return []string{
		"graduated_at", "pool", "mint", "symbol", "exchange", "exchange_pool", "lp_kind",
		"base_to_liquidity", "tokens_to_liquidity", "total_lp", "creator_lp", "protocol_lp",
		"community_lp", "graduation_fee", "staking_pool", "governance",
	}
}

func toCSV(e registry.Entry) []string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	return []string{
		e.GraduatedAt.UTC().Format(time.RFC3339),
		e.Pool.String(),
		e.Mint.String(),
		e.Symbol,
		e.Exchange,
		e.ExchangePool.String(),
		e.LPKind,
		u(e.BaseToLiquidity),
		u(e.TokensToLiquidity),
		u(e.TotalLP),
		u(e.CreatorLP),
		u(e.ProtocolLP),
		u(e.CommunityLP),
		u(e.GraduationFee),
		e.StakingPool.String(),
		e.Governance.String(),
	}
}

// ExportGraduations writes the entries matching options and returns the
// file path.
func (ge *GraduationExporter) ExportGraduations(entries []registry.Entry, options ExportOptions) (string, error) {
	filtered := ge.filter(entries, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no graduations match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].GraduatedAt.Before(filtered[j].GraduatedAt)
	})

	outputPath := filepath.Join(options.OutputDir, ge.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = ge.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = ge.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	ge.logger.Info("Graduations exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func (ge *GraduationExporter) filter(entries []registry.Entry, options ExportOptions) []registry.Entry {
	var filtered []registry.Entry
	for _, e := range entries {
		if !options.StartTime.IsZero() && e.GraduatedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && !e.GraduatedAt.Before(options.EndTime) {
			continue
		}
		if options.Exchange != "" && !strings.EqualFold(e.Exchange, options.Exchange) {
			continue
		}
		if options.Symbol != "" && !strings.EqualFold(e.Symbol, options.Symbol) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func (ge *GraduationExporter) generateFilename(options ExportOptions) string {
	prefix := "graduations_all"
	if options.Exchange != "" {
		prefix = "graduations_" + strings.ToLower(options.Exchange)
	}
	if options.Symbol != "" {
		prefix += "_" + strings.ToUpper(options.Symbol)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, ge.now().Format("20060102_150405"), options.Format)
}

func (ge *GraduationExporter) exportToCSV(entries []registry.Entry, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range entries {
		if err := writer.Write(toCSV(e)); err != nil {
			return fmt.Errorf("failed to write graduation: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (ge *GraduationExporter) exportToJSON(entries []registry.Entry, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime  time.Time        `json:"export_time"`
		Count       int              `json:"count"`
		Summary     Summary          `json:"summary"`
		Graduations []registry.Entry `json:"graduations"`
	}{
		ExportTime:  ge.now().UTC(),
		Count:       len(entries),
		Summary:     Summarize(entries),
		Graduations: entries,
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary aggregates a set of graduations.
type Summary struct {
	Graduations    int             `json:"graduations"`
	ByExchange     map[string]int  `json:"by_exchange"`
	TotalLiquidity decimal.Decimal `json:"total_liquidity"`
	TotalFees      decimal.Decimal `json:"total_fees"`
	FirstAt        time.Time       `json:"first_at"`
	LastAt         time.Time       `json:"last_at"`
}

// Summarize computes totals over entries. Amounts are in base units.
func Summarize(entries []registry.Entry) Summary {
	s := Summary{
		Graduations:    len(entries),
		ByExchange:     make(map[string]int),
		TotalLiquidity: registry.TotalLiquidity(entries),
		TotalFees:      decimal.Zero,
	}
	for _, e := range entries {
		s.ByExchange[e.Exchange]++
		s.TotalFees = s.TotalFees.Add(decimal.NewFromUint64(e.GraduationFee))
		if s.FirstAt.IsZero() || e.GraduatedAt.Before(s.FirstAt) {
			s.FirstAt = e.GraduatedAt
		}
		if e.GraduatedAt.After(s.LastAt) {
			s.LastAt = e.GraduatedAt
		}
	}
	return s
}

// DailyReport groups one day of graduations by hour.
type DailyReport struct {
	Date            time.Time     `json:"date"`
	Summary         Summary       `json:"summary"`
	HourlyBreakdown []HourlyStats `json:"hourly_breakdown"`
}

// HourlyStats counts graduations within one hour.
type HourlyStats struct {
	Hour        int             `json:"hour"`
	Graduations int             `json:"graduations"`
	Liquidity   decimal.Decimal `json:"liquidity"`
}

// ExportDailyReport writes a JSON report for the UTC day containing date.
// It returns an empty path when nothing graduated that day.
func (ge *GraduationExporter) ExportDailyReport(entries []registry.Entry, date time.Time, outputDir string) (string, error) {
	date = date.UTC()
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	filtered := ge.filter(entries, ExportOptions{StartTime: startOfDay, EndTime: startOfDay.Add(24 * time.Hour)})
	if len(filtered) == 0 {
		ge.logger.Info("No graduations for daily report", zap.Time("date", startOfDay))
		return "", nil
	}

	report := DailyReport{
		Date:            startOfDay,
		Summary:         Summarize(filtered),
		HourlyBreakdown: hourlyBreakdown(filtered),
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))
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

	ge.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("graduations", len(filtered)))
	return outputPath, nil
}

func hourlyBreakdown(entries []registry.Entry) []HourlyStats {
	hourly := make(map[int]*HourlyStats)
	for _, e := range entries {
		hour := e.GraduatedAt.UTC().Hour()
		stats, ok := hourly[hour]
		if !ok {
			stats = &HourlyStats{Hour: hour, Liquidity: decimal.Zero}
			hourly[hour] = stats
		}
		stats.Graduations++
		stats.Liquidity = stats.Liquidity.Add(decimal.NewFromUint64(e.BaseToLiquidity))
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if stats, ok := hourly[hour]; ok {
			breakdown = append(breakdown, *stats)
		}
	}
	return breakdown
}
