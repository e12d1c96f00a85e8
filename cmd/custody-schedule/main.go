package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/username/custody-schedule/internal/calendar"
	"github.com/username/custody-schedule/internal/config"
	"github.com/username/custody-schedule/internal/export"
	"github.com/username/custody-schedule/internal/metrics"
	"github.com/username/custody-schedule/internal/planner"
)

var (
	configPath string
	logger     *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "custody-schedule",
		Short: "Shared custody schedule planner",
		Long:  "Compute alternating custody windows from weekly, vacation and summer rules, with French public holidays and school vacations",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load config to get log file path
			cfg, err := config.Load(configPath)
			if err == nil && cfg.Logging.File != "" {
				logger, err = initFileLogger(cfg.Logging.File, cfg.Logging.Level)
				if err != nil {
					initLogger() // Fallback to console
				}
			} else {
				initLogger() // Default console logger
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Config file path")

	rootCmd.AddCommand(computeCmd())
	rootCmd.AddCommand(currentCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every command needs
type app struct {
	cfg      *config.Config
	planner  *planner.Planner
	exporter *export.Exporter
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func initializeApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	p, err := planner.NewPlanner(cfg, holidayProvider(cfg), vacationProvider(cfg), m, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.String("child", cfg.Child.Name),
		zap.String("timezone", loc.String()),
		zap.String("holidays", cfg.Holidays.GetProvider()),
		zap.String("vacations", cfg.Vacations.GetProvider()))

	return &app{
		cfg:      cfg,
		planner:  p,
		exporter: export.NewExporter(cfg.Child.Name, cfg.GuardianName),
		metrics:  m,
		registry: registry,
	}, nil
}

// holidayProvider builds the configured holiday source. The gouv API falls
// back to the fallback file when set, else to the computed calendar.
func holidayProvider(cfg *config.Config) calendar.HolidayProvider {
	loc, _ := cfg.Location()

	var primary calendar.HolidayProvider
	switch cfg.Holidays.GetProvider() {
	case "file":
		logger.Info("Using holidays file", zap.String("path", cfg.Holidays.FallbackFile))
		return calendar.NewFileCalendar(cfg.Holidays.FallbackFile, loc, logger)
	case "computed":
		logger.Info("Using computed holiday calendar")
		primary = calendar.NewComputedCalendar(loc, logger)
	default:
		logger.Info("Using calendrier.api.gouv.fr holiday API")
		primary = calendar.NewGouvCalendar(cfg.Holidays.APIURL, cfg.Holidays.GetCacheTTL(), loc, logger)
	}

	if cfg.Holidays.FallbackFile == "" {
		if cfg.Holidays.GetProvider() == "computed" {
			return primary
		}
		return calendar.NewCompositeCalendar(primary, calendar.NewComputedCalendar(loc, logger), logger)
	}

	composite := calendar.NewCompositeCalendar(primary, calendar.NewFileCalendar(cfg.Holidays.FallbackFile, loc, logger), logger)
	if err := composite.LoadFallback(); err != nil {
		logger.Warn("Failed to load fallback holidays, continuing with primary only", zap.Error(err))
	}
	return composite
}

// vacationProvider builds the configured vacation source, or nil for "none"
func vacationProvider(cfg *config.Config) calendar.VacationProvider {
	loc, _ := cfg.Location()

	var primary calendar.VacationProvider
	switch cfg.Vacations.GetProvider() {
	case "none":
		logger.Info("School vacations disabled")
		return nil
	case "file":
		logger.Info("Using vacations file", zap.String("path", cfg.Vacations.FallbackFile))
		return calendar.NewFileCalendar(cfg.Vacations.FallbackFile, loc, logger)
	case "ics":
		logger.Info("Using ICS vacation feed", zap.String("source", cfg.Vacations.ICSURL))
		primary = calendar.NewICSCalendar(cfg.Vacations.ICSURL, loc, logger)
	default:
		logger.Info("Using data.education.gouv.fr school calendar")
		primary = calendar.NewSchoolCalendar(cfg.Vacations.APIURL, cfg.Vacations.GetCacheTTL(), loc, logger)
	}

	if cfg.Vacations.FallbackFile == "" {
		return primary
	}

	composite := calendar.NewCompositeVacations(primary, calendar.NewFileCalendar(cfg.Vacations.FallbackFile, loc, logger), logger)
	if err := composite.LoadFallback(); err != nil {
		logger.Warn("Failed to load fallback vacations, continuing with primary only", zap.Error(err))
	}
	return composite
}

func initLogger() {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,  // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	// Setup encoder
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}
