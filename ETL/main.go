package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/extractors"
	"github.com/LilVoxy/remotework_health_etl/ETL/progress"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// Флаги командной строки, общие для всех режимов
type cliFlags struct {
	configPath     string
	fromCheckpoint bool
	skipLoad       bool
}

func main() {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "etl",
		Short:         "ETL удалённой работы и психического здоровья",
		Long:          `Извлекает опрос и индикаторы WHO GHO, сопоставляет страны с регионами, агрегирует и загружает таблицы в хранилище`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "путь к YAML-файлу конфигурации")
	rootCmd.PersistentFlags().BoolVar(&flags.fromCheckpoint, "from-checkpoint", false, "читать индикаторы из контрольной точки")
	rootCmd.PersistentFlags().BoolVar(&flags.skipLoad, "skip-load", false, "не загружать таблицы в хранилище")

	rootCmd.AddCommand(createOnceCmd(flags))
	rootCmd.AddCommand(createScheduledCmd(flags))
	rootCmd.AddCommand(createExtractCmd(flags))
	rootCmd.AddCommand(createServeCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup читает конфигурацию и создает логгер
func setup(flags *cliFlags) (config.ETLConfig, *utils.ETLLogger, error) {
	etlConfig, err := config.LoadConfigFile(flags.configPath)
	if err != nil {
		return config.ETLConfig{}, nil, err
	}
	if flags.skipLoad {
		etlConfig.Load.Skip = true
	}

	logger, err := utils.NewETLLogger(etlConfig.EnableDetailedLogging, etlConfig.LogDir)
	if err != nil {
		return config.ETLConfig{}, nil, err
	}
	return etlConfig, logger, nil
}

func (f *cliFlags) runOptions(etlConfig config.ETLConfig) RunOptions {
	return RunOptions{FromCheckpoint: f.fromCheckpoint, SkipLoad: etlConfig.Load.Skip}
}

// signalContext отменяется при получении сигнала завершения
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func createOnceCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Выполнить ETL один раз",
		RunE: func(cmd *cobra.Command, args []string) error {
			etlConfig, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx, cancel := signalContext()
			defer cancel()

			runner, err := NewETLRunner(ctx, etlConfig, logger)
			if err != nil {
				return fmt.Errorf("ошибка при создании ETL Runner: %w", err)
			}
			defer runner.Close()

			summary, err := runner.ExecuteETL(ctx, flags.runOptions(etlConfig))
			if err != nil {
				return fmt.Errorf("ошибка при выполнении ETL: %w", err)
			}
			printSummary(cmd, summary)
			return nil
		},
	}
}

func createScheduledCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduled",
		Short: "Выполнять ETL по расписанию (run_interval)",
		RunE: func(cmd *cobra.Command, args []string) error {
			etlConfig, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx, cancel := signalContext()
			defer cancel()

			runner, err := NewETLRunner(ctx, etlConfig, logger)
			if err != nil {
				return fmt.Errorf("ошибка при создании ETL Runner: %w", err)
			}
			defer runner.Close()

			return runner.StartScheduler(ctx, flags.runOptions(etlConfig))
		},
	}
}

func createExtractCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Только запросить индикаторы и сохранить контрольную точку",
		RunE: func(cmd *cobra.Command, args []string) error {
			etlConfig, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Close()

			if etlConfig.CheckpointDir == "" {
				return errors.New("не задан checkpoint_dir")
			}

			ctx, cancel := signalContext()
			defer cancel()

			extractor := extractors.NewExtractor(etlConfig, http.DefaultClient, logger)
			report, err := extractor.ExtractIndicators(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Записей индикаторов: %d, кодов с ошибкой: %d\n",
				len(report.Records), len(report.Failures))
			return nil
		},
	}
}

func createServeCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Планировщик ETL вместе с HTTP API, метриками и ходом выполнения",
		RunE: func(cmd *cobra.Command, args []string) error {
			etlConfig, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx, cancel := signalContext()
			defer cancel()

			runner, err := NewETLRunner(ctx, etlConfig, logger)
			if err != nil {
				return fmt.Errorf("ошибка при создании ETL Runner: %w", err)
			}
			defer runner.Close()

			hub := progress.NewHub(logger)
			go hub.Run(ctx)
			runner.SetProgress(hub)

			server := &http.Server{
				Addr:              etlConfig.HTTPAddr,
				Handler:           runner.Server(hub).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Info("HTTP API запущен на %s", etlConfig.HTTPAddr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Ошибка HTTP-сервера: %v", err)
					cancel()
				}
			}()

			schedulerErr := runner.StartScheduler(ctx, flags.runOptions(etlConfig))

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Ошибка при остановке HTTP-сервера: %v", err)
			}
			return schedulerErr
		},
	}
}

func printSummary(cmd *cobra.Command, summary RunSummary) {
	out := cmd.OutOrStdout()
	inserted, failed := summary.Totals()
	fmt.Fprintf(out, "Запуск %s завершён за %v\n", summary.RunID, summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  индикаторов: %d (кодов с ошибкой: %d), строк опроса: %d (не разобрано: %d)\n",
		summary.IndicatorRecords, len(summary.FailedCodes), summary.SurveyRows, summary.SurveyDecodeErrors)
	fmt.Fprintf(out, "  стран без региона: %d\n", len(summary.UnresolvedCountries))
	for _, report := range summary.Loads {
		fmt.Fprintf(out, "  %s: вставлено %d, ошибок %d, отброшено %d\n",
			report.Table, report.Inserted, report.Failed, report.Dropped)
	}
	fmt.Fprintf(out, "  всего вставлено: %d, ошибок: %d\n", inserted, failed)
}
