package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/carrental/internal/apperr"
	"github.com/langchou/carrental/internal/config"
	"github.com/langchou/carrental/internal/repository"
	"github.com/langchou/carrental/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	if len(args) == 0 {
		usage(os.Stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", args[0])
		usage(os.Stderr)
		return 2
	}

	// Ctrl+C 取消当前命令
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error: storage unavailable")
		return 1
	}
	defer closeStore()

	a := newApp(cfg, logger, store)
	if err := a.prepare(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apperr.MessageOf(err))
		return 1
	}

	if err := cmd.run(ctx, a, args[1:]); err != nil {
		logger.Debug("Command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %s\n", apperr.MessageOf(err))
		return 1
	}
	return 0
}

// openStore 按配置选择存储
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Debug("Database migrated successfully")
		return repository.NewPGStore(db, logger), db.Close, nil
	default:
		fs, err := repository.NewFileStore(cfg.DataDir, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("Using file storage", zap.String("data_dir", fs.Root()))
		return fs, func() {}, nil
	}
}

// app 命令共用的服务
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	rentals     *service.RentalService
	maintenance *service.MaintenanceService
	fleet       *service.FleetService
	accounts    *service.AccountService
	reports     *service.ReportService
}

func newApp(cfg *config.Config, logger *zap.Logger, store repository.Store) *app {
	pricing := service.Pricing{
		Deposit:             cfg.DepositAmount,
		EarlyReturnDiscount: cfg.EarlyReturnDiscount,
	}
	return &app{
		cfg:         cfg,
		logger:      logger,
		rentals:     service.NewRentalService(store, logger, pricing),
		maintenance: service.NewMaintenanceService(store, logger),
		fleet:       service.NewFleetService(store, logger),
		accounts:    service.NewAccountService(store, logger),
		reports:     service.NewReportService(store, logger),
	}
}

// prepare 写入默认数据并清理重复车辆
func (a *app) prepare(ctx context.Context) error {
	if a.cfg.SeedDefaults {
		if err := a.fleet.SeedDefaults(ctx); err != nil {
			return err
		}
	}
	_, err := a.fleet.Deduplicate(ctx)
	return err
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		// 命令行输出在 stdout，日志只保留警告以上
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	config.OutputPaths = []string{"stderr"}

	logger, _ := config.Build()
	return logger
}
