package main

import (
	"context"
	"log"
	"time"

	"github.com/csacanam/fanio-sub001/internal/chain"
	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/csacanam/fanio-sub001/internal/database"
	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/logic"
	"github.com/csacanam/fanio-sub001/internal/pool"
	"github.com/csacanam/fanio-sub001/internal/router"
	"github.com/csacanam/fanio-sub001/internal/task"
	"github.com/csacanam/fanio-sub001/internal/token"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	level := logger.ParseLogLevel(cfg.Log.Level)
	var appLogger *logger.Logger
	var err error
	if cfg.Log.Output == "file" {
		appLogger, err = logger.NewWithFileRotation(level, cfg.Log.File)
	} else {
		appLogger, err = logger.New(level)
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(appLogger)

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化链客户端与合约适配器
	chainClient, err := chain.Init(cfg.Chain)
	if err != nil {
		logger.Fatal("Failed to initialize chain client: %v", err)
	}
	asset, err := chain.NewSettlementAsset(chainClient, cfg.Chain.FundingToken)
	if err != nil {
		logger.Fatal("Failed to initialize settlement asset: %v", err)
	}
	tokenEngine, err := chain.NewTokenEngine(chainClient, cfg.Chain.TokenFactory)
	if err != nil {
		logger.Fatal("Failed to initialize token engine: %v", err)
	}
	poolEngine, err := chain.NewPoolEngine(chainClient, cfg.Chain.PoolManager)
	if err != nil {
		logger.Fatal("Failed to initialize pool engine: %v", err)
	}

	// 初始化领域组件
	issuer := token.NewIssuer(db, tokenEngine)
	bootstrapper, err := pool.NewBootstrapper(poolEngine, cfg.Pool)
	if err != nil {
		logger.Fatal("Failed to initialize pool bootstrapper: %v", err)
	}
	feeEngine := pool.NewFeeEngine(cfg.Pool)

	// 初始化业务逻辑
	ledgerLogic := logic.NewLedgerLogic(db)
	settlementLogic := logic.NewSettlementLogic(db, asset, issuer, bootstrapper)
	refundLogic := logic.NewRefundLogic(db, asset, 0)
	campaignLogic := logic.NewCampaignLogic(db, cfg, asset, ledgerLogic, issuer, settlementLogic, refundLogic)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(campaignLogic, ledgerLogic, refundLogic, settlementLogic)

	// 启动定时任务
	manager := task.Start(db, chainClient, refundLogic, settlementLogic, cfg)
	defer manager.Stop()

	// 监听池子交易，按方向回写动态费率偏移
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go poolEngine.WatchTrades(watchCtx, time.Duration(cfg.Scheduler.Interval)*time.Second, feeEngine.OnTrade)

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
