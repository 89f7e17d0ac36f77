package task

import (
	"github.com/csacanam/fanio-sub001/internal/chain"
	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/csacanam/fanio-sub001/internal/logger"
	"github.com/csacanam/fanio-sub001/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// Manager 任务管理器
// 只承担调用方侧的重试与交易确认，不做任何状态机推进：过期关闭必须由外部调用触发
type Manager struct {
	scheduler       gocron.Scheduler
	db              *gorm.DB
	chainClient     *chain.Client
	refundLogic     *logic.RefundLogic
	settlementLogic *logic.SettlementLogic
	config          *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, chainClient *chain.Client, refundLogic *logic.RefundLogic, settlementLogic *logic.SettlementLogic, cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler:       s,
		db:              db,
		chainClient:     chainClient,
		refundLogic:     refundLogic,
		settlementLogic: settlementLogic,
		config:          cfg,
	}
}

// Start 启动任务管理器
func Start(db *gorm.DB, chainClient *chain.Client, refundLogic *logic.RefundLogic, settlementLogic *logic.SettlementLogic, cfg *config.Config) *Manager {
	manager := NewManager(db, chainClient, refundLogic, settlementLogic, cfg)

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	// 注册退款重试任务
	m.registerJob(NewRefundRetryJob(m.refundLogic, m.config))

	// 注册结算重试任务
	m.registerJob(NewSettlementRetryJob(m.settlementLogic, m.config))

	// 注册交易确认任务
	m.registerJob(NewTxConfirmJob(m.db, m.chainClient, m.config))
}

// Job 定时任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

func (m *Manager) registerJob(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
