package logic

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/csacanam/fanio-sub001/internal/config"
	"github.com/csacanam/fanio-sub001/internal/model"
	"github.com/csacanam/fanio-sub001/internal/pool"
	"github.com/csacanam/fanio-sub001/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeAsset 结算资产替身，记录全部转账并支持按收款人注入失败
type fakeAsset struct {
	mu        sync.Mutex
	decimals  uint8
	balances  map[string]*big.Int
	transfers []fakeTransfer
	failFor   map[string]error
}

type fakeTransfer struct {
	from   string
	to     string
	amount int64
}

func newFakeAsset() *fakeAsset {
	return &fakeAsset{
		decimals: 6,
		balances: make(map[string]*big.Int),
		failFor:  make(map[string]error),
	}
}

func (f *fakeAsset) Decimals(_ context.Context) (uint8, error) {
	return f.decimals, nil
}

func (f *fakeAsset) BalanceOf(_ context.Context, owner string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if balance, ok := f.balances[owner]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeAsset) TransferFrom(_ context.Context, owner, recipient string, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[owner]; ok {
		return "", err
	}
	f.transfers = append(f.transfers, fakeTransfer{from: owner, to: recipient, amount: amount.Int64()})
	return "0xtransferfrom", nil
}

func (f *fakeAsset) Transfer(_ context.Context, recipient string, amount *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[recipient]; ok {
		return "", err
	}
	f.transfers = append(f.transfers, fakeTransfer{from: "0xescrow", to: recipient, amount: amount.Int64()})
	return "0xtransfer", nil
}

func (f *fakeAsset) EscrowAddress() string {
	return "0xescrow"
}

// transfersTo 汇总某地址收到的全部转账金额
func (f *fakeAsset) transfersTo(recipient string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, tr := range f.transfers {
		if tr.to == recipient {
			sum += tr.amount
		}
	}
	return sum
}

type fakeTokenEngine struct {
	mu     sync.Mutex
	serial int
}

func (f *fakeTokenEngine) Deploy(_ context.Context, _, _ string, _ uint8) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serial++
	return fmt.Sprintf("0xtoken%02d", f.serial), "0xdeploy", nil
}

func (f *fakeTokenEngine) Mint(_ context.Context, _, _ string, _ *big.Int) (string, error) {
	return "0xmint", nil
}

func (f *fakeTokenEngine) SetCap(_ context.Context, _ string, _ *big.Int) (string, error) {
	return "0xsetcap", nil
}

type fakePoolEngine struct {
	mu     sync.Mutex
	serial int
}

func (f *fakePoolEngine) CreatePool(_ context.Context, _, _ string, _ int32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.serial++
	return fmt.Sprintf("0xpool%02d", f.serial), nil
}

func (f *fakePoolEngine) AddFullRangeLiquidity(_ context.Context, _ string, _, _ *big.Int) (string, error) {
	return "0xliquidity", nil
}

type testEnv struct {
	db       *gorm.DB
	asset    *fakeAsset
	campaign *CampaignLogic
	refunds  *RefundLogic
	now      time.Time
}

func setupCampaignTest(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.CampaignModel{},
		&model.ContributionModel{},
		&model.EventTokenModel{},
		&model.RefundRecordModel{},
		&model.SettlementRecordModel{},
	))

	cfg := &config.Config{
		Campaign: config.CampaignConfig{
			DepositRatioBps: 1000,
			MinDurationDays: 1,
			MaxDurationDays: 90,
		},
		Pool: config.PoolConfig{
			SeedPriceRatio:   "1.2",
			TickSpacing:      60,
			BaseFeeBps:       30,
			BuyFeeOffsetBps:  1,
			SellFeeOffsetBps: 10,
		},
		Chain: config.ChainConfig{FundingToken: "0xusdc"},
	}

	asset := newFakeAsset()
	issuer := token.NewIssuer(db, &fakeTokenEngine{})
	bootstrapper, err := pool.NewBootstrapper(&fakePoolEngine{}, cfg.Pool)
	require.NoError(t, err)

	ledger := NewLedgerLogic(db)
	settlement := NewSettlementLogic(db, asset, issuer, bootstrapper)
	refunds := NewRefundLogic(db, asset, 4)
	campaign := NewCampaignLogic(db, cfg, asset, ledger, issuer, settlement, refunds)

	env := &testEnv{
		db:       db,
		asset:    asset,
		campaign: campaign,
		refunds:  refunds,
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	campaign.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) createCampaign(t *testing.T, target int64) *model.CampaignModel {
	campaign, err := e.campaign.CreateCampaign(context.Background(), CreateCampaignParams{
		Organizer:    "0xorganizer",
		EventName:    "Stadium Night",
		TokenSymbol:  "NIGHT",
		TargetAmount: target,
		DurationDays: 30,
	})
	require.NoError(t, err)
	return campaign
}

func TestCreateCampaign(t *testing.T) {
	env := setupCampaignTest(t)

	campaign := env.createCampaign(t, 100000)

	assert.Equal(t, model.CampaignStatusActive, campaign.Status)
	assert.Equal(t, int64(100000), campaign.TargetAmount)
	assert.Equal(t, int64(10000), campaign.OrganizerDeposit)
	assert.Equal(t, "0xusdc", campaign.FundingToken)
	assert.Equal(t, uint8(6), campaign.FundingDecimals)
	assert.Equal(t, env.now.AddDate(0, 0, 30), campaign.Deadline)
	assert.NotEmpty(t, campaign.EventTokenAddress)
	assert.NotEmpty(t, campaign.DepositTxHash)

	// 押金在创建时即划入托管账户
	assert.Equal(t, int64(10000), env.asset.transfersTo("0xescrow"))

	eventToken, err := env.campaign.GetCampaignToken(campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, campaign.EventTokenAddress, eventToken.Address)
	assert.Zero(t, eventToken.MintedSupply)
	assert.False(t, eventToken.CapLocked)
}

func TestCreateCampaignInsufficientDeposit(t *testing.T) {
	env := setupCampaignTest(t)
	env.asset.balances["0xpoor"] = big.NewInt(100)

	_, err := env.campaign.CreateCampaign(context.Background(), CreateCampaignParams{
		Organizer:    "0xpoor",
		EventName:    "Stadium Night",
		TokenSymbol:  "NIGHT",
		TargetAmount: 100000,
		DurationDays: 30,
	})
	assert.ErrorIs(t, err, model.ErrInsufficientDeposit)
}

func TestCreateCampaignInvalidParams(t *testing.T) {
	env := setupCampaignTest(t)

	base := CreateCampaignParams{
		Organizer:    "0xorganizer",
		EventName:    "Stadium Night",
		TokenSymbol:  "NIGHT",
		TargetAmount: 100000,
		DurationDays: 30,
	}

	invalid := base
	invalid.TargetAmount = 0
	_, err := env.campaign.CreateCampaign(context.Background(), invalid)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)

	invalid = base
	invalid.DurationDays = 0
	_, err = env.campaign.CreateCampaign(context.Background(), invalid)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)

	invalid = base
	invalid.DurationDays = 365
	_, err = env.campaign.CreateCampaign(context.Background(), invalid)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)

	invalid = base
	invalid.EventName = "  "
	_, err = env.campaign.CreateCampaign(context.Background(), invalid)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)

	invalid = base
	invalid.Organizer = ""
	_, err = env.campaign.CreateCampaign(context.Background(), invalid)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestContributeCrossesTargetAndSettles(t *testing.T) {
	env := setupCampaignTest(t)
	campaign := env.createCampaign(t, 100000)
	ctx := context.Background()

	raised, err := env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", 40000)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), raised)

	raised, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker2", 40000)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), raised)

	// 第三笔越过目标，同一事务内完成结算
	raised, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker3", 40000)
	require.NoError(t, err)
	assert.Equal(t, int64(120000), raised)

	funded, err := env.campaign.GetCampaign(campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusFunded, funded.Status)
	assert.Equal(t, int64(120000), funded.RaisedAmount)
	assert.Equal(t, int64(3), funded.UniqueBackers)
	assert.Equal(t, int64(10000), funded.ProtocolFeesCollected)
	assert.NotEmpty(t, funded.PoolId)

	// 主办方回款恰为目标金额
	assert.Equal(t, int64(100000), env.asset.transfersTo("0xorganizer"))

	// 三条结算腿：协议费、回款、池子种子，全部成功
	var records []model.SettlementRecordModel
	require.NoError(t, env.db.Where("campaign_id = ?", campaign.Id).Order("leg").Find(&records).Error)
	require.Len(t, records, 3)
	byLeg := make(map[string]model.SettlementRecordModel)
	for _, r := range records {
		byLeg[r.Leg] = r
	}
	assert.Equal(t, int64(10000), byLeg[model.SettlementLegProtocolFee].Amount)
	assert.Equal(t, int64(100000), byLeg[model.SettlementLegPayout].Amount)
	assert.Equal(t, int64(20000), byLeg[model.SettlementLegPoolSeed].Amount)
	for leg, r := range byLeg {
		assert.Equal(t, model.SettlementStatusSuccess, r.Status, leg)
	}

	// 凭证代币：出资120000 + 池子份额floor(20000/1.2)，上限锁定
	eventToken, err := env.campaign.GetCampaignToken(campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(136666), eventToken.MintedSupply)
	assert.Equal(t, int64(136666), eventToken.Cap)
	assert.True(t, eventToken.CapLocked)

	// 达标后禁止继续出资
	_, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker4", 1000)
	assert.ErrorIs(t, err, model.ErrCampaignNotActive)
}

func TestContributeExactTargetNoExcess(t *testing.T) {
	env := setupCampaignTest(t)
	campaign := env.createCampaign(t, 100000)

	_, err := env.campaign.Contribute(context.Background(), campaign.Id, "0xbacker1", 100000)
	require.NoError(t, err)

	funded, err := env.campaign.GetCampaign(campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusFunded, funded.Status)

	// 没有超额就不建池，但上限照常锁定
	assert.Empty(t, funded.PoolId)
	eventToken, err := env.campaign.GetCampaignToken(campaign.Id)
	require.NoError(t, err)
	assert.True(t, eventToken.CapLocked)
	assert.Equal(t, int64(100000), eventToken.Cap)

	var seedRecord model.SettlementRecordModel
	require.NoError(t, env.db.Where("campaign_id = ? AND leg = ?",
		campaign.Id, model.SettlementLegPoolSeed).First(&seedRecord).Error)
	assert.Zero(t, seedRecord.Amount)
	assert.Equal(t, model.SettlementStatusSuccess, seedRecord.Status)
}

func TestContributeCumulativeBacker(t *testing.T) {
	env := setupCampaignTest(t)
	campaign := env.createCampaign(t, 100000)
	ctx := context.Background()

	_, err := env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", 10000)
	require.NoError(t, err)
	_, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", 15000)
	require.NoError(t, err)

	// 同一支持者多次出资只算一个人，金额累计
	current, err := env.campaign.GetCampaign(campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current.UniqueBackers)
	assert.Equal(t, int64(25000), current.RaisedAmount)

	total, err := env.campaign.ledger.TotalFor(campaign.Id, "0xbacker1")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), total)
}

func TestContributeRejections(t *testing.T) {
	env := setupCampaignTest(t)
	campaign := env.createCampaign(t, 100000)
	ctx := context.Background()

	_, err := env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", 0)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", -5)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = env.campaign.Contribute(ctx, 9999, "0xbacker1", 1000)
	assert.ErrorIs(t, err, model.ErrCampaignNotFound)

	env.asset.failFor["0xbroke"] = fmt.Errorf("insufficient allowance")
	_, err = env.campaign.Contribute(ctx, campaign.Id, "0xbroke", 1000)
	assert.ErrorIs(t, err, model.ErrInsufficientBalance)

	// 过期后出资被拒，但状态仍为active，迁移只能由关闭操作完成
	env.now = campaign.Deadline.Add(time.Hour)
	_, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", 1000)
	assert.ErrorIs(t, err, model.ErrCampaignNotActive)

	current, err := env.campaign.GetCampaign(campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusActive, current.Status)
}

func TestCloseExpiredCampaignRefundsEveryone(t *testing.T) {
	env := setupCampaignTest(t)
	campaign := env.createCampaign(t, 50000)
	ctx := context.Background()

	_, err := env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", 20000)
	require.NoError(t, err)
	_, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker2", 10000)
	require.NoError(t, err)

	env.now = campaign.Deadline.Add(time.Minute)
	require.NoError(t, env.campaign.CloseExpiredCampaign(ctx, campaign.Id))

	closed, err := env.campaign.GetCampaign(campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusClosed, closed.Status)
	assert.Zero(t, closed.RaisedAmount)

	// 押金一条加每个支持者一条，全部成功
	var records []model.RefundRecordModel
	require.NoError(t, env.db.Where("campaign_id = ?", campaign.Id).Find(&records).Error)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, model.RefundStatusSuccess, r.Status)
		assert.NotEmpty(t, r.TxHash)
	}

	assert.Equal(t, int64(5000), env.asset.transfersTo("0xorganizer"))
	assert.Equal(t, int64(20000), env.asset.transfersTo("0xbacker1"))
	assert.Equal(t, int64(10000), env.asset.transfersTo("0xbacker2"))

	// 关闭后永久禁止出资
	_, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker3", 1000)
	assert.ErrorIs(t, err, model.ErrCampaignNotActive)

	// 重复关闭直接拒绝
	err = env.campaign.CloseExpiredCampaign(ctx, campaign.Id)
	assert.ErrorIs(t, err, model.ErrAlreadyClosed)
}

func TestCloseRejections(t *testing.T) {
	env := setupCampaignTest(t)
	ctx := context.Background()

	// 未到期不能关闭
	active := env.createCampaign(t, 50000)
	err := env.campaign.CloseExpiredCampaign(ctx, active.Id)
	assert.ErrorIs(t, err, model.ErrNotExpired)

	// 已达标的活动不能关闭
	funded := env.createCampaign(t, 50000)
	_, err = env.campaign.Contribute(ctx, funded.Id, "0xbacker1", 50000)
	require.NoError(t, err)
	env.now = funded.Deadline.Add(time.Hour)
	err = env.campaign.CloseExpiredCampaign(ctx, funded.Id)
	assert.ErrorIs(t, err, model.ErrNotExpired)

	err = env.campaign.CloseExpiredCampaign(ctx, 9999)
	assert.ErrorIs(t, err, model.ErrCampaignNotFound)
}

func TestCloseWithFailedRefundThenRetry(t *testing.T) {
	env := setupCampaignTest(t)
	campaign := env.createCampaign(t, 50000)
	ctx := context.Background()

	_, err := env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", 20000)
	require.NoError(t, err)
	_, err = env.campaign.Contribute(ctx, campaign.Id, "0xbacker2", 10000)
	require.NoError(t, err)

	// 单笔退款失败不阻塞其他退款
	env.asset.failFor["0xbacker1"] = fmt.Errorf("rpc timeout")
	env.now = campaign.Deadline.Add(time.Minute)
	require.NoError(t, env.campaign.CloseExpiredCampaign(ctx, campaign.Id))

	var failedRecords []model.RefundRecordModel
	require.NoError(t, env.db.Where("campaign_id = ? AND status = ?",
		campaign.Id, model.RefundStatusFailed).Find(&failedRecords).Error)
	require.Len(t, failedRecords, 1)
	assert.Equal(t, "0xbacker1", failedRecords[0].Recipient)
	assert.Contains(t, failedRecords[0].FailReason, "rpc timeout")

	assert.Equal(t, int64(5000), env.asset.transfersTo("0xorganizer"))
	assert.Equal(t, int64(10000), env.asset.transfersTo("0xbacker2"))

	// 故障恢复后由重试任务补发
	delete(env.asset.failFor, "0xbacker1")
	retried, err := env.refunds.ProcessOutstandingRefunds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	assert.Equal(t, int64(20000), env.asset.transfersTo("0xbacker1"))

	var remaining int64
	require.NoError(t, env.db.Model(&model.RefundRecordModel{}).
		Where("status <> ?", model.RefundStatusSuccess).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestGetStatus(t *testing.T) {
	env := setupCampaignTest(t)
	campaign := env.createCampaign(t, 100000)
	ctx := context.Background()

	_, err := env.campaign.Contribute(ctx, campaign.Id, "0xbacker1", 30000)
	require.NoError(t, err)

	status, err := env.campaign.GetStatus(campaign.Id)
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	assert.False(t, status.IsExpired)
	assert.False(t, status.IsFunded)
	assert.Equal(t, int64(30000), status.RaisedAmount)
	assert.Equal(t, int64(100000), status.TargetAmount)
	assert.Equal(t, int64(10000), status.OrganizerDeposit)
	assert.Equal(t, int64(1), status.UniqueBackers)
	assert.Positive(t, status.TimeLeft)

	// 过期是计算出来的视图，查询绝不改写状态
	env.now = campaign.Deadline.Add(time.Second)
	status, err = env.campaign.GetStatus(campaign.Id)
	require.NoError(t, err)
	assert.False(t, status.IsActive)
	assert.True(t, status.IsExpired)
	assert.Zero(t, status.TimeLeft)

	current, err := env.campaign.GetCampaign(campaign.Id)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusActive, current.Status)

	_, err = env.campaign.GetStatus(9999)
	assert.ErrorIs(t, err, model.ErrCampaignNotFound)
}

func TestGetCampaignsAndGlobalStats(t *testing.T) {
	env := setupCampaignTest(t)
	ctx := context.Background()

	first := env.createCampaign(t, 50000)
	second := env.createCampaign(t, 100000)
	_, err := env.campaign.Contribute(ctx, first.Id, "0xbacker1", 50000)
	require.NoError(t, err)

	campaigns, total, err := env.campaign.GetCampaigns("", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, campaigns, 2)

	fundedOnly, total, err := env.campaign.GetCampaigns(string(model.CampaignStatusFunded), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, fundedOnly, 1)
	assert.Equal(t, first.Id, fundedOnly[0].Id)

	activeOnly, _, err := env.campaign.GetCampaigns(string(model.CampaignStatusActive), 1, 10)
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	assert.Equal(t, second.Id, activeOnly[0].Id)

	stats, err := env.campaign.GetGlobalStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["total_campaigns"])
	assert.Equal(t, int64(1), stats["funded_campaigns"])
	assert.Equal(t, int64(1), stats["active_campaigns"])
}

func TestGetGlobalStatsPropagatesQueryErrors(t *testing.T) {
	env := setupCampaignTest(t)
	env.createCampaign(t, 50000)

	// 查询失败必须报错，不允许静默返回全零统计
	require.NoError(t, env.db.Migrator().DropTable(&model.CampaignModel{}))
	_, err := env.campaign.GetGlobalStats()
	assert.Error(t, err)
}

func TestComputeSplit(t *testing.T) {
	split := ComputeSplit(100000, 10000, 120000)
	assert.Equal(t, int64(10000), split.ProtocolFee)
	assert.Equal(t, int64(100000), split.OrganizerPayout)
	assert.Equal(t, int64(20000), split.Excess)

	// 回款与超额之和恒等于募集总额
	assert.Equal(t, int64(120000), split.OrganizerPayout+split.Excess)

	exact := ComputeSplit(50000, 5000, 50000)
	assert.Zero(t, exact.Excess)
	assert.Equal(t, int64(50000), exact.OrganizerPayout)
}
