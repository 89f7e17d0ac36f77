package logic

import (
	"testing"

	"github.com/csacanam/fanio-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupLedgerTest(t *testing.T) (*LedgerLogic, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ContributionModel{}))
	return NewLedgerLogic(db), db
}

func TestLedgerRecord(t *testing.T) {
	ledger, db := setupLedgerTest(t)

	isNew, err := ledger.Record(db, 1, "0xbacker1", 10000)
	require.NoError(t, err)
	assert.True(t, isNew)

	// 同一支持者再次出资走累加，不新增记录
	isNew, err = ledger.Record(db, 1, "0xbacker1", 5000)
	require.NoError(t, err)
	assert.False(t, isNew)

	total, err := ledger.TotalFor(1, "0xbacker1")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), total)

	// 不同活动的台账互不影响
	isNew, err = ledger.Record(db, 2, "0xbacker1", 7000)
	require.NoError(t, err)
	assert.True(t, isNew)

	total, err = ledger.TotalFor(2, "0xbacker1")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), total)

	total, err = ledger.TotalFor(1, "0xnobody")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestLedgerAllContributors(t *testing.T) {
	ledger, db := setupLedgerTest(t)

	_, err := ledger.Record(db, 1, "0xbacker1", 10000)
	require.NoError(t, err)
	_, err = ledger.Record(db, 1, "0xbacker2", 20000)
	require.NoError(t, err)
	_, err = ledger.Record(db, 1, "0xbacker1", 5000)
	require.NoError(t, err)

	contributions, err := ledger.AllContributors(db, 1)
	require.NoError(t, err)
	require.Len(t, contributions, 2)

	byBacker := make(map[string]int64)
	for _, c := range contributions {
		byBacker[c.Backer] = c.Amount
	}
	assert.Equal(t, int64(15000), byBacker["0xbacker1"])
	assert.Equal(t, int64(20000), byBacker["0xbacker2"])
}

func TestLedgerGetContributions(t *testing.T) {
	ledger, db := setupLedgerTest(t)

	for i := int64(1); i <= 5; i++ {
		_, err := ledger.Record(db, 1, "0xbacker"+string(rune('0'+i)), i*1000)
		require.NoError(t, err)
	}

	first, total, err := ledger.GetContributions(1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, first, 2)

	last, total, err := ledger.GetContributions(1, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, last, 1)
}

func TestLedgerContributionStats(t *testing.T) {
	ledger, db := setupLedgerTest(t)

	_, err := ledger.Record(db, 1, "0xbacker1", 10000)
	require.NoError(t, err)
	_, err = ledger.Record(db, 1, "0xbacker2", 20000)
	require.NoError(t, err)

	stats, err := ledger.GetContributionStats(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["unique_backers"])
	assert.Equal(t, int64(30000), stats["total_amount"])
	assert.Equal(t, int64(15000), stats["average_amount"])

	empty, err := ledger.GetContributionStats(42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty["unique_backers"])
	assert.Equal(t, int64(0), empty["average_amount"])
}
