package service

import (
	"io"
	"testing"

	"TenderGuard/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 内存sqlite库。限制单连接，避免连接池拿到空库。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Company{},
		&model.Person{},
		&model.PersonOwnership{},
		&model.FinancialTie{},
		&model.Tender{},
		&model.Bid{},
		&model.TenderClause{},
		&model.GraphNode{},
		&model.GraphEdge{},
	))
	return db
}

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// recordingEnqueuer 记录入队的招标ID，供断言
type recordingEnqueuer struct {
	ids []string
}

func (r *recordingEnqueuer) Enqueue(tenderID string) {
	r.ids = append(r.ids, tenderID)
}
