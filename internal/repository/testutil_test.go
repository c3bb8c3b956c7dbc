package repository

import (
	"Haggle/internal/model"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 每个测试一个独立的内存库。
// 单连接串行化写入，避免共享缓存下的 SQLITE_BUSY。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.ChatRoom{},
		&model.ChatMessage{},
		&model.ListingOffer{},
	))
	return db
}

func seedRoom(t *testing.T, db *gorm.DB, listingID, buyerID, sellerID uint64) *model.ChatRoom {
	t.Helper()

	room := &model.ChatRoom{
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		IsActive:  true,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

func strPtr(s string) *string { return &s }

func u64Ptr(v uint64) *uint64 { return &v }
