package service

import (
	"Haggle/internal/api/dto"
	"Haggle/internal/model"
	"Haggle/internal/pkg/catalog"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

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

type busEvent struct {
	TargetID uint64
	Event    string
	Data     interface{}
}

// fakeBus 记录所有经总线发布的事件
type fakeBus struct {
	mu         sync.Mutex
	roomEvents []busEvent
	userEvents []busEvent
}

func (s *fakeBus) RoomEvent(_ context.Context, roomID uint64, event string, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomEvents = append(s.roomEvents, busEvent{TargetID: roomID, Event: event, Data: data})
	return nil
}

func (s *fakeBus) UserEvent(_ context.Context, userID uint64, event string, data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userEvents = append(s.userEvents, busEvent{TargetID: userID, Event: event, Data: data})
	return nil
}

func (s *fakeBus) roomEventsOf(event string) []busEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []busEvent
	for _, e := range s.roomEvents {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (s *fakeBus) userEventsOf(event string) []busEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []busEvent
	for _, e := range s.userEvents {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*dto.NotifyEvent
}

func (s *fakeNotifier) Notify(_ context.Context, evt *dto.NotifyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *fakeNotifier) eventsOf(kind string) []*dto.NotifyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*dto.NotifyEvent
	for _, e := range s.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

// fakeCatalog 内存房源目录
type fakeCatalog struct {
	mu       sync.Mutex
	listings map[uint64]*catalog.Listing
	sold     []uint64
	closed   []uint64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{listings: make(map[uint64]*catalog.Listing)}
}

func (s *fakeCatalog) addListing(id, sellerID uint64, price float64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[id] = &catalog.Listing{
		ID:       id,
		SellerID: sellerID,
		Price:    price,
		Status:   status,
	}
}

func (s *fakeCatalog) GetListing(_ context.Context, listingID uint64) (*catalog.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("listing %d not found", listingID)
	}
	return l, nil
}

func (s *fakeCatalog) MarkLikelySold(_ context.Context, listingID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sold = append(s.sold, listingID)
	return nil
}

func (s *fakeCatalog) soldListings() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.sold...)
}

func (s *fakeCatalog) ListClosedListingIDs(_ context.Context) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.closed...), nil
}
