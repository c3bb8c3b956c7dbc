package catalog

import (
	"Haggle/internal/api/config"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// 房源状态（由房源目录服务定义）
const (
	ListingStatusLive = "live"
)

// Listing 房源目录快照，本服务只读不拥有
type Listing struct {
	ID         uint64  `json:"id"`
	SellerID   uint64  `json:"seller_id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Status     string  `json:"status"` // live / expired / deleted / sold
	SellerTier string  `json:"seller_tier"`
}

// Client 房源目录协作方
type Client interface {
	GetListing(ctx context.Context, listingID uint64) (*Listing, error)
	MarkLikelySold(ctx context.Context, listingID uint64) error
	ListClosedListingIDs(ctx context.Context) ([]uint64, error)
}

type restyClient struct {
	http *resty.Client
}

func NewClient(cfg config.CatalogConfig) Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second).
		SetHeader("X-Api-Key", cfg.ApiKey).
		SetRetryCount(2)
	return &restyClient{http: c}
}

type listingEnvelope struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Data    *Listing `json:"data"`
}

type idsEnvelope struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Data    []uint64 `json:"data"`
}

// GetListing 拉取房源快照
func (s *restyClient) GetListing(ctx context.Context, listingID uint64) (*Listing, error) {
	var out listingEnvelope
	resp, err := s.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/internal/listings/%d", listingID))
	if err != nil {
		return nil, err
	}
	if resp.IsError() || out.Data == nil {
		return nil, fmt.Errorf("catalog: listing %d unavailable (status %d)", listingID, resp.StatusCode())
	}
	return out.Data, nil
}

// MarkLikelySold 报价被接受后的“疑似售出”信号，尽力投递
func (s *restyClient) MarkLikelySold(ctx context.Context, listingID uint64) error {
	resp, err := s.http.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/internal/listings/%d/likely-sold", listingID))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("catalog: likely-sold for listing %d failed (status %d)", listingID, resp.StatusCode())
	}
	return nil
}

// ListClosedListingIDs 拉取已过期或已删除的房源 ID，供会话关闭清扫使用
func (s *restyClient) ListClosedListingIDs(ctx context.Context) ([]uint64, error) {
	var out idsEnvelope
	resp, err := s.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/internal/listings/closed")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("catalog: closed listing feed failed (status %d)", resp.StatusCode())
	}
	return out.Data, nil
}
