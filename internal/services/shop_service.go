package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/catalog"
	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/rng"
	"github.com/aiwuxian/sanguo-rpg/internal/storage"
)

const shopDayLayout = "2006-01-02"

// ShopOffer 商店中的一件商品
type ShopOffer struct {
	Item      models.Item     `json:"item"`
	Currency  models.Currency `json:"currency"`
	Price     int             `json:"price"`
	Remaining int             `json:"remaining"`
}

// PurchaseOutcome 一次购买的结果
type PurchaseOutcome struct {
	Offer      ShopOffer          `json:"offer"`
	Settlement *models.Settlement `json:"settlement"`
	Message    string             `json:"message"`
}

// ShopService 每日商店。每天第一次访问时随机上架，全服共享库存。
type ShopService struct {
	storage *storage.Storage
	content *catalog.Catalog
	ledger  *LedgerService
	config  models.ShopConfig
	logger  *zap.Logger

	// 串行化当天的上架
	mu sync.Mutex
}

func NewShopService(storage *storage.Storage, content *catalog.Catalog, ledger *LedgerService, config models.GameConfig, logger *zap.Logger) *ShopService {
	return &ShopService{
		storage: storage,
		content: content,
		ledger:  ledger,
		config:  config.Shop,
		logger:  logger.Named("shop"),
	}
}

// Today 今日商品，含已售罄的
func (ss *ShopService) Today(ctx context.Context) ([]ShopOffer, error) {
	return ss.offers(ctx, ss.ledger.rules.Now().Format(shopDayLayout))
}

func (ss *ShopService) offers(ctx context.Context, day string) ([]ShopOffer, error) {
	stock, err := ss.stock(ctx, day)
	if err != nil {
		return nil, err
	}

	offers := make([]ShopOffer, 0, len(stock))
	for _, st := range stock {
		item, ok := ss.content.Item(st.ItemID)
		if !ok {
			continue
		}
		currency, price, ok := item.Price()
		if !ok {
			continue
		}
		offers = append(offers, ShopOffer{Item: item, Currency: currency, Price: price, Remaining: st.Remaining})
	}
	return offers, nil
}

func (ss *ShopService) stock(ctx context.Context, day string) ([]models.ShopStock, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	stock, err := ss.storage.ListShopStock(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("读取商店失败: %w", err)
	}
	if len(stock) > 0 {
		return stock, nil
	}

	stock = ss.restock(day)
	if len(stock) == 0 {
		return nil, nil
	}
	if err := ss.storage.CreateShopStock(ctx, stock); err != nil {
		return nil, fmt.Errorf("商店上架失败: %w", err)
	}
	ss.logger.Info("商店刷新", zap.String("day", day), zap.Int("offers", len(stock)))
	return ss.storage.ListShopStock(ctx, day)
}

// restock 从有售价的道具中随机挑选若干种，每种随机库存
func (ss *ShopService) restock(day string) []models.ShopStock {
	var forSale []models.Item
	for _, it := range ss.content.Items {
		if _, _, ok := it.Price(); ok {
			forSale = append(forSale, it)
		}
	}
	if len(forSale) == 0 {
		return nil
	}

	src := ss.ledger.rules.Rand()
	n := len(forSale)
	count := rng.Between(src, max(1, min(ss.config.MinOffers, n)), max(1, min(ss.config.MaxOffers, n)))

	picked := slices.Clone(forSale)
	for i := 0; i < count; i++ {
		j := i + src.IntN(n-i)
		picked[i], picked[j] = picked[j], picked[i]
	}

	stock := make([]models.ShopStock, count)
	for i, it := range picked[:count] {
		stock[i] = models.ShopStock{
			Day:       day,
			ItemID:    it.ID,
			Remaining: rng.Between(src, max(1, ss.config.MinStock), max(1, ss.config.MaxStock)),
		}
	}
	return stock
}

// Buy 购买一件今日商品。库存扣减与扣费在同一事务中，余额不足时库存不变。
func (ss *ShopService) Buy(ctx context.Context, actorID, itemID string) (*PurchaseOutcome, error) {
	unlock := ss.ledger.locks.Lock(actorID)
	defer unlock()

	actor, err := ss.storage.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	day := ss.ledger.rules.Now().Format(shopDayLayout)
	offers, err := ss.offers(ctx, day)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(offers, func(o ShopOffer) bool { return o.Item.ID == itemID })
	if idx < 0 {
		return nil, fmt.Errorf("%w: 今日商店没有 %s", models.ErrItemNotFound, itemID)
	}
	offer := offers[idx]
	if offer.Remaining <= 0 {
		return nil, fmt.Errorf("【%s】%w", offer.Item.Name, models.ErrSoldOut)
	}

	var settlement *models.Settlement
	err = ss.storage.InTx(ctx, func(tx *storage.Storage) error {
		if err := tx.TakeShopStock(ctx, day, itemID, 1); err != nil {
			return fmt.Errorf("【%s】%w", offer.Item.Name, err)
		}
		var err error
		settlement, err = ss.ledger.ApplyTo(ctx, tx, actor,
			models.NewBundle(models.GrantItem{ItemID: itemID, Quantity: 1}),
			models.Cost{Currency: offer.Currency, Amount: offer.Price})
		return err
	})
	if err != nil {
		return nil, err
	}

	offer.Remaining--
	ss.ledger.metrics.ShopPurchases.WithLabelValues(string(offer.Currency)).Inc()
	ss.logger.Info("商店购买",
		zap.String("actor_id", actorID),
		zap.String("item", itemID),
		zap.String("currency", string(offer.Currency)),
		zap.Int("price", offer.Price))

	return &PurchaseOutcome{
		Offer:      offer,
		Settlement: settlement,
		Message:    fmt.Sprintf("购买成功！花费 %d %s，获得【%s】。", offer.Price, offer.Currency.Label(), offer.Item.Name),
	}, nil
}
