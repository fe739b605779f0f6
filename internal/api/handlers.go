package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
	"github.com/aiwuxian/sanguo-rpg/internal/services"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	actorService     *services.ActorService
	adventureService *services.AdventureService
	battleService    *services.BattleService
	recruitService   *services.RecruitService
	stealService     *services.StealService
	shopService      *services.ShopService
	ledgerService    *services.LedgerService
	db               Pinger
	logger           *zap.Logger
}

func NewHandler(actorService *services.ActorService, adventureService *services.AdventureService,
	battleService *services.BattleService, recruitService *services.RecruitService,
	stealService *services.StealService, shopService *services.ShopService,
	ledgerService *services.LedgerService, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		actorService:     actorService,
		adventureService: adventureService,
		battleService:    battleService,
		recruitService:   recruitService,
		stealService:     stealService,
		shopService:      shopService,
		ledgerService:    ledgerService,
		db:               db,
		logger:           logger.Named("api"),
	}
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger.Error("数据库不可用", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Register 注册主公
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		ID   string `json:"id" binding:"required"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	actor, err := h.actorService.Register(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, actor)
}

// GetActor 查看主公
func (h *Handler) GetActor(c *gin.Context) {
	actor, err := h.actorService.GetActor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, actor)
}

// SignIn 每日签到
func (h *Handler) SignIn(c *gin.Context) {
	settlement, err := h.actorService.SignIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// ListInventory 背包
func (h *Handler) ListInventory(c *gin.Context) {
	items, err := h.actorService.ListInventory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListUnits 武将列表
func (h *Handler) ListUnits(c *gin.Context) {
	units, err := h.recruitService.ListUnits(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units})
}

// LevelUpUnit 用经验池给武将升级
func (h *Handler) LevelUpUnit(c *gin.Context) {
	var req struct {
		Amount int `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	settlement, err := h.ledgerService.LevelUpUnit(c.Request.Context(), c.Param("id"), c.Param("unit"), req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}

// StartAdventure 开始（或继续）冒险
func (h *Handler) StartAdventure(c *gin.Context) {
	step, err := h.adventureService.StartAdventure(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// AdvanceAdventure 做出选择，序号从 1 开始
func (h *Handler) AdvanceAdventure(c *gin.Context) {
	var req struct {
		Choice int `json:"choice"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	step, err := h.adventureService.AdvanceAdventure(c.Request.Context(), c.Param("id"), req.Choice)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// AbandonAdventure 放弃冒险
func (h *Handler) AbandonAdventure(c *gin.Context) {
	if err := h.adventureService.AbandonAdventure(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已放弃本次冒险"})
}

// AutoAdventure 自动冒险
func (h *Handler) AutoAdventure(c *gin.Context) {
	step, err := h.adventureService.AutoAdventure(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// ListChallenges 副本列表
func (h *Handler) ListChallenges(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"challenges": h.battleService.ListChallenges()})
}

// StartBattle 挑战副本
func (h *Handler) StartBattle(c *gin.Context) {
	var req struct {
		ChallengeID string   `json:"challenge_id" binding:"required"`
		UnitIDs     []string `json:"unit_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	outcome, err := h.battleService.ResolveBattle(c.Request.Context(), c.Param("id"), req.ChallengeID, req.UnitIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// BattleHistory 战斗记录，?limit=N
func (h *Handler) BattleHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	logs, err := h.battleService.BattleHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// Recruit 招募武将
func (h *Handler) Recruit(c *gin.Context) {
	outcome, err := h.recruitService.Draw(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// RecruitRates 当前招募概率
func (h *Handler) RecruitRates(c *gin.Context) {
	rates, err := h.recruitService.Rates(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

// Steal 偷窃
func (h *Handler) Steal(c *gin.Context) {
	var req struct {
		VictimID string `json:"victim_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	outcome, err := h.stealService.Steal(c.Request.Context(), c.Param("id"), req.VictimID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Shop 今日商店
func (h *Handler) Shop(c *gin.Context) {
	offers, err := h.shopService.Today(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// BuyItem 购买今日商品
func (h *Handler) BuyItem(c *gin.Context) {
	var req struct {
		ItemID string `json:"item_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	outcome, err := h.shopService.Buy(c.Request.Context(), c.Param("id"), req.ItemID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// GrantRewards 直接发放奖励（管理用）
func (h *Handler) GrantRewards(c *gin.Context) {
	var req struct {
		Rewards models.RewardSpec `json:"rewards"`
		Cost    models.Cost       `json:"cost"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}
	if req.Cost.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "消耗不能为负"})
		return
	}
	if req.Cost.Currency == "" {
		req.Cost.Currency = models.CurrencyCoins
	}

	settlement, err := h.ledgerService.Apply(c.Request.Context(), c.Param("id"), req.Rewards.ToBundle(), req.Cost)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlement)
}
