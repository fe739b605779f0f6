package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter 注册全部路由
func NewRouter(h *Handler, metricsHandler http.Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(log), ZapLogger(log))

	r.GET("/health", h.Health)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	apiGroup := r.Group("/api")
	{
		// 主公
		apiGroup.POST("/actors", h.Register)
		apiGroup.GET("/actors/:id", h.GetActor)
		apiGroup.POST("/actors/:id/sign-in", h.SignIn)
		apiGroup.GET("/actors/:id/inventory", h.ListInventory)
		apiGroup.POST("/actors/:id/rewards", h.GrantRewards)

		// 武将
		apiGroup.GET("/actors/:id/units", h.ListUnits)
		apiGroup.POST("/actors/:id/units/:unit/level-up", h.LevelUpUnit)
		apiGroup.POST("/actors/:id/recruit", h.Recruit)
		apiGroup.GET("/actors/:id/recruit/rates", h.RecruitRates)

		// 冒险
		apiGroup.POST("/actors/:id/adventure/start", h.StartAdventure)
		apiGroup.POST("/actors/:id/adventure/advance", h.AdvanceAdventure)
		apiGroup.POST("/actors/:id/adventure/abandon", h.AbandonAdventure)
		apiGroup.POST("/actors/:id/adventure/auto", h.AutoAdventure)

		// 副本
		apiGroup.GET("/challenges", h.ListChallenges)
		apiGroup.POST("/actors/:id/battles", h.StartBattle)
		apiGroup.GET("/actors/:id/battles", h.BattleHistory)

		apiGroup.POST("/actors/:id/steal", h.Steal)

		// 商店
		apiGroup.GET("/shop", h.Shop)
		apiGroup.POST("/actors/:id/shop/buy", h.BuyItem)
	}

	return r
}
