package service

import (
	"github.com/gin-gonic/gin"

	"github.com/medqa-ai/medqa/app/core"
	"github.com/medqa-ai/medqa/app/response"
	"github.com/medqa-ai/medqa/cmd/service/handler"
	"github.com/medqa-ai/medqa/cmd/service/middleware"
	"github.com/medqa-ai/medqa/pkg/metrics"
)

func serve(core *core.Core) {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	core.HttpEngine().Run(core.Cfg().Addr)
}

func GetIPLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			return key + ":" + c.ClientIP()
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	ipLimit := GetIPLimitBuilder(s.Core)

	s.Engine.Use(gin.Recovery())
	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.Observe(s.Core.Metrics()))

	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	apiV1 := s.Engine.Group("/api/v1")
	{
		chat := apiV1.Group("/chat")
		{
			chat.POST("/stream", ipLimit("chat_stream", core.WithLimit(20)), s.ChatStream)
			chat.POST("/compare", ipLimit("chat_compare", core.WithLimit(10)), s.CompareChat)
			chat.GET("/history", s.GetChatHistory)
			chat.DELETE("/history", s.ClearChatHistory)
		}
	}
}
