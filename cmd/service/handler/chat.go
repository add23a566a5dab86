package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/medqa-ai/medqa/app/logic/v1"
	"github.com/medqa-ai/medqa/app/response"
	"github.com/medqa-ai/medqa/pkg/errors"
	"github.com/medqa-ai/medqa/pkg/utils"
)

type ChatStreamRequest struct {
	Query       string   `json:"query" binding:"required"`
	Temperature *float32 `json:"temperature"`
}

// ChatStream 流式问答。先以 message 事件下发自然语言增量，
// 流结束后以 replace 事件下发结构化卡片，前端用卡片替换流式内容
func (s *HttpSrv) ChatStream(c *gin.Context) {
	var req ChatStreamRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	temperature := v1.DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	logic := v1.NewChatLogic(c.Request.Context(), s.Core)
	formatted, err := logic.StreamAndReplace(req.Query, temperature, func(delta string) error {
		c.SSEvent("message", delta)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		l := response.InjectResponseLocalizer(c)
		message := err.Error()
		if ce, ok := err.(*errors.CustomizedError); ok {
			message = l.Get(response.GetLangFromRequestOrDefault(c), ce.Message())
		}
		c.SSEvent("error", message)
		c.Writer.Flush()
		return
	}

	c.SSEvent("replace", formatted)
	c.SSEvent("done", "")
	c.Writer.Flush()
}

type CompareChatRequest struct {
	Query string `json:"query" binding:"required"`
}

// CompareChat 同一问题按不同温度各回答一次，用于观察采样温度的影响
func (s *HttpSrv) CompareChat(c *gin.Context) {
	var req CompareChatRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	logic := v1.NewChatLogic(c.Request.Context(), s.Core)
	comparisons, err := logic.CompareTemperatures(req.Query)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, comparisons)
}

func (s *HttpSrv) GetChatHistory(c *gin.Context) {
	logic := v1.NewChatLogic(c.Request.Context(), s.Core)
	response.APISuccess(c, logic.History())
}

func (s *HttpSrv) ClearChatHistory(c *gin.Context) {
	logic := v1.NewChatLogic(c.Request.Context(), s.Core)
	logic.ClearHistory()
	response.APISuccess(c, nil)
}
