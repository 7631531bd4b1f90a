package logic

import (
	"context"
	"net/http"

	"github.com/zgsm-ai/llm-bridge/internal/bootstrap"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"github.com/zgsm-ai/llm-bridge/internal/model"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// ChatLogic bridges one chat request to the active provider
type ChatLogic struct {
	ctx    context.Context
	svcCtx *bootstrap.ServiceContext
}

func NewChatLogic(ctx context.Context, svcCtx *bootstrap.ServiceContext) *ChatLogic {
	return &ChatLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Chat performs a blocking request
func (l *ChatLogic) Chat(req *types.ChatRequest) (resp *types.ChatResponse, err error) {
	req.Stream = false
	chatLog := l.startLog(req)
	defer func() { l.finishLog(chatLog, resp, err) }()

	return l.svcCtx.Provider.Chat(l.ctx, req, nil)
}

// ChatStream performs a streaming request and writes it to w as SSE. Each
// text fragment is sent as it arrives, then the final response, then
// [DONE]. A failure is written as an error frame and also returned.
func (l *ChatLogic) ChatStream(req *types.ChatRequest, w http.ResponseWriter) (err error) {
	req.Stream = true
	chatLog := l.startLog(req)
	var resp *types.ChatResponse
	defer func() { l.finishLog(chatLog, resp, err) }()

	sse := newSSEWriter(w)
	resp, err = l.svcCtx.Provider.Chat(l.ctx, req, func(text string) error {
		chatLog.OnDelta()
		return sse.writeEvent(streamEvent{Delta: &text})
	})
	if err != nil {
		sse.sendSSEError(err)
		return err
	}

	if err := sse.writeEvent(streamEvent{Response: resp}); err != nil {
		return err
	}
	return sse.writeDone()
}

func (l *ChatLogic) startLog(req *types.ChatRequest) *model.RequestLog {
	chatLog := model.NewRequestLog(l.ctx, l.svcCtx.Provider.Name(), req)
	chatLog.EstimatedTokens = l.svcCtx.Provider.CountTokens(req.Messages)
	return chatLog
}

func (l *ChatLogic) finishLog(chatLog *model.RequestLog, resp *types.ChatResponse, err error) {
	chatLog.Finish(resp, err)
	if err != nil {
		logger.Warn("chat request failed", chatLog.Fields()...)
		return
	}
	logger.Info("chat request completed", chatLog.Fields()...)
}
