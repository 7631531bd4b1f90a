package logic

import (
	"context"

	"github.com/zgsm-ai/llm-bridge/internal/bootstrap"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// ModelsResponse is the body of the model listing endpoint
type ModelsResponse struct {
	Provider string            `json:"provider"`
	Models   []types.ModelInfo `json:"models"`
}

// TokensRequest is the body of the token estimate endpoint
type TokensRequest struct {
	Messages []types.ChatMessage `json:"messages"`
}

// TokensResponse carries an approximate prompt size
type TokensResponse struct {
	Provider string `json:"provider"`
	Tokens   int    `json:"tokens"`
}

// ListModels returns the active provider's models
func ListModels(ctx context.Context, svcCtx *bootstrap.ServiceContext) (*ModelsResponse, error) {
	models, err := svcCtx.Provider.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if models == nil {
		models = []types.ModelInfo{}
	}
	return &ModelsResponse{Provider: svcCtx.Provider.Name(), Models: models}, nil
}

// CountTokens estimates the prompt size of messages
func CountTokens(svcCtx *bootstrap.ServiceContext, req *TokensRequest) (*TokensResponse, error) {
	for _, msg := range req.Messages {
		if err := msg.Validate(); err != nil {
			return nil, err
		}
	}
	return &TokensResponse{
		Provider: svcCtx.Provider.Name(),
		Tokens:   svcCtx.Provider.CountTokens(req.Messages),
	}, nil
}
