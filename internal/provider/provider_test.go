package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zgsm-ai/llm-bridge/internal/cache"
	"github.com/zgsm-ai/llm-bridge/internal/provider/mocks"
	"github.com/zgsm-ai/llm-bridge/internal/types"
	"github.com/zgsm-ai/llm-bridge/internal/utils"
)

func TestCredentials(t *testing.T) {
	ctx := context.Background()

	key, err := StaticCredential("abc").Credential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", key)

	t.Setenv("LLM_BRIDGE_TEST_KEY", "from-env")
	key, err = EnvCredential("LLM_BRIDGE_TEST_KEY").Credential(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestSettings_WithDefaults(t *testing.T) {
	s := Settings{}.WithDefaults("http://default")
	assert.Equal(t, "http://default", s.BaseURL)
	assert.NotNil(t, s.HTTPClient)
	assert.Equal(t, utils.DefaultTruncationPolicy(), s.Truncation)

	s = Settings{BaseURL: "http://mine", Truncation: utils.TruncationPolicy{MaxChars: 10, MaxTokens: 10}}.WithDefaults("http://default")
	assert.Equal(t, "http://mine", s.BaseURL)
	assert.Equal(t, 10, s.Truncation.MaxChars)
}

func TestRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvider := mocks.NewMockProvider(ctrl)
	r := NewRegistry()
	r.Register("mock", func(s Settings) (Provider, error) {
		assert.Equal(t, "m", s.Model)
		return mockProvider, nil
	})
	r.Register("broken", func(Settings) (Provider, error) {
		return nil, errors.New("bad config")
	})

	assert.Equal(t, []string{"broken", "mock"}, r.Names())

	p, err := r.New("mock", Settings{Model: "m"})
	require.NoError(t, err)
	assert.Same(t, mockProvider, p)

	_, err = r.New("missing", Settings{})
	assert.ErrorContains(t, err, `"missing" is not registered`)

	_, err = r.New("broken", Settings{})
	assert.ErrorContains(t, err, "bad config")

	_, err = r.New("", Settings{})
	assert.Error(t, err)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]types.ModelInfo, error) {
	return nil, errors.New("redis down")
}

func (failingCache) Set(context.Context, string, []types.ModelInfo, time.Duration) error {
	return errors.New("redis down")
}

func TestWithModelCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	models := []types.ModelInfo{{ID: "a", DisplayName: "a"}}

	mockProvider := mocks.NewMockProvider(ctrl)
	mockProvider.EXPECT().Name().Return("mock").AnyTimes()
	mockProvider.EXPECT().ListModels(ctx).Return(models, nil).Times(1)

	p := WithModelCache(mockProvider, cache.NewMemoryModelCache(), time.Minute)
	for i := 0; i < 3; i++ {
		got, err := p.ListModels(ctx)
		require.NoError(t, err)
		assert.Equal(t, models, got)
	}
}

func TestWithModelCache_CacheFailureBypassed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	mockProvider := mocks.NewMockProvider(ctrl)
	mockProvider.EXPECT().Name().Return("mock").AnyTimes()
	mockProvider.EXPECT().ListModels(ctx).Return([]types.ModelInfo{{ID: "x"}}, nil).Times(2)

	p := WithModelCache(mockProvider, failingCache{}, time.Minute)
	for i := 0; i < 2; i++ {
		got, err := p.ListModels(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
}

func TestWithModelCache_ErrorNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	mockProvider := mocks.NewMockProvider(ctrl)
	mockProvider.EXPECT().Name().Return("mock").AnyTimes()
	mockProvider.EXPECT().ListModels(ctx).Return(nil, types.NewHTTPStatusError("u", 500, "")).Times(2)

	p := WithModelCache(mockProvider, cache.NewMemoryModelCache(), time.Minute)
	_, err := p.ListModels(ctx)
	assert.True(t, types.IsKind(err, types.ErrKindHTTPStatus))
	_, err = p.ListModels(ctx)
	assert.Error(t, err)
}

func TestWithModelCache_Disabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockProvider := mocks.NewMockProvider(ctrl)
	assert.Same(t, Provider(mockProvider), WithModelCache(mockProvider, nil, time.Minute))
	assert.Same(t, Provider(mockProvider), WithModelCache(mockProvider, cache.NewMemoryModelCache(), 0))
}
