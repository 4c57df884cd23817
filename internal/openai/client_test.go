package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func TestClient_EmbedMany_PreservesOrder(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, model: "test-model", dimensions: 3}

	ctx := context.Background()
	texts := []string{"first chunk", "second chunk", "third chunk"}
	mockAPI.On("CreateEmbeddings", ctx, texts).Return([][]float32{
		{0.1, 0.2, 0.3},
		{0.4, 0.5, 0.6},
		{0.7, 0.8, 0.9},
	}, nil)

	vectors, err := client.EmbedMany(ctx, texts)

	assert.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vectors[0])
	assert.Equal(t, []float32{0.7, 0.8, 0.9}, vectors[2])
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedMany_BlankTextsBecomeZeroVectors(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, model: "test-model", dimensions: 3}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"real text"}).Return([][]float32{
		{0.1, 0.2, 0.3},
	}, nil)

	vectors, err := client.EmbedMany(ctx, []string{"", "real text", ""})

	assert.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vectors[1])
	assert.Equal(t, []float32{0, 0, 0}, vectors[2])
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedMany_AllBlankSkipsAPI(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, model: "test-model", dimensions: 2}

	vectors, err := client.EmbedMany(context.Background(), []string{"", ""})

	assert.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 0}, {0, 0}}, vectors)
	mockAPI.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestClient_EmbedMany_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, model: "test-model", dimensions: 3}

	ctx := context.Background()
	apiErr := errors.New("API rate limit exceeded")
	mockAPI.On("CreateEmbeddings", ctx, []string{"some text"}).Return(nil, apiErr)

	vectors, err := client.EmbedMany(ctx, []string{"some text"})

	assert.Error(t, err)
	assert.Nil(t, vectors)
	var embErr *EmbeddingError
	assert.ErrorAs(t, err, &embErr)
	assert.Equal(t, "test-model", embErr.Model)
	assert.ErrorIs(t, err, apiErr)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedMany_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, model: "test-model", dimensions: 3}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"some text"}).Return([][]float32{
		{0.1, 0.2},
	}, nil)

	vectors, err := client.EmbedMany(ctx, []string{"some text"})

	assert.Error(t, err)
	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedOne(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, model: "test-model", dimensions: 2}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"query text"}).Return([][]float32{
		{0.5, 0.6},
	}, nil)

	vector, err := client.EmbedOne(ctx, "query text")

	assert.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.6}, vector)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedOne_BlankText(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, model: "test-model", dimensions: 2}

	vector, err := client.EmbedOne(context.Background(), "")

	assert.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, vector)
	mockAPI.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.Dimension())
}

func TestNewClientFromEnv_NoAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClientFromEnv()

	assert.Nil(t, client)
	assert.Error(t, err)
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestNewClientFromEnv_WithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-api-key")

	client, err := NewClientFromEnv()

	assert.NotNil(t, client)
	assert.NoError(t, err)
}
