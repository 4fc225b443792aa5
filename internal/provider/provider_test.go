package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/provider"
	"github.com/zjrosen/canvasflow/internal/provider/mock"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		catalog.ModelConfig{ID: "mock-image", Name: "Mock Image", Provider: "mock", Type: catalog.ModalityImage, CreditCost: 1, VendorModel: "mock-image-v1"},
		catalog.ModelConfig{ID: "mock-video", Name: "Mock Video", Provider: "mock", Type: catalog.ModalityVideo, CreditCost: 5},
		catalog.ModelConfig{ID: "mock-text", Name: "Mock Text", Provider: "mock", Type: catalog.ModalityText},
		catalog.ModelConfig{ID: "mock-audio", Name: "Mock Audio", Provider: "mock", Type: catalog.ModalityAudio},
		catalog.ModelConfig{ID: "ghost-image", Name: "Ghost", Provider: "ghost", Type: catalog.ModalityImage},
	)
	require.NoError(t, err)
	return cat
}

func newDispatcher(t *testing.T, providers ...provider.Provider) *provider.Dispatcher {
	t.Helper()
	reg, err := provider.NewRegistry(providers...)
	require.NoError(t, err)
	return provider.NewDispatcher(testCatalog(t), reg)
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := provider.NewRegistry(mock.New(), mock.New())
	require.Error(t, err)
	require.Contains(t, err.Error(), "registered twice")
}

func TestRegistry_NamesAndCapabilities(t *testing.T) {
	reg, err := provider.NewRegistry(mock.New(mock.WithName("b")), mock.New(mock.WithName("a")))
	require.NoError(t, err)

	require.Equal(t, []string{"a", "b"}, reg.Names())
	require.True(t, reg.Capabilities()["a"].Image)

	_, ok := reg.Get("c")
	require.False(t, ok)
}

func TestDispatcher_FillsVendorModel(t *testing.T) {
	mp := mock.New()
	d := newDispatcher(t, mp)

	_, err := d.GenerateImageWithModel(context.Background(), "mock-image", provider.ImageOptions{Prompt: "cat"})
	require.NoError(t, err)
	_, err = d.GenerateVideoWithModel(context.Background(), "mock-video", provider.VideoOptions{Prompt: "sea"})
	require.NoError(t, err)

	calls := mp.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, "mock-image-v1", calls[0].Model)
	// No vendor model configured: the catalog id is sent.
	require.Equal(t, "mock-video", calls[1].Model)
}

func TestDispatcher_UnknownModel(t *testing.T) {
	d := newDispatcher(t, mock.New())

	_, err := d.GenerateImageWithModel(context.Background(), "nope", provider.ImageOptions{})

	var unknown *provider.UnknownModelError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "nope", unknown.Model)
	require.ErrorIs(t, err, provider.ErrUnknownModel)
}

func TestDispatcher_UnknownProvider(t *testing.T) {
	d := newDispatcher(t, mock.New())

	_, err := d.GenerateImageWithModel(context.Background(), "ghost-image", provider.ImageOptions{})
	require.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestDispatcher_CapabilityFlagOff(t *testing.T) {
	d := newDispatcher(t, mock.New(mock.WithCapabilities(provider.Capabilities{Image: true, Text: true})))

	_, err := d.GenerateVideoWithModel(context.Background(), "mock-video", provider.VideoOptions{Prompt: "x"})

	var unsupported *provider.UnsupportedCapabilityError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, catalog.ModalityVideo, unsupported.Capability)
	require.ErrorIs(t, err, provider.ErrUnsupportedCapability)
}

func TestDispatcher_FlagSetButMethodMissing(t *testing.T) {
	// The mock never implements AudioGenerator, even with the flag on.
	d := newDispatcher(t, mock.New(mock.WithCapabilities(provider.Capabilities{Audio: true})))

	_, err := d.GenerateAudioWithModel(context.Background(), "mock-audio", provider.AudioOptions{Prompt: "x"})
	require.ErrorIs(t, err, provider.ErrUnsupportedCapability)
}

func TestDispatcher_ModelModalityMismatch(t *testing.T) {
	d := newDispatcher(t, mock.New())

	_, err := d.GenerateVideoWithModel(context.Background(), "mock-image", provider.VideoOptions{Prompt: "x"})
	require.ErrorIs(t, err, provider.ErrUnsupportedCapability)
}

func TestDispatcher_WrapsVendorFailure(t *testing.T) {
	vendorErr := errors.New("rate limited")
	mp := mock.New()
	mp.TextFunc = func(context.Context, provider.TextOptions) (provider.TextResult, error) {
		return provider.TextResult{}, vendorErr
	}
	d := newDispatcher(t, mp)

	_, err := d.GenerateTextWithModel(context.Background(), "mock-text", provider.TextOptions{Prompt: "x"})

	var execErr *provider.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "mock", execErr.Provider)
	require.ErrorIs(t, err, provider.ErrProviderExecution)
	require.ErrorIs(t, err, vendorErr)
	require.Contains(t, err.Error(), "rate limited")
}

func TestCachingDispatcher_ReusesImageAndText(t *testing.T) {
	mp := mock.New()
	c := provider.NewCachingDispatcher(newDispatcher(t, mp), time.Minute)
	ctx := context.Background()

	first, err := c.GenerateImageWithModel(ctx, "mock-image", provider.ImageOptions{Prompt: "cat"})
	require.NoError(t, err)
	second, err := c.GenerateImageWithModel(ctx, "mock-image", provider.ImageOptions{Prompt: "cat"})
	require.NoError(t, err)
	require.Equal(t, first, second)

	_, err = c.GenerateTextWithModel(ctx, "mock-text", provider.TextOptions{Prompt: "hi"})
	require.NoError(t, err)
	_, err = c.GenerateTextWithModel(ctx, "mock-text", provider.TextOptions{Prompt: "hi"})
	require.NoError(t, err)

	require.Len(t, mp.Calls(), 2)
}

func TestCachingDispatcher_DistinctOptionsMiss(t *testing.T) {
	mp := mock.New()
	c := provider.NewCachingDispatcher(newDispatcher(t, mp), time.Minute)
	ctx := context.Background()

	_, err := c.GenerateImageWithModel(ctx, "mock-image", provider.ImageOptions{Prompt: "cat", AspectRatio: "1:1"})
	require.NoError(t, err)
	_, err = c.GenerateImageWithModel(ctx, "mock-image", provider.ImageOptions{Prompt: "cat", AspectRatio: "16:9"})
	require.NoError(t, err)

	require.Len(t, mp.Calls(), 2)
}

func TestCachingDispatcher_VideoNotCached(t *testing.T) {
	mp := mock.New()
	c := provider.NewCachingDispatcher(newDispatcher(t, mp), time.Minute)
	ctx := context.Background()

	for range 2 {
		_, err := c.GenerateVideoWithModel(ctx, "mock-video", provider.VideoOptions{Prompt: "sea", Duration: 5})
		require.NoError(t, err)
	}
	require.Len(t, mp.Calls(), 2)
}

func TestCachingDispatcher_ErrorsNotCached(t *testing.T) {
	mp := mock.New()
	fail := true
	mp.ImageFunc = func(_ context.Context, opts provider.ImageOptions) (provider.ImageResult, error) {
		if fail {
			return provider.ImageResult{}, errors.New("boom")
		}
		return provider.ImageResult{URL: "ok"}, nil
	}
	c := provider.NewCachingDispatcher(newDispatcher(t, mp), time.Minute)

	_, err := c.GenerateImageWithModel(context.Background(), "mock-image", provider.ImageOptions{Prompt: "x"})
	require.Error(t, err)

	fail = false
	res, err := c.GenerateImageWithModel(context.Background(), "mock-image", provider.ImageOptions{Prompt: "x"})
	require.NoError(t, err)
	require.Equal(t, "ok", res.URL)
}
