package provider

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"lukechampine.com/blake3"

	"github.com/zjrosen/canvasflow/internal/cachemanager"
)

// CachingDispatcher memoizes successful image and text generations keyed by
// model and options. Video and audio requests pass straight through.
type CachingDispatcher struct {
	next   Generator
	images *cachemanager.ReadThroughCache[string, ImageResult, imageRequest]
	texts  *cachemanager.ReadThroughCache[string, TextResult, textRequest]
}

var _ Generator = (*CachingDispatcher)(nil)

type imageRequest struct {
	ModelID string       `json:"modelId"`
	Opts    ImageOptions `json:"opts"`
}

type textRequest struct {
	ModelID string      `json:"modelId"`
	Opts    TextOptions `json:"opts"`
}

// NewCachingDispatcher wraps next with an in-memory cache whose entries
// live for ttl.
func NewCachingDispatcher(next Generator, ttl time.Duration) *CachingDispatcher {
	c := &CachingDispatcher{next: next}
	c.images = cachemanager.NewReadThroughCache[string, ImageResult, imageRequest](
		cachemanager.NewInMemoryCacheManager[string, ImageResult]("image-generations", ttl, cachemanager.DefaultCleanupInterval),
		ttl,
		func(ctx context.Context, req imageRequest) (ImageResult, error) {
			return next.GenerateImageWithModel(ctx, req.ModelID, req.Opts)
		},
	)
	c.texts = cachemanager.NewReadThroughCache[string, TextResult, textRequest](
		cachemanager.NewInMemoryCacheManager[string, TextResult]("text-generations", ttl, cachemanager.DefaultCleanupInterval),
		ttl,
		func(ctx context.Context, req textRequest) (TextResult, error) {
			return next.GenerateTextWithModel(ctx, req.ModelID, req.Opts)
		},
	)
	return c
}

func (c *CachingDispatcher) GenerateImageWithModel(ctx context.Context, modelID string, opts ImageOptions) (ImageResult, error) {
	req := imageRequest{ModelID: modelID, Opts: opts}
	return c.images.Get(ctx, requestKey("image", req), req)
}

func (c *CachingDispatcher) GenerateTextWithModel(ctx context.Context, modelID string, opts TextOptions) (TextResult, error) {
	req := textRequest{ModelID: modelID, Opts: opts}
	return c.texts.Get(ctx, requestKey("text", req), req)
}

func (c *CachingDispatcher) GenerateVideoWithModel(ctx context.Context, modelID string, opts VideoOptions) (VideoResult, error) {
	return c.next.GenerateVideoWithModel(ctx, modelID, opts)
}

func (c *CachingDispatcher) GenerateAudioWithModel(ctx context.Context, modelID string, opts AudioOptions) (AudioResult, error) {
	return c.next.GenerateAudioWithModel(ctx, modelID, opts)
}

// requestKey is blake3(kind + "\n" + json(req)). Struct field order makes
// the encoding stable.
func requestKey(kind string, req any) string {
	b, _ := json.Marshal(req)
	sum := blake3.Sum256(append([]byte(kind+"\n"), b...))
	return kind + ":" + hex.EncodeToString(sum[:])
}
