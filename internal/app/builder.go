package app

import (
	"context"
	"fmt"
	"time"

	"rhetenor/internal/config"
	"rhetenor/internal/hantoo"
	"rhetenor/internal/ingest"
	"rhetenor/internal/logger"
	"rhetenor/internal/objstore"
	"rhetenor/internal/store/runlog"
	"rhetenor/internal/universe"
)

func logWatchFailure(err error) {
	logger.Warnf("app: token watcher stopped: %v", err)
}

// Builder assembles the ingestion pipeline from config. Every stage can be
// swapped through an override, which is how tests run the full cycle against
// in-process fakes.
type Builder struct {
	cfg *config.Config

	universeFn func(ctx context.Context) (map[string]universe.Metadata, error)
	sourceFn   func(ctx context.Context) (ingest.BarSource, func(), error)
	gatewayFn  func() (objstore.Gateway, error)
	manifestFn func() (*runlog.Store, error)
}

type BuilderOption func(*Builder)

func WithUniverse(fn func(ctx context.Context) (map[string]universe.Metadata, error)) BuilderOption {
	return func(b *Builder) { b.universeFn = fn }
}

func WithBarSource(src ingest.BarSource) BuilderOption {
	return func(b *Builder) {
		b.sourceFn = func(context.Context) (ingest.BarSource, func(), error) {
			return src, func() {}, nil
		}
	}
}

func WithGateway(gw objstore.Gateway) BuilderOption {
	return func(b *Builder) {
		b.gatewayFn = func() (objstore.Gateway, error) { return gw, nil }
	}
}

func WithoutLedger() BuilderOption {
	return func(b *Builder) {
		b.manifestFn = func() (*runlog.Store, error) { return nil, nil }
	}
}

func NewBuilder(cfg *config.Config, opts ...BuilderOption) *Builder {
	b := &Builder{cfg: cfg}
	b.universeFn = b.buildUniverse
	b.sourceFn = b.buildBarSource
	b.gatewayFn = b.buildGateway
	b.manifestFn = b.buildLedger
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Builder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	loc, err := time.LoadLocation(b.cfg.Ingest.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", b.cfg.Ingest.Timezone, err)
	}
	gw, err := b.gatewayFn()
	if err != nil {
		return nil, err
	}
	source, stopSource, err := b.sourceFn(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := b.manifestFn()
	if err != nil {
		stopSource()
		return nil, err
	}
	coord := ingest.NewCoordinator(source, loc,
		ingest.WithChunking(b.cfg.Ingest.ChunkSize, b.cfg.Ingest.Workers,
			time.Duration(b.cfg.Ingest.ChunkPauseMillis)*time.Millisecond))
	return &App{
		cfg:        b.cfg,
		loc:        loc,
		universeFn: b.universeFn,
		coord:      coord,
		gateway:    gw,
		ledger:     ledger,
		stopSource: stopSource,
	}, nil
}

func (b *Builder) buildUniverse(ctx context.Context) (map[string]universe.Metadata, error) {
	timeout := time.Duration(b.cfg.Universe.TimeoutSeconds) * time.Second
	return universe.NewProvider(b.cfg.Universe.MasterURL, timeout).Load(ctx)
}

func (b *Builder) buildBarSource(ctx context.Context) (ingest.BarSource, func(), error) {
	loc, err := time.LoadLocation(b.cfg.Ingest.Timezone)
	if err != nil {
		return nil, nil, err
	}
	creds, err := hantoo.LoadCredentials(b.cfg.Hantoo.AuthPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading broker credentials: %w", err)
	}
	tokens := hantoo.NewFileTokenProvider(b.cfg.Hantoo.TokenPath)
	stop := func() {}
	if b.cfg.Hantoo.WatchToken {
		watchCtx, cancel := context.WithCancel(ctx)
		stop = cancel
		go func() {
			if err := tokens.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
				logWatchFailure(err)
			}
		}()
	}
	opts := []hantoo.ClientOption{hantoo.WithLimiter(ingest.NewPacer())}
	if b.cfg.Hantoo.MaxRecords > 0 {
		opts = append(opts, hantoo.WithMaxRecords(b.cfg.Hantoo.MaxRecords))
	}
	client, err := hantoo.NewClient(b.cfg.Hantoo.BaseURL, creds, tokens, loc, opts...)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return client, stop, nil
}

func (b *Builder) buildGateway() (objstore.Gateway, error) {
	loc, err := time.LoadLocation(b.cfg.Ingest.Timezone)
	if err != nil {
		return nil, err
	}
	auth, err := objstore.LoadAWSAuth(b.cfg.Storage.AWSAuthPath)
	if err != nil {
		return nil, fmt.Errorf("loading aws credentials: %w", err)
	}
	return objstore.NewS3Gateway(auth, b.cfg.Storage.Bucket, b.cfg.Storage.Prefix, loc), nil
}

func (b *Builder) buildLedger() (*runlog.Store, error) {
	if b.cfg.Storage.RunLedgerPath == "" {
		return nil, nil
	}
	return runlog.Open(b.cfg.Storage.RunLedgerPath)
}
