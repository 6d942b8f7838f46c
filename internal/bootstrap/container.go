package bootstrap

import (
	"context"

	"vecta-client/internal/config"
	"vecta-client/internal/pkg/logger"
	"vecta-client/internal/realtime"
	"vecta-client/internal/rest"
	"vecta-client/internal/session"
	"vecta-client/internal/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Container wires the client: config, logger, blob storage, session store,
// persistence bridge, REST collaborators and the realtime channel. One
// container per active session.
type Container struct {
	Cfg         *config.Config
	Logger      logger.ILogger
	Blobs       storage.BlobStore
	PubSub      *gochannel.GoChannel
	Store       *session.Store
	Accumulator *session.Accumulator
	Bridge      *session.Bridge
	API         *rest.Client
	Realtime    *realtime.Client

	cancel context.CancelFunc
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// The interactive surface owns stdout/stderr; logs go to the file only.
	sysLogger := logger.NewFileOnlyLogger(cfg.App.LogFilePath)

	blobs, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	// Buffered so a slow consumer cannot stall the transport read loop.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)

	store := session.NewStore(pubSub, sysLogger)
	accumulator := session.NewAccumulator(store, sysLogger)
	bridge := session.NewBridge(store, blobs, sysLogger)
	api := rest.NewClient(cfg.Backend, sysLogger)

	// Anonymous sessions may always reconnect; authenticated ones only
	// while their token is still live.
	authorized := func() bool {
		return api.Token() == "" || api.TokenValid()
	}
	rt := realtime.NewClient(cfg.Realtime, store, accumulator, sysLogger, authorized)

	return &Container{
		Cfg:         cfg,
		Logger:      sysLogger,
		Blobs:       blobs,
		PubSub:      pubSub,
		Store:       store,
		Accumulator: accumulator,
		Bridge:      bridge,
		API:         api,
		Realtime:    rt,
	}, nil
}

// Start rehydrates any persisted session and runs the persistence bridge
// until Close.
func (c *Container) Start(ctx context.Context) {
	c.Bridge.Load()

	ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		if err := c.Bridge.Run(ctx); err != nil {
			c.Logger.Error("Bootstrap", "Persistence bridge stopped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

func (c *Container) Close() {
	c.Realtime.Close()
	if c.cancel != nil {
		c.cancel()
	}
	c.PubSub.Close()
	c.Blobs.Close()
	c.Logger.Sync()
}
