package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dang1412/sui-chat/internal/api"
	"github.com/dang1412/sui-chat/internal/chat"
	"github.com/dang1412/sui-chat/internal/config"
	"github.com/dang1412/sui-chat/internal/ipfs"
	"github.com/dang1412/sui-chat/internal/keystore"
	"github.com/dang1412/sui-chat/internal/logger"
	"github.com/dang1412/sui-chat/internal/poller"
	"github.com/dang1412/sui-chat/internal/protocol"
	"github.com/dang1412/sui-chat/internal/session"
	"github.com/dang1412/sui-chat/internal/sui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat node: poll the ledger for handshakes and serve the UI API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := logger.New(cfg.LogLevel)

		keys, err := keystore.Open(cfg.KeystorePath)
		if err != nil {
			return err
		}
		signer, err := keys.LoadOrCreateSigner()
		if err != nil {
			return err
		}
		log.Infof("Local identity: %s", signer.Address())
		log.Infof("Network: %s (%s)", cfg.Network.Name, cfg.Network.RPCURL)

		ledger := sui.NewClient(sui.Options{
			RPCURL:    cfg.Network.RPCURL,
			PackageID: cfg.Network.PackageID,
			Signer:    signer,
			Logger:    log,
		})
		blobs := ipfs.NewClient(ipfs.Options{
			PinURL:  cfg.PinAPIURL,
			Gateway: cfg.Gateway,
			Key:     cfg.PinataKey,
			Secret:  cfg.PinataSecret,
			Logger:  log,
		})

		manager := chat.NewManager(chat.Options{
			Self:     signer.Address(),
			Blobs:    blobs,
			Relay:    ledger,
			Registry: session.NewRegistry(),
			Store:    chat.NewStore(),
			RTC:      session.DefaultRTCConfig(),
			Logger:   log,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events := poller.New(poller.Options{
			Source:   ledger,
			Self:     signer.Address(),
			Interval: cfg.PollInterval,
			PageSize: cfg.PageSize,
			Logger:   log,
			Handler: func(envelopes []protocol.Envelope) {
				manager.HandleEnvelopes(ctx, envelopes)
			},
		})

		server := api.NewServer(api.Options{
			Addr:     cfg.ListenAddr,
			Manager:  manager,
			Resolver: keys,
			Logger:   log,
		})

		errCh := make(chan error, 2)
		go func() { errCh <- events.Run(ctx) }()
		go func() { errCh <- server.Start() }()

		select {
		case <-ctx.Done():
			log.Info("Shutting down")
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("Node stopped: %v", err)
			}
		}

		events.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		manager.Close()
		return nil
	},
}
