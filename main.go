package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ftpserver "github.com/fclairamb/ftpserverlib"

	"github.com/ayato-h/albumdrop/api"
	"github.com/ayato-h/albumdrop/api/notifyhub"
	"github.com/ayato-h/albumdrop/gateway"
	"github.com/ayato-h/albumdrop/ingest"
	"github.com/ayato-h/albumdrop/pipeline"
	"github.com/ayato-h/albumdrop/registry"
	"github.com/ayato-h/albumdrop/store"
	"github.com/ayato-h/albumdrop/tool"
	"github.com/ayato-h/albumdrop/types"
	"github.com/ayato-h/albumdrop/upload"
	"github.com/ayato-h/albumdrop/watcher"
)

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if cfg.UseHost != "" {
		appCfg.Host = cfg.UseHost
	}
	if cfg.UseFTPPort > 0 {
		appCfg.FTPPort = cfg.UseFTPPort
	}
	if cfg.UseAPIPort > 0 {
		appCfg.APIPort = cfg.UseAPIPort
	}
	if cfg.UseDatabasePath != "" {
		appCfg.DatabasePath = cfg.UseDatabasePath
	}
	if cfg.UseUploadFolder != "" {
		appCfg.UploadFolder = cfg.UseUploadFolder
	}
	if appCfg.Host == "" {
		appCfg.Host = tool.AdvertisedHost()
	}

	tool.InitLogger()
	tool.SetLogMode(cfg.Log)

	st, err := store.OpenSQLite(appCfg.DatabasePath)
	if err != nil {
		tool.DefaultLogger.Fatalf("Store startup failed: %v", err)
	}

	uploader, err := upload.NewCloudinary(appCfg.CloudinaryURL, appCfg.UploadFolder)
	if err != nil {
		tool.DefaultLogger.Fatalf("Uploader startup failed: %v (set cloudinaryURL in %s)", err, tool.ConfigPath)
	}

	hub := notifyhub.New()

	bridge := ingest.New(uploader, st, ingest.Config{
		UploadTimeout: time.Duration(appCfg.UploadTimeoutSecs) * time.Second,
	})

	pl := pipeline.New(pipeline.Config{
		DebounceWindow: time.Duration(appCfg.DebounceMS) * time.Millisecond,
		Cooldown:       time.Duration(appCfg.CooldownSeconds) * time.Second,
	}, bridge)
	pl.OnIngested(func(res types.IngestResult) {
		hub.Broadcast(&types.Notification{Action: "add", ImageURL: res.RemoteURL})
	})

	watchCfg := watcher.Config{
		QuietPeriod:  time.Duration(appCfg.QuietPeriodMS) * time.Millisecond,
		PollInterval: time.Duration(appCfg.PollIntervalMS) * time.Millisecond,
	}
	reg := registry.New(registry.Config{
		StartWatch: func(sess types.Session) (registry.Stopper, error) {
			w, err := watcher.New(sess.RootDir, watchCfg)
			if err != nil {
				return nil, err
			}
			w.Start()
			go func() {
				for ev := range w.Events() {
					if ev.Op == watcher.OpSettled {
						pl.Enqueue(ev.Path, sess.AlbumID)
					}
				}
			}()
			return w, nil
		},
		OnReset: pl.Reset,
	})

	driver := gateway.NewDriver(reg, gateway.Config{
		ListenAddr:       fmt.Sprintf(":%d", appCfg.FTPPort),
		PassivePortStart: appCfg.PassivePortStart,
		PassivePortEnd:   appCfg.PassivePortEnd,
	})
	ftpSrv := ftpserver.NewFtpServer(driver)
	go func() {
		tool.DefaultLogger.Infof("Starting transfer engine on :%d", appCfg.FTPPort)
		if err := ftpSrv.ListenAndServe(); err != nil {
			tool.DefaultLogger.Fatalf("Transfer engine startup failed: %v", err)
		}
	}()

	apiSrv := api.NewServer(appCfg.APIPort, reg, hub, st, appCfg.Host, appCfg.FTPPort)
	go func() {
		if err := apiSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	// Graceful shutdown: revoke sessions first so watchers release their
	// handles, then stop the servers and close the store.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	tool.DefaultLogger.Info("Shutting down...")

	reg.RevokeAll()
	if err := ftpSrv.Stop(); err != nil {
		tool.DefaultLogger.Errorf("Transfer engine stop failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(ctx); err != nil {
		tool.DefaultLogger.Errorf("API server shutdown failed: %v", err)
	}
	if err := st.Close(); err != nil {
		tool.DefaultLogger.Errorf("Store close failed: %v", err)
	}
}
