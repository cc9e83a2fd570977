// 无界面的画布客户端: 同步服务端画布, 可选地跟随热点, 退出时把画布写成 PNG。
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/api"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/bootstrap"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/clock"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/loop"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/session"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/transport/ws"
)

// logListener 把会话提示写入日志。
type logListener struct {
	session.NopListener
	log *logrus.Entry
}

func (l logListener) OnActivityCount(n int) {
	l.log.WithField("count", n).Info("Activity count updated")
}

func (l logListener) OnConnection(ev domain.ConnectionEvent) {
	entry := l.log.WithField("state", ev.State.String())
	if ev.Err != nil {
		entry = entry.WithError(ev.Err)
	}
	entry.Debug("Connection event")
}

func (l logListener) OnInspect(info domain.PixelInfo) {
	l.log.WithFields(logrus.Fields{"x": info.X, "y": info.Y, "color": info.Color, "user": info.Username}).Info("Tile inspected")
}

func main() {
	cfg, err := bootstrap.LoadClientConfig()
	if err != nil {
		logrus.Fatalf("Failed to load client configuration: %v", err)
	}
	log := bootstrap.NewLogger(cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := loop.New(1024)
	post := func(fn func()) {
		if err := events.Post(fn); err != nil {
			log.WithError(err).Debug("Dropped event after loop stopped")
		}
	}

	scfg := session.Config{
		Width:  cfg.CanvasWidth,
		Height: cfg.CanvasHeight,
		Admin:  cfg.Admin,
	}
	if cfg.AutoCamera {
		scfg.AutoCameraInterval = cfg.HotspotEvery
	}
	sess, err := session.New(scfg, session.Deps{
		API:        api.New(cfg.APIURL, cfg.Token, cfg.CanvasWidth, cfg.CanvasHeight, nil),
		Clock:      clock.New(post),
		Dispatcher: events,
		Listener:   logListener{log: log.WithField("component", "client")},
		Context:    ctx,
	})
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = sess.Load(loadCtx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to load canvas: %v", err)
	}
	if cfg.DeepLink != "" && !sess.ApplyDeepLink(cfg.DeepLink) {
		log.WithField("deep_link", cfg.DeepLink).Warn("Ignoring malformed deep link")
	}

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}
	stream := ws.New(ws.Config{URL: cfg.WSURL, Header: header}, func(msg domain.Message) {
		post(func() { sess.HandleMessage(msg) })
	})
	go func() {
		if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Update stream stopped")
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.TickInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				post(func() { sess.Tick() })
			}
		}
	}()

	log.WithFields(logrus.Fields{"api": cfg.APIURL, "ws": cfg.WSURL, "admin": cfg.Admin}).Info("Client running")
	_ = events.Run(ctx)

	// 循环已退出, 之后只有本 goroutine 访问会话
	sess.Close()
	sess.Grid().Flush()
	if cfg.SnapshotPath != "" {
		if err := writeSnapshot(sess, cfg.SnapshotPath, cfg.SnapshotScale); err != nil {
			log.WithError(err).Error("Failed to write snapshot")
		} else {
			log.WithField("path", cfg.SnapshotPath).Info("Snapshot written")
		}
	}
	log.WithField("anomalies", stream.Anomalies()).Info("Client exited")
}

func writeSnapshot(sess *session.Session, path string, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sess.Grid().WritePNG(f, scale); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
