package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"designhub-points/pkg/config"
	"designhub-points/pkg/middleware"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http-server",
	fx.Provide(NewEngine),
	fx.Invoke(Run),
)

func NewEngine(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.ErrorHandler())
	return engine
}

// certReloader serves the certificate currently on disk and swaps it when
// fsnotify reports the files changed, so rotation needs no restart.
type certReloader struct {
	mu       sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

func newCertReloader(certPath, keyPath string) (*certReloader, error) {
	r := &certReloader{certPath: certPath, keyPath: keyPath}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *certReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certPath, r.keyPath)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

func (r *certReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

func (r *certReloader) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, p := range []string{r.certPath, r.keyPath} {
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return err
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.reload(); err != nil {
					zap.L().Error("failed to reload tls certificate", zap.Error(err))
					continue
				}
				zap.L().Info("tls certificate reloaded", zap.String("path", ev.Name))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Warn("tls watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

func Run(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine) error {
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())

	if cfg.TLS.Enable {
		reloader, err := newCertReloader(cfg.TLS.CertPath, cfg.TLS.KeyPath)
		if err != nil {
			cancelWatch()
			return err
		}
		if err := reloader.watch(watchCtx); err != nil {
			cancelWatch()
			return err
		}
		srv.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: reloader.getCertificate,
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				zap.L().Info("http server listening",
					zap.String("addr", srv.Addr),
					zap.Bool("tls", cfg.TLS.Enable),
				)
				var err error
				if cfg.TLS.Enable {
					err = srv.ListenAndServeTLS("", "")
				} else {
					err = srv.ListenAndServe()
				}
				if err != nil && err != http.ErrServerClosed {
					zap.L().Fatal("http server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancelWatch()
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})

	return nil
}
