package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/ccfacade"
	"github.com/unkn0wn-root/ccfacade/codec"
	"github.com/unkn0wn-root/ccfacade/config"
	"github.com/unkn0wn-root/ccfacade/docstore"
	gen "github.com/unkn0wn-root/ccfacade/genstore"
	asynchook "github.com/unkn0wn-root/ccfacade/hooks/async"
	"github.com/unkn0wn-root/ccfacade/internal/lookup"
	logrusadapter "github.com/unkn0wn-root/ccfacade/log/logrus"
	slogadapter "github.com/unkn0wn-root/ccfacade/log/slog"
	zapadapter "github.com/unkn0wn-root/ccfacade/log/zap"
	"github.com/unkn0wn-root/ccfacade/promhooks"
	pr "github.com/unkn0wn-root/ccfacade/provider"
	bigcacheprovider "github.com/unkn0wn-root/ccfacade/provider/bigcache"
	redisprovider "github.com/unkn0wn-root/ccfacade/provider/redis"
	ristrettoprovider "github.com/unkn0wn-root/ccfacade/provider/ristretto"
	"github.com/unkn0wn-root/ccfacade/publisher"
	"github.com/unkn0wn-root/ccfacade/sloghooks"
	"github.com/unkn0wn-root/ccfacade/upstream"
)

// app is the process-wide object graph, built once per command.
type app struct {
	cfg   *config.Config
	log   ccfacade.Logger
	reg   *prometheus.Registry
	hooks *asynchook.Hooks

	rdb     *goredis.Client
	docs    *docstore.Store[ccfacade.CachedCase]
	cases   ccfacade.CaseStore
	metrics *http.Server

	closers []func(context.Context) error
}

func newApp(ctx context.Context, f *rootFlags) (*app, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, reg: prometheus.NewRegistry()}
	a.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := a.initLogger(); err != nil {
		return nil, err
	}
	if err := a.initStore(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	if f.metricsAddr != "" {
		a.serveMetrics(f.metricsAddr)
	}
	return a, nil
}

func (a *app) initLogger() error {
	lvl := a.cfg.Log.Level
	switch a.cfg.Log.Backend {
	case "logrus":
		l, err := logrusadapter.New(os.Stderr, lvl)
		if err != nil {
			return err
		}
		a.log = l
	case "slog":
		l, err := slogadapter.New(os.Stderr, lvl)
		if err != nil {
			return err
		}
		a.log = l
	default:
		l, err := zapadapter.New(lvl)
		if err != nil {
			return err
		}
		a.log = l
		a.closers = append(a.closers, func(context.Context) error { _ = l.Sync(); return nil })
	}

	hl, err := slogadapter.New(os.Stderr, lvl)
	if err != nil {
		return err
	}
	a.hooks = asynchook.New(sloghooks.New(hl.L, sloghooks.Options{ContentionEvery: 10}), 1, 1024)
	a.closers = append(a.closers, func(context.Context) error { a.hooks.Close(); return nil })
	return nil
}

func (a *app) redis(ctx context.Context) (*goredis.Client, error) {
	if a.rdb != nil {
		return a.rdb, nil
	}
	rc := a.cfg.Redis
	rdb, err := redisprovider.Dial(ctx, redisprovider.DialConfig{
		URL:          rc.URL,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	return rdb, nil
}

func (a *app) initStore(ctx context.Context) error {
	collection := ccfacade.CollectionName(a.cfg.Project, a.cfg.Schema)

	var (
		p  pr.Provider
		gs gen.GenStore
	)
	switch a.cfg.Store.Backend {
	case "redis":
		rdb, err := a.redis(ctx)
		if err != nil {
			return err
		}
		rp, err := redisprovider.New(redisprovider.Config{Client: rdb})
		if err != nil {
			return err
		}
		p = rp
		gs = gen.NewRedisGenStoreWithTTL(rdb, collection, a.cfg.Redis.GenTTL).WithLease(a.cfg.Redis.CommitLease)
	case "bigcache":
		bp, err := bigcacheprovider.New(bigcacheprovider.Config{
			LifeWindow:         a.cfg.Store.RecordTTL,
			MaxEntriesInWindow: 10_000,
		})
		if err != nil {
			return fmt.Errorf("bigcache: %w", err)
		}
		p = bp
	case "ristretto":
		rp, err := ristrettoprovider.New(ristrettoprovider.Config{
			NumCounters: 1_000_000,
			MaxCost:     256 << 20,
			BufferItems: 64,
			Metrics:     true,
		})
		if err != nil {
			return err
		}
		registerRistrettoMetrics(a.reg, rp)
		p = rp
	}

	cd, err := codec.ByName[ccfacade.CachedCase](a.cfg.Store.Codec)
	if err != nil {
		return err
	}
	docs, err := docstore.New(docstore.Options[ccfacade.CachedCase]{
		Provider: p,
		Codec:    codec.LimitCodec[ccfacade.CachedCase]{Inner: cd, Max: a.cfg.Store.MaxRecordBytes},
		GenStore: gs,
		TTL:      a.cfg.Store.RecordTTL,
	})
	if err != nil {
		_ = p.Close(ctx)
		return err
	}
	a.docs = docs
	a.closers = append(a.closers, docs.Close)

	cases, err := ccfacade.New(ccfacade.Options{
		Project: a.cfg.Project,
		Schema:  a.cfg.Schema,
		Store:   docs,
		Backoff: a.cfg.Backoff.Policy(),
		Logger:  a.log,
		Hooks:   ccfacade.MultiHooks{promhooks.New(a.reg), a.hooks},
	})
	if err != nil {
		return err
	}
	a.cases = cases
	return nil
}

func (a *app) publisher(ctx context.Context) (publisher.Publisher, error) {
	rdb, err := a.redis(ctx)
	if err != nil {
		return nil, err
	}
	cd, err := codec.ByName[publisher.Envelope](a.cfg.Store.Codec)
	if err != nil {
		return nil, err
	}
	pc := a.cfg.Publisher
	return publisher.NewRedisStreams(publisher.RedisStreamsConfig{
		Client: rdb,
		Codec:  cd,
		Origin: publisher.Origin{Source: pc.Source, Channel: pc.Channel},
		Prefix: pc.StreamPrefix,
		MaxLen: pc.MaxLen,
	})
}

func (a *app) caseService() *upstream.CaseServiceClient {
	return upstream.NewCaseServiceClient(a.cfg.Upstream.CaseServiceURL, a.cfg.Upstream.Timeout)
}

func (a *app) addressIndex() *upstream.AddressIndexClient {
	return upstream.NewAddressIndexClient(a.cfg.Upstream.AddressIndexURL, a.cfg.Upstream.Timeout)
}

func (a *app) lookup(ctx context.Context) (*lookup.Service, error) {
	pub, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}
	return lookup.New(lookup.Config{
		Cases:     a.caseService(),
		Addresses: a.addressIndex(),
		Store:     a.cases,
		Publisher: pub,
		Logger:    a.log,
	})
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{Registry: a.reg}))
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", ccfacade.Fields{"addr": addr, "err": err})
		}
	}()
	a.log.Info("serving metrics", ccfacade.Fields{"addr": addr})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.metrics != nil {
		errs = append(errs, a.metrics.Shutdown(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func registerRistrettoMetrics(reg prometheus.Registerer, p *ristrettoprovider.Provider) {
	m := p.Metrics()
	if m == nil {
		return
	}
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "ccfacade_ristretto_hits_total",
			Help: "Ristretto cache hits",
		}, func() float64 { return float64(m.Hits()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "ccfacade_ristretto_misses_total",
			Help: "Ristretto cache misses",
		}, func() float64 { return float64(m.Misses()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "ccfacade_ristretto_sets_rejected_total",
			Help: "Ristretto writes refused by admission",
		}, func() float64 { return float64(m.SetsRejected()) }),
	)
}
