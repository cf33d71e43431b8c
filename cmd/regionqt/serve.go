package main

import (
	"context"
	"net/http"
	"net/http/pprof"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	qthttp "github.com/svanichkin/regionqt/http"
	"github.com/svanichkin/regionqt/plot"
)

var infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name:        "regionqt_info",
	Help:        "regionqt information.",
	ConstLabels: prometheus.Labels{"version": version},
})

type serveConfig struct {
	Addr          string `cli:""        env:"REGIONQT_ADDR"            help:"Listening address for requests."`
	AdminAddr     string `cli:""        env:"REGIONQT_ADMIN_ADDR"      help:"Admin listening address."`
	MaxBodySize   int64  `cli:",hidden" env:"REGIONQT_MAX_BODY_SIZE"   help:"The maximum request body size in bytes."`
	MaxPixels     int64  `cli:",hidden" env:"REGIONQT_MAX_PIXELS"      help:"The maximum width*height of an uploaded image or tree."`
	MaxStreamSize int    `cli:",hidden" env:"REGIONQT_MAX_STREAM_SIZE" help:"The maximum decompressed tree size in bytes."`
	Parallelism   int    `cli:",hidden" env:"REGIONQT_PARALLELISM"     help:"The number of goroutines used to build a tree. Negative uses all CPUs."`
	LogLevel      string `cli:""        env:"REGIONQT_LOG_LEVEL"       help:"Log level (debug|info|warning|error)."`
	LogIndent     bool   `cli:""        env:"REGIONQT_LOG_INDENT"      help:"Indent logs."`
	Help          bool   `cli:""        env:"-"                        help:"Show help."`
}

func runServe(ctx context.Context) error {
	conf := serveConfig{
		Addr:          ":4100",
		AdminAddr:     ":18191",
		MaxBodySize:   qthttp.DefaultMaxBodySize,
		MaxPixels:     qthttp.DefaultMaxPixels,
		MaxStreamSize: qthttp.DefaultMaxStreamSize,
		Parallelism:   1,
		LogLevel:      logs.InfoLevel.String(),
	}
	load("Starts the regionqt HTTP service.", &conf)
	setupLogs(conf.LogLevel, conf.LogIndent)

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	svc := qthttp.Service{
		Version:       version,
		MaxBodySize:   conf.MaxBodySize,
		MaxPixels:     conf.MaxPixels,
		MaxStreamSize: conf.MaxStreamSize,
		Parallelism:   conf.Parallelism,
		Plot:          plot.DefaultOptions(),
	}

	service := svc.Handler()

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", qthttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("addr", conf.Addr).
		WithTag("admin_addr", conf.AdminAddr).
		Info("starting regionqt server")

	qthttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(service,
			qthttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
	return nil
}
