// Package main 提供 dhtlink 命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-dhtlink"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

var logger = log.Logger("dhtlink/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 优先级：命令行参数 > 环境变量（DHTLINK_*）> 配置文件 > 默认值
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile  = flag.String("config", "", "配置文件路径（JSON）")
	backendURL  = flag.String("backend", "", "后端控制接口地址（http://host:port）")
	signalURL   = flag.String("signaling", "", "信令服务地址（ws://host:port/path）")
	port        = flag.Int("port", 0, "后端 DHT 监听端口（0 = 配置默认值）")
	bootstrap   = flag.String("bootstrap", "", "引导节点（逗号分隔；\"none\" 表示单机模式）")
	metricsAddr = flag.String("metrics-addr", "", "Prometheus 指标监听地址（如 :9100）")
	logFile     = flag.String("log", "", "日志文件路径")
	autoConnect = flag.Bool("connect", true, "启动后立即连接网络")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(dhtlink.VersionInfo())
		return nil
	}

	closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	defer closeLog()

	registry := prom.NewRegistry()
	opts, err := buildOptions(registry)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("启动 dhtlink", "version", dhtlink.Version, "commit", dhtlink.GitCommit, "buildDate", dhtlink.BuildDate)
	client, err := dhtlink.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("关闭客户端失败", "error", err)
		}
	}()

	if err := watchEvents(ctx, client); err != nil {
		return err
	}

	if *metricsAddr != "" {
		srv := serveMetrics(*metricsAddr, registry)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	fmt.Printf("📦 %s\n", dhtlink.VersionInfo())
	fmt.Printf("发现通道: %s\n", client.DiscoveryKind())

	if *autoConnect {
		if err := client.Connect(ctx); err != nil && !errors.Is(err, dhtlink.ErrCancelled) {
			var ce *dhtlink.ConnectError
			if errors.As(err, &ce) && !ce.Kind.Fatal() {
				logger.Warn("连接失败", "kind", ce.Kind, "error", err)
			} else {
				return fmt.Errorf("连接失败: %w", err)
			}
		}
	}

	fmt.Println("按 Ctrl+C 退出")
	<-ctx.Done()
	fmt.Println("\n正在断开...")

	disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(disconnectCtx)
}

// buildOptions 合并配置文件、环境变量与命令行参数
func buildOptions(registry prom.Registerer) ([]dhtlink.Option, error) {
	var opts []dhtlink.Option

	if *configFile != "" {
		opts = append(opts, dhtlink.WithConfigFile(*configFile))
	}

	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	opts = append(opts, env.options()...)

	if *backendURL != "" {
		opts = append(opts, dhtlink.WithBackendEndpoint(*backendURL))
	}
	if *signalURL != "" {
		opts = append(opts, dhtlink.WithSignalingURL(*signalURL))
	}
	if *port > 0 {
		opts = append(opts, dhtlink.WithPort(*port))
	}
	if isFlagSet("bootstrap") {
		opts = append(opts, dhtlink.WithBootstrapNodes(splitList(*bootstrap)...))
	}

	opts = append(opts, dhtlink.WithRegisterer(registry))
	if *metricsAddr != "" {
		opts = append(opts, dhtlink.WithMetrics(true))
	}
	return opts, nil
}

// watchEvents 订阅状态、NAT 与发现事件并输出日志
func watchEvents(ctx context.Context, client *dhtlink.Client) error {
	subs := make([]interfaces.Subscription, 0, 3)
	for _, evt := range []interface{}{
		new(types.EvtStatusChanged),
		new(types.EvtNatNotification),
		new(types.EvtDiscoverySetChanged),
	} {
		sub, err := client.Subscribe(evt, interfaces.BufSize(16))
		if err != nil {
			for _, s := range subs {
				_ = s.Close()
			}
			return fmt.Errorf("订阅事件失败: %w", err)
		}
		subs = append(subs, sub)
	}

	for _, sub := range subs {
		go func(sub interfaces.Subscription) {
			defer sub.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-sub.Out():
					if !ok {
						return
					}
					printEvent(raw)
				}
			}
		}(sub)
	}
	return nil
}

func printEvent(raw interface{}) {
	switch evt := raw.(type) {
	case *types.EvtStatusChanged:
		logger.Info("连接状态", "status", evt.New, "attempt", evt.Attempt, "standalone", evt.Standalone)
		fmt.Printf("● %s\n", evt.New)
	case *types.EvtNatNotification:
		n := evt.Notification
		logger.Info("NAT 状态", "level", n.Level, "state", n.State)
		fmt.Printf("[%s] %s\n", n.Level, n.Message)
	case *types.EvtDiscoverySetChanged:
		logger.Info("发现集合", "peers", len(evt.Entries))
		for _, e := range evt.Entries {
			fmt.Printf("  · %s (%d 个地址)\n", log.TruncateID(e.PeerID, 16), len(e.Addresses))
		}
	}
}

// serveMetrics 启动 Prometheus 指标服务
func serveMetrics(addr string, registry *prom.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务退出", "addr", addr, "error", err)
		}
	}()
	logger.Info("指标服务已启动", "addr", addr)
	return srv
}

// setupLogging 配置日志输出
func setupLogging() (func(), error) {
	if *logFile == "" {
		log.SetupFromEnv(os.Stderr)
		return func() {}, nil
	}
	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // 用户指定的日志路径
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}
	log.SetupFromEnv(f)
	return func() { _ = f.Close() }, nil
}

func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// splitList 解析逗号分隔列表，"none" 表示空列表
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
