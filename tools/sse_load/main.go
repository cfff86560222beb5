// Command sse_load opens many concurrent connections to the dashboard's
// SSE stream and reports delivery throughput. Used to size the event bus
// buffer and verify that slow consumers do not stall the publishers.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type counters struct {
	connected    int64
	connectErrs  int64
	streamErrs   int64
	priceEvents  int64
	walletEvents int64
}

func main() {
	var (
		targetURL   string
		connections int
		duration    time.Duration
		rampUp      time.Duration
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8080/api/stream", "SSE endpoint URL")
	flag.IntVar(&connections, "conns", 1000, "number of concurrent connections to open")
	flag.DurationVar(&duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", 0, "ramp-up duration (spread connection starts across this window)")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if connections <= 0 {
		logger.Fatal("invalid conns", zap.Int("conns", connections))
	}
	if rampUp == 0 && connections > 100 {
		// spread the dial storm: one second per 500 connections
		rampUp = time.Duration(connections/500) * time.Second
		if rampUp < time.Second {
			rampUp = time.Second
		}
		logger.Info("using default ramp-up", zap.Duration("ramp", rampUp))
	}

	logger.Info("starting SSE load",
		zap.String("url", targetURL),
		zap.Int("conns", connections),
		zap.Duration("duration", duration),
		zap.Duration("ramp", rampUp))

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 100,
			MaxIdleConns:        connections + 100,
			MaxIdleConnsPerHost: connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
		Timeout: 0, // streaming
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, duration)
		defer timeoutCancel()
	}

	var stats counters
	var interval time.Duration
	if rampUp > 0 {
		interval = rampUp / time.Duration(connections)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < connections; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			consumeStream(ctx, client, targetURL, &stats)
		}()
	}

	progress := time.NewTicker(5 * time.Second)
	go func() {
		defer progress.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-progress.C:
				logger.Info("status",
					zap.Int64("connected", atomic.LoadInt64(&stats.connected)),
					zap.Int64("connect_errs", atomic.LoadInt64(&stats.connectErrs)),
					zap.Int64("stream_errs", atomic.LoadInt64(&stats.streamErrs)),
					zap.Int64("price_events", atomic.LoadInt64(&stats.priceEvents)),
					zap.Int64("wallet_events", atomic.LoadInt64(&stats.walletEvents)))
			}
		}
	}()

	wg.Wait()
	cancel()

	elapsed := time.Since(start)
	if elapsed == 0 {
		elapsed = time.Millisecond
	}
	total := atomic.LoadInt64(&stats.priceEvents) + atomic.LoadInt64(&stats.walletEvents)
	fmt.Printf("done: connected=%d connect_errs=%d stream_errs=%d price=%d wallet=%d elapsed=%s events/s=%.2f\n",
		atomic.LoadInt64(&stats.connected),
		atomic.LoadInt64(&stats.connectErrs),
		atomic.LoadInt64(&stats.streamErrs),
		atomic.LoadInt64(&stats.priceEvents),
		atomic.LoadInt64(&stats.walletEvents),
		elapsed.Truncate(time.Millisecond),
		float64(total)/elapsed.Seconds(),
	)
}

func consumeStream(ctx context.Context, client *http.Client, url string, stats *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		atomic.AddInt64(&stats.connectErrs, 1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&stats.connectErrs, 1)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		atomic.AddInt64(&stats.connectErrs, 1)
		return
	}

	atomic.AddInt64(&stats.connected, 1)
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				atomic.AddInt64(&stats.streamErrs, 1)
			}
			return
		}
		switch {
		case strings.HasPrefix(line, "event: price"):
			atomic.AddInt64(&stats.priceEvents, 1)
		case strings.HasPrefix(line, "event: wallet"):
			atomic.AddInt64(&stats.walletEvents, 1)
		}
	}
}
