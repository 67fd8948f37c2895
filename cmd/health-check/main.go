// Package main provides a standalone readiness probe for container health
// checks and monitoring scripts
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/platewise/engine/pkg/healthcheck"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

// Config holds command-line configuration
type Config struct {
	URL          string
	Timeout      time.Duration
	Verbose      bool
	OutputFormat string
	AllowDegrade bool
	RetryCount   int
	RetryDelay   time.Duration
}

type report struct {
	Status healthcheck.Status `json:"status"`
	Checks []struct {
		Name     string             `json:"name"`
		Status   healthcheck.Status `json:"status"`
		Critical bool               `json:"critical"`
		Message  string             `json:"message"`
	} `json:"checks"`
}

func main() {
	os.Exit(run(parseFlags(), os.Stdout))
}

func parseFlags() Config {
	cfg := Config{}
	flag.StringVar(&cfg.URL, "url", "http://localhost:9090/ready", "Readiness endpoint URL")
	flag.DurationVar(&cfg.Timeout, "timeout", 5*time.Second, "Request timeout")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	flag.StringVar(&cfg.OutputFormat, "format", "text", "Output format: text, json")
	flag.BoolVar(&cfg.AllowDegrade, "allow-degraded", true, "Treat a degraded service as passing")
	flag.IntVar(&cfg.RetryCount, "retry", 0, "Number of retries on failure")
	flag.DurationVar(&cfg.RetryDelay, "retry-delay", time.Second, "Delay between retries")
	flag.Parse()
	return cfg
}

func run(cfg Config, out io.Writer) int {
	code := exitCodeError
	for attempt := 0; attempt <= cfg.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(cfg.RetryDelay)
		}
		code = probe(cfg, out)
		if code == exitCodeSuccess {
			return code
		}
	}
	return code
}

func probe(cfg Config, out io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		fmt.Fprintf(out, "invalid url: %v\n", err)
		return exitCodeError
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(out, "unreachable: %v\n", err)
		return exitCodeError
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(out, "read failed: %v\n", err)
		return exitCodeError
	}

	var r report
	if err := json.Unmarshal(body, &r); err != nil {
		fmt.Fprintf(out, "unexpected response (HTTP %d)\n", resp.StatusCode)
		return exitCodeFailure
	}

	if cfg.OutputFormat == "json" {
		_, _ = out.Write(body)
	} else {
		fmt.Fprintf(out, "status: %s\n", r.Status)
		if cfg.Verbose {
			for _, c := range r.Checks {
				fmt.Fprintf(out, "  %-12s %-10s critical=%t %s\n", c.Name, c.Status, c.Critical, c.Message)
			}
		}
	}

	switch r.Status {
	case healthcheck.StatusHealthy:
		return exitCodeSuccess
	case healthcheck.StatusDegraded:
		if cfg.AllowDegrade {
			return exitCodeSuccess
		}
	}
	return exitCodeFailure
}
