// Command smoke probes a running arsip-biak-api deployment and reports
// which endpoints answer with the expected status. Used after deploys to
// catch routing or database regressions before traffic is switched over.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target   target
	Status   int
	OK       bool
	Error    error
	Duration time.Duration
}

func main() {
	var (
		base        string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}

	var probes []probe
	failures := 0
	for _, t := range targets {
		p := probeTarget(client, base, t)
		if !p.OK && t.Critical {
			failures++
		}
		probes = append(probes, p)
	}

	printReport(probes)

	fmt.Printf("Critical failures: %d\n", failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func probeTarget(client *http.Client, base string, tgt target) probe {
	p := probe{Target: tgt}
	method := strings.ToUpper(tgt.Method)
	if method == "" {
		method = http.MethodGet
	}
	expect := tgt.Expect
	if expect == 0 {
		expect = http.StatusOK
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+tgt.Path, nil)
	if err != nil {
		p.Error = err
		return p
	}
	start := time.Now()
	resp, err := client.Do(req)
	p.Duration = time.Since(start)
	if err != nil {
		p.Error = err
		return p
	}
	defer resp.Body.Close()

	p.Status = resp.StatusCode
	p.OK = p.Status == expect
	return p
}

func printReport(probes []probe) {
	for _, p := range probes {
		mark := "ok"
		if p.Error != nil {
			mark = "error: " + p.Error.Error()
		} else if !p.OK {
			mark = fmt.Sprintf("unexpected status %d", p.Status)
		}
		fmt.Printf("%-6s %-40s %8s  %s\n", p.Target.Method, p.Target.Path, p.Duration.Round(time.Millisecond), mark)
	}
}
