// README: Benchmark cases: environment, migration, rider/admin API, tap flow, concurrency and throughput.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"farebox/internal/infra"
)

const (
	StatusPass    = "PASS"
	StatusFail    = "FAIL"
	StatusPending = "PENDING"
	StatusSkip    = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	// rider is registered once per run so cases do not collide with real cards.
	rider string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 60 * time.Second},
		rider: fmt.Sprintf("bench-%d", time.Now().UnixNano()),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	rider := r.rider
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "history and fare tiers",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "dsn not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "shared tap guard",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "apply migrations/0001_init.sql",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: StatusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				if err := infra.ApplyMigration(ctx, r.db, r.cfg.MigrationPath); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "tables from migrations/0001_init.sql",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: StatusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: StatusPass}
			},
		},
		httpCase("API: health", http.MethodGet, base+"/health", nil, "", []int{200}, nil),

		// Admin
		httpCase("Admin: register without tag -> 401", http.MethodPost, base+"/api/admin/riders",
			map[string]any{"rider_id": rider, "name": "Bench"}, "", []int{401}, nil),
		httpCase("Admin: register rider", http.MethodPost, base+"/api/admin/riders",
			map[string]any{"rider_id": rider, "name": "Bench", "phone": "9000000000"}, r.cfg.AdminTag, []int{201}, []int{403}),
		httpCase("Admin: register duplicate -> 409", http.MethodPost, base+"/api/admin/riders",
			map[string]any{"rider_id": rider, "name": "Bench"}, r.cfg.AdminTag, []int{409}, []int{403}),
		httpCase("Admin: recharge zero -> 400", http.MethodPost, base+"/api/admin/riders/"+rider+"/recharge",
			map[string]any{"amount": 0}, r.cfg.AdminTag, []int{400}, []int{403}),
		httpCase("Admin: recharge 100", http.MethodPost, base+"/api/admin/riders/"+rider+"/recharge",
			map[string]any{"amount": 100}, r.cfg.AdminTag, []int{200}, []int{403}),
		httpCase("Rider: balance", http.MethodGet, base+"/api/riders/"+rider+"/balance", nil, "", []int{200}, nil),
		httpCase("Rider: unknown balance -> 404", http.MethodGet, base+"/api/riders/bench-nobody/balance", nil, "", []int{404}, nil),
		httpCase("Tap: unknown rider -> 404", http.MethodPost, base+"/api/taps",
			map[string]any{"rider_id": "bench-nobody"}, "", []int{404}, nil),

		// Journey; needs a GPS fix on the server side.
		httpCase("Tap: start journey", http.MethodPost, base+"/api/taps",
			map[string]any{"rider_id": rider}, "", []int{201}, []int{503}),
		httpCase("Journey: current", http.MethodGet, base+"/api/riders/"+rider+"/journey", nil, "", []int{200}, []int{404}),
		httpCase("Journey: operator abort", http.MethodDelete, base+"/api/riders/"+rider+"/journey", nil, r.cfg.AdminTag, []int{200}, []int{404, 403}),

		// Concurrency
		{
			Name:  "Concurrency: parallel recharges all land",
			Focus: "no lost balance updates",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentRecharge(ctx, r, base, rider)
			},
		},
		{
			Name:  "Concurrency: parallel taps start at most one journey",
			Focus: "one tap per rider in flight",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentTaps(ctx, r, base+"/api/taps", rider)
			},
		},

		// Performance
		{
			Name:  "Perf: balance read throughput",
			Focus: "GET balance under load",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/api/riders/"+rider+"/balance")
			},
		},
	}
}

func httpCase(name, method, url string, body any, adminTag string, okStatuses, pendingStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, _, err := r.do(ctx, method, url, body, adminTag)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			latency := time.Since(start)
			note := fmt.Sprintf("status=%d", status)

			if contains(okStatuses, status) {
				return Result{Status: StatusPass, Latency: latency, Note: note}
			}
			if contains(pendingStatuses, status) {
				return Result{Status: StatusPending, Latency: latency, Note: note}
			}
			return Result{Status: StatusFail, Latency: latency, Note: note}
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url string, body any, adminTag string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if adminTag != "" {
		req.Header.Set("X-Admin-Tag", adminTag)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func concurrentRecharge(ctx context.Context, r *Runner, base, rider string) Result {
	balance := func() (int64, error) {
		status, b, err := r.do(ctx, http.MethodGet, base+"/api/riders/"+rider+"/balance", nil, "")
		if err != nil {
			return 0, err
		}
		if status != http.StatusOK {
			return 0, fmt.Errorf("balance status=%d", status)
		}
		var out struct {
			Balance int64 `json:"balance"`
		}
		return out.Balance, json.Unmarshal(b, &out)
	}

	before, err := balance()
	if err != nil {
		return Result{Status: StatusPending, Note: err.Error()}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succ := 0
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, base+"/api/admin/riders/"+rider+"/recharge", map[string]any{"amount": 1}, r.cfg.AdminTag)
			if err == nil && status == http.StatusOK {
				mu.Lock()
				succ++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	after, err := balance()
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if after-before != int64(succ) {
		return Result{Status: StatusFail, Note: fmt.Sprintf("success=%d delta=%d", succ, after-before)}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("success=%d", succ)}
}

func concurrentTaps(ctx context.Context, r *Runner, url, rider string) Result {
	var wg sync.WaitGroup
	var mu sync.Mutex
	started, noFix := 0, 0

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, url, map[string]any{"rider_id": rider}, "")
			if err != nil {
				return
			}
			mu.Lock()
			switch status {
			case http.StatusCreated:
				started++
			case http.StatusServiceUnavailable:
				noFix++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Leave the rider idle for later runs.
	_, _, _ = r.do(ctx, http.MethodDelete, strings.Replace(url, "/api/taps", "/api/riders/"+rider+"/journey", 1), nil, r.cfg.AdminTag)

	if started == 0 && noFix > 0 {
		return Result{Status: StatusPending, Note: "no gps fix"}
	}
	if started <= 1 {
		return Result{Status: StatusPass, Note: fmt.Sprintf("started=%d", started)}
	}
	return Result{Status: StatusFail, Note: fmt.Sprintf("started=%d", started)}
}

func perfLoad(ctx context.Context, r *Runner, method, url string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count int64
	var errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				_, _, err := r.do(ctx, method, url, nil, "")
				mu.Lock()
				if err != nil {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}
