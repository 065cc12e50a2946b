package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/provider-availability/internal/api"
	"github.com/hackgods/provider-availability/internal/config"
	"github.com/hackgods/provider-availability/internal/db"
	"github.com/hackgods/provider-availability/internal/logging"
	"github.com/hackgods/provider-availability/internal/schedule"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	DayRatio      float64
	WeekRatio     float64
	ConflictRatio float64
	StatsRatio    float64
	ProviderLimit int
	Days          int
	PostgresDSN   string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Rejected  int64 // 4xx
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil && status == http.StatusOK:
		atomic.AddInt64(&om.Success, 1)
	case err == nil && status >= 400 && status < 500:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Day       OperationMetrics
	Week      OperationMetrics
	Conflicts OperationMetrics
	Stats     OperationMetrics
}

type Simulator struct {
	config    SimConfig
	providers []string
	from      schedule.Date
	client    *http.Client
	metrics   Metrics
	logger    zerolog.Logger
}

func main() {
	logger := logging.New("simulate", os.Getenv("APP_ENV"))

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("day", cfg.DayRatio).
		Float64("week", cfg.WeekRatio).
		Float64("conflicts", cfg.ConflictRatio).
		Float64("stats", cfg.StatsRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	providers, err := schedule.NewPgRepository(pgPool).ListProviders(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load providers")
	}
	if len(providers) == 0 {
		logger.Fatal().Msg("no providers loaded, run seed first")
	}

	sim := &Simulator{
		config: cfg,
		from:   schedule.DateOf(time.Now()),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for i, p := range providers {
		if i >= cfg.ProviderLimit {
			break
		}
		sim.providers = append(sim.providers, p.ID)
	}
	logger.Info().Int("providers", len(sim.providers)).Msg("loaded providers")

	sim.Run()
	sim.PrintReport()

	if err := sim.CheckConsistency(context.Background()); err != nil {
		logger.Error().Err(err).Msg("consistency check failed")
		os.Exit(1)
	}
	logger.Info().Msg("stats agree with per-provider availability")
}

func loadConfig() (SimConfig, error) {
	baseCfg, err := config.Load()
	if err != nil {
		return SimConfig{}, fmt.Errorf("load base config: %w", err)
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		DayRatio:      getFloat("SIM_DAY_RATIO", 0.6),
		WeekRatio:     getFloat("SIM_WEEK_RATIO", 0.2),
		ConflictRatio: getFloat("SIM_CONFLICT_RATIO", 0.1),
		StatsRatio:    getFloat("SIM_STATS_RATIO", 0.1),
		ProviderLimit: getInt("SIM_PROVIDER_LIMIT", 500),
		Days:          getInt("SIM_DAYS", 7),
		PostgresDSN:   baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.DayRatio + cfg.WeekRatio + cfg.ConflictRatio + cfg.StatsRatio
	if total > 0 {
		cfg.DayRatio /= total
		cfg.WeekRatio /= total
		cfg.ConflictRatio /= total
		cfg.StatsRatio /= total
	}

	if cfg.Workers <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_DAYS must be > 0")
	}
	return cfg, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Msgf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		provider := s.providers[rng.Intn(len(s.providers))]
		date := s.from.AddDays(rng.Intn(s.config.Days))

		r := rng.Float64()
		switch {
		case r < s.config.DayRatio:
			s.get(ctx, &s.metrics.Day, fmt.Sprintf("/providers/%s/availability?date=%s", provider, date))
		case r < s.config.DayRatio+s.config.WeekRatio:
			s.get(ctx, &s.metrics.Week, fmt.Sprintf("/providers/%s/availability/week?start=%s", provider, date))
		case r < s.config.DayRatio+s.config.WeekRatio+s.config.ConflictRatio:
			s.get(ctx, &s.metrics.Conflicts, fmt.Sprintf("/conflicts?date=%s", date))
		default:
			s.get(ctx, &s.metrics.Stats, fmt.Sprintf("/stats?date=%s", date))
		}
	}
}

func (s *Simulator) get(ctx context.Context, om *OperationMetrics, path string) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	if ctx.Err() != nil {
		// Cut off by the end of the run, not a server failure.
		if err == nil {
			resp.Body.Close()
		}
		return
	}

	status := 0
	if err == nil {
		status = resp.StatusCode
		resp.Body.Close()
	}
	om.Record(latency, status, err)
}

// CheckConsistency compares the stats endpoint's availableSlots with the sum
// over each provider's day view. It only covers the loaded providers, so it is
// skipped when the provider list was truncated.
func (s *Simulator) CheckConsistency(ctx context.Context) error {
	if len(s.providers) >= s.config.ProviderLimit {
		s.logger.Warn().Msg("provider list truncated, skipping consistency check")
		return nil
	}

	var stats schedule.Statistics
	if err := s.fetchJSON(ctx, "/stats?date="+s.from.String(), &stats); err != nil {
		return err
	}

	sum := 0
	for _, id := range s.providers {
		var day api.AvailabilityResponse
		err := s.fetchJSON(ctx, fmt.Sprintf("/providers/%s/availability?date=%s", id, s.from), &day)
		if err != nil {
			// Unconfigured weekday: the provider contributes nothing.
			if strings.Contains(err.Error(), "status 400") {
				continue
			}
			return err
		}
		for _, slot := range day.Slots {
			if slot.Available {
				sum++
			}
		}
	}

	if sum != stats.AvailableSlots {
		return fmt.Errorf("stats report %d available slots, providers sum to %d", stats.AvailableSlots, sum)
	}
	return nil
}

func (s *Simulator) fetchJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Providers: %d\n", len(s.providers))
	fmt.Println()

	printOperationReport("Day availability", &s.metrics.Day)
	printOperationReport("Week availability", &s.metrics.Week)
	printOperationReport("Conflicts", &s.metrics.Conflicts)
	printOperationReport("Stats", &s.metrics.Stats)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
