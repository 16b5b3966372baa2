// Package metrics 提供Prometheus文本格式的监控指标
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *Registry
	once     sync.Once
)

// Get 获取全局注册表
func Get() *Registry {
	once.Do(func() {
		registry = &Registry{
			counters:   make(map[string]*Counter),
			gauges:     make(map[string]*Gauge),
			histograms: make(map[string]*Histogram),
		}
		initDefaultMetrics()
	})
	return registry
}

func initDefaultMetrics() {
	registry.NewCounter("yueban_http_requests_total", "HTTP请求总数", []string{"method", "path", "status"})
	registry.NewHistogram("yueban_http_request_duration_seconds", "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0})

	// 排班生成：按求解器与终止状态
	registry.NewCounter("yueban_generations_total", "排班生成次数", []string{"solver", "status"})
	registry.NewHistogram("yueban_solve_duration_seconds", "求解耗时",
		[]string{"solver"},
		[]float64{0.01, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0})

	// 回退与修复
	registry.NewCounter("yueban_fallback_total", "回落到回溯求解器的次数", []string{"reason"})
	registry.NewCounter("yueban_repairs_total", "应急修复次数", []string{"status"})

	// 最近一次排班的质量
	registry.NewGauge("yueban_unfilled_slots", "最近一次排班的未填班位数", []string{"month"})
	registry.NewGauge("yueban_fairness_score", "最近一次排班的公平性得分", []string{"month"})
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Counter{Name: name, Help: help, Labels: labels, values: make(map[string]float64)}
	r.counters[name] = c
	return c
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := &Gauge{Name: name, Help: help, Labels: labels, values: make(map[string]float64)}
	r.gauges[name] = g
	return g
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := &Histogram{
		Name: name, Help: help, Labels: labels, Buckets: buckets,
		counts: make(map[string][]int),
		sums:   make(map[string]float64),
	}
	r.histograms[name] = h
	return h
}

// Counter 获取计数器
func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// Gauge 获取仪表盘
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// Histogram 获取直方图
func (r *Registry) Histogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, ok := h.counts[key]; !ok {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}
	for i, bucket := range h.Buckets {
		if value <= bucket {
			h.counts[key][i]++
		}
	}
	h.counts[key][len(h.Buckets)]++ // +Inf
	h.sums[key] += value
}

// RecordGeneration 记录一次排班生成
func RecordGeneration(solver, status string, duration time.Duration) {
	r := Get()
	r.Counter("yueban_generations_total").Inc(solver, status)
	r.Histogram("yueban_solve_duration_seconds").Observe(duration.Seconds(), solver)
}

// RecordFallback 记录一次回退
func RecordFallback(reason string) {
	Get().Counter("yueban_fallback_total").Inc(reason)
}

// RecordRepair 记录一次应急修复
func RecordRepair(status string) {
	Get().Counter("yueban_repairs_total").Inc(status)
}

// RecordQuality 记录最近一次排班的质量指标
func RecordQuality(monthKey string, unfilled int, fairness float64) {
	r := Get()
	r.Gauge("yueban_unfilled_slots").Set(float64(unfilled), monthKey)
	r.Gauge("yueban_fairness_score").Set(fairness, monthKey)
}

func labelKey(labels []string) string {
	return strings.Join(labels, ",")
}

func formatLabels(names []string, key string) string {
	values := strings.Split(key, ",")
	parts := make([]string, 0, len(names))
	for i, name := range names {
		if i < len(values) {
			parts = append(parts, fmt.Sprintf("%s=%q", name, values[i]))
		}
	}
	return strings.Join(parts, ",")
}

// Handler 返回Prometheus文本格式的HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		r := Get()
		r.mu.RLock()
		defer r.mu.RUnlock()

		for _, name := range sortedKeys(r.counters) {
			c := r.counters[name]
			fmt.Fprintf(w, "# HELP %s %s\n", c.Name, c.Help)
			fmt.Fprintf(w, "# TYPE %s counter\n", c.Name)
			c.mu.RLock()
			for _, key := range sortedKeys(c.values) {
				writeSample(w, c.Name, c.Labels, key, c.values[key])
			}
			c.mu.RUnlock()
		}

		for _, name := range sortedKeys(r.gauges) {
			g := r.gauges[name]
			fmt.Fprintf(w, "# HELP %s %s\n", g.Name, g.Help)
			fmt.Fprintf(w, "# TYPE %s gauge\n", g.Name)
			g.mu.RLock()
			for _, key := range sortedKeys(g.values) {
				writeSample(w, g.Name, g.Labels, key, g.values[key])
			}
			g.mu.RUnlock()
		}

		for _, name := range sortedKeys(r.histograms) {
			h := r.histograms[name]
			fmt.Fprintf(w, "# HELP %s %s\n", h.Name, h.Help)
			fmt.Fprintf(w, "# TYPE %s histogram\n", h.Name)
			h.mu.RLock()
			for _, key := range sortedKeys(h.counts) {
				// Observe 已按桶累计，直接输出即可
				counts := h.counts[key]
				for i, bucket := range h.Buckets {
					writeBucket(w, h.Name, h.Labels, key, fmt.Sprintf("%g", bucket), counts[i])
				}
				total := counts[len(h.Buckets)]
				writeBucket(w, h.Name, h.Labels, key, "+Inf", total)
				writeSample(w, h.Name+"_sum", h.Labels, key, h.sums[key])
				writeSample(w, h.Name+"_count", h.Labels, key, float64(total))
			}
			h.mu.RUnlock()
		}
	})
}

func writeSample(w http.ResponseWriter, name string, labels []string, key string, value float64) {
	if key == "" {
		fmt.Fprintf(w, "%s %g\n", name, value)
		return
	}
	fmt.Fprintf(w, "%s{%s} %g\n", name, formatLabels(labels, key), value)
}

func writeBucket(w http.ResponseWriter, name string, labels []string, key, le string, count int) {
	if key == "" {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, le, count)
		return
	}
	fmt.Fprintf(w, "%s_bucket{%s,le=%q} %d\n", name, formatLabels(labels, key), le, count)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
