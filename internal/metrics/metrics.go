package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CurationRuns         int64
	FailedRuns           int64
	ArticlesFetched      int64
	ArticlesProcessed    int64
	LLMCalls             int64
	FallbackExtractions  int64
	ExtractionCacheHits  int64
	StoriesExtracted     int64
	StoriesMerged        int64
	StoriesPublished     int64
	TelegramMessagesSent int64
	ReportsSaved         int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) IncrementLLMCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LLMCalls++
}

func (m *Metrics) IncrementFallbackExtractions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FallbackExtractions++
}

func (m *Metrics) IncrementExtractionCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractionCacheHits++
}

func (m *Metrics) IncrementTelegramMessagesSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TelegramMessagesSent++
}

func (m *Metrics) IncrementReportsSaved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportsSaved++
}

// RecordRun adds the totals of one finished curation run.
func (m *Metrics) RecordRun(fetched, processed, extracted, merged, published int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CurationRuns++
	m.ArticlesFetched += int64(fetched)
	m.ArticlesProcessed += int64(processed)
	m.StoriesExtracted += int64(extracted)
	m.StoriesMerged += int64(merged)
	m.StoriesPublished += int64(published)
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailedRuns++
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"curation_runs":              m.CurationRuns,
		"failed_runs":                m.FailedRuns,
		"articles_fetched":           m.ArticlesFetched,
		"articles_processed":         m.ArticlesProcessed,
		"llm_calls":                  m.LLMCalls,
		"fallback_extractions":       m.FallbackExtractions,
		"extraction_cache_hits":      m.ExtractionCacheHits,
		"stories_extracted":          m.StoriesExtracted,
		"stories_merged":             m.StoriesMerged,
		"stories_published":          m.StoriesPublished,
		"telegram_messages_sent":     m.TelegramMessagesSent,
		"reports_saved":              m.ReportsSaved,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
