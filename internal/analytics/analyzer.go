package analytics

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"nestor-insights/internal/insights"
	"nestor-insights/internal/models"
	"nestor-insights/internal/stats"
)

// Config параметры анализатора
type Config struct {
	WindowSize int
	Threshold  float64
	SleepRatio float64
	QueueSize  int
	IdleTTL    time.Duration
	Logger     *zap.Logger
}

// ReadingWindow хранит скользящее окно значений одной метрики пользователя
type ReadingWindow struct {
	values     []float64
	timestamps []time.Time
	lastSeen   time.Time
	mu         sync.Mutex
	maxSize    int
}

// Analyzer потоковый анализатор показаний с rolling average и z-score
type Analyzer struct {
	windows     map[string]*ReadingWindow
	users       map[string]int
	mu          sync.RWMutex
	windowSize  int
	threshold   float64
	sleepRatio  float64
	idleTTL     time.Duration
	now         func() time.Time
	readingChan chan models.Reading
	resultsChan chan AnalysisResult
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	dropped     atomic.Int64
	processed   atomic.Int64
	logger      *zap.Logger
}

// AnalysisResult результат анализа одного показания
type AnalysisResult struct {
	UserID      string                `json:"userId"`
	Metric      string                `json:"metric"`
	Timestamp   time.Time             `json:"timestamp"`
	Value       float64               `json:"value"`
	RollingAvg  float64               `json:"rollingAvg"`
	StandardDev float64               `json:"standardDev"`
	ZScore      float64               `json:"zScore"`
	WindowLen   int                   `json:"windowLen"`
	IsAnomaly   bool                  `json:"isAnomaly"`
	Anomaly     *models.AnomalyResult `json:"anomaly,omitempty"`
}

// NewAnalyzer создает новый анализатор
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.WindowSize < 2 {
		cfg.WindowSize = 50
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = insights.DefaultAnomalySigma
	}
	if cfg.SleepRatio <= 0 {
		cfg.SleepRatio = insights.DefaultSleepAnomalyRatio
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Analyzer{
		windows:     make(map[string]*ReadingWindow),
		users:       make(map[string]int),
		windowSize:  cfg.WindowSize,
		threshold:   cfg.Threshold,
		sleepRatio:  cfg.SleepRatio,
		idleTTL:     cfg.IdleTTL,
		now:         time.Now,
		readingChan: make(chan models.Reading, cfg.QueueSize),
		resultsChan: make(chan AnalysisResult, cfg.QueueSize),
		stopChan:    make(chan struct{}),
		logger:      cfg.Logger,
	}
}

// Start запускает обработчики в goroutines
func (a *Analyzer) Start(workers int) {
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.processReadings()
	}
}

// Stop останавливает анализатор и закрывает канал результатов.
// Повторный вызов безопасен.
func (a *Analyzer) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopChan)
		a.wg.Wait()
		close(a.resultsChan)
	})
}

// AddReading ставит показание в очередь. false если очередь полна или анализатор остановлен.
func (a *Analyzer) AddReading(r models.Reading) bool {
	select {
	case <-a.stopChan:
		return false
	default:
	}

	select {
	case a.readingChan <- r:
		return true
	default:
		// Если канал полон, пропускаем показание
		a.dropped.Add(1)
		return false
	}
}

// GetResultsChan возвращает канал с результатами
func (a *Analyzer) GetResultsChan() <-chan AnalysisResult {
	return a.resultsChan
}

// processReadings обрабатывает показания из канала
func (a *Analyzer) processReadings() {
	defer a.wg.Done()

	for {
		select {
		case <-a.stopChan:
			return
		case r := <-a.readingChan:
			result := a.Analyze(r)
			a.processed.Add(1)
			select {
			case a.resultsChan <- result:
			default:
				a.logger.Warn("results channel full, dropping analysis result",
					zap.String("user_id", r.UserID),
					zap.String("metric", r.Metric))
			}
		}
	}
}

func windowKey(userID, metric string) string {
	return userID + "|" + metric
}

// Analyze добавляет показание в окно и оценивает его синхронно
func (a *Analyzer) Analyze(r models.Reading) AnalysisResult {
	key := windowKey(r.UserID, r.Metric)

	a.mu.Lock()
	window, exists := a.windows[key]
	if !exists {
		window = &ReadingWindow{
			values:     make([]float64, 0, a.windowSize),
			timestamps: make([]time.Time, 0, a.windowSize),
			maxSize:    a.windowSize,
		}
		a.windows[key] = window
		a.users[r.UserID]++
	}
	a.mu.Unlock()

	window.mu.Lock()
	defer window.mu.Unlock()

	window.values = append(window.values, r.Value)
	window.timestamps = append(window.timestamps, r.Timestamp)
	window.lastSeen = a.now()

	// Ограничиваем размер окна
	if len(window.values) > window.maxSize {
		window.values = window.values[1:]
		window.timestamps = window.timestamps[1:]
	}

	mean := stats.Mean(window.values)
	std := stats.StdDev(window.values)

	result := AnalysisResult{
		UserID:      r.UserID,
		Metric:      r.Metric,
		Timestamp:   r.Timestamp,
		Value:       r.Value,
		RollingAvg:  mean,
		StandardDev: std,
		WindowLen:   len(window.values),
	}
	if std > 0 {
		result.ZScore = (r.Value - mean) / std
	}

	var (
		anomaly models.AnomalyResult
		ok      bool
	)
	if r.Metric == models.MetricSleep {
		anomaly, ok = insights.SleepAnomaly(r.Timestamp, r.Value, mean, stats.Max(window.values), a.sleepRatio)
	} else {
		anomaly, ok = insights.DeviationAnomaly(r.Metric, r.Timestamp, r.Value, mean, std, a.threshold)
	}
	if ok {
		result.IsAnomaly = true
		result.Anomaly = &anomaly
	}

	return result
}

// EvictIdle удаляет окна, в которые не поступало показаний дольше IdleTTL.
// Возвращает число удаленных окон. При нулевом IdleTTL окна не удаляются.
func (a *Analyzer) EvictIdle() int {
	if a.idleTTL <= 0 {
		return 0
	}
	cutoff := a.now().Add(-a.idleTTL)

	a.mu.Lock()
	defer a.mu.Unlock()

	evicted := 0
	for key, window := range a.windows {
		window.mu.Lock()
		idle := window.lastSeen.Before(cutoff)
		window.mu.Unlock()
		if !idle {
			continue
		}

		delete(a.windows, key)
		evicted++

		userID := key[:strings.LastIndex(key, "|")]
		if a.users[userID]--; a.users[userID] <= 0 {
			delete(a.users, userID)
		}
	}
	return evicted
}

// GetStats возвращает статистику анализатора
func (a *Analyzer) GetStats() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]interface{}{
		"users_tracked":   len(a.users),
		"windows_tracked": len(a.windows),
		"window_size":     a.windowSize,
		"threshold":       a.threshold,
		"queue_size":      len(a.readingChan),
		"processed":       a.processed.Load(),
		"dropped":         a.dropped.Load(),
	}
}
