package playout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics экспортирует метрики playout движка в Prometheus.
//
// Набор ориентирован на производственный мониторинг аудио пути:
//   - счетчик подавленных ошибок цикла (непрерывность важнее корректности
//     одного кадра, но потери должны быть наблюдаемы);
//   - счетчики циклов и отказов записи в sink;
//   - текущая примененная задержка и остаток тишины.
//
// Все операции thread-safe, стоимость инкремента пренебрежима
// относительно бюджета цикла 10ms.
type Metrics struct {
	cyclesTotal           prometheus.Counter
	suppressedCycleErrors prometheus.Counter
	sinkWriteErrors       prometheus.Counter
	appliedDelaySlots     prometheus.Gauge
	remainingSilence      prometheus.Gauge
	stateTransitions      *prometheus.CounterVec
}

// NewMetrics регистрирует метрики движка в указанном Registerer.
// Для тестов передается отдельный prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audio",
			Subsystem: "playout",
			Name:      "cycles_total",
			Help:      "Количество отработанных циклов playout потока",
		}),
		suppressedCycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audio",
			Subsystem: "playout",
			Name:      "suppressed_cycle_errors_total",
			Help:      "Количество подавленных ошибок внутри цикла воспроизведения",
		}),
		sinkWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audio",
			Subsystem: "playout",
			Name:      "sink_write_errors_total",
			Help:      "Количество неполных или ошибочных записей в аудио sink",
		}),
		appliedDelaySlots: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "audio",
			Subsystem: "playout",
			Name:      "applied_delay_slots",
			Help:      "Текущая примененная задержка воспроизведения в слотах по 10ms",
		}),
		remainingSilence: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "audio",
			Subsystem: "playout",
			Name:      "remaining_silence_seconds",
			Help:      "Остаток тишины до выхода на записанную область кольца",
		}),
		stateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audio",
			Subsystem: "playout",
			Name:      "state_transitions_total",
			Help:      "Переходы состояний жизненного цикла движка",
		}, []string{"from", "to"}),
	}
}

func (m *Metrics) recordCycle() {
	if m == nil {
		return
	}
	m.cyclesTotal.Inc()
}

func (m *Metrics) recordSuppressedCycleError() {
	if m == nil {
		return
	}
	m.suppressedCycleErrors.Inc()
}

func (m *Metrics) recordSinkWriteError() {
	if m == nil {
		return
	}
	m.sinkWriteErrors.Inc()
}

func (m *Metrics) recordAppliedDelay(slots int) {
	if m == nil {
		return
	}
	m.appliedDelaySlots.Set(float64(slots))
}

func (m *Metrics) recordRemainingSilence(seconds float64) {
	if m == nil {
		return
	}
	m.remainingSilence.Set(seconds)
}

func (m *Metrics) recordStateTransition(from, to string) {
	if m == nil {
		return
	}
	m.stateTransitions.WithLabelValues(from, to).Inc()
}
