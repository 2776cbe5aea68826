package playout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/looplab/fsm"
	"github.com/prometheus/client_golang/prometheus"
)

// Проверка на соответствие интерфейсам во время компиляции
var _ error = (*PlayoutError)(nil)

// Состояния жизненного цикла движка
const (
	stateUninitialized = "uninitialized"
	stateInitialized   = "initialized"
	statePlaying       = "playing"
	stateStopped       = "stopped"
	stateReleased      = "released"
)

// События жизненного цикла движка
const (
	eventInit    = "init"
	eventStart   = "start"
	eventStop    = "stop"
	eventRelease = "release"
)

// EngineOptions опциональные зависимости движка.
// Нулевые поля заменяются безопасными значениями по умолчанию.
type EngineOptions struct {
	// StateListener получает события старта/останова воспроизведения
	StateListener StateListener

	// ErrorListener получает ошибки инициализации, старта и времени выполнения
	ErrorListener ErrorListener

	// MetricsRegisterer реестр Prometheus для метрик движка.
	// nil отключает экспорт метрик.
	MetricsRegisterer prometheus.Registerer

	// Logger структурный логгер; nil заменяется slog.Default()
	Logger *slog.Logger
}

// Engine playout движок с фиксированной задержкой: вытягивает 10ms PCM кадры
// из внешнего медиа движка, прогоняет их через кольцевой буфер компенсации
// задержки и отдает блокирующему платформенному sink на выделенном потоке
// реального времени.
//
// Жизненный цикл: InitPlayout -> StartPlayout -> StopPlayout -> Release.
// После Release допустима повторная инициализация с той же или новой
// конфигурацией.
//
// Контракт потокобезопасности: InitPlayout/StartPlayout/StopPlayout/Release
// вызываются из одного согласованного управляющего контекста (не конкурентно
// друг с другом). SetDelay/SetSpeakerMute/RemainingSilenceSeconds безопасны
// из любого потока в любой момент. Единственный мутатор курсоров кольца
// и содержимого кадра во время воспроизведения - playout поток.
type Engine struct {
	media MediaEngine
	sink  Sink

	// mu сериализует операции жизненного цикла. Контракт требует одного
	// вызывающего контекста; мьютекс превращает нарушение контракта
	// в корректную, но не специфицированную последовательность операций
	// вместо гонки данных.
	mu sync.Mutex

	config Config

	// frameBuffer единственный переиспользуемый буфер кадра: стабильный
	// адрес на все время воспроизведения, мутируется на месте каждый цикл
	frameBuffer []byte

	// zeroFrame заранее выделенный кадр тишины для speaker mute
	zeroFrame []byte

	ring       *delayRing
	controller *DelayController

	stateMachine *fsm.FSM
	thread       *playoutThread

	stateListener StateListener
	errorListener ErrorListener
	metrics       *Metrics
	logger        *slog.Logger

	// suppressedCycleErrors счетчик подавленных ошибок цикла для наблюдаемости
	suppressedCycleErrors atomic.Uint64
}

// NewEngine создает playout движок поверх медиа движка и sink.
// Движок создается в состоянии uninitialized; до InitPlayout
// воспроизведение невозможно.
func NewEngine(media MediaEngine, sink Sink, opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var metrics *Metrics
	if opts.MetricsRegisterer != nil {
		metrics = NewMetrics(opts.MetricsRegisterer)
	}

	e := &Engine{
		media:         media,
		sink:          sink,
		controller:    NewDelayController(),
		stateListener: opts.StateListener,
		errorListener: opts.ErrorListener,
		metrics:       metrics,
		logger:        logger.With("component", "playout"),
	}
	e.initStateMachine()
	return e
}

// initStateMachine инициализирует конечный автомат жизненного цикла
func (e *Engine) initStateMachine() {
	e.stateMachine = fsm.NewFSM(
		stateUninitialized,
		fsm.Events{
			// Инициализация допустима только на чистом движке
			{Name: eventInit, Src: []string{stateUninitialized, stateReleased}, Dst: stateInitialized},
			// Запуск воспроизведения
			{Name: eventStart, Src: []string{stateInitialized}, Dst: statePlaying},
			// Остановка playout потока
			{Name: eventStop, Src: []string{statePlaying}, Dst: stateStopped},
			// Освобождение ресурсов sink
			{Name: eventRelease, Src: []string{stateInitialized, stateStopped}, Dst: stateReleased},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, ev *fsm.Event) {
				e.metrics.recordStateTransition(ev.Src, ev.Dst)
			},
		},
	)
}

// State возвращает текущее состояние жизненного цикла движка
func (e *Engine) State() string {
	return e.stateMachine.Current()
}

// Controller возвращает межпоточную поверхность управления задержкой.
// Контроллер безопасно использовать из любого потока.
func (e *Engine) Controller() *DelayController {
	return e.controller
}

// InitPlayout конфигурирует воспроизведение: вычисляет размер кадра,
// проверяет минимальный буфер платформы, открывает sink и выделяет
// кадровый буфер с кольцом задержки. Конфигурация после успешной
// инициализации неизменна до Release.
func (e *Engine) InitPlayout(config Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("InitPlayout",
		slog.Int("sample_rate", config.SampleRateHz),
		slog.Int("channels", config.ChannelCount),
		slog.Float64("buffer_scale", config.BufferSizeScaleFactor))

	if !e.stateMachine.Can(eventInit) {
		return e.reportInitError(newPlayoutError(ErrorCodeSinkConflict,
			fmt.Sprintf("конфликт с существующим аудио sink (состояние %s)", e.stateMachine.Current())))
	}

	if err := config.Validate(); err != nil {
		return e.reportInitError(err)
	}

	frameSize := config.FrameSizeBytes()

	minBufferSize, err := e.sink.MinBufferSizeBytes(config.SampleRateHz, config.ChannelCount)
	if err != nil {
		return e.reportInitError(wrapPlayoutError(ErrorCodeSinkOpenFailed,
			"платформа не вернула минимальный размер буфера", err))
	}
	scaledBufferSize := int(float64(minBufferSize) * config.BufferSizeScaleFactor)
	e.logger.Debug("минимальный буфер sink",
		slog.Int("min_buffer_bytes", minBufferSize),
		slog.Int("scaled_buffer_bytes", scaledBufferSize))

	// Платформа может вернуть некорректное значение; кадр обязан помещаться
	// в выходной буфер целиком
	if scaledBufferSize < frameSize {
		return e.reportInitError(newPlayoutError(ErrorCodeBufferTooSmall,
			fmt.Sprintf("минимальный буфер sink некорректен: %d < размер кадра %d", scaledBufferSize, frameSize)))
	}

	if err := e.sink.Open(config.SampleRateHz, config.ChannelCount, scaledBufferSize); err != nil {
		return e.reportInitError(wrapPlayoutError(ErrorCodeSinkOpenFailed,
			"инициализация аудио sink не удалась", err))
	}

	e.config = config
	e.frameBuffer = make([]byte, frameSize)
	e.zeroFrame = make([]byte, frameSize)
	e.ring = newDelayRing(DelayRingSlots, frameSize)

	e.logMainParameters(scaledBufferSize)

	if err := e.stateMachine.Event(context.Background(), eventInit); err != nil {
		return e.reportInitError(wrapPlayoutError(ErrorCodeSinkConflict, "недопустимый переход состояния", err))
	}
	return nil
}

// StartPlayout запускает выделенный playout поток. Отказывает, если движок
// не инициализирован или поток уже работает; причина отказа кодируется
// в StartError и дублируется слушателю ошибок.
func (e *Engine) StartPlayout() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("StartPlayout")

	if e.frameBuffer == nil || !e.stateMachine.Is(stateInitialized) {
		return e.reportStartError(newStartError(StartErrorNotInitialized, ErrorCodeNotInitialized,
			"воспроизведение не инициализировано: вызовите InitPlayout"))
	}
	if e.thread != nil {
		return e.reportStartError(newStartError(StartErrorThreadConflict, ErrorCodeAlreadyPlaying,
			"playout поток уже запущен"))
	}

	e.thread = newPlayoutThread(e)
	if err := e.stateMachine.Event(context.Background(), eventStart); err != nil {
		e.thread = nil
		return e.reportStartError(newStartError(StartErrorThreadConflict, ErrorCodeAlreadyPlaying,
			fmt.Sprintf("недопустимый переход состояния: %v", err)))
	}
	e.thread.start()
	return nil
}

// StopPlayout кооперативно останавливает playout поток и дожидается его
// завершения с ограничением ThreadJoinTimeout. Превышение лимита не фатально:
// диагностическое состояние логируется, ресурсы все равно освобождаются
// последующим Release.
func (e *Engine) StopPlayout() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("StopPlayout")

	if e.thread == nil {
		return newPlayoutError(ErrorCodeNotPlaying, "воспроизведение не запущено")
	}

	e.logUnderrunCount()

	e.thread.requestStop()
	if !e.thread.join(ThreadJoinTimeout) {
		e.logger.Error("ожидание завершения playout потока истекло",
			slog.String("state", e.stateMachine.Current()),
			slog.Int("delay_slots", e.ring.delaySlots()),
			slog.Int("lag_slots", e.ring.lagSlots()),
			slog.Uint64("suppressed_cycle_errors", e.suppressedCycleErrors.Load()))
	}
	e.thread = nil

	if err := e.stateMachine.Event(context.Background(), eventStop); err != nil {
		return wrapPlayoutError(ErrorCodeNotPlaying, "недопустимый переход состояния", err)
	}
	return nil
}

// Release освобождает ресурсы sink. Вызывается только когда playout поток
// гарантированно остановлен; после Release допустим новый InitPlayout.
func (e *Engine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("Release")

	if e.thread != nil {
		return newPlayoutError(ErrorCodeAlreadyPlaying, "нельзя освободить ресурсы во время воспроизведения")
	}
	if err := e.stateMachine.Event(context.Background(), eventRelease); err != nil {
		return wrapPlayoutError(ErrorCodeNotInitialized, "недопустимый переход состояния", err)
	}

	e.frameBuffer = nil
	e.zeroFrame = nil
	e.ring = nil

	if err := e.sink.Close(); err != nil {
		return wrapPlayoutError(ErrorCodeSinkStopFailed, "освобождение аудио sink не удалось", err)
	}
	return nil
}

// SetDelay запрашивает новую задержку воспроизведения в миллисекундах.
// Безопасно из любого потока; применяется на ближайшем цикле playout потока.
func (e *Engine) SetDelay(ms int) {
	e.controller.SetDelay(ms)
}

// RemainingSilenceSeconds возвращает остаток тишины до выхода на записанную
// область кольца. Advisory значение для UI, может отставать на один цикл.
func (e *Engine) RemainingSilenceSeconds() float64 {
	return e.controller.RemainingSilenceSeconds()
}

// SetSpeakerMute полностью заглушает (или возвращает) вывод в динамик.
// Каждый кадр при включенном mute заменяется тишиной.
func (e *Engine) SetSpeakerMute(mute bool) {
	e.logger.Warn("SetSpeakerMute", slog.Bool("mute", mute))
	e.controller.SetSpeakerMute(mute)
}

// UnderrunCount возвращает количество underrun с момента открытия sink.
// Возвращает UnderrunCountNoSink если sink не инициализирован и
// UnderrunCountUnsupported если платформа не умеет считать underrun.
func (e *Engine) UnderrunCount() int {
	switch e.stateMachine.Current() {
	case stateUninitialized, stateReleased:
		return UnderrunCountNoSink
	}
	return e.sink.UnderrunCount()
}

// SuppressedCycleErrors возвращает количество подавленных ошибок цикла
// с момента создания движка
func (e *Engine) SuppressedCycleErrors() uint64 {
	return e.suppressedCycleErrors.Load()
}

// StreamMaxVolume возвращает максимальный уровень громкости устройства
func (e *Engine) StreamMaxVolume() int {
	e.logger.Debug("StreamMaxVolume")
	return e.sink.MaxVolume()
}

// StreamVolume возвращает текущий уровень громкости устройства
func (e *Engine) StreamVolume() int {
	e.logger.Debug("StreamVolume")
	return e.sink.Volume()
}

// SetStreamVolume устанавливает уровень громкости устройства.
// Возвращает ошибку для устройств с фиксированной политикой громкости.
func (e *Engine) SetStreamVolume(level int) error {
	e.logger.Debug("SetStreamVolume", slog.Int("level", level))
	if err := e.sink.SetVolume(level); err != nil {
		e.logger.Error("устройство реализует фиксированную политику громкости")
		return wrapPlayoutError(ErrorCodeVolumeFixed, "установка громкости не удалась", err)
	}
	return nil
}

// logMainParameters логирует параметры устройства после успешной инициализации
func (e *Engine) logMainParameters(bufferSizeBytes int) {
	e.logger.Info("playout инициализирован",
		slog.Int("sample_rate", e.config.SampleRateHz),
		slog.Int("channels", e.config.ChannelCount),
		slog.Int("frame_bytes", len(e.frameBuffer)),
		slog.Int("buffer_bytes", bufferSizeBytes),
		slog.Int("delay_ring_slots", DelayRingSlots),
		slog.Int("max_volume", e.sink.MaxVolume()))
}

// logUnderrunCount логирует счетчик underrun перед остановкой потока
func (e *Engine) logUnderrunCount() {
	if count := e.sink.UnderrunCount(); count >= 0 {
		e.logger.Debug("underrun count", slog.Int("count", count))
	}
}

// reportInitError логирует ошибку инициализации и доставляет ее слушателю
func (e *Engine) reportInitError(err error) error {
	e.logger.Error("ошибка инициализации playout", slog.String("error", err.Error()))
	if e.errorListener != nil {
		e.errorListener.OnInitError(err.Error())
	}
	return err
}

// reportStartError логирует ошибку запуска и доставляет ее слушателю
// вместе с кодированной причиной
func (e *Engine) reportStartError(err *StartError) error {
	e.logger.Error("ошибка запуска playout",
		slog.String("code", err.Reason.String()),
		slog.String("error", err.Error()))
	if e.errorListener != nil {
		e.errorListener.OnStartError(err.Reason, err.Error())
	}
	return err
}

// reportRuntimeError логирует ошибку времени выполнения и доставляет ее
// слушателю. Вызывается из playout потока.
func (e *Engine) reportRuntimeError(message string) {
	e.logger.Error("ошибка воспроизведения", slog.String("error", message))
	if e.errorListener != nil {
		e.errorListener.OnRuntimeError(message)
	}
}
