package playout

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

// playoutThread выделенный поток воспроизведения.
//
// После запуска поток закрепляется за OS потоком, поднимает его приоритет
// до уровня реального времени и крутит цикл: один 10ms кадр из медиа движка,
// через кольцо задержки, в блокирующий sink. Темп задает сам sink - запись
// блокируется, пока в выходном буфере нет места.
//
// Остановка кооперативная: keepAlive проверяется в начале каждого цикла,
// худшая задержка отмены - один период плюс время записи в sink.
type playoutThread struct {
	engine *Engine

	keepAlive atomic.Bool
	done      chan struct{}
}

func newPlayoutThread(engine *Engine) *playoutThread {
	t := &playoutThread{
		engine: engine,
		done:   make(chan struct{}),
	}
	t.keepAlive.Store(true)
	return t
}

// start запускает playout поток
func (t *playoutThread) start() {
	go t.run()
}

// requestStop запрашивает кооперативную остановку цикла. Не блокирует.
func (t *playoutThread) requestStop() {
	t.engine.logger.Debug("запрошена остановка playout потока")
	t.keepAlive.Store(false)
}

// join дожидается завершения потока не дольше timeout.
// Возвращает false если лимит истек.
func (t *playoutThread) join(timeout time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// run основной цикл playout потока
func (t *playoutThread) run() {
	defer close(t.done)

	e := t.engine

	// Жесткий 10ms дедлайн: цикл не должен мигрировать между OS потоками
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := raisePlayoutThreadPriority(); err != nil {
		e.logger.Warn("не удалось поднять приоритет playout потока",
			slog.String("error", err.Error()))
	}
	e.logger.Debug("playout поток запущен")

	// Воспроизведение началось, клиент информируется об этом
	if e.stateListener != nil {
		e.stateListener.OnPlayoutStarted()
	}

	stopVolumeLogger := t.startVolumeLogger()
	defer stopVolumeLogger()

	frame := e.frameBuffer
	ring := e.ring

	for t.keepAlive.Load() {
		if requestedMs, ok := e.controller.consumePendingDelay(); ok {
			ring.applyDelay(requestedMs)
			e.metrics.recordAppliedDelay(ring.delaySlots())
		}

		if !e.media.WantsAudioSignal() {
			// Медиа движок не готов отдавать аудио: sink не пишется и темп
			// не задается, поэтому выдерживаем период вручную
			time.Sleep(PeriodMs * time.Millisecond)
			continue
		}

		t.runCycle(frame, ring)

		written := e.sink.WriteFrame(frame)
		if written != len(frame) {
			e.metrics.recordSinkWriteError()
			e.logger.Error("sink принял некорректное количество байт",
				slog.Int("written", written),
				slog.Int("expected", len(frame)))
			// Отрицательный результат записи означает фатальную ошибку
			// устройства: останавливаем воспроизведение и сообщаем о ней
			if written < 0 {
				t.keepAlive.Store(false)
				e.reportRuntimeError(fmt.Sprintf("запись в аудио sink не удалась: %d", written))
			}
		}
		e.metrics.recordCycle()
	}

	t.stopSink()
}

// runCycle выполняет защищенную часть одного цикла: получение кадра,
// заглушение, обмен через кольцо задержки и публикацию остатка тишины.
//
// Паника внутри цикла не роняет поток: она учитывается счетчиком
// и цикл продолжается - непрерывность воспроизведения важнее
// корректности одного кадра.
func (t *playoutThread) runCycle(frame []byte, ring *delayRing) {
	e := t.engine
	defer func() {
		if r := recover(); r != nil {
			e.suppressedCycleErrors.Add(1)
			e.metrics.recordSuppressedCycleError()
		}
	}()

	// Получаем 10ms PCM от медиа движка в общий кадровый буфер
	e.media.AcquirePlayoutFrame(frame)

	if e.controller.SpeakerMuted() {
		copy(frame, e.zeroFrame)
	}

	ring.exchange(frame)

	silence := ring.remainingSilenceSeconds()
	e.controller.publishRemainingSilence(silence)
	e.metrics.recordRemainingSilence(silence)
}

// stopSink останавливает sink после выхода из цикла. Событие остановки
// доставляется слушателю только при успешной остановке устройства.
func (t *playoutThread) stopSink() {
	e := t.engine
	e.logger.Debug("останавливаем аудио sink")
	if err := e.sink.Stop(); err != nil {
		e.logger.Error("остановка аудио sink не удалась", slog.String("error", err.Error()))
		return
	}
	e.logger.Debug("аудио sink остановлен")
	if e.stateListener != nil {
		e.stateListener.OnPlayoutStopped()
	}
}

// startVolumeLogger запускает периодическое логирование громкости устройства
// на время жизни playout потока. Возвращает функцию остановки.
func (t *playoutThread) startVolumeLogger() func() {
	e := t.engine
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(volumeLogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.logger.Debug("громкость устройства",
					slog.Int("volume", e.sink.Volume()),
					slog.Int("max_volume", e.sink.MaxVolume()))
			}
		}
	}()
	return func() { close(stop) }
}
