// Демонстрация playout движка: генератор тона проигрывается через
// регулируемую линию задержки в системное аудио устройство.
//
// Запуск с задержкой в полсекунды:
//
//	go run ./cmd/playout_demo -delay 500 -duration 5s
//
// Флаг -capture заменяет аудио устройство записью в память - удобно
// на машинах без звуковой карты.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arzzra/playout/pkg/playout"
	"github.com/arzzra/playout/pkg/sink"
	"github.com/arzzra/playout/pkg/source"
)

type consoleListener struct{}

func (consoleListener) OnPlayoutStarted() { fmt.Println("✓ Воспроизведение запущено") }
func (consoleListener) OnPlayoutStopped() { fmt.Println("✓ Воспроизведение остановлено") }

func (consoleListener) OnInitError(message string) {
	fmt.Printf("✗ Ошибка инициализации: %s\n", message)
}

func (consoleListener) OnStartError(code playout.StartErrorCode, message string) {
	fmt.Printf("✗ Ошибка запуска (%s): %s\n", code, message)
}

func (consoleListener) OnRuntimeError(message string) {
	fmt.Printf("✗ Ошибка воспроизведения: %s\n", message)
}

func main() {
	var (
		sampleRate = flag.Int("rate", 48000, "частота дискретизации, Гц")
		channels   = flag.Int("channels", 1, "количество каналов (1 или 2)")
		frequency  = flag.Float64("freq", 440.0, "частота тона, Гц")
		delayMs    = flag.Int("delay", 0, "задержка воспроизведения, мс")
		duration   = flag.Duration("duration", 3*time.Second, "длительность воспроизведения")
		useCapture = flag.Bool("capture", false, "писать в память вместо аудио устройства")
		verbose    = flag.Bool("v", false, "подробное логирование")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fmt.Println("=== Демонстрация playout движка ===")
	fmt.Printf("Тон %.0f Гц, %d Гц / %d канал(а), задержка %d мс\n",
		*frequency, *sampleRate, *channels, *delayMs)

	tone := source.NewToneSource(*sampleRate, *channels, *frequency, 0.3)

	var audioSink playout.Sink
	var capture *sink.CaptureSink
	if *useCapture {
		capture = sink.NewCaptureSink()
		capture.PacePeriod = playout.PeriodMs * time.Millisecond
		audioSink = capture
	} else {
		audioSink = sink.NewOtoSink()
	}

	listener := consoleListener{}
	engine := playout.NewEngine(tone, audioSink, playout.EngineOptions{
		StateListener:     listener,
		ErrorListener:     listener,
		MetricsRegisterer: prometheus.NewRegistry(),
		Logger:            logger,
	})

	config := playout.Config{
		SampleRateHz:          *sampleRate,
		ChannelCount:          *channels,
		BufferSizeScaleFactor: 1.0,
	}
	if err := engine.InitPlayout(config); err != nil {
		log.Fatalf("инициализация не удалась: %v", err)
	}

	if *delayMs > 0 {
		engine.SetDelay(*delayMs)
	}

	if err := engine.StartPlayout(); err != nil {
		log.Fatalf("запуск не удался: %v", err)
	}

	// Во время отсчета тишины показываем прогресс выхода на записанную область
	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		if remaining := engine.RemainingSilenceSeconds(); remaining > 0 {
			fmt.Printf("  осталось тишины: %.1f с\n", remaining)
		}
		time.Sleep(500 * time.Millisecond)
	}

	if err := engine.StopPlayout(); err != nil {
		log.Fatalf("остановка не удалась: %v", err)
	}
	if err := engine.Release(); err != nil {
		log.Fatalf("освобождение ресурсов не удалось: %v", err)
	}

	if capture != nil {
		fmt.Printf("Записано кадров: %d (%.1f с аудио)\n",
			capture.FrameCount(), float64(capture.FrameCount())/playout.PeriodsPerSecond)
	}
	if suppressed := engine.SuppressedCycleErrors(); suppressed > 0 {
		fmt.Printf("Подавлено ошибок цикла: %d\n", suppressed)
	}
	fmt.Println("Готово")
}
