// Package sink содержит адаптеры платформенного аудио вывода для playout движка.
//
// Основной адаптер - OtoSink поверх ebitengine/oto (кроссплатформенный
// низкоуровневый аудио вывод). Для тестов и инструментов предоставляется
// CaptureSink, записывающий кадры в память.
package sink

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/arzzra/playout/pkg/playout"
)

// Проверка на соответствие интерфейсу во время компиляции
var _ playout.Sink = (*OtoSink)(nil)

// минимальный буфер платформы в периодах воспроизведения.
// Меньше двух периодов oto не способен отдавать без щелчков.
const minBufferPeriods = 2

// OtoSink блокирующий платформенный аудио вывод поверх ebitengine/oto.
//
// Темп записи задает сам вывод: WriteFrame блокируется через io.Pipe,
// пока плеер не заберет предыдущие данные, что и формирует 10ms каденс
// playout потока.
//
// Ограничение oto: контекст создается один раз на процесс, поэтому
// повторный Open после Close переиспользует существующий контекст
// только при совпадении частоты и числа каналов.
type OtoSink struct {
	mu sync.Mutex

	ctx    *oto.Context
	player *oto.Player

	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter

	sampleRateHz int
	channelCount int

	// volume в процентах [0..MaxVolume]; применяется как линейный множитель
	volume int
}

// NewOtoSink создает неоткрытый sink. Устройство захватывается в Open.
func NewOtoSink() *OtoSink {
	return &OtoSink{volume: 100}
}

// MinBufferSizeBytes возвращает минимальный выходной буфер платформы:
// два периода воспроизведения для данной конфигурации.
func (s *OtoSink) MinBufferSizeBytes(sampleRateHz, channelCount int) (int, error) {
	if sampleRateHz <= 0 || channelCount <= 0 {
		return 0, fmt.Errorf("некорректная конфигурация: rate=%d channels=%d", sampleRateHz, channelCount)
	}
	bytesPerPeriod := channelCount * playout.BytesPerSample * sampleRateHz / playout.PeriodsPerSecond
	return minBufferPeriods * bytesPerPeriod, nil
}

// Open захватывает аудио устройство и запускает плеер, читающий кадры
// из внутреннего pipe.
func (s *OtoSink) Open(sampleRateHz, channelCount, bufferSizeBytes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != nil {
		return fmt.Errorf("sink уже открыт")
	}

	if s.ctx == nil {
		bytesPerSecond := channelCount * playout.BytesPerSample * sampleRateHz
		op := &oto.NewContextOptions{
			SampleRate:   sampleRateHz,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   time.Second * time.Duration(bufferSizeBytes) / time.Duration(bytesPerSecond),
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("создание oto контекста: %w", err)
		}
		<-ready
		s.ctx = ctx
		s.sampleRateHz = sampleRateHz
		s.channelCount = channelCount
	} else if sampleRateHz != s.sampleRateHz || channelCount != s.channelCount {
		// oto контекст неизменяем после создания
		return fmt.Errorf("oto контекст уже создан для %d Hz / %d каналов",
			s.sampleRateHz, s.channelCount)
	} else if err := s.ctx.Resume(); err != nil {
		return fmt.Errorf("возобновление oto контекста: %w", err)
	}

	s.pipeReader, s.pipeWriter = io.Pipe()
	s.player = s.ctx.NewPlayer(s.pipeReader)
	s.player.SetVolume(float64(s.volume) / 100.0)
	s.player.Play()
	return nil
}

// WriteFrame блокирующе пишет один кадр в устройство через pipe.
// Возвращает количество записанных байт, отрицательное значение при
// фатальной ошибке устройства.
func (s *OtoSink) WriteFrame(frame []byte) int {
	s.mu.Lock()
	pw := s.pipeWriter
	s.mu.Unlock()

	if pw == nil {
		return -1
	}
	n, err := pw.Write(frame)
	if err != nil {
		return -1
	}
	return n
}

// Pause приостанавливает или возобновляет вывод без освобождения устройства
func (s *OtoSink) Pause(paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return fmt.Errorf("sink не открыт")
	}
	if paused {
		s.player.Pause()
	} else {
		s.player.Play()
	}
	return nil
}

// Stop останавливает воспроизведение. Данные, уже принятые плеером,
// доигрываются из его внутреннего буфера.
func (s *OtoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return fmt.Errorf("sink не открыт")
	}
	// Разблокируем возможную зависшую запись playout потока
	if s.pipeWriter != nil {
		_ = s.pipeWriter.Close()
	}
	s.player.Pause()
	return nil
}

// Close освобождает плеер и приостанавливает аудио контекст
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeWriter != nil {
		_ = s.pipeWriter.Close()
		s.pipeWriter = nil
		s.pipeReader = nil
	}
	if s.player != nil {
		if err := s.player.Close(); err != nil {
			return fmt.Errorf("закрытие oto плеера: %w", err)
		}
		s.player = nil
	}
	if s.ctx != nil {
		if err := s.ctx.Suspend(); err != nil {
			return fmt.Errorf("приостановка oto контекста: %w", err)
		}
	}
	return nil
}

// UnderrunCount oto не предоставляет счетчик underrun
func (s *OtoSink) UnderrunCount() int {
	return playout.UnderrunCountUnsupported
}

// MaxVolume максимальный уровень громкости (проценты)
func (s *OtoSink) MaxVolume() int {
	return 100
}

// Volume текущий уровень громкости
func (s *OtoSink) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetVolume устанавливает громкость в диапазоне [0, MaxVolume]
func (s *OtoSink) SetVolume(level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("уровень громкости вне диапазона: %d", level)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = level
	if s.player != nil {
		s.player.SetVolume(float64(level) / 100.0)
	}
	return nil
}
