package sink

import (
	"fmt"
	"sync"
	"time"

	"github.com/arzzra/playout/pkg/playout"
)

// Проверка на соответствие интерфейсу во время компиляции
var _ playout.Sink = (*CaptureSink)(nil)

// CaptureSink sink, записывающий кадры в память. Используется в тестах
// и инструментах, где реальное аудио устройство недоступно или не нужно.
//
// По умолчанию запись не блокируется; опциональный PacePeriod имитирует
// блокирующую семантику платформенного вывода, выдерживая период
// на каждый кадр.
type CaptureSink struct {
	// MinBufferBytes значение, возвращаемое MinBufferSizeBytes.
	// Ноль означает два периода для запрошенной конфигурации.
	MinBufferBytes int

	// FixedVolume имитирует устройство с фиксированной политикой громкости
	FixedVolume bool

	// SupportsUnderruns включает счет underrun (иначе возвращается
	// сентинель UnderrunCountUnsupported)
	SupportsUnderruns bool

	// PacePeriod ненулевое значение заставляет WriteFrame выдерживать
	// указанную длительность, имитируя блокирующую запись
	PacePeriod time.Duration

	mu        sync.Mutex
	opened    bool
	paused    bool
	stopped   bool
	frames    [][]byte
	volume    int
	underruns int

	// failWritesWith принудительный результат WriteFrame для тестов
	failWritesWith *int
	// failStop принудительная ошибка Stop для тестов
	failStop error
}

// NewCaptureSink создает sink записи в память
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{volume: 100}
}

// MinBufferSizeBytes возвращает настроенный или расчетный минимальный буфер
func (s *CaptureSink) MinBufferSizeBytes(sampleRateHz, channelCount int) (int, error) {
	if s.MinBufferBytes != 0 {
		return s.MinBufferBytes, nil
	}
	bytesPerPeriod := channelCount * playout.BytesPerSample * sampleRateHz / playout.PeriodsPerSecond
	return 2 * bytesPerPeriod, nil
}

// Open помечает sink открытым
func (s *CaptureSink) Open(sampleRateHz, channelCount, bufferSizeBytes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return fmt.Errorf("sink уже открыт")
	}
	s.opened = true
	s.stopped = false
	return nil
}

// WriteFrame сохраняет копию кадра
func (s *CaptureSink) WriteFrame(frame []byte) int {
	if s.PacePeriod > 0 {
		time.Sleep(s.PacePeriod)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWritesWith != nil {
		return *s.failWritesWith
	}
	if !s.opened || s.stopped {
		return -1
	}
	stored := make([]byte, len(frame))
	copy(stored, frame)
	s.frames = append(s.frames, stored)
	return len(frame)
}

// Pause помечает sink приостановленным
func (s *CaptureSink) Pause(paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return fmt.Errorf("sink не открыт")
	}
	s.paused = paused
	return nil
}

// Stop помечает sink остановленным
func (s *CaptureSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failStop != nil {
		return s.failStop
	}
	if !s.opened {
		return fmt.Errorf("sink не открыт")
	}
	s.stopped = true
	return nil
}

// Close освобождает sink; допускает повторный Open
func (s *CaptureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
	return nil
}

// UnderrunCount возвращает счетчик underrun или сентинель
func (s *CaptureSink) UnderrunCount() int {
	if !s.SupportsUnderruns {
		return playout.UnderrunCountUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.underruns
}

// MaxVolume максимальный уровень громкости
func (s *CaptureSink) MaxVolume() int {
	return 100
}

// Volume текущий уровень громкости
func (s *CaptureSink) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetVolume устанавливает громкость; отказывает при FixedVolume
func (s *CaptureSink) SetVolume(level int) error {
	if s.FixedVolume {
		return fmt.Errorf("устройство реализует фиксированную политику громкости")
	}
	if level < 0 || level > 100 {
		return fmt.Errorf("уровень громкости вне диапазона: %d", level)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = level
	return nil
}

// Frames возвращает копию записанных кадров
func (s *CaptureSink) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := make([][]byte, len(s.frames))
	copy(frames, s.frames)
	return frames
}

// FrameCount возвращает количество записанных кадров
func (s *CaptureSink) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Reset очищает записанные кадры
func (s *CaptureSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

// FailWritesWith заставляет WriteFrame возвращать result (для тестов)
func (s *CaptureSink) FailWritesWith(result int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWritesWith = &result
}

// FailStopWith заставляет Stop возвращать err (для тестов)
func (s *CaptureSink) FailStopWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStop = err
}

// AddUnderrun инкрементирует счетчик underrun (для тестов)
func (s *CaptureSink) AddUnderrun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.underruns++
}
