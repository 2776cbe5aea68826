package playout

import (
	"fmt"
	"time"
)

// Константы playout движка. Все тайминги привязаны к фиксированному
// периоду воспроизведения 10ms (один цикл playout потока).
const (
	// BitsPerSample разрядность PCM сэмпла. Движок работает только с PCM 16 bit.
	BitsPerSample = 16

	// BytesPerSample размер одного PCM сэмпла в байтах
	BytesPerSample = BitsPerSample / 8

	// PeriodMs длительность одного периода воспроизведения в миллисекундах.
	// За один цикл playout поток запрашивает и отдает ровно один период аудио.
	PeriodMs = 10

	// PeriodsPerSecond количество циклов playout потока в секунду
	PeriodsPerSecond = 1000 / PeriodMs

	// MaxDelayMs максимальная искусственная задержка воспроизведения.
	// Определяет емкость delay ring: MaxDelayMs / PeriodMs слотов,
	// выделяемых один раз при инициализации.
	MaxDelayMs = 80 * 1000

	// DelayRingSlots емкость delay ring в слотах (по одному кадру на слот)
	DelayRingSlots = MaxDelayMs / PeriodMs

	// ThreadJoinTimeout максимальное время ожидания завершения playout потока
	// в StopPlayout. По истечении поток считается зависшим: состояние логируется,
	// но вызывающий не блокируется дольше этого лимита.
	ThreadJoinTimeout = 2000 * time.Millisecond

	// volumeLogInterval период логирования громкости во время воспроизведения
	volumeLogInterval = 30 * time.Second
)

// Сентинельные значения UnderrunCount (совместимы с платформенными кодами)
const (
	// UnderrunCountNoSink возвращается когда sink не инициализирован
	UnderrunCountNoSink = -1

	// UnderrunCountUnsupported возвращается когда sink не умеет считать underrun
	UnderrunCountUnsupported = -2
)

// Config содержит параметры инициализации playout движка.
// Конфигурация неизменяема после успешного InitPlayout: размер кадра
// и емкость delay ring фиксируются на все время жизни движка.
type Config struct {
	// SampleRateHz частота дискретизации PCM потока (например 8000, 16000, 48000)
	SampleRateHz int

	// ChannelCount количество каналов: 1 (mono) или 2 (stereo)
	ChannelCount int

	// BufferSizeScaleFactor множитель минимального буфера sink.
	// Итоговый буфер sink = minBufferSize * BufferSizeScaleFactor.
	// Значения > 1.0 дают запас от underrun ценой задержки.
	BufferSizeScaleFactor float64
}

// DefaultConfig возвращает конфигурацию по умолчанию для VoIP сценария
func DefaultConfig() Config {
	return Config{
		SampleRateHz:          48000,
		ChannelCount:          1,
		BufferSizeScaleFactor: 1.0,
	}
}

// FrameSizeBytes возвращает размер одного кадра (10ms PCM) в байтах:
// channelCount * 2 байта на сэмпл * (sampleRateHz / 100).
func (c Config) FrameSizeBytes() int {
	return c.ChannelCount * BytesPerSample * (c.SampleRateHz / PeriodsPerSecond)
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.SampleRateHz <= 0 {
		return newConfigError(fmt.Sprintf("некорректная частота дискретизации: %d", c.SampleRateHz))
	}
	if c.SampleRateHz%PeriodsPerSecond != 0 {
		return newConfigError(fmt.Sprintf("частота %d Hz не кратна %d периодам в секунду", c.SampleRateHz, PeriodsPerSecond))
	}
	if c.ChannelCount != 1 && c.ChannelCount != 2 {
		return newConfigError(fmt.Sprintf("некорректное количество каналов: %d (допустимо 1 или 2)", c.ChannelCount))
	}
	if c.BufferSizeScaleFactor <= 0 {
		return newConfigError(fmt.Sprintf("некорректный множитель буфера: %v", c.BufferSizeScaleFactor))
	}
	return nil
}
