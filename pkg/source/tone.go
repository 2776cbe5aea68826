// Package source содержит адаптеры медиа движка для playout движка:
// генератор тона для инструментов и тестов и RTP источник, собирающий
// 10ms кадры из входящего RTP потока.
package source

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/arzzra/playout/pkg/playout"
)

// Проверка на соответствие интерфейсу во время компиляции
var _ playout.MediaEngine = (*ToneSource)(nil)

// ToneSource медиа движок, генерирующий непрерывную синусоиду.
// Фаза сохраняется между кадрами, поэтому границы 10ms периодов
// не дают щелчков.
type ToneSource struct {
	sampleRateHz int
	channelCount int
	frequencyHz  float64
	amplitude    float64

	mu    sync.Mutex
	phase float64

	active atomic.Bool
}

// NewToneSource создает генератор синусоиды указанной частоты.
// amplitude в диапазоне [0.0, 1.0] от полной шкалы int16.
func NewToneSource(sampleRateHz, channelCount int, frequencyHz, amplitude float64) *ToneSource {
	t := &ToneSource{
		sampleRateHz: sampleRateHz,
		channelCount: channelCount,
		frequencyHz:  frequencyHz,
		amplitude:    amplitude,
	}
	t.active.Store(true)
	return t
}

// AcquirePlayoutFrame заполняет кадр очередным отрезком синусоиды
func (t *ToneSource) AcquirePlayoutFrame(frame []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	step := 2 * math.Pi * t.frequencyHz / float64(t.sampleRateHz)
	scale := t.amplitude * float64(math.MaxInt16)
	bytesPerSample := playout.BytesPerSample * t.channelCount

	for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
		sample := int16(scale * math.Sin(t.phase))
		for ch := 0; ch < t.channelCount; ch++ {
			binary.LittleEndian.PutUint16(frame[i+ch*playout.BytesPerSample:], uint16(sample))
		}
		t.phase += step
		if t.phase > 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
}

// WantsAudioSignal сообщает, включена ли генерация
func (t *ToneSource) WantsAudioSignal() bool {
	return t.active.Load()
}

// SetActive включает или выключает генерацию сигнала
func (t *ToneSource) SetActive(active bool) {
	t.active.Store(active)
}
