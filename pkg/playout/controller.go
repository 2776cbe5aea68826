package playout

import (
	"math"
	"sync/atomic"
)

// DelayController межпоточная поверхность управления задержкой воспроизведения.
//
// Реализует single-slot mailbox семантику: любой поток в любой момент может
// запросить новую задержку через SetDelay, playout поток забирает запрос
// на ближайшем цикле через consumePendingDelay. Очереди нет - выигрывает
// последний запрос, промежуточные могут быть потеряны. Это осознанное
// проектное решение: значим только актуальный целевой уровень задержки.
//
// Гонка между установкой значения и dirty флагом безвредна: в худшем случае
// изменение будет замечено на один цикл (10ms) позже.
type DelayController struct {
	delayMs     atomic.Int64
	delayDirty  atomic.Bool
	speakerMute atomic.Bool

	// remainingSilence публикуется playout потоком раз в цикл,
	// читается управляющими потоками без блокировок (advisory значение для UI)
	remainingSilence atomic.Uint64
}

// NewDelayController создает контроллер с нулевой задержкой
func NewDelayController() *DelayController {
	return &DelayController{}
}

// SetDelay запрашивает новую задержку воспроизведения в миллисекундах.
// Значение ограничивается диапазоном [0, MaxDelayMs]. Может вызываться
// из любого потока в любом состоянии движка; применяется лениво
// на следующем цикле playout потока.
func (dc *DelayController) SetDelay(ms int) {
	if ms < 0 {
		ms = 0
	}
	if ms > MaxDelayMs {
		ms = MaxDelayMs
	}
	dc.delayMs.Store(int64(ms))
	dc.delayDirty.Store(true)
}

// DelayMs возвращает последний запрошенный уровень задержки
func (dc *DelayController) DelayMs() int {
	return int(dc.delayMs.Load())
}

// consumePendingDelay атомарно забирает ожидающий запрос задержки.
// Единственный читатель - playout поток. Возвращает (значение, true)
// если с прошлого цикла был запрос, иначе (0, false).
func (dc *DelayController) consumePendingDelay() (int, bool) {
	if !dc.delayDirty.Load() {
		return 0, false
	}
	dc.delayDirty.Store(false)
	return int(dc.delayMs.Load()), true
}

// SetSpeakerMute включает или выключает полное заглушение динамика.
// При включенном mute каждый кадр, доставляемый в sink, заменяется тишиной
// независимо от того, что вернул медиа движок.
func (dc *DelayController) SetSpeakerMute(mute bool) {
	dc.speakerMute.Store(mute)
}

// SpeakerMuted возвращает текущее состояние заглушения
func (dc *DelayController) SpeakerMuted() bool {
	return dc.speakerMute.Load()
}

// publishRemainingSilence публикует остаток тишины в секундах.
// Вызывается playout потоком раз в цикл.
func (dc *DelayController) publishRemainingSilence(seconds float64) {
	dc.remainingSilence.Store(math.Float64bits(seconds))
}

// RemainingSilenceSeconds возвращает последнее опубликованное playout потоком
// значение остатка тишины. Чтение без блокировки: значение может отставать
// на цикл, что приемлемо для индикации в UI.
func (dc *DelayController) RemainingSilenceSeconds() float64 {
	return math.Float64frombits(dc.remainingSilence.Load())
}
