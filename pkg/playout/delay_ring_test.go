package playout

import (
	"bytes"
	"testing"
)

const testFrameSize = 8

// newTestRing создает маленькое кольцо, чтобы тесты могли обходить его целиком
func newTestRing(capacity int) *delayRing {
	return newDelayRing(capacity, testFrameSize)
}

// patternFrame возвращает кадр, заполненный байтом b
func patternFrame(b byte) []byte {
	frame := make([]byte, testFrameSize)
	for i := range frame {
		frame[i] = b
	}
	return frame
}

// isZeroFrame проверяет, что кадр состоит из тишины
func isZeroFrame(frame []byte) bool {
	for _, b := range frame {
		if b != 0 {
			return false
		}
	}
	return true
}

// TestDelayRingInitialState проверяет начальное состояние кольца
func TestDelayRingInitialState(t *testing.T) {
	ring := newTestRing(100)

	if ring.writeIdx != 0 || ring.readIdx != 0 {
		t.Errorf("курсоры должны начинаться с нуля: write=%d read=%d", ring.writeIdx, ring.readIdx)
	}
	if ring.bufferFull {
		t.Error("новое кольцо не должно быть помечено заполненным")
	}
	if ring.lagSlots() != 0 {
		t.Errorf("начальное отставание должно быть 0, получено %d", ring.lagSlots())
	}
	if ring.delaySlots() != 0 {
		t.Errorf("начальная задержка должна быть 0, получено %d", ring.delaySlots())
	}
}

// TestDelayRingPassThrough проверяет, что при нулевой задержке кадр
// проходит через кольцо без изменений (запись и чтение одного слота)
func TestDelayRingPassThrough(t *testing.T) {
	ring := newTestRing(100)

	for i := byte(1); i <= 5; i++ {
		frame := patternFrame(i)
		ring.exchange(frame)
		if !bytes.Equal(frame, patternFrame(i)) {
			t.Errorf("кадр %d изменился при нулевой задержке: %v", i, frame)
		}
	}
}

// TestDelayRingLagAfterApply проверяет инвариант: после применения задержки
// курсор чтения отстает от курсора записи ровно на запрошенное число слотов
func TestDelayRingLagAfterApply(t *testing.T) {
	tests := []struct {
		name          string
		requestedMs   int
		expectedSlots int
	}{
		{"500ms -> 50 слотов", 500, 50},
		{"1 секунда -> 100 слотов", 1000, 100},
		{"субпериодный остаток отбрасывается", 105, 10},
		{"ноль остается нулем", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring := newDelayRing(DelayRingSlots, testFrameSize)
			ring.applyDelay(tt.requestedMs)

			if got := ring.delaySlots(); got != tt.expectedSlots {
				t.Errorf("delaySlots() = %d, ожидалось %d", got, tt.expectedSlots)
			}
			if got := ring.lagSlots(); got != tt.expectedSlots {
				t.Errorf("lagSlots() = %d, ожидалось %d", got, tt.expectedSlots)
			}

			// Отставание сохраняется после продвижения обоих курсоров
			frame := make([]byte, testFrameSize)
			for i := 0; i < 10; i++ {
				ring.exchange(frame)
			}
			if got := ring.lagSlots(); got != tt.expectedSlots {
				t.Errorf("после 10 циклов lagSlots() = %d, ожидалось %d", got, tt.expectedSlots)
			}
		})
	}
}

// TestDelayRingClampToMax проверяет ограничение запроса максимальной задержкой
func TestDelayRingClampToMax(t *testing.T) {
	ring := newDelayRing(DelayRingSlots, testFrameSize)
	ring.applyDelay(MaxDelayMs * 3)

	if got := ring.delaySlots(); got != DelayRingSlots {
		t.Errorf("delaySlots() = %d, ожидалось %d", got, DelayRingSlots)
	}
}

// TestDelayRingGrowZeroesExposedSlots проверяет правило увеличения задержки:
// обнуляются ровно те слоты, которые курсор чтения проходит при отводе
// назад. Целевой слот не очищается - первый кадр после увеличения повторяет
// его устаревшее содержимое, дальше идет тишина.
func TestDelayRingGrowZeroesExposedSlots(t *testing.T) {
	ring := newTestRing(100)

	// Записываем узнаваемый паттерн в первые 30 слотов
	for i := 0; i < 30; i++ {
		ring.exchange(patternFrame(byte(i + 1)))
	}
	// write=30 read=30; увеличиваем задержку на 10 слотов
	ring.applyDelay(10 * PeriodMs)

	if ring.readIdx != 20 {
		t.Fatalf("курсор чтения должен указывать на 20, получено %d", ring.readIdx)
	}

	// Слоты (20, 30] пройдены при отводе назад и обязаны быть обнулены
	for slot := 21; slot <= 30; slot++ {
		if !isZeroFrame(ring.slots[slot]) {
			t.Errorf("слот %d должен быть обнулен, содержит %v", slot, ring.slots[slot])
		}
	}
	// Целевой слот и слоты до него не трогаются
	for slot := 0; slot <= 20; slot++ {
		if isZeroFrame(ring.slots[slot]) {
			t.Errorf("слот %d не должен был обнуляться", slot)
		}
	}

	// Первый кадр наружу - устаревшее содержимое целевого слота 20
	frame := patternFrame(101)
	ring.exchange(frame)
	if !bytes.Equal(frame, patternFrame(21)) {
		t.Errorf("первый кадр после увеличения: ожидался паттерн слота 20, получено %v", frame)
	}

	// Следующие 9 кадров - тишина из обнуленных слотов 21..29
	for i := 0; i < 9; i++ {
		frame = patternFrame(byte(102 + i))
		ring.exchange(frame)
		if !isZeroFrame(frame) {
			t.Errorf("цикл %d: ожидалась тишина, получено %v", i, frame)
		}
	}

	// Затем начинают выходить кадры, записанные после увеличения:
	// задержка ровно 10 слотов
	frame = patternFrame(0xFF)
	ring.exchange(frame)
	if !bytes.Equal(frame, patternFrame(101)) {
		t.Errorf("ожидался первый кадр, записанный после увеличения, получено %v", frame)
	}
	if ring.lagSlots() != 10 {
		t.Errorf("отставание должно быть 10 слотов, получено %d", ring.lagSlots())
	}
}

// TestDelayRingShrinkJumpsWithoutClearing проверяет правило уменьшения
// задержки: курсор чтения прыгает на цель, ни один слот не обнуляется,
// накопленное между позициями аудио отбрасывается одним скачком
func TestDelayRingShrinkJumpsWithoutClearing(t *testing.T) {
	ring := newTestRing(100)
	ring.applyDelay(30 * PeriodMs)

	for i := 0; i < 40; i++ {
		ring.exchange(patternFrame(byte(i + 1)))
	}
	// write=40 read=10, отставание 30 слотов
	if ring.lagSlots() != 30 {
		t.Fatalf("ожидалось отставание 30, получено %d", ring.lagSlots())
	}

	ring.applyDelay(5 * PeriodMs)

	if ring.lagSlots() != 5 {
		t.Errorf("после уменьшения ожидалось отставание 5, получено %d", ring.lagSlots())
	}
	// Ни один записанный слот не обнулен
	for slot := 0; slot < 40; slot++ {
		if isZeroFrame(ring.slots[slot]) {
			t.Errorf("слот %d обнулен при уменьшении задержки", slot)
		}
	}

	// Следующий кадр наружу - из слота 35: скачок через слоты 10..34
	frame := patternFrame(0xFF)
	ring.exchange(frame)
	if !bytes.Equal(frame, patternFrame(36)) {
		t.Errorf("ожидался паттерн слота 35 (цикл 36), получено %v", frame)
	}
}

// TestDelayRingSilenceCountdown проверяет публикацию остатка тишины:
// пока курсор чтения находится в незаписанной области, остаток считается
// от текущей позиции до конца кольца
func TestDelayRingSilenceCountdown(t *testing.T) {
	ring := newDelayRing(DelayRingSlots, testFrameSize)

	// Задержка 1 секунда на свежем кольце: чтение уходит в хвост кольца
	ring.applyDelay(1000)

	if !ring.countingDownSilence {
		t.Fatal("после отвода чтения за запись должен идти отсчет тишины")
	}
	if got := ring.remainingSilenceSeconds(); got != 1.0 {
		t.Errorf("remainingSilenceSeconds() = %v, ожидалось 1.0", got)
	}

	// Половина отсчета
	frame := make([]byte, testFrameSize)
	for i := 0; i < 50; i++ {
		ring.exchange(frame)
	}
	if got := ring.remainingSilenceSeconds(); got != 0.5 {
		t.Errorf("после 50 циклов remainingSilenceSeconds() = %v, ожидалось 0.5", got)
	}

	// Чтение оборачивается - отсчет закончен
	for i := 0; i < 50; i++ {
		ring.exchange(frame)
	}
	if ring.countingDownSilence {
		t.Error("после оборота чтения отсчет тишины должен завершиться")
	}
	if got := ring.remainingSilenceSeconds(); got != 0 {
		t.Errorf("remainingSilenceSeconds() = %v, ожидалось 0", got)
	}
}

// TestDelayRingBufferFullAfterWrap проверяет, что признак заполнения
// устанавливается после полного оборота записи и отменяет отсчет тишины
// при последующих изменениях задержки
func TestDelayRingBufferFullAfterWrap(t *testing.T) {
	ring := newTestRing(50)

	frame := make([]byte, testFrameSize)
	for i := 0; i < 50; i++ {
		if ring.bufferFull {
			t.Fatalf("кольцо помечено заполненным до оборота (цикл %d)", i)
		}
		ring.exchange(frame)
	}
	if !ring.bufferFull {
		t.Fatal("после полного оборота кольцо должно быть помечено заполненным")
	}

	// На заполненном кольце отвод чтения назад открывает реальное аудио,
	// а не тишину - отсчет не запускается
	ring.applyDelay(10 * PeriodMs)
	if ring.countingDownSilence {
		t.Error("на заполненном кольце отсчет тишины не должен запускаться")
	}
}
