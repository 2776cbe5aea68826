package playout

// delayRing кольцевой буфер фиксированной емкости, реализующий регулируемую
// линию задержки аудио без потерь. Хранит сырые PCM кадры, а не метки времени:
// задержка выражается чисто сдвигом курсора чтения относительно курсора записи,
// что дает O(1) на цикл и ноль аллокаций в горячем пути.
//
// Все слоты выделяются один раз при создании (DelayRingSlots кадров);
// емкость неизменна на все время жизни движка.
//
// Инварианты:
//   - readIdx всегда отстает от writeIdx на appliedDelaySlots слотов
//     (по модулю емкости), кроме единственного цикла применения нового запроса;
//   - после первого оборота записи (bufferFull) кольцо никогда не очищается
//     целиком - только явным проходом при увеличении задержки.
//
// Не потокобезопасен: единственный мутатор - playout поток.
type delayRing struct {
	slots     [][]byte
	frameSize int
	capacity  int

	writeIdx int
	readIdx  int

	// appliedDelaySlots последняя примененная задержка в слотах
	appliedDelaySlots int

	// bufferFull кольцо записано хотя бы один полный оборот
	bufferFull bool

	// countingDownSilence курсор чтения находится в еще не записанной
	// области кольца: наружу уходит тишина, пока чтение не догонит запись
	countingDownSilence bool
}

// newDelayRing создает кольцо из capacity слотов по frameSize байт
func newDelayRing(capacity, frameSize int) *delayRing {
	slots := make([][]byte, capacity)
	for i := range slots {
		slots[i] = make([]byte, frameSize)
	}
	return &delayRing{
		slots:               slots,
		frameSize:           frameSize,
		capacity:            capacity,
		countingDownSilence: true,
	}
}

// applyDelay применяет новый целевой уровень задержки в миллисекундах.
// Задержка разрешается в целых слотах (периодах): субпериодная точность
// не поддерживается, остаток от деления отбрасывается.
//
// Трогается только курсор чтения - курсор записи не смещается, чтобы
// не потерять уже накопленное аудио.
func (r *delayRing) applyDelay(requestedMs int) {
	if requestedMs > MaxDelayMs {
		requestedMs = MaxDelayMs
	}
	deltaSlots := requestedMs / PeriodMs
	goalReadIdx := (r.writeIdx + r.capacity - deltaSlots) % r.capacity

	if deltaSlots > r.appliedDelaySlots {
		r.growDelay(goalReadIdx)
	} else {
		r.shrinkDelay(goalReadIdx)
	}
	r.appliedDelaySlots = deltaSlots

	if r.bufferFull {
		r.countingDownSilence = false
	} else {
		r.countingDownSilence = r.readIdx > r.writeIdx
	}
}

// growDelay увеличивает задержку: курсор чтения отводится назад к цели,
// при этом каждый пройденный слот обнуляется. Будущего аудио не существует,
// поэтому вновь открытый участок кольца заполняется свежей тишиной,
// а не повтором устаревших кадров.
func (r *delayRing) growDelay(goalReadIdx int) {
	for r.readIdx != goalReadIdx {
		clearFrame(r.slots[r.readIdx])
		r.readIdx = (r.capacity + r.readIdx - 1) % r.capacity
	}
}

// shrinkDelay уменьшает задержку (или оставляет прежней): курсор чтения
// прыгает сразу на цель. Накопленное между старой и новой позицией аудио
// отбрасывается - операция явно допускает потерю, артефакт ограничен
// самим скачком.
func (r *delayRing) shrinkDelay(goalReadIdx int) {
	r.readIdx = goalReadIdx
}

// exchange прогоняет кадр через линию задержки: содержимое frame
// записывается в слот записи, затем frame перезаписывается содержимым
// слота чтения, после чего оба курсора продвигаются на один слот.
//
// Обмен идет копированием через единственный стабильный буфер кадра,
// а не подменой указателей: адрес выходного буфера должен оставаться
// постоянным для нативного callback моста.
func (r *delayRing) exchange(frame []byte) {
	copy(r.slots[r.writeIdx], frame)
	copy(frame, r.slots[r.readIdx])

	r.writeIdx++
	if r.writeIdx >= r.capacity {
		r.bufferFull = true
		r.writeIdx = 0
	}

	r.readIdx++
	if r.readIdx >= r.capacity {
		r.countingDownSilence = false
		r.readIdx = 0
	}
}

// remainingSilenceSeconds возвращает сколько секунд тишины осталось отдать,
// пока курсор чтения не дойдет до записанной области. Вне фазы отсчета - 0.
func (r *delayRing) remainingSilenceSeconds() float64 {
	if !r.countingDownSilence {
		return 0
	}
	return float64(r.capacity-r.readIdx) / PeriodsPerSecond
}

// delaySlots возвращает последнюю примененную задержку в слотах
func (r *delayRing) delaySlots() int {
	return r.appliedDelaySlots
}

// lagSlots возвращает фактическое отставание курсора чтения от курсора
// записи в слотах (по модулю емкости)
func (r *delayRing) lagSlots() int {
	return (r.writeIdx + r.capacity - r.readIdx) % r.capacity
}

// clearFrame обнуляет кадр
func clearFrame(frame []byte) {
	for i := range frame {
		frame[i] = 0
	}
}
