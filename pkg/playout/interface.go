package playout

// MediaEngine узкий callback контракт внешнего медиа движка,
// у которого playout поток запрашивает аудио каждые 10ms.
//
// Обе операции вызываются только из playout потока и обязаны
// возвращаться быстро: бюджет цикла ограничен допуском sink на underrun.
type MediaEngine interface {
	// AcquirePlayoutFrame заполняет frame ровно len(frame) байтами
	// PCM 16 bit сэмплов следующего периода воспроизведения.
	AcquirePlayoutFrame(frame []byte)

	// WantsAudioSignal сообщает, нужно ли в этом цикле запрашивать
	// и доставлять аудио вообще. При false цикл пропускается.
	WantsAudioSignal() bool
}

// Sink абстракция над блокирующим платформенным аудио выводом.
// Владельцем sink является движок: только playout поток пишет в него
// во время воспроизведения, управляющие потоки трогают его только
// когда playout поток гарантированно остановлен.
type Sink interface {
	// MinBufferSizeBytes возвращает минимальный размер выходного буфера
	// платформы для данной конфигурации, либо ошибку платформенного слоя.
	MinBufferSizeBytes(sampleRateHz, channelCount int) (int, error)

	// Open подготавливает устройство к воспроизведению. bufferSizeBytes -
	// итоговый размер буфера (минимальный, умноженный на scale factor).
	Open(sampleRateHz, channelCount, bufferSizeBytes int) error

	// WriteFrame блокирующе пишет один кадр в устройство.
	// Возвращает количество записанных байт; отрицательное значение
	// означает фатальную ошибку устройства.
	WriteFrame(frame []byte) int

	// Pause приостанавливает или возобновляет вывод без освобождения устройства
	Pause(paused bool) error

	// Stop останавливает воспроизведение. Ранее записанные данные
	// доигрываются до конца буфера.
	Stop() error

	// Close освобождает ресурсы устройства. После Close sink нельзя переиспользовать.
	Close() error

	// UnderrunCount возвращает количество underrun с момента открытия,
	// либо UnderrunCountUnsupported если платформа не умеет считать.
	UnderrunCount() int

	// MaxVolume максимальный уровень громкости устройства
	MaxVolume() int

	// Volume текущий уровень громкости устройства
	Volume() int

	// SetVolume устанавливает уровень громкости. Возвращает ошибку
	// для устройств с фиксированной громкостью.
	SetVolume(level int) error
}

// StateListener получает события жизненного цикла воспроизведения.
// Вызывается асинхронно из playout потока.
type StateListener interface {
	// OnPlayoutStarted вызывается когда playout поток начал работу
	OnPlayoutStarted()

	// OnPlayoutStopped вызывается после успешной остановки sink
	OnPlayoutStopped()
}

// ErrorListener получает ошибки playout движка.
// Init и Start ошибки дублируют синхронный результат соответствующей
// операции; Runtime ошибки приходят только через слушателя.
type ErrorListener interface {
	// OnInitError ошибка инициализации (буфер, конфликт sink, платформа)
	OnInitError(message string)

	// OnStartError ошибка запуска с кодированной причиной
	OnStartError(code StartErrorCode, message string)

	// OnRuntimeError ошибка во время воспроизведения (отказ записи в sink)
	OnRuntimeError(message string)
}
