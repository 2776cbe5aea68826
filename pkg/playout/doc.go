// Package playout реализует аудио движок воспроизведения с фиксированной
// задержкой для приложений реального времени.
//
// Движок вытягивает 10ms PCM кадры из внешнего медиа движка, прогоняет их
// через кольцевой буфер компенсации задержки и отдает блокирующему
// платформенному sink на выделенном потоке с приоритетом реального времени.
//
// # Основные возможности
//
//   - Регулируемая задержка воспроизведения до 80 секунд без потери
//     накопленного аудио (кольцо с разнесенными курсорами чтения/записи)
//   - Межпоточное управление без блокировок в горячем пути:
//     single-slot mailbox семантика для запросов задержки и mute
//   - Полное заглушение динамика подменой кадров тишиной
//   - Конечный автомат жизненного цикла init/start/stop/release
//   - Callback'и состояния и ошибок для внешнего слушателя
//   - Prometheus метрики, включая счетчик подавленных ошибок цикла
//
// # Архитектура
//
// Пакет состоит из следующих основных компонентов:
//
//   - Engine - фасад жизненного цикла и владелец ресурсов sink
//   - delayRing - кольцевая линия задержки на сырых PCM кадрах
//   - DelayController - межпоточная поверхность управления задержкой
//   - playoutThread - выделенный цикл воспроизведения
//   - MediaEngine / Sink - узкие контракты внешнего медиа движка
//     и платформенного аудио вывода
//
// # Быстрый старт
//
//	engine := playout.NewEngine(mediaEngine, sink, playout.EngineOptions{})
//
//	if err := engine.InitPlayout(playout.DefaultConfig()); err != nil {
//	    log.Fatal(err)
//	}
//	if err := engine.StartPlayout(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Компенсация задержки видео тракта: аудио отстанет на 500ms
//	engine.SetDelay(500)
//
//	// ...
//
//	_ = engine.StopPlayout()
//	_ = engine.Release()
//
// # Модель потоков
//
// Ровно два класса потоков: единственный playout поток (создается на время
// сессии воспроизведения) и произвольное количество управляющих потоков.
// Управляющие операции SetDelay/SetSpeakerMute применяются лениво на
// ближайшем цикле; худшая задержка наблюдения - один период 10ms.
// Операции жизненного цикла вызываются из одного согласованного контекста.
package playout
