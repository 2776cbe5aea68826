//go:build linux

package playout

import (
	"golang.org/x/sys/unix"
)

// Приоритет SCHED_FIFO для playout потока: выше обычных RT задач приложения,
// но ниже системных аудио демонов
const urgentAudioRTPriority = 41

// niceUrgentAudio значение nice для отката, когда RT планирование недоступно
const niceUrgentAudio = -19

// raisePlayoutThreadPriority поднимает приоритет текущего OS потока до уровня,
// пригодного для жесткого 10ms дедлайна аудио цикла. Вызывается из playout
// потока после runtime.LockOSThread().
//
// Сначала пробуем SCHED_FIFO; без CAP_SYS_NICE (контейнеры, непривилегированный
// запуск) откатываемся на повышенный nice. Отказ обоих путей не фатален -
// воспроизведение продолжается на обычном приоритете.
func raisePlayoutThreadPriority() error {
	attr := &unix.SchedAttr{
		Policy:   unix.SCHED_FIFO,
		Priority: urgentAudioRTPriority,
	}
	if err := unix.SchedSetAttr(0, attr, 0); err == nil {
		return nil
	}

	return unix.Setpriority(unix.PRIO_PROCESS, 0, niceUrgentAudio)
}
