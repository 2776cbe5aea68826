//go:build darwin

package playout

import (
	"golang.org/x/sys/unix"
)

// niceUrgentAudio значение nice для playout потока на Darwin
const niceUrgentAudio = -16

// raisePlayoutThreadPriority поднимает приоритет playout потока на Darwin.
// Darwin не дает потоково-гранулярного setpriority, поэтому поднимаем
// приоритет процесса; тонкая настройка через Mach time constraint policy
// выходит за рамки аудио слоя.
func raisePlayoutThreadPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, niceUrgentAudio)
}
