//go:build windows

package playout

import (
	"golang.org/x/sys/windows"
)

// raisePlayoutThreadPriority поднимает приоритет playout потока на Windows
// до TIME_CRITICAL - стандартный уровень для потоков доставки аудио.
func raisePlayoutThreadPriority() error {
	return windows.SetThreadPriority(windows.CurrentThread(), windows.THREAD_PRIORITY_TIME_CRITICAL)
}
