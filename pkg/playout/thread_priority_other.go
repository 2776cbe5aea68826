//go:build !linux && !darwin && !windows

package playout

// raisePlayoutThreadPriority заглушка для платформ без управления приоритетом.
// Воспроизведение работает на обычном приоритете планировщика.
func raisePlayoutThreadPriority() error {
	return nil
}
