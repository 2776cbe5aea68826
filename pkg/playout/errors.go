package playout

import (
	"fmt"
)

// ErrorCode определяет типизированные коды ошибок playout движка.
// Позволяет классифицировать ошибки по категориям и обрабатывать их
// соответствующим образом на стороне вызывающего.
type ErrorCode int

const (
	// Ошибки конфигурации
	ErrorCodeConfigInvalid ErrorCode = iota + 2000
	ErrorCodeBufferTooSmall

	// Ошибки конфликта жизненного цикла
	ErrorCodeSinkConflict
	ErrorCodeNotInitialized
	ErrorCodeAlreadyPlaying
	ErrorCodeNotPlaying

	// Платформенные ошибки
	ErrorCodeSinkOpenFailed
	ErrorCodeSinkWriteFailed
	ErrorCodeSinkStopFailed
	ErrorCodeVolumeFixed

	// Ошибки времени выполнения
	ErrorCodeJoinTimeout
)

// String возвращает строковое представление кода ошибки
func (code ErrorCode) String() string {
	switch code {
	case ErrorCodeConfigInvalid:
		return "ConfigInvalid"
	case ErrorCodeBufferTooSmall:
		return "BufferTooSmall"
	case ErrorCodeSinkConflict:
		return "SinkConflict"
	case ErrorCodeNotInitialized:
		return "NotInitialized"
	case ErrorCodeAlreadyPlaying:
		return "AlreadyPlaying"
	case ErrorCodeNotPlaying:
		return "NotPlaying"
	case ErrorCodeSinkOpenFailed:
		return "SinkOpenFailed"
	case ErrorCodeSinkWriteFailed:
		return "SinkWriteFailed"
	case ErrorCodeSinkStopFailed:
		return "SinkStopFailed"
	case ErrorCodeVolumeFixed:
		return "VolumeFixed"
	case ErrorCodeJoinTimeout:
		return "JoinTimeout"
	default:
		return fmt.Sprintf("Unknown(%d)", int(code))
	}
}

// StartErrorCode кодированная причина отказа StartPlayout,
// передается слушателю ошибок вместе с текстовым сообщением.
type StartErrorCode int

const (
	// StartErrorNotInitialized движок не был инициализирован через InitPlayout
	StartErrorNotInitialized StartErrorCode = iota + 1
	// StartErrorThreadConflict playout поток уже запущен
	StartErrorThreadConflict
	// StartErrorSinkFailure платформенный sink отказал при открытии
	StartErrorSinkFailure
)

// String возвращает строковое представление причины отказа старта
func (code StartErrorCode) String() string {
	switch code {
	case StartErrorNotInitialized:
		return "StartErrorNotInitialized"
	case StartErrorThreadConflict:
		return "StartErrorThreadConflict"
	case StartErrorSinkFailure:
		return "StartErrorSinkFailure"
	default:
		return fmt.Sprintf("StartErrorUnknown(%d)", int(code))
	}
}

// PlayoutError базовая структура ошибок playout движка.
// Содержит типизированный код, человекочитаемое сообщение и контекст
// (параметры устройства, состояние движка) для сопоставления с логами.
type PlayoutError struct {
	Code    ErrorCode
	Message string
	Context map[string]interface{}
	Wrapped error
}

// Error реализует интерфейс error, возвращая форматированное сообщение.
func (e *PlayoutError) Error() string {
	return fmt.Sprintf("[playout:%d] %s", e.Code, e.Message)
}

// Unwrap возвращает обернутую ошибку, поддерживая errors.Unwrap.
func (e *PlayoutError) Unwrap() error {
	return e.Wrapped
}

// Is поддерживает errors.Is, позволяя сравнивать ошибки по коду.
func (e *PlayoutError) Is(target error) bool {
	if t, ok := target.(*PlayoutError); ok {
		return e.Code == t.Code
	}
	return false
}

// GetContext возвращает значение из контекста ошибки по ключу.
func (e *PlayoutError) GetContext(key string) interface{} {
	if e.Context == nil {
		return nil
	}
	return e.Context[key]
}

// StartError специализированная ошибка запуска воспроизведения
// с кодированной причиной (аналог кода ошибки старта платформенного трека).
type StartError struct {
	*PlayoutError
	Reason StartErrorCode
}

func newStartError(reason StartErrorCode, code ErrorCode, message string) *StartError {
	return &StartError{
		PlayoutError: &PlayoutError{
			Code:    code,
			Message: message,
			Context: map[string]interface{}{
				"start_error_code": reason.String(),
			},
		},
		Reason: reason,
	}
}

func newConfigError(message string) *PlayoutError {
	return &PlayoutError{Code: ErrorCodeConfigInvalid, Message: message}
}

func newPlayoutError(code ErrorCode, message string) *PlayoutError {
	return &PlayoutError{Code: code, Message: message}
}

// wrapPlayoutError оборачивает существующую ошибку в PlayoutError
func wrapPlayoutError(code ErrorCode, message string, err error) *PlayoutError {
	return &PlayoutError{Code: code, Message: message, Wrapped: err}
}

// HasErrorCode проверяет, содержит ли цепочка ошибок указанный код
func HasErrorCode(err error, code ErrorCode) bool {
	var playoutErr *PlayoutError
	if AsPlayoutError(err, &playoutErr) {
		return playoutErr.Code == code
	}
	return false
}

// AsPlayoutError пытается привести ошибку к *PlayoutError
func AsPlayoutError(err error, target **PlayoutError) bool {
	if err == nil {
		return false
	}
	if playoutErr, ok := err.(*PlayoutError); ok {
		*target = playoutErr
		return true
	}
	if startErr, ok := err.(*StartError); ok {
		*target = startErr.PlayoutError
		return true
	}
	return false
}
