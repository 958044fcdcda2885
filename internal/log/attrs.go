package log

import "log/slog"

func SessionID[T ~string](id T) slog.Attr {
	return slog.String("session_id", string(id))
}

func Step[T ~string](step T) slog.Attr {
	return slog.String("step", string(step))
}

func EntityID[T ~string](id T) slog.Attr {
	return slog.String("entity_id", string(id))
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
