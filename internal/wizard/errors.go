package wizard

import "errors"

var (
	ErrNotAllowed  = errors.New("action not allowed on this step")
	ErrTerminal    = errors.New("application already submitted")
	ErrUnknownFlow = errors.New("unknown wizard flow")

	ErrMissingDependency = errors.New("missing dependency")
)
