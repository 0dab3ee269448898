package dungeonclient

import (
	"errors"
	"fmt"
)

// Kind classifies why a remote generation failed.
type Kind int

const (
	// KindNetwork covers transport failures, timeouts and cancellation.
	KindNetwork Kind = iota + 1
	// KindStatus is a response outside 2xx.
	KindStatus
	// KindDecode is a body that is not a JSON room.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against a *GenerationError.
var (
	ErrNetwork = errors.New("dungeon service unreachable")
	ErrStatus  = errors.New("dungeon service returned an error status")
	ErrDecode  = errors.New("dungeon service returned a malformed room")
)

// GenerationError is a classified remote generation failure.
type GenerationError struct {
	Kind       Kind
	StatusCode int // set for KindStatus
	Err        error
}

func (e *GenerationError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("generate dungeon: %s error: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("generate dungeon: %s error: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *GenerationError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrStatus:
		return e.Kind == KindStatus
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}
