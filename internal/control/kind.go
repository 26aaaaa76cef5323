package control

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/san-kum/vdesim/internal/config"
	"github.com/san-kum/vdesim/internal/dynamo"
)

// ErrUnsupportedController is returned when a known but unimplemented
// controller kind is requested.
var ErrUnsupportedController = errors.New("control: unsupported controller")

// Kind selects a controller implementation.
type Kind int

const (
	KindLQR Kind = iota
	KindNMPC
	KindPID
	KindNone
)

var kindNames = [...]string{
	KindLQR:  "LQR",
	KindNMPC: "NMPC",
	KindPID:  "PID",
	KindNone: "NONE",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("control: unknown controller %q (available: lqr, nmpc, none)", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("control: invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Normalized reports whether the kind already emits commands in [−1, 1].
// LQR output is a physical force and must be divided by the control gain.
func (k Kind) Normalized() bool {
	return k != KindLQR
}

// Supported reports whether New can build the kind.
func (k Kind) Supported() bool {
	return k == KindLQR || k == KindNMPC || k == KindNone
}

// New builds a fresh controller for one run. A nil logger discards output.
func New(kind Kind, phys config.PhysicalConfig, cfg config.ControllerConfig, logger *zap.Logger) (dynamo.Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch kind {
	case KindLQR:
		return NewLQR(phys, cfg.LQR, logger), nil
	case KindNMPC:
		return NewNMPC(phys, cfg.NMPC, logger), nil
	case KindNone:
		return NewNone(), nil
	case KindPID:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedController, kind)
	default:
		return nil, fmt.Errorf("control: unknown controller %s", kind)
	}
}
