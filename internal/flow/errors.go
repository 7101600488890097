package flow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
)

// Sentinel errors. The structured error types below match these through
// errors.Is so callers can classify failures without type switches.
var (
	ErrGraphWiring           = errors.New("graph wiring error")
	ErrParameterConversion   = errors.New("parameter conversion error")
	ErrProcessing            = errors.New("processing error")
	ErrMissingBridge         = errors.New("missing bridge")
	ErrUnknownFilter         = errors.New("unknown filter")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrUnknownSource         = errors.New("unknown source")
	ErrGraphDisposed         = errors.New("graph disposed")
)

// WiringReason classifies a build-time failure.
type WiringReason string

const (
	ReasonTypeMismatch      WiringReason = "type mismatch"
	ReasonDanglingConnector WiringReason = "dangling connector"
	ReasonUnknownInstance   WiringReason = "unknown instance"
	ReasonMultipleProducers WiringReason = "input wired more than once"
	ReasonUnwiredMandatory  WiringReason = "mandatory input not wired"
	ReasonCycle             WiringReason = "cyclic topology"
	ReasonDuplicate         WiringReason = "duplicate identifier"
	ReasonMissingHandler    WiringReason = "missing firing handler"
	ReasonGroupTooLarge     WiringReason = "group too large"
	ReasonForeignFilter     WiringReason = "filter belongs to another graph"
	ReasonDeclaration       WiringReason = "invalid connector declaration"
	ReasonUnknownFilter     WiringReason = "unknown filter kind"
	ReasonConfiguration     WiringReason = "configuration failed"
)

// WiringError reports a graph that cannot be built.
type WiringError struct {
	Reason    WiringReason
	Instance  string
	Connector string
	Detail    string
	Err       error
}

func (e *WiringError) Error() string {
	msg := "graph wiring: " + string(e.Reason)
	if e.Instance != "" {
		msg += " at " + e.Instance
	}
	if e.Connector != "" {
		msg += "." + e.Connector
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WiringError) Is(target error) bool { return target == ErrGraphWiring }

func (e *WiringError) Unwrap() error { return e.Err }

// ParameterConversionError reports a configuration value that does not fit
// the declared parameter type.
type ParameterConversionError struct {
	Filter    string
	Parameter string
	Value     any
	Want      ParamType
	Err       error
}

func (e *ParameterConversionError) Error() string {
	if e.Parameter == "" {
		return fmt.Sprintf("%s: parameters rejected: %v", e.Filter, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: parameter %q: cannot use %v (%T) as %s: %v", e.Filter, e.Parameter, e.Value, e.Value, e.Want, e.Err)
	}
	return fmt.Sprintf("%s: parameter %q: cannot use %v (%T) as %s", e.Filter, e.Parameter, e.Value, e.Value, e.Want)
}

func (e *ParameterConversionError) Is(target error) bool { return target == ErrParameterConversion }

func (e *ParameterConversionError) Unwrap() error { return e.Err }

// ProcessingError is raised when a filter handler fails. It aborts the rest of
// the frame identified by Counter.
type ProcessingError struct {
	Filter   string
	Instance uuid.UUID
	Counter  int
	Err      error
}

func (e *ProcessingError) Error() string {
	if e.Filter == "" {
		return fmt.Sprintf("frame %d: %v", e.Counter, e.Err)
	}
	return fmt.Sprintf("frame %d: %s: %v", e.Counter, e.Filter, e.Err)
}

func (e *ProcessingError) Is(target error) bool { return target == ErrProcessing }

func (e *ProcessingError) Unwrap() error { return e.Err }

// MissingBridgeError reports a data type without a bridge pair.
type MissingBridgeError struct {
	DataType datatype.DataType
}

func (e *MissingBridgeError) Error() string {
	return fmt.Sprintf("no bridge pair registered for data type %s", e.DataType)
}

func (e *MissingBridgeError) Is(target error) bool { return target == ErrMissingBridge }
