package model

import "fmt"

type versionKind int

const (
	versionAny versionKind = iota
	versionNone
	versionAuto
	versionSpecific
)

// ExpectedVersion is the concurrency check applied to a stream append.
type ExpectedVersion struct {
	kind     versionKind
	position *int64
}

// AnyVersion appends without a precondition.
func AnyVersion() ExpectedVersion {
	return ExpectedVersion{kind: versionAny}
}

// NoneVersion requires the stream to have no entries yet.
func NoneVersion() ExpectedVersion {
	return ExpectedVersion{kind: versionNone}
}

// AutoVersion requires the persisted last position to equal the one the
// caller observed. A nil lastObserved means the caller saw an empty stream.
func AutoVersion(lastObserved *int64) ExpectedVersion {
	v := ExpectedVersion{kind: versionAuto}

	if lastObserved != nil {
		p := *lastObserved
		v.position = &p
	}

	return v
}

// SpecificVersion requires the persisted last position to be exactly n.
func SpecificVersion(n int64) ExpectedVersion {
	return ExpectedVersion{kind: versionSpecific, position: &n}
}

// IsAny reports whether no precondition applies.
func (v ExpectedVersion) IsAny() bool { return v.kind == versionAny }

func (v ExpectedVersion) String() string {
	switch v.kind {
	case versionNone:
		return "none"
	case versionAuto:
		if v.position == nil {
			return "auto(empty)"
		}

		return fmt.Sprintf("auto(%d)", *v.position)
	case versionSpecific:
		return fmt.Sprintf("specific(%d)", *v.position)
	default:
		return "any"
	}
}

// Resolve checks v against the stream's current maximum position (nil when
// the stream is empty) and returns the offset of the batch. The position
// of the i-th appended event is offset + i + shift.
func (v ExpectedVersion) Resolve(stream Stream, currentMax *int64, shift int64) (int64, error) {
	if stream.IsGlobal() && v.kind != versionAny {
		return 0, fmt.Errorf("%w: %s on global stream", ErrInvalidExpectedVersion, v)
	}

	switch v.kind {
	case versionAny:
	case versionNone:
		if currentMax != nil {
			return 0, v.violation(stream, currentMax)
		}
	case versionAuto:
		if !samePosition(v.position, currentMax) {
			return 0, v.violation(stream, currentMax)
		}
	case versionSpecific:
		if *v.position < 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidExpectedVersion, v)
		}

		if !samePosition(v.position, currentMax) {
			return 0, v.violation(stream, currentMax)
		}
	default:
		return 0, ErrInvalidExpectedVersion
	}

	if currentMax == nil {
		return 0, nil
	}

	return *currentMax - shift + 1, nil
}

func (v ExpectedVersion) violation(stream Stream, currentMax *int64) error {
	current := "empty"
	if currentMax != nil {
		current = fmt.Sprintf("%d", *currentMax)
	}

	return fmt.Errorf("%w: stream %q expected %s, current %s", ErrConcurrencyViolation, stream.Name, v, current)
}

func samePosition(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
