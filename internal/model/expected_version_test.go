package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(n int64) *int64 { return &n }

func TestExpectedVersion_Resolve(t *testing.T) {
	t.Parallel()

	stream := NewStream("Order$1")

	tests := []struct {
		name       string
		expected   ExpectedVersion
		currentMax *int64
		shift      int64
		offset     int64
		err        error
	}{
		{name: "any on empty stream", expected: AnyVersion(), offset: 0},
		{name: "any on populated stream", expected: AnyVersion(), currentMax: ptr(2), offset: 3},
		{name: "none on empty stream", expected: NoneVersion(), offset: 0},
		{name: "none on populated stream", expected: NoneVersion(), currentMax: ptr(0), err: ErrConcurrencyViolation},
		{name: "auto matching last position", expected: AutoVersion(ptr(1)), currentMax: ptr(1), offset: 2},
		{name: "auto observed empty", expected: AutoVersion(nil), offset: 0},
		{name: "auto stale", expected: AutoVersion(ptr(1)), currentMax: ptr(2), err: ErrConcurrencyViolation},
		{name: "auto observed empty but populated", expected: AutoVersion(nil), currentMax: ptr(0), err: ErrConcurrencyViolation},
		{name: "specific matching", expected: SpecificVersion(4), currentMax: ptr(4), offset: 5},
		{name: "specific on empty stream", expected: SpecificVersion(0), err: ErrConcurrencyViolation},
		{name: "specific mismatch", expected: SpecificVersion(3), currentMax: ptr(4), err: ErrConcurrencyViolation},
		{name: "specific negative", expected: SpecificVersion(-1), err: ErrInvalidExpectedVersion},
		{name: "shift on empty stream", expected: NoneVersion(), shift: 1, offset: 0},
		{name: "shift on populated stream", expected: AnyVersion(), currentMax: ptr(3), shift: 1, offset: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			offset, err := tt.expected.Resolve(stream, tt.currentMax, tt.shift)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestExpectedVersion_GlobalStreamOnlyAcceptsAny(t *testing.T) {
	t.Parallel()

	_, err := AnyVersion().Resolve(GlobalStream(), ptr(7), 0)
	require.NoError(t, err)

	for _, v := range []ExpectedVersion{NoneVersion(), AutoVersion(nil), SpecificVersion(0)} {
		_, err := v.Resolve(GlobalStream(), nil, 0)
		require.ErrorIs(t, err, ErrInvalidExpectedVersion, v.String())
	}
}

func TestExpectedVersion_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "any", AnyVersion().String())
	assert.Equal(t, "none", NoneVersion().String())
	assert.Equal(t, "auto(empty)", AutoVersion(nil).String())
	assert.Equal(t, "auto(3)", AutoVersion(ptr(3)).String())
	assert.Equal(t, "specific(2)", SpecificVersion(2).String())
	assert.True(t, AnyVersion().IsAny())
	assert.False(t, NoneVersion().IsAny())
}

func TestAutoVersion_CopiesObservedPosition(t *testing.T) {
	t.Parallel()

	observed := int64(1)
	v := AutoVersion(&observed)
	observed = 5

	_, err := v.Resolve(NewStream("s"), ptr(1), 0)
	require.NoError(t, err)
}

func TestLockOutcome(t *testing.T) {
	t.Parallel()

	assert.True(t, LockOutcome{Status: LockObtained}.Obtained())
	assert.False(t, LockOutcome{Status: LockContended}.Obtained())
	assert.False(t, LockOutcome{Status: LockContended}.StorageConflict())
	assert.True(t, LockOutcome{Status: LockDeadlocked}.StorageConflict())
	assert.True(t, LockOutcome{Status: LockTimeout}.StorageConflict())
	assert.True(t, LockOutcome{Status: LockStoreFailed}.StorageConflict())
}

func TestPlaceOrderParams_Validate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&PlaceOrderParams{Amount: 10}).Validate(), ErrInvalidCustomer)
	require.ErrorIs(t, (&PlaceOrderParams{Customer: "alice"}).Validate(), ErrInvalidAmount)
	require.NoError(t, (&PlaceOrderParams{Customer: "alice", Amount: 10}).Validate())
	assert.Equal(t, "Order$42", OrderStream("42").Name)
}
