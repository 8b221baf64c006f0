package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotLifecycleMovesForwardOnly(t *testing.T) {
	lot, err := NewLot("lot-1", "park-1", "17.01", "op-1")
	require.NoError(t, err)
	lot.ClearDomainEvents()

	// Closing straight from open skips treatment.
	err = lot.Close("A", "op-1")
	var invalid *InvalidLotTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, LotStatusOpen, invalid.From)
	assert.Equal(t, LotStatusClosed, invalid.To)
	assert.Equal(t, LotStatusOpen, lot.Status)

	require.NoError(t, lot.StartTreatment("op-2"))
	assert.Equal(t, LotStatusInTreatment, lot.Status)
	assert.False(t, lot.IsOpen(), "a lot in treatment no longer accepts material")
	require.NotNil(t, lot.TreatmentStartedAt)

	require.NoError(t, lot.Close("A", "op-3"))
	assert.Equal(t, LotStatusClosed, lot.Status)
	assert.Equal(t, "A", lot.QualityGrade)
	assert.Equal(t, "op-3", lot.ClosedBy)

	// Closed is terminal.
	err = lot.StartTreatment("op-4")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, LotStatusClosed, invalid.From)
}

func TestLotTransitionsAreIdempotent(t *testing.T) {
	lot, err := NewLot("lot-1", "park-1", "17.01", "op-1")
	require.NoError(t, err)
	lot.ClearDomainEvents()

	require.NoError(t, lot.StartTreatment("op-1"))
	lot.ClearDomainEvents()
	require.NoError(t, lot.StartTreatment("op-1"))
	assert.Empty(t, lot.GetDomainEvents(), "re-submitting the same transition emits nothing")

	require.NoError(t, lot.Close("B", "op-1"))
	lot.ClearDomainEvents()
	require.NoError(t, lot.Close("C", "op-2"))
	assert.Empty(t, lot.GetDomainEvents())
	assert.Equal(t, "B", lot.QualityGrade, "a repeated close does not rewrite the grade")
}

func TestLotLifecycleEmitsEvents(t *testing.T) {
	lot, err := NewLot("lot-1", "park-1", "17.01", "op-1")
	require.NoError(t, err)
	require.Len(t, lot.GetDomainEvents(), 1)
	assert.Equal(t, "storage.lot.opened", lot.GetDomainEvents()[0].EventType())
	lot.ClearDomainEvents()

	require.NoError(t, lot.StartTreatment("op-2"))
	require.Len(t, lot.GetDomainEvents(), 1)
	assert.Equal(t, "storage.lot.treatment_started", lot.GetDomainEvents()[0].EventType())
	lot.ClearDomainEvents()

	require.NoError(t, lot.Close("A", "op-3"))
	require.Len(t, lot.GetDomainEvents(), 1)
	closedEvent, ok := lot.GetDomainEvents()[0].(*LotClosedEvent)
	require.True(t, ok)
	assert.Equal(t, "A", closedEvent.QualityGrade)
}

func TestNewWeighingAcceptsInternalType(t *testing.T) {
	weighing, err := NewWeighing(WeighingTypeInternal, stableReading("scale-3", 750), 0, "op-1")
	require.NoError(t, err)
	assert.Equal(t, WeighingTypeInternal, weighing.Type)
	assert.Equal(t, 750.0, weighing.WeightKg)

	_, err = NewWeighing(WeighingType("reweigh"), stableReading("scale-3", 750), 0, "op-1")
	require.Error(t, err)
}
