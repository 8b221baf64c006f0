package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockMovementSignRules(t *testing.T) {
	tests := []struct {
		name    string
		kind    MovementKind
		deltaKg float64
		wantErr bool
	}{
		{name: "entry positive", kind: MovementKindEntry, deltaKg: 100},
		{name: "entry negative rejected", kind: MovementKindEntry, deltaKg: -100, wantErr: true},
		{name: "exit negative", kind: MovementKindExit, deltaKg: -100},
		{name: "exit positive rejected", kind: MovementKindExit, deltaKg: 100, wantErr: true},
		{name: "transfer_in positive", kind: MovementKindTransferIn, deltaKg: 50},
		{name: "transfer_out negative", kind: MovementKindTransferOut, deltaKg: -50},
		{name: "transfer_out positive rejected", kind: MovementKindTransferOut, deltaKg: 50, wantErr: true},
		{name: "classification_in positive", kind: MovementKindClassificationIn, deltaKg: 25},
		{name: "classification_out negative", kind: MovementKindClassificationOut, deltaKg: -25},
		{name: "adjustment positive", kind: MovementKindAdjustment, deltaKg: 10},
		{name: "adjustment negative", kind: MovementKindAdjustment, deltaKg: -10},
		{name: "zero delta rejected", kind: MovementKindAdjustment, deltaKg: 0, wantErr: true},
		{name: "unknown kind rejected", kind: MovementKind("teleport"), deltaKg: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewStockMovement("mov-1", "park-1", "zone-1", "lot-1", "ENT-001",
				"17.01", tt.kind, tt.deltaKg, "ref", "op-1")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.deltaKg, m.DeltaKg)
			assert.False(t, m.PostedAt.IsZero())
		})
	}
}

func TestNewStockMovementRequiresLocation(t *testing.T) {
	_, err := NewStockMovement("mov-1", "", "zone-1", "lot-1", "", "17.01", MovementKindEntry, 100, "", "op-1")
	require.Error(t, err)
	_, err = NewStockMovement("mov-1", "park-1", "", "lot-1", "", "17.01", MovementKindEntry, 100, "", "op-1")
	require.Error(t, err)
	_, err = NewStockMovement("mov-1", "park-1", "zone-1", "", "", "17.01", MovementKindEntry, 100, "", "op-1")
	require.Error(t, err)
	_, err = NewStockMovement("", "park-1", "zone-1", "lot-1", "", "17.01", MovementKindEntry, 100, "", "op-1")
	require.Error(t, err)
}

func TestCheckOutgoingForbidsNegativeStock(t *testing.T) {
	out, err := NewStockMovement("mov-1", "park-1", "zone-1", "lot-1", "",
		"17.01", MovementKindExit, -500, "", "op-1")
	require.NoError(t, err)

	assert.NoError(t, out.CheckOutgoing(500), "draining to exactly zero is allowed")
	assert.NoError(t, out.CheckOutgoing(600))
	assert.Error(t, out.CheckOutgoing(499))

	in, err := NewStockMovement("mov-2", "park-1", "zone-1", "lot-1", "",
		"17.01", MovementKindEntry, 500, "", "op-1")
	require.NoError(t, err)
	assert.NoError(t, in.CheckOutgoing(0), "incoming movements never hit the floor")
}

func TestReconcile(t *testing.T) {
	assert.NoError(t, Reconcile("zone-1", 1000, 1000))
	assert.NoError(t, Reconcile("zone-1", 1000, 1000.0000001), "float noise is absorbed")

	err := Reconcile("zone-1", 1000, 900)
	var imbalance *LedgerImbalanceError
	require.ErrorAs(t, err, &imbalance)
	assert.Equal(t, "zone-1", imbalance.ZoneID)
	assert.Equal(t, 1000.0, imbalance.LedgerKg)
	assert.Equal(t, 900.0, imbalance.ProjectedKg)
}

func TestLotZoneAssignmentLifecycle(t *testing.T) {
	assignment, err := NewLotZoneAssignment("assign-1", "zone-1", "lot-1")
	require.NoError(t, err)
	assert.True(t, assignment.IsActive())

	assignment.Remove()
	assert.False(t, assignment.IsActive())

	removedAt := assignment.RemovedAt
	assignment.Remove()
	assert.Same(t, removedAt, assignment.RemovedAt, "removal is idempotent")
}

func TestZoneBlockUnblock(t *testing.T) {
	z, err := NewStorageZone("zone-1", "Z", "park-1", nil)
	require.NoError(t, err)
	assert.True(t, z.IsAllocatable())

	require.Error(t, z.Block("", "op-1"), "blocking requires a reason")

	require.NoError(t, z.Block("maintenance", "op-1"))
	assert.False(t, z.IsAllocatable())
	assert.Equal(t, "maintenance", z.BlockReason)
	require.NoError(t, z.Block("maintenance", "op-1"), "re-blocking is idempotent")

	require.NoError(t, z.Unblock("op-1"))
	assert.True(t, z.IsAllocatable())
	assert.Empty(t, z.BlockReason)

	z.Status = ZoneStatusInactive
	require.Error(t, z.Unblock("op-1"), "only blocked zones can be unblocked")
}

func TestZoneHeadroom(t *testing.T) {
	bounded, err := NewStorageZone("zone-1", "Z", "park-1", ptr(10000))
	require.NoError(t, err)
	assert.Equal(t, 8000.0, *bounded.Headroom(2000))
	assert.Equal(t, -500.0, *bounded.Headroom(10500))

	unbounded, err := NewStorageZone("zone-2", "U", "park-1", nil)
	require.NoError(t, err)
	assert.Nil(t, unbounded.Headroom(123456))
}
