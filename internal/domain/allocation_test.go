package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func zone(t *testing.T, zoneID, zoneCode string, capacityKg *float64) *StorageZone {
	t.Helper()
	z, err := NewStorageZone(zoneID, zoneCode, "park-1", capacityKg)
	require.NoError(t, err)
	return z
}

func openLot(t *testing.T, lotID, materialCode string) *Lot {
	t.Helper()
	l, err := NewLot(lotID, "park-1", materialCode, "op-1")
	require.NoError(t, err)
	l.ClearDomainEvents()
	return l
}

func TestSelectZonePrefersFreeZoneWithHeadroomOverNearlyFullLot(t *testing.T) {
	// Zone Z: capacity 10000, stock 2000, no lot. Zone W: capacity 5000,
	// stock 4800, open lot for the same material. W is compatible but holds
	// only 200kg; the free zone must win and open a new lot.
	snapshots := []ZoneSnapshot{
		{Zone: zone(t, "zone-z", "Z", ptr(10000)), CurrentStockKg: 2000},
		{Zone: zone(t, "zone-w", "W", ptr(5000)), ActiveLot: openLot(t, "lot-w", "17.01"), CurrentStockKg: 4800},
	}

	winner, err := SelectZone(AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 1500}, snapshots)

	require.NoError(t, err)
	assert.Equal(t, "Z", winner.ZoneCode)
	assert.True(t, winner.OpensLot)
	assert.Equal(t, 8000.0, *winner.HeadroomKg)
}

func TestRankCandidatesCompatibleLotWinsOverFreeZone(t *testing.T) {
	snapshots := []ZoneSnapshot{
		{Zone: zone(t, "zone-a", "A", ptr(10000)), CurrentStockKg: 0},
		{Zone: zone(t, "zone-b", "B", ptr(10000)), ActiveLot: openLot(t, "lot-b", "17.01"), CurrentStockKg: 5000},
	}

	candidates, rejected := RankCandidates(AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 1000}, snapshots)

	require.Len(t, candidates, 2)
	assert.Empty(t, rejected)
	assert.Equal(t, "B", candidates[0].ZoneCode, "a compatible open lot outranks any free zone")
	assert.False(t, candidates[0].OpensLot)
	assert.Equal(t, "A", candidates[1].ZoneCode)
	assert.True(t, candidates[1].OpensLot)
}

func TestRankCandidatesOrdersByHeadroomWithinRank(t *testing.T) {
	snapshots := []ZoneSnapshot{
		{Zone: zone(t, "zone-a", "A", ptr(5000)), CurrentStockKg: 4000},  // headroom 1000
		{Zone: zone(t, "zone-b", "B", ptr(10000)), CurrentStockKg: 2000}, // headroom 8000
		{Zone: zone(t, "zone-c", "C", nil), CurrentStockKg: 0},           // unbounded
	}

	candidates, _ := RankCandidates(AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 500}, snapshots)

	require.Len(t, candidates, 3)
	assert.Equal(t, "B", candidates[0].ZoneCode, "most bounded headroom first")
	assert.Equal(t, "A", candidates[1].ZoneCode)
	assert.Equal(t, "C", candidates[2].ZoneCode, "unbounded zones rank last")
	assert.Nil(t, candidates[2].HeadroomKg)
}

func TestRankCandidatesBreaksTiesByZoneCode(t *testing.T) {
	snapshots := []ZoneSnapshot{
		{Zone: zone(t, "zone-b", "B2", ptr(5000)), CurrentStockKg: 1000},
		{Zone: zone(t, "zone-a", "A1", ptr(5000)), CurrentStockKg: 1000},
	}

	candidates, _ := RankCandidates(AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 500}, snapshots)

	require.Len(t, candidates, 2)
	assert.Equal(t, "A1", candidates[0].ZoneCode)
	assert.Equal(t, "B2", candidates[1].ZoneCode)
}

func TestRankCandidatesRejectionReasons(t *testing.T) {
	blocked := zone(t, "zone-a", "A", ptr(10000))
	require.NoError(t, blocked.Block("spill cleanup", "op-1"))

	inactive := zone(t, "zone-b", "B", ptr(10000))
	inactive.Status = ZoneStatusInactive

	closedLot := openLot(t, "lot-c", "17.01")
	require.NoError(t, closedLot.StartTreatment("op-1"))
	require.NoError(t, closedLot.Close("A", "op-1"))

	treatedLot := openLot(t, "lot-t", "17.01")
	require.NoError(t, treatedLot.StartTreatment("op-1"))

	incompatibleLot := openLot(t, "lot-d", "20.01")

	full := zone(t, "zone-e", "E", ptr(1000))

	snapshots := []ZoneSnapshot{
		{Zone: blocked},
		{Zone: inactive},
		{Zone: zone(t, "zone-c", "C", nil), ActiveLot: closedLot},
		{Zone: zone(t, "zone-t", "T", nil), ActiveLot: treatedLot},
		{Zone: zone(t, "zone-d", "D", nil), ActiveLot: incompatibleLot},
		{Zone: full, CurrentStockKg: 900},
	}

	candidates, rejected := RankCandidates(AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 500}, snapshots)

	assert.Empty(t, candidates)
	require.Len(t, rejected, 6)
	assert.Contains(t, rejected[0].Reason, "blocked")
	assert.Contains(t, rejected[0].Reason, "spill cleanup")
	assert.Contains(t, rejected[1].Reason, "inactive")
	assert.Contains(t, rejected[2].Reason, "closed")
	assert.Contains(t, rejected[3].Reason, "in_treatment")
	assert.Contains(t, rejected[4].Reason, "does not accept material 17.01")
	assert.Contains(t, rejected[5].Reason, "insufficient headroom")
	assert.Equal(t, 100.0, *rejected[5].HeadroomKg)
}

func TestRankCandidatesHonoursExcludedZone(t *testing.T) {
	snapshots := []ZoneSnapshot{
		{Zone: zone(t, "zone-a", "A", ptr(10000)), CurrentStockKg: 0},
		{Zone: zone(t, "zone-b", "B", ptr(10000)), CurrentStockKg: 0},
	}

	req := AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 500, ExcludeZoneID: "zone-a"}
	candidates, rejected := RankCandidates(req, snapshots)

	require.Len(t, candidates, 1)
	assert.Equal(t, "B", candidates[0].ZoneCode)
	require.Len(t, rejected, 1)
	assert.Equal(t, "zone-a", rejected[0].ZoneID)
	assert.Contains(t, rejected[0].Reason, "excluded")
}

func TestSelectZoneNoCapacityCarriesRejectedList(t *testing.T) {
	full := zone(t, "zone-a", "A", ptr(1000))
	snapshots := []ZoneSnapshot{{Zone: full, CurrentStockKg: 1000}}

	_, err := SelectZone(AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 500}, snapshots)

	var noCapacity *NoCapacityError
	require.ErrorAs(t, err, &noCapacity)
	assert.Equal(t, "park-1", noCapacity.ParkID)
	assert.Equal(t, "17.01", noCapacity.MaterialCode)
	require.Len(t, noCapacity.Rejected, 1)
	assert.Equal(t, "A", noCapacity.Rejected[0].ZoneCode)
}

func TestSelectZoneIgnoresOtherParks(t *testing.T) {
	other, err := NewStorageZone("zone-x", "X", "park-2", nil)
	require.NoError(t, err)
	snapshots := []ZoneSnapshot{{Zone: other}}

	_, err = SelectZone(AllocationRequest{ParkID: "park-1", MaterialCode: "17.01", WeightKg: 500}, snapshots)

	var noCapacity *NoCapacityError
	require.ErrorAs(t, err, &noCapacity)
	assert.Empty(t, noCapacity.Rejected)
}

func TestAllocationRequestValidate(t *testing.T) {
	assert.NoError(t, AllocationRequest{ParkID: "p", MaterialCode: "17.01", WeightKg: 1}.Validate())
	assert.Error(t, AllocationRequest{MaterialCode: "17.01", WeightKg: 1}.Validate())
	assert.Error(t, AllocationRequest{ParkID: "p", WeightKg: 1}.Validate())
	assert.Error(t, AllocationRequest{ParkID: "p", MaterialCode: "17.01"}.Validate())
	assert.Error(t, AllocationRequest{ParkID: "p", MaterialCode: "17.01", WeightKg: -5}.Validate())
}

func TestNewLotAllowsOnlyItsMaterial(t *testing.T) {
	lot := openLot(t, "lot-1", "17.01")

	assert.True(t, lot.Allows("17.01"))
	assert.False(t, lot.Allows("20.01"))
	assert.Equal(t, []string{"17.01"}, lot.AllowedMaterialCodes)
}
