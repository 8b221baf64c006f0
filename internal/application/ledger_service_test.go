package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slspinola/bee2waste-sub002/internal/domain"
)

type fakeProjection struct {
	stocks map[string]float64
}

func newFakeProjection() *fakeProjection {
	return &fakeProjection{stocks: make(map[string]float64)}
}

func (p *fakeProjection) Stock(_ context.Context, zoneID string) (float64, error) {
	return p.stocks[zoneID], nil
}

func (p *fakeProjection) Set(_ context.Context, zoneID string, stockKg float64) error {
	p.stocks[zoneID] = stockKg
	return nil
}

type ledgerFixture struct {
	service    *LedgerService
	zones      *fakeZoneRepo
	movements  *fakeMovementRepo
	projection *fakeProjection
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		zones:      newFakeZoneRepo(),
		movements:  &fakeMovementRepo{},
		projection: newFakeProjection(),
	}
	f.service = NewLedgerService(f.movements, f.zones, f.projection, nil, testLogger())
	return f
}

func (f *ledgerFixture) addZone(t *testing.T, zoneID, zoneCode string) {
	t.Helper()
	z, err := domain.NewStorageZone(zoneID, zoneCode, "park-1", nil)
	require.NoError(t, err)
	require.NoError(t, f.zones.Save(context.Background(), z))
}

func (f *ledgerFixture) post(t *testing.T, zoneID string, kind domain.MovementKind, deltaKg float64) {
	t.Helper()
	m, err := domain.NewStockMovement("mov-"+zoneID+"-"+string(kind), "park-1", zoneID, "lot-1", "",
		"17.01", kind, deltaKg, "", "op-1")
	require.NoError(t, err)
	require.NoError(t, f.movements.Post(context.Background(), m))
}

func TestReconcileBalancedPark(t *testing.T) {
	f := newLedgerFixture(t)
	f.addZone(t, "zone-1", "Z1")
	f.addZone(t, "zone-2", "Z2")
	f.post(t, "zone-1", domain.MovementKindEntry, 2000)
	f.post(t, "zone-1", domain.MovementKindExit, -500)
	f.projection.stocks["zone-1"] = 1500
	f.projection.stocks["zone-2"] = 0

	report, err := f.service.Reconcile(context.Background(), "park-1")

	require.NoError(t, err)
	assert.True(t, report.Balanced())
	assert.Equal(t, 2, report.ZonesChecked)
}

func TestReconcileReportsImbalanceWithoutPatching(t *testing.T) {
	f := newLedgerFixture(t)
	f.addZone(t, "zone-1", "Z1")
	f.post(t, "zone-1", domain.MovementKindEntry, 2000)
	f.projection.stocks["zone-1"] = 1700 // drifted counter

	report, err := f.service.Reconcile(context.Background(), "park-1")

	require.NoError(t, err)
	assert.False(t, report.Balanced())
	require.Len(t, report.Imbalances, 1)
	assert.Equal(t, "zone-1", report.Imbalances[0].ZoneID)
	assert.Equal(t, 2000.0, report.Imbalances[0].LedgerKg)
	assert.Equal(t, 1700.0, report.Imbalances[0].ProjectedKg)
	assert.Equal(t, 1700.0, f.projection.stocks["zone-1"], "reconciliation never writes the projection")
}

func TestRebuildProjectionFromLedger(t *testing.T) {
	f := newLedgerFixture(t)
	f.post(t, "zone-1", domain.MovementKindEntry, 2000)
	f.post(t, "zone-1", domain.MovementKindTransferOut, -300)
	f.projection.stocks["zone-1"] = 9999

	stock, err := f.service.RebuildProjection(context.Background(), "zone-1")

	require.NoError(t, err)
	assert.Equal(t, 1700.0, stock)
	assert.Equal(t, 1700.0, f.projection.stocks["zone-1"])
}

func TestZoneAndLotStockQueries(t *testing.T) {
	f := newLedgerFixture(t)
	f.post(t, "zone-1", domain.MovementKindEntry, 1200)
	f.post(t, "zone-1", domain.MovementKindAdjustment, -200)

	zoneStock, err := f.service.ZoneStock(context.Background(), "zone-1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, zoneStock)

	lotStock, err := f.service.LotStock(context.Background(), "lot-1")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, lotStock)

	movements, err := f.service.ZoneMovements(context.Background(), "zone-1", domain.Pagination{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, movements, 2)
}
