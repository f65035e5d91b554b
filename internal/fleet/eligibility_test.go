package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

func testCatalog() model.Catalog {
	return model.Catalog{
		Trucks: []model.Truck{
			{ID: "T1", Code: "DT-01", Status: model.EquipmentStandby, IsActive: true},
			{ID: "T2", Code: "DT-02", Status: model.EquipmentStandby, IsActive: true},
			{ID: "T3", Code: "DT-03", Status: model.EquipmentMaintenance, IsActive: true},
			{ID: "T4", Code: "DT-04", Status: model.EquipmentStandby, IsActive: false},
		},
		Excavators: []model.Excavator{
			{ID: "E1", Code: "EX-01", Status: model.EquipmentActive, IsActive: true},
			{ID: "E2", Code: "EX-02", Status: model.EquipmentIdle, IsActive: true},
			{ID: "E3", Code: "EX-03", Status: model.EquipmentBreakdown, IsActive: true},
		},
		Operators: []model.Operator{
			{ID: "O1", LicenseType: model.LicenseSIMB1, Shift: model.Shift1, Status: model.OperatorActive},
			{ID: "O2", LicenseType: model.LicenseSIMB2, Shift: model.Shift2, Status: model.OperatorActive},
			{ID: "O3", LicenseType: model.LicenseSIMA, Status: model.OperatorActive},
			{ID: "O4", LicenseType: model.LicenseOperatorAlatBerat, Shift: model.Shift1, Status: model.OperatorActive},
			{ID: "O5", LicenseType: model.LicenseSIMB1, Shift: model.Shift1, Status: model.OperatorOnLeave},
		},
	}
}

func truckIDs(trucks []model.Truck) []string {
	ids := make([]string, 0, len(trucks))
	for _, t := range trucks {
		ids = append(ids, t.ID)
	}
	return ids
}

func operatorIDs(ops []model.Operator) []string {
	ids := make([]string, 0, len(ops))
	for _, o := range ops {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestFilterStandbyOnly(t *testing.T) {
	pools := Filter(Input{Catalog: testCatalog(), Shift: model.Shift1})

	assert.Equal(t, []string{"T1", "T2"}, truckIDs(pools.Trucks))
	require.Len(t, pools.Excavators, 2)
	assert.Equal(t, "E1", pools.Excavators[0].ID)
	assert.Equal(t, "E2", pools.Excavators[1].ID)
	assert.Equal(t, []string{"O1", "O3"}, operatorIDs(pools.TruckOperators))
	assert.Equal(t, []string{"O4"}, operatorIDs(pools.ExcavatorOperators))
	assert.Equal(t, FallbackNone, pools.TruckOperatorFallback)
}

func TestFilterExcludesBusy(t *testing.T) {
	busy := Assignments([]model.HaulingActivity{
		{ID: "A1", ActivityNumber: "HA-20240101-001", TruckID: "T1", OperatorID: "O1", Status: model.HaulingHauling},
		{ID: "A2", TruckID: "T2", OperatorID: "O3", Status: model.HaulingCompleted},
	})

	pools := Filter(Input{Catalog: testCatalog(), Busy: busy, Shift: model.Shift1})

	assert.Equal(t, []string{"T2"}, truckIDs(pools.Trucks))
	assert.Equal(t, []string{"O3"}, operatorIDs(pools.TruckOperators))
}

func TestFilterKeepsSelected(t *testing.T) {
	busy := Assignments([]model.HaulingActivity{
		{ID: "A1", TruckID: "T1", OperatorID: "O1", Status: model.HaulingLoading},
	})

	pools := Filter(Input{
		Catalog:  testCatalog(),
		Busy:     busy,
		Shift:    model.Shift1,
		Selected: Selection{TruckID: "T3", TruckOperatorID: "O5", ExcavatorID: "E3"},
	})

	assert.Contains(t, truckIDs(pools.Trucks), "T3")
	assert.NotContains(t, truckIDs(pools.Trucks), "T1")
	assert.Contains(t, operatorIDs(pools.TruckOperators), "O5")
	assert.Len(t, pools.Excavators, 3)
}

func TestFilterExcludedActivityReleasesResources(t *testing.T) {
	activities := []model.HaulingActivity{
		{ID: "A1", TruckID: "T1", OperatorID: "O1", Status: model.HaulingLoading},
	}

	pools := Filter(Input{Catalog: testCatalog(), Busy: Assignments(activities, "A1"), Shift: model.Shift1})

	assert.Contains(t, truckIDs(pools.Trucks), "T1")
	assert.Contains(t, operatorIDs(pools.TruckOperators), "O1")
}

func TestFilterLicenseFallback(t *testing.T) {
	catalog := testCatalog()
	catalog.Operators = []model.Operator{
		{ID: "O1", LicenseType: model.LicenseSIMB1, Status: model.OperatorActive},
		{ID: "O2", LicenseType: model.LicenseOperatorAlatBerat, Shift: model.Shift2, Status: model.OperatorActive},
	}

	pools := Filter(Input{Catalog: catalog, Shift: model.Shift1})

	assert.Equal(t, []string{"O1"}, operatorIDs(pools.TruckOperators))
	assert.Equal(t, []string{"O2"}, operatorIDs(pools.ExcavatorOperators))
	assert.Equal(t, FallbackAnyShift, pools.ExcavatorOperatorFallback)

	catalog.Operators = catalog.Operators[:1]
	pools = Filter(Input{Catalog: catalog, Shift: model.Shift1})
	assert.Equal(t, []string{"O1"}, operatorIDs(pools.ExcavatorOperators))
	assert.Equal(t, FallbackAnyRole, pools.ExcavatorOperatorFallback)
}

func TestAssignmentsMergesRoles(t *testing.T) {
	busy := Assignments([]model.HaulingActivity{
		{ID: "A1", ActivityNumber: "HA-20240101-001", TruckID: "T1", OperatorID: "O1", ExcavatorOperatorID: "O1", Status: model.HaulingDumping},
		{ID: "A2", TruckID: "T2", OperatorID: "O2", Status: model.HaulingInQueue},
	})

	a, ok := busy.Operator("O1")
	require.True(t, ok)
	assert.Equal(t, "HA-20240101-001", a.Label())
	assert.Equal(t, "Operator & Excavator Operator", a.RoleLabel())

	b, ok := busy.Truck("T2")
	require.True(t, ok)
	assert.Equal(t, "A2", b.Label())

	_, ok = busy.Operator("")
	assert.False(t, ok)
}
