package draft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/minefleet-dispatch/internal/fleet"
	"github.com/nurpe/minefleet-dispatch/internal/model"
)

func testEnv() Env {
	return Env{Catalog: model.Catalog{
		Trucks: []model.Truck{
			{ID: "T1", Code: "DT-01", Capacity: 30, Status: model.EquipmentStandby, IsActive: true},
			{ID: "T2", Code: "DT-02", Capacity: 30, Status: model.EquipmentStandby, IsActive: true},
			{ID: "T3", Code: "DT-03", Capacity: 40, Status: model.EquipmentStandby, IsActive: true},
		},
		Excavators: []model.Excavator{
			{ID: "E1", Code: "EX-01", Status: model.EquipmentActive, IsActive: true},
		},
		Operators: []model.Operator{
			{ID: "O1", EmployeeNumber: "EMP-1", LicenseType: model.LicenseSIMB1, Status: model.OperatorActive},
			{ID: "O2", EmployeeNumber: "EMP-2", LicenseType: model.LicenseSIMB2, Status: model.OperatorActive},
			{ID: "O3", EmployeeNumber: "EMP-3", LicenseType: model.LicenseSIMA, Status: model.OperatorActive},
			{ID: "X1", EmployeeNumber: "EMP-4", LicenseType: model.LicenseOperatorAlatBerat, Status: model.OperatorActive},
			{ID: "X2", EmployeeNumber: "EMP-5", LicenseType: model.LicenseOperatorAlatBerat, Status: model.OperatorActive},
		},
		MiningSites: []model.MiningSite{{ID: "S1", Name: "North Pit", IsActive: true}, {ID: "S2", Name: "Empty", IsActive: true}},
		LoadingPoints: []model.LoadingPoint{
			{ID: "LP1", Name: "Front A", MiningSiteID: "S1", IsActive: true},
			{ID: "LP2", Name: "Front B", MiningSiteID: "S1", IsActive: true},
		},
		DumpingPoints: []model.DumpingPoint{
			{ID: "DP1", Name: "ROM", MiningSiteID: "S1", IsActive: true},
		},
		RoadSegments: []model.RoadSegment{
			{ID: "R1", Name: "Main haul", MiningSiteID: "S1", Distance: 4.5, RoadCondition: model.RoadGood, IsActive: true},
		},
	}}
}

func siteDraft(env Env) Draft {
	return New(Header{Shift: model.Shift1}, Defaults{}).SelectSite(env.Catalog, "S1")
}

func ptr(v float64) *float64 { return &v }

func TestAddItemRequiresSite(t *testing.T) {
	_, _, err := New(Header{}, Defaults{}).AddItem(testEnv())
	assert.ErrorIs(t, err, ErrSiteRequired)
}

func TestAddItemRequiresLocations(t *testing.T) {
	env := testEnv()
	d := New(Header{}, Defaults{}).SelectSite(env.Catalog, "S2")

	_, _, err := d.AddItem(env)
	assert.ErrorIs(t, err, ErrNoLoadingPoint)

	env.Catalog.LoadingPoints = append(env.Catalog.LoadingPoints, model.LoadingPoint{ID: "LP9", MiningSiteID: "S2", IsActive: true})
	_, _, err = d.AddItem(env)
	assert.ErrorIs(t, err, ErrNoDumpingPoint)
}

func TestAddItemPicksUnusedDefaults(t *testing.T) {
	env := testEnv()
	d := siteDraft(env)

	d, first, err := d.AddItem(env)
	require.NoError(t, err)
	d, second, err := d.AddItem(env)
	require.NoError(t, err)

	assert.Equal(t, "T1", first.TruckID)
	assert.Equal(t, "T2", second.TruckID)
	assert.Equal(t, "O1", first.TruckOperatorID)
	assert.Equal(t, "O2", second.TruckOperatorID)
	assert.Equal(t, "X1", first.ExcavatorOperatorID)
	assert.Equal(t, "X2", second.ExcavatorOperatorID)
	assert.Equal(t, "LP1", first.LoadingPointID)
	assert.Equal(t, "LP2", second.LoadingPointID)
	assert.Equal(t, "DT-01", first.TruckCode)
	assert.Equal(t, 4.5, first.Distance)
	assert.Equal(t, model.HaulingLoading, first.Status)
	assert.Equal(t, 30.0, first.TargetWeight)
	assert.Len(t, d.Items, 2)
}

func TestAddItemSkipsBusyTruck(t *testing.T) {
	env := testEnv()
	env.Busy = fleet.Assignments([]model.HaulingActivity{
		{ID: "A1", TruckID: "T1", OperatorID: "O1", Status: model.HaulingHauling},
	})

	_, item, err := siteDraft(env).AddItem(env)
	require.NoError(t, err)
	assert.Equal(t, "T2", item.TruckID)
	assert.Equal(t, "O2", item.TruckOperatorID)
}

func TestTargetWeightConservation(t *testing.T) {
	env := testEnv()
	d := siteDraft(env).SetTotalTarget(300)

	var err error
	for i := 0; i < 3; i++ {
		d, _, err = d.AddItem(env)
		require.NoError(t, err)
	}

	for _, item := range d.Items {
		assert.InDelta(t, 100.0, item.TargetWeight, 1e-9)
	}
	assert.InDelta(t, 300.0, d.TotalTargetWeight(), 1e-9)
}

func TestTwoItemsSplitTarget(t *testing.T) {
	env := testEnv()
	d := siteDraft(env).SetTotalTarget(300)
	d, _, _ = d.AddItem(env)
	d, _, _ = d.AddItem(env)

	assert.Equal(t, 150.0, d.Items[0].TargetWeight)
	assert.Equal(t, 150.0, d.Items[1].TargetWeight)
}

func TestManualTargetKeptUntilNextAdd(t *testing.T) {
	env := testEnv()
	d := siteDraft(env).SetTotalTarget(200)
	d, first, _ := d.AddItem(env)
	d, _, _ = d.AddItem(env)

	d, _, err := d.UpdateItem(env, first.TempID, FieldTargetWeight, "120")
	require.NoError(t, err)
	assert.Equal(t, 120.0, d.Items[0].TargetWeight)
	assert.Equal(t, 100.0, d.Items[1].TargetWeight)

	d, _, _ = d.AddItem(env)
	for _, item := range d.Items {
		assert.InDelta(t, 200.0/3, item.TargetWeight, 1e-9)
	}
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	env := testEnv()
	base := siteDraft(env)
	base, item, _ := base.AddItem(env)

	next, _, err := base.UpdateItem(env, item.TempID, FieldLoadWeight, "12")
	require.NoError(t, err)

	assert.Nil(t, base.Items[0].LoadWeight)
	require.NotNil(t, next.Items[0].LoadWeight)
	assert.Equal(t, 12.0, *next.Items[0].LoadWeight)
}

func TestLoadWeightAutoCompletesNewItem(t *testing.T) {
	env := testEnv()
	d, item, _ := siteDraft(env).AddItem(env)

	d, effects, err := d.UpdateItem(env, item.TempID, FieldLoadWeight, "31")
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, model.HaulingCompleted, d.Items[0].Status)
}

func existingActivity() model.HaulingActivity {
	return model.HaulingActivity{
		ID:             "A9",
		ActivityNumber: "HA-20240301-004",
		TruckID:        "T3",
		OperatorID:     "O3",
		LoadingPointID: "LP1",
		DumpingPointID: "DP1",
		Status:         model.HaulingHauling,
		TargetWeight:   30,
		Distance:       5,
	}
}

func TestExistingItemQuickUpdateIsIdempotent(t *testing.T) {
	env := testEnv()
	d, item, err := New(Header{}, Defaults{}).AddExisting(env, existingActivity())
	require.NoError(t, err)
	assert.Equal(t, "S1", d.Header.MiningSiteID)
	assert.Equal(t, "DT-03", item.TruckCode)

	d, effects, err := d.UpdateItem(env, item.TempID, FieldLoadWeight, "30")
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectQuickUpdate, effects[0].Kind)
	assert.Equal(t, "A9", effects[0].ActivityID)
	require.NotNil(t, effects[0].QuickUpdate.LoadWeight)
	assert.Equal(t, 30.0, *effects[0].QuickUpdate.LoadWeight)
	require.NotNil(t, effects[0].QuickUpdate.Status)
	assert.Equal(t, model.HaulingCompleted, *effects[0].QuickUpdate.Status)
	assert.Equal(t, model.HaulingCompleted, d.Items[0].Status)

	again, effects, err := d.UpdateItem(env, item.TempID, FieldLoadWeight, "30")
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, d.Items, again.Items)
}

func TestAddExistingTwiceIsNoop(t *testing.T) {
	env := testEnv()
	d, _, _ := New(Header{}, Defaults{}).AddExisting(env, existingActivity())
	d, _, err := d.AddExisting(env, existingActivity())
	require.NoError(t, err)
	assert.Len(t, d.Items, 1)
}

func TestClearingExcavatorClearsOperator(t *testing.T) {
	env := testEnv()
	d, item, _ := siteDraft(env).AddItem(env)
	require.Equal(t, "X1", item.ExcavatorOperatorID)

	d, _, err := d.UpdateItem(env, item.TempID, FieldExcavator, "")
	require.NoError(t, err)
	assert.Empty(t, d.Items[0].ExcavatorID)
	assert.Empty(t, d.Items[0].ExcavatorOperatorID)

	d, _, err = d.UpdateItem(env, item.TempID, FieldExcavator, "E1")
	require.NoError(t, err)
	assert.Equal(t, "X1", d.Items[0].ExcavatorOperatorID)
}

func TestUpdateItemRejectsBadInput(t *testing.T) {
	env := testEnv()
	d, item, _ := siteDraft(env).AddItem(env)

	_, _, err := d.UpdateItem(env, item.TempID, FieldLoadWeight, "abc")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, _, err = d.UpdateItem(env, item.TempID, FieldStatus, "FLYING")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, _, err = d.UpdateItem(env, item.TempID, Field("colour"), "red")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, _, err = d.UpdateItem(env, "missing", FieldStatus, "LOADING")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveNewItemRedistributes(t *testing.T) {
	env := testEnv()
	d := siteDraft(env).SetTotalTarget(90)
	d, first, _ := d.AddItem(env)
	d, _, _ = d.AddItem(env)
	d, _, _ = d.AddItem(env)

	d, effects, err := d.RemoveItem(first.TempID)
	require.NoError(t, err)
	assert.Empty(t, effects)
	require.Len(t, d.Items, 2)
	assert.Equal(t, 45.0, d.Items[0].TargetWeight)
}

func TestRemoveExistingItemNeedsConfirmation(t *testing.T) {
	env := testEnv()
	d, existing, _ := New(Header{}, Defaults{}).AddExisting(env, existingActivity())
	d, _, _ = d.AddItem(env)

	next, effects, err := d.RemoveItem(existing.TempID)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectDelete, effects[0].Kind)
	assert.Len(t, next.Items, 2)

	next = next.ConfirmRemoved(existing.TempID)
	assert.Len(t, next.Items, 1)
}

func TestRemoveLastExistingInEditMode(t *testing.T) {
	env := testEnv()
	d := New(Header{ProductionID: "P1"}, Defaults{})
	assert.Equal(t, model.AllocationManualEdit, d.Header.Source)

	d, existing, _ := d.AddExisting(env, existingActivity())
	_, _, err := d.RemoveItem(existing.TempID)
	assert.ErrorIs(t, err, ErrLastExistingItem)
}

func TestMarkSyncedUpdatesBaseline(t *testing.T) {
	env := testEnv()
	d, item, _ := New(Header{}, Defaults{}).AddExisting(env, existingActivity())
	status := model.HaulingCompleted

	d = d.MarkSynced(item.TempID, model.QuickUpdate{LoadWeight: ptr(31), Status: &status})

	require.NotNil(t, d.Items[0].Baseline.LoadWeight)
	assert.Equal(t, 31.0, *d.Items[0].Baseline.LoadWeight)
	assert.Equal(t, model.HaulingCompleted, d.Items[0].Baseline.Status)
}

func TestMarkSyncedDropsTypedActual(t *testing.T) {
	env := testEnv()
	d, item, _ := New(Header{}, Defaults{}).AddExisting(env, existingActivity())
	d = d.SetActualProduction(20)
	require.True(t, d.Header.ActualEntered)

	d = d.MarkSynced(item.TempID, model.QuickUpdate{LoadWeight: ptr(31)})

	assert.False(t, d.Header.ActualEntered)
	assert.Equal(t, 20.0, d.Header.ActualProduction)
}

func TestMarkPersistedTakesBaselineFromBackend(t *testing.T) {
	env := testEnv()
	d, added, err := New(Header{Shift: model.Shift1}, Defaults{TargetWeight: 30}).SelectSite(env.Catalog, "S1").AddItem(env)
	require.NoError(t, err)
	d, _, err = d.UpdateItem(env, added.TempID, FieldLoadWeight, "30")
	require.NoError(t, err)
	require.Equal(t, model.HaulingCompleted, d.Items[0].Status)

	d = d.MarkPersisted(added.TempID, model.HaulingActivity{ID: "H1", ActivityNumber: "HA-20240301-001", Status: model.HaulingLoading})

	item := d.Items[0]
	assert.True(t, item.IsExisting)
	assert.Equal(t, "H1", item.ActivityID)
	assert.Equal(t, model.HaulingCompleted, item.Status)
	require.NotNil(t, item.Baseline)
	assert.Equal(t, model.HaulingLoading, item.Baseline.Status)
	assert.Nil(t, item.Baseline.LoadWeight)
}

func TestResetKeepsDefaults(t *testing.T) {
	env := testEnv()
	d := New(Header{}, Defaults{TargetWeight: 25}).SelectSite(env.Catalog, "S1").SetRecordDate(time.Date(2024, 3, 1, 15, 0, 0, 0, time.Local))
	d, _, _ = d.AddItem(env)

	reset := d.Reset()
	assert.Empty(t, reset.Items)
	assert.Empty(t, reset.Header.MiningSiteID)
	assert.Equal(t, 25.0, reset.Defaults.TargetWeight)
	assert.Equal(t, 0, d.Header.RecordDate.Hour())
}

func TestSelectSiteDerivesContext(t *testing.T) {
	env := testEnv()
	d := siteDraft(env)

	assert.Equal(t, 4.5, d.Header.HaulDistance)
	assert.Equal(t, model.RoadGood, d.Header.RoadCondition)
	assert.Equal(t, model.RiskLow, d.Header.RiskLevel)
}
