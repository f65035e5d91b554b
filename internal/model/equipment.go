package model

type EquipmentStatus string

const (
	EquipmentIdle        EquipmentStatus = "IDLE"
	EquipmentStandby     EquipmentStatus = "STANDBY"
	EquipmentActive      EquipmentStatus = "ACTIVE"
	EquipmentLoading     EquipmentStatus = "LOADING"
	EquipmentHauling     EquipmentStatus = "HAULING"
	EquipmentDumping     EquipmentStatus = "DUMPING"
	EquipmentInQueue     EquipmentStatus = "IN_QUEUE"
	EquipmentMaintenance EquipmentStatus = "MAINTENANCE"
	EquipmentBreakdown   EquipmentStatus = "BREAKDOWN"
	EquipmentInactive    EquipmentStatus = "INACTIVE"
)

type Truck struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name,omitempty"`
	Model           string          `json:"model,omitempty"`
	Capacity        float64         `json:"capacity"`
	FuelConsumption float64         `json:"fuelConsumption,omitempty"`
	AverageSpeed    float64         `json:"averageSpeed,omitempty"`
	Status          EquipmentStatus `json:"status"`
	IsActive        bool            `json:"isActive"`
	MiningSiteID    string          `json:"miningSiteId,omitempty"`
}

type Excavator struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name,omitempty"`
	Model          string          `json:"model,omitempty"`
	ProductionRate float64         `json:"productionRate"`
	BucketCapacity float64         `json:"bucketCapacity,omitempty"`
	Status         EquipmentStatus `json:"status"`
	IsActive       bool            `json:"isActive"`
	MiningSiteID   string          `json:"miningSiteId,omitempty"`
}
