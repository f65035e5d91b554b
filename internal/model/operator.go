package model

import "strings"

type LicenseType string

const (
	LicenseSIMA              LicenseType = "SIM_A"
	LicenseSIMB1             LicenseType = "SIM_B1"
	LicenseSIMB2             LicenseType = "SIM_B2"
	LicenseOperatorAlatBerat LicenseType = "OPERATOR_ALAT_BERAT"
)

type OperatorStatus string

const (
	OperatorActive   OperatorStatus = "ACTIVE"
	OperatorOnLeave  OperatorStatus = "ON_LEAVE"
	OperatorSick     OperatorStatus = "SICK"
	OperatorInactive OperatorStatus = "INACTIVE"
)

type Shift string

const (
	Shift1 Shift = "SHIFT_1"
	Shift2 Shift = "SHIFT_2"
	Shift3 Shift = "SHIFT_3"
)

// ParseShift accepts the canonical values plus the legacy PAGI/SIANG/MALAM labels.
func ParseShift(raw string) (Shift, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SHIFT_1", "PAGI":
		return Shift1, true
	case "SHIFT_2", "SIANG":
		return Shift2, true
	case "SHIFT_3", "MALAM":
		return Shift3, true
	default:
		return "", false
	}
}

type OperatorUser struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

type Operator struct {
	ID             string         `json:"id"`
	EmployeeNumber string         `json:"employeeNumber"`
	LicenseType    LicenseType    `json:"licenseType"`
	Shift          Shift          `json:"shift,omitempty"`
	Status         OperatorStatus `json:"status"`
	User           *OperatorUser  `json:"user,omitempty"`
}

func (o Operator) CanDriveTruck() bool {
	switch o.LicenseType {
	case LicenseSIMA, LicenseSIMB1, LicenseSIMB2:
		return true
	default:
		return false
	}
}

func (o Operator) CanOperateExcavator() bool {
	return o.LicenseType == LicenseOperatorAlatBerat
}

// DisplayName falls back from the user's full name to the employee number, then the id.
func (o Operator) DisplayName() string {
	if o.User != nil && strings.TrimSpace(o.User.FullName) != "" {
		return o.User.FullName
	}
	if o.EmployeeNumber != "" {
		return o.EmployeeNumber
	}
	return o.ID
}
