package samsungcac

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// CurrentTempOffset is subtracted from the raw AC_FUN_TEMPNOW reading.
// The controller reports room temperature 55 degrees too high.
const CurrentTempOffset = 55

// Attribute IDs used on the wire.
const (
	AttrCurrentTemp = "AC_FUN_TEMPNOW"
	AttrTargetTemp  = "AC_FUN_TEMPSET"
	AttrPower       = "AC_FUN_POWER"
	AttrOpMode      = "AC_FUN_OPMODE"
	AttrFanSpeed    = "AC_FUN_WINDLEVEL"
	AttrFan         = "AC_FUN_FAN"
)

// PowerMode is the value of AC_FUN_POWER.
type PowerMode string

const (
	PowerOn      PowerMode = "On"
	PowerOff     PowerMode = "Off"
	PowerUnknown PowerMode = "Unknown"
)

// OperationMode is the value of AC_FUN_OPMODE.
type OperationMode string

const (
	OperationAuto    OperationMode = "Auto"
	OperationCool    OperationMode = "Cool"
	OperationHeat    OperationMode = "Heat"
	OperationDry     OperationMode = "Dry"
	OperationUnknown OperationMode = "Unknown"
)

// FanMode is the value of AC_FUN_FAN.
type FanMode string

const (
	FanOn      FanMode = "On"
	FanOff     FanMode = "Off"
	FanUnknown FanMode = "Unknown"
)

// FanSpeed is the value of AC_FUN_WINDLEVEL.
type FanSpeed string

const (
	FanSpeedAuto    FanSpeed = "Auto"
	FanSpeedLow     FanSpeed = "Low"
	FanSpeedMid     FanSpeed = "Mid"
	FanSpeedHigh    FanSpeed = "High"
	FanSpeedTurbo   FanSpeed = "Turbo"
	FanSpeedUnknown FanSpeed = "Unknown"
)

// Attribute is one ID/Type/Value triple as received from the controller.
type Attribute struct {
	ID    string `xml:"ID,attr"`
	Type  string `xml:"Type,attr,omitempty"`
	Value string `xml:"Value,attr"`
}

// DeviceState is the last known state of an air conditioner.
// A nil field has never been reported.
type DeviceState struct {
	Power              *PowerMode
	Operation          *OperationMode
	Fan                *FanMode
	FanSpeed           *FanSpeed
	CurrentTemperature *float64
	TargetTemperature  *float64
}

// Apply merges attrs into s. Fields without a matching attribute keep
// their previous value and unknown attribute IDs are ignored, as are
// temperatures that are not finite numbers.
func (s *DeviceState) Apply(attrs []Attribute) {
	for _, a := range attrs {
		switch a.ID {
		case AttrCurrentTemp:
			if v, ok := parseTemperature(a.Value); ok {
				v -= CurrentTempOffset
				s.CurrentTemperature = &v
			}
		case AttrTargetTemp:
			if v, ok := parseTemperature(a.Value); ok {
				s.TargetTemperature = &v
			}
		case AttrPower:
			v := PowerMode(a.Value)
			s.Power = &v
		case AttrOpMode:
			v := OperationMode(a.Value)
			s.Operation = &v
		case AttrFanSpeed:
			v := FanSpeed(a.Value)
			s.FanSpeed = &v
		case AttrFan:
			v := FanMode(a.Value)
			s.Fan = &v
		}
	}
}

func parseTemperature(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Device is an air conditioner known to the controller.
type Device struct {
	ID    string
	Group string
	Model string

	mu    sync.RWMutex
	state DeviceState
}

// NewDevice returns a device with an empty state.
func NewDevice(id, group, model string) *Device {
	return &Device{ID: id, Group: group, Model: model}
}

// State returns a copy of the device state.
func (d *Device) State() DeviceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Device) apply(attrs []Attribute) {
	d.mu.Lock()
	d.state.Apply(attrs)
	d.mu.Unlock()
}
