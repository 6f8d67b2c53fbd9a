package models

import "strings"

// VehicleKind тип летательного аппарата
type VehicleKind string

const (
	VehicleCopter  VehicleKind = "Copter"
	VehiclePlane   VehicleKind = "Plane"
	VehicleRover   VehicleKind = "Rover"
	VehicleTracker VehicleKind = "Tracker"
	VehicleUnknown VehicleKind = "Unknown"
)

// ParseVehicleKind распознает тип аппарата по строке из лога
func ParseVehicleKind(s string) VehicleKind {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return VehicleUnknown
	case strings.Contains(v, "tracker"):
		return VehicleTracker
	case strings.Contains(v, "copter"), strings.Contains(v, "multirotor"),
		strings.Contains(v, "heli"), strings.Contains(v, "quad"), strings.Contains(v, "hexa"),
		strings.Contains(v, "octo"):
		return VehicleCopter
	case strings.Contains(v, "plane"), strings.Contains(v, "fixed"), strings.Contains(v, "wing"),
		strings.Contains(v, "vtol"):
		return VehiclePlane
	case strings.Contains(v, "rover"), strings.Contains(v, "boat"), strings.Contains(v, "car"):
		return VehicleRover
	default:
		return VehicleUnknown
	}
}

// String возвращает строковое представление
func (v VehicleKind) String() string {
	if v == "" {
		return string(VehicleUnknown)
	}
	return string(v)
}
