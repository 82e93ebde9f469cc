package service

import "github.com/godbus/dbus/v5"

// Bus identity and object layout.
const (
	BusName          = "dev.nabeeladzan.lxfu"
	ManagerInterface = "dev.nabeeladzan.lxfu.Manager"
	DeviceInterface  = "dev.nabeeladzan.lxfu.Device"
)

var (
	ManagerPath = dbus.ObjectPath("/dev/nabeeladzan/lxfu")
	DevicePath  = dbus.ObjectPath("/dev/nabeeladzan/lxfu/Device0")
)

// SignalVerificationStatus carries (run_id, status, detail) strings.
const SignalVerificationStatus = DeviceInterface + ".VerificationStatus"

// SignalDeviceListChanged announces changes to the set of device objects.
// With a single fixed device it is declared but never emitted.
const SignalDeviceListChanged = ManagerInterface + ".DeviceListChanged"

// D-Bus error names returned by device methods. Driving an unclaimed
// device is a permission error, same as driving someone else's claim.
const (
	errNameBusy              = DeviceInterface + ".Error.Busy"
	errNamePermissionDenied  = DeviceInterface + ".Error.PermissionDenied"
	errNameAlreadyInProgress = DeviceInterface + ".Error.AlreadyInProgress"
)

func newDBusError(name, message string) *dbus.Error {
	return dbus.NewError(name, []interface{}{message})
}
