package service

import (
	"context"
	"errors"

	"github.com/godbus/dbus/v5"

	"github.com/nabeeladzan/lxfu/internal/nameutil"
	"github.com/nabeeladzan/lxfu/internal/verify"
)

// manager is the root bus object. It exists so clients can discover the
// device path without hardcoding it.
type manager struct{}

func (manager) GetDefaultDevice() (dbus.ObjectPath, *dbus.Error) {
	return DevicePath, nil
}

// device exports the verification session on the bus. The claiming sender
// becomes the owner; only the owner may drive verification.
type device struct {
	session      *verify.Session
	profileNames func() ([]string, error)
}

func (d *device) Claim(sender dbus.Sender) *dbus.Error {
	if err := d.session.Claim(string(sender)); err != nil {
		return newDBusError(errNameBusy, err.Error())
	}
	return nil
}

func (d *device) Release(sender dbus.Sender) *dbus.Error {
	if derr := d.checkOwner(sender); derr != nil {
		return derr
	}
	d.session.Release()
	return nil
}

// VerifyStart begins a verification run. Mode "any" or an empty string
// matches against every enrolled profile; any other value names the target
// profile.
func (d *device) VerifyStart(sender dbus.Sender, mode string) (string, *dbus.Error) {
	if derr := d.checkOwner(sender); derr != nil {
		return "", derr
	}

	allowAll := mode == "" || mode == "any"
	target := mode
	if !allowAll {
		if names, err := d.profileNames(); err == nil {
			if resolved, ok := nameutil.Resolve(mode, names); ok {
				target = resolved
			}
		}
	}

	runID, err := d.session.VerifyStart(context.Background(), target, allowAll)
	switch {
	case errors.Is(err, verify.ErrNotClaimed):
		return "", newDBusError(errNamePermissionDenied, err.Error())
	case errors.Is(err, verify.ErrAlreadyRunning):
		return "", newDBusError(errNameAlreadyInProgress, err.Error())
	case err != nil:
		return "", newDBusError(errNameBusy, err.Error())
	}
	return runID, nil
}

func (d *device) VerifyStop(sender dbus.Sender) *dbus.Error {
	if derr := d.checkOwner(sender); derr != nil {
		return derr
	}
	d.session.VerifyStop()
	return nil
}

func (d *device) checkOwner(sender dbus.Sender) *dbus.Error {
	owner := d.session.Owner()
	if owner != "" && owner != string(sender) {
		return newDBusError(errNamePermissionDenied, "device is claimed by another client")
	}
	return nil
}
