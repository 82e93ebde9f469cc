package service

import (
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/nabeeladzan/lxfu/internal/verify"
)

// busNotifier forwards run statuses as D-Bus signals on the device path.
type busNotifier struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

func (n *busNotifier) VerificationStatus(runID string, status verify.Status, detail string) {
	if err := n.conn.Emit(DevicePath, SignalVerificationStatus, runID, string(status), detail); err != nil {
		n.logger.Error("failed to emit verification status", "run_id", runID, "err", err)
	}
}
