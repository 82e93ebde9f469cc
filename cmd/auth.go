package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/nabeeladzan/lxfu/internal/service"
	"github.com/nabeeladzan/lxfu/internal/verify"
)

// Exit codes consumed by pam_exec.
const (
	authExitMatch       = 0
	authExitNoMatch     = 1
	authExitUnavailable = 2
)

var authCmd = &cobra.Command{
	Use:   "auth <user>",
	Short: "Verify a user through the running service (PAM helper)",
	Long: `Ask the lxfu service to verify the given user's face and report the
result through the exit code: 0 on a match, 1 when the face does not
match or no face was seen, 2 when the service is unavailable.

Wire it into PAM with pam_exec:
  auth sufficient pam_exec.so quiet /usr/bin/lxfu auth ${PAM_USER}`,
	Args: cobra.ExactArgs(1),
	Run:  runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.Flags().Duration("timeout", 15*time.Second, "Give up after this long")
	authCmd.Flags().Bool("session", false, "Use the session bus instead of the system bus")
}

func runAuth(cmd *cobra.Command, args []string) {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		panic(fmt.Sprintf("flag error for --timeout: %v", err))
	}
	os.Exit(authenticate(args[0], mustGetBool(cmd, "session"), timeout))
}

func authenticate(user string, useSessionBus bool, timeout time.Duration) int {
	conn, err := connectBus(useSessionBus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lxfu: %v\n", err)
		return authExitUnavailable
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(service.DevicePath),
		dbus.WithMatchInterface(service.DeviceInterface),
		dbus.WithMatchMember("VerificationStatus"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "lxfu: failed to subscribe to signals: %v\n", err)
		return authExitUnavailable
	}
	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	dev := conn.Object(service.BusName, service.DevicePath)
	if call := dev.Call(service.DeviceInterface+".Claim", 0); call.Err != nil {
		fmt.Fprintf(os.Stderr, "lxfu: failed to claim device: %v\n", call.Err)
		return authExitUnavailable
	}
	defer dev.Call(service.DeviceInterface+".Release", 0)

	var runID string
	if err := dev.Call(service.DeviceInterface+".VerifyStart", 0, user).Store(&runID); err != nil {
		fmt.Fprintf(os.Stderr, "lxfu: failed to start verification: %v\n", err)
		return authExitUnavailable
	}

	deadline := time.After(timeout)
	for {
		select {
		case sig := <-signals:
			if sig == nil || sig.Name != service.SignalVerificationStatus || len(sig.Body) < 3 {
				continue
			}
			id, _ := sig.Body[0].(string)
			status, _ := sig.Body[1].(string)
			detail, _ := sig.Body[2].(string)
			if id != runID || verify.Status(status) == verify.StatusStarted {
				continue
			}

			switch verify.Status(status) {
			case verify.StatusMatch:
				fmt.Fprintf(os.Stderr, "lxfu: match %s\n", detail)
				return authExitMatch
			case verify.StatusNoMatch, verify.StatusNoFace, verify.StatusCancelled:
				fmt.Fprintf(os.Stderr, "lxfu: %s\n", status)
				return authExitNoMatch
			default:
				fmt.Fprintf(os.Stderr, "lxfu: verification error: %s\n", detail)
				return authExitUnavailable
			}
		case <-deadline:
			dev.Call(service.DeviceInterface+".VerifyStop", 0)
			fmt.Fprintln(os.Stderr, "lxfu: verification timed out")
			return authExitNoMatch
		}
	}
}

func connectBus(useSessionBus bool) (*dbus.Conn, error) {
	if useSessionBus {
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to session bus: %w", err)
		}
		return conn, nil
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return conn, nil
}
