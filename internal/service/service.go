// Package service runs the lxfu daemon: it owns the profile store and the
// capture pipeline and exposes verification over D-Bus, with an optional
// HTTP introspection endpoint.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/nabeeladzan/lxfu/internal/capture"
	"github.com/nabeeladzan/lxfu/internal/config"
	"github.com/nabeeladzan/lxfu/internal/detect"
	"github.com/nabeeladzan/lxfu/internal/embed"
	"github.com/nabeeladzan/lxfu/internal/store"
	"github.com/nabeeladzan/lxfu/internal/verify"
	"github.com/nabeeladzan/lxfu/internal/web"
)

// Options control how the daemon attaches to the outside world.
type Options struct {
	// UseSessionBus attaches to the session bus instead of the system bus.
	UseSessionBus bool

	// HTTPAddr enables the introspection server when non-empty.
	HTTPAddr string
}

// Run starts the daemon and blocks until the context is cancelled.
func Run(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) error {
	st, err := store.Open(cfg.DBPath, store.ReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer st.Close()

	extractor, err := embed.NewExtractor(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to load embedding model: %w", err)
	}
	defer extractor.Close()

	capSession := &capture.Session{
		Source: cfg.Device,
		Open:   func() (capture.Source, error) { return capture.OpenCamera(cfg.Device) },
		Logger: logger,
	}
	// Without a cascade the daemon verifies on whole frames.
	if detector, err := detect.New(cfg.CascadePath); err != nil {
		logger.Warn("face detector unavailable, verifying on full frames", "cascade", cfg.CascadePath, "err", err)
	} else {
		capSession.Faces = detector
	}

	session := &verify.Session{
		Capturer: &verifyCapturer{
			session: capSession,
			opts: capture.Options{
				Warmup:            cfg.WarmupDelay(),
				CaptureDuration:   cfg.CaptureDuration(),
				FrameInterval:     cfg.FrameInterval(),
				FallbackFullFrame: true,
			},
		},
		Extractor: extractor,
		Profiles:  st,
		Threshold: cfg.MatchThreshold,
		Logger:    logger,
	}

	conn, err := connect(opts.UseSessionBus)
	if err != nil {
		return err
	}
	defer conn.Close()
	session.Notifier = &busNotifier{conn: conn, logger: logger}

	if err := export(conn, session, st); err != nil {
		return err
	}

	if opts.HTTPAddr != "" {
		srv := web.NewServer(opts.HTTPAddr, session, st, logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("introspection server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("service ready",
		"bus", BusName,
		"device", cfg.Device,
		"db", cfg.DBPath,
		"threshold", cfg.MatchThreshold,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	session.Release()
	return nil
}

func connect(useSessionBus bool) (*dbus.Conn, error) {
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

func export(conn *dbus.Conn, session *verify.Session, st *store.Store) error {
	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s is already taken", BusName)
	}

	mgr := manager{}
	dev := &device{session: session, profileNames: st.Names}

	if err := conn.Export(mgr, ManagerPath, ManagerInterface); err != nil {
		return fmt.Errorf("failed to export manager: %w", err)
	}
	if err := conn.Export(dev, DevicePath, DeviceInterface); err != nil {
		return fmt.Errorf("failed to export device: %w", err)
	}

	if err := conn.Export(introspect.NewIntrospectable(managerNode()), ManagerPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export manager introspection: %w", err)
	}
	if err := conn.Export(introspect.NewIntrospectable(deviceNode()), DevicePath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export device introspection: %w", err)
	}
	return nil
}

func managerNode() *introspect.Node {
	return &introspect.Node{
		Name: string(ManagerPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: ManagerInterface,
				Methods: []introspect.Method{
					{Name: "GetDefaultDevice", Args: []introspect.Arg{
						{Name: "device", Type: "o", Direction: "out"},
					}},
				},
				Signals: []introspect.Signal{
					{Name: "DeviceListChanged", Args: []introspect.Arg{
						{Name: "devices", Type: "ao"},
					}},
				},
			},
		},
	}
}

func deviceNode() *introspect.Node {
	return &introspect.Node{
		Name: string(DevicePath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: DeviceInterface,
				Methods: []introspect.Method{
					{Name: "Claim"},
					{Name: "Release"},
					{Name: "VerifyStart", Args: []introspect.Arg{
						{Name: "mode", Type: "s", Direction: "in"},
						{Name: "run_id", Type: "s", Direction: "out"},
					}},
					{Name: "VerifyStop"},
				},
				Signals: []introspect.Signal{
					{Name: "VerificationStatus", Args: []introspect.Arg{
						{Name: "run_id", Type: "s"},
						{Name: "status", Type: "s"},
						{Name: "detail", Type: "s"},
					}},
				},
			},
		},
	}
}
