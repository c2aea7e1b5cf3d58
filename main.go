// padmapper turns an 8x8 pad controller into a keyboard macro surface.
// It connects to the device over MIDI, resolves pad events against the
// active profile layer and injects the resulting shortcuts, with LED
// feedback mirroring the mappings. A small HTTP API drives configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/padworks/padmapper/internal/bridge"
	"github.com/padworks/padmapper/internal/device"
	"github.com/padworks/padmapper/internal/dispatch"
	"github.com/padworks/padmapper/internal/engine"
	"github.com/padworks/padmapper/internal/logging"
	"github.com/padworks/padmapper/internal/profile"
	"github.com/padworks/padmapper/internal/server"
	"github.com/padworks/padmapper/internal/startup"
	"github.com/padworks/padmapper/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.toml (default: user config dir)")
	profilesPath := flag.String("profiles", "", "path to profiles.json (default: user config dir)")
	flag.Parse()

	settings, err := loadSettings(*configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	log, err := logging.New(settings.Logging.Level, settings.Logging.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	libPath := *profilesPath
	if libPath == "" {
		if libPath, err = store.ProfilesPath(); err != nil {
			return err
		}
	}
	library, err := store.OpenLibrary(log, libPath)
	if err != nil {
		return fmt.Errorf("open profile library: %w", err)
	}
	defer library.Close()

	pads := profile.NewStore(log)
	if err := pads.ReplaceProfile(library.Active()); err != nil {
		return fmt.Errorf("activate profile: %w", err)
	}

	adapter := device.NewAdapter(log)
	defer adapter.Close()

	var bridgeClient *bridge.Client
	var bridgeSender dispatch.BridgeSender
	if settings.Bridge.Enabled {
		bridgeClient = bridge.NewClient(log, settings.Bridge.Host, settings.Bridge.Port)
		defer bridgeClient.Close()
		bridgeSender = bridgeClient
	}

	disp := dispatch.NewDispatcher(log, &dispatch.XDoToolInjector{}, bridgeSender)
	eng := engine.New(log, pads, disp, adapter)

	// External edits to profiles.json replace the live profile.
	if err := library.Watch(func(p *profile.Profile) {
		if err := pads.ReplaceProfile(p); err != nil {
			log.Warn("reloaded profile rejected", zap.Error(err))
		}
	}); err != nil {
		log.Warn("profile watch unavailable", zap.Error(err))
	}

	if err := startup.Sync(settings.Device.RunAtLogin); err != nil {
		log.Warn("login item sync failed", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if settings.Device.AutoConnect {
		autoConnect(ctx, log, settings, adapter, eng)
	}

	err = server.New(log, adapter, eng, pads, library).ListenAndServe(ctx, settings.Server.Listen)

	eng.Close()
	eng.State().Disconnect()
	adapter.Disconnect()
	return err
}

func loadSettings(path string) (*store.Settings, error) {
	if path != "" {
		return store.LoadSettingsFrom(path)
	}
	return store.LoadSettings()
}

// autoConnect tries the configured ports, falling back to keyword port
// matching. Failure is not fatal; the HTTP surface can connect later.
func autoConnect(ctx context.Context, log *zap.Logger, settings *store.Settings, adapter *device.Adapter, eng *engine.Engine) {
	in, out := settings.Device.InPort, settings.Device.OutPort
	if in == "" {
		in, _ = device.AutoPick(adapter.ListInputs())
	}
	if out == "" {
		out, _ = device.AutoPick(adapter.ListOutputs())
	}
	if in == "" || out == "" {
		log.Info("no controller found, waiting for connect request")
		return
	}

	if err := adapter.Connect(ctx, in, out, device.ModelName(settings.Device.Model)); err != nil {
		log.Warn("auto-connect failed", zap.String("in", in), zap.Error(err))
		return
	}
	if err := adapter.Listen(eng.OnNoteEvent); err != nil {
		log.Warn("listen failed", zap.Error(err))
		adapter.Disconnect()
		return
	}
	eng.State().Connect()
	log.Info("controller connected", zap.String("in", in), zap.String("out", out))

	if settings.Device.AutoStart {
		if err := eng.Start(); err != nil {
			log.Warn("auto-start failed", zap.Error(err))
		}
	}
}
