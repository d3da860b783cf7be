package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"repdata/internal/config"
	"repdata/internal/lock"
	"repdata/internal/observability"
	"repdata/internal/pipeline"
	"repdata/internal/security"
	"repdata/internal/ui"
	"repdata/internal/warehouse"
	"repdata/pkg/models"
)

// app holds everything a data command needs for one invocation.
type app struct {
	cfg       *models.Config
	log       *observability.Logger
	telemetry *observability.Telemetry
	out       *ui.Printer
	closers   []func() error
}

// configKeyAnnotation marks a flag that overrides a config key.
const configKeyAnnotation = "repdata_config_key"

// bindConfigFlag makes flag name override the config key when set.
func bindConfigFlag(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	v := config.NewViper()
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys, ok := f.Annotations[configKeyAnnotation]
		if !ok || !f.Changed || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(keys[0], f)
	})
	if bindErr != nil {
		return nil, bindErr
	}

	cfg, err := config.Load(v, opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ResolveSecrets(cfg, security.NewCredentialStore()); err != nil {
		return nil, err
	}

	level := observability.LogLevelFromString(cfg.Logging.Level)
	if opts.verbose {
		level = observability.DebugLevel
	}
	log := observability.NewLogger(observability.LoggerConfig{
		Level:   level,
		Output:  cmd.ErrOrStderr(),
		Format:  cfg.Logging.Format,
		Service: "repdata",
		Version: Version,
	})

	tel, err := observability.SetupTelemetry(cmd.Context(), observability.TelemetryConfig{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		log.WithError(err).Warn("Telemetry disabled")
		tel = observability.NewNoopTelemetry()
	}

	out := ui.NewPrinter(cmd.OutOrStdout())
	out.Quiet = opts.quiet
	out.Verbose = opts.verbose

	return &app{cfg: cfg, log: log, telemetry: tel, out: out}, nil
}

// connect opens a warehouse and registers it for close.
func (a *app) connect(ctx context.Context, conn models.Connection) (*warehouse.Service, error) {
	svc, err := warehouse.NewService(warehouse.ConfigFromModel(conn))
	if err != nil {
		return nil, err
	}
	if err := svc.Connect(ctx); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, svc.Close)
	a.log.WithField("dialect", conn.Dialect).Debug("Connected to warehouse")
	return svc, nil
}

// warehouses opens the source and destination. A destination with the same
// connection as the source shares its handle.
func (a *app) warehouses(ctx context.Context) (src, dst *warehouse.Service, err error) {
	src, err = a.connect(ctx, a.cfg.Source.Connection)
	if err != nil {
		return nil, nil, err
	}
	if a.cfg.Destination.Connection == a.cfg.Source.Connection {
		return src, src, nil
	}
	dst, err = a.connect(ctx, a.cfg.Destination.Connection)
	if err != nil {
		return nil, nil, err
	}
	return src, dst, nil
}

// locker returns the configured run lock, or nil when disabled.
func (a *app) locker() (pipeline.Locker, error) {
	if !a.cfg.Lock.Enabled {
		return nil, nil
	}
	l, err := lock.New(a.cfg.Lock)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, l.Close)
	return l, nil
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Debug("Close failed")
		}
	}
	if err := a.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.log.WithError(err).Warn("Failed to flush telemetry")
	}
}
