package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/alnah/go-narrate/internal/metrics"
	"github.com/alnah/go-narrate/internal/server"
)

// DefaultAddr is the default HTTP listen address.
const DefaultAddr = ":8080"

// logFlags holds the structured logging flags of long-running commands.
type logFlags struct {
	format string
	level  string
}

func (f *logFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "log-format", LogFormatText, "Log format: text, json")
	cmd.Flags().StringVar(&f.level, "log-level", "info", "Log level: debug, info, warn, error")
}

// newRegistry returns a registry with Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ServeCmd creates the serve command.
// The env parameter provides injectable dependencies for testing.
func ServeCmd(env *Env) *cobra.Command {
	var (
		addr  string
		flags runnerFlags
		logs  logFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve narration jobs over HTTP",
		Long: `Serve narration jobs over HTTP until interrupted.

Endpoints:
  POST /run      body {"input": {...}}, answers the job result
  GET  /health   liveness
  GET  /metrics  Prometheus metrics`,
		Example: `  narrate serve
  narrate serve --addr 127.0.0.1:9000 --log-format json --env-dir /etc/narrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(env.Stderr, logs.format, logs.level)
			if err != nil {
				return err
			}

			reg := newRegistry()
			m := metrics.New(reg)

			built, err := buildRunner(env, runnerSetup{
				source:     "serve",
				flags:      flags,
				withSRT:    true,
				withEnvDir: true,
				logger:     logger,
				metrics:    m,
			})
			if err != nil {
				return err
			}
			defer func() { _ = built.Close() }()

			srv := server.New(built.runner, server.WithLogger(logger), server.WithMetrics(m, reg))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", DefaultAddr, "Listen address")
	flags.register(cmd.Flags(), true)
	logs.register(cmd)

	return cmd
}
