// main.go bootstraps ktail: it builds the root Cobra command, wires the
// cluster adapters into the viewer, and runs it with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/HaPhanBaoMinh/ktail/help"
	"github.com/HaPhanBaoMinh/ktail/internal/app"
	"github.com/HaPhanBaoMinh/ktail/internal/config"
	"github.com/HaPhanBaoMinh/ktail/internal/domain"
	"github.com/HaPhanBaoMinh/ktail/internal/infrastructure/clipboard"
	"github.com/HaPhanBaoMinh/ktail/internal/infrastructure/export"
	kk "github.com/HaPhanBaoMinh/ktail/internal/infrastructure/k8s"
	"github.com/HaPhanBaoMinh/ktail/internal/infrastructure/mock"
	"github.com/HaPhanBaoMinh/ktail/internal/infrastructure/prefs"
	"github.com/HaPhanBaoMinh/ktail/internal/logging"
	"github.com/HaPhanBaoMinh/ktail/internal/logview"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := config.NewOptions()
	cmd := &cobra.Command{
		Use:           "ktail",
		Short:         "Interactive Kubernetes log viewer",
		Long:          "ktail follows the logs of a pod or of every pod behind a workload, with filtering, highlighting and export.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), opts)
		},
	}
	opts.BindFlags(cmd.Flags())
	cmd.Example = `  # Follow a pod, showing timestamps
  ktail --pod checkout-7d9c -n shop --timestamps

  # Every pod of a deployment, pod names in the gutter
  ktail --kind deploy --name checkout -n shop --pod-names

  # Print errors from the last hour and exit
  ktail --pod checkout-7d9c --since 1h --follow=false --filter ERROR --plain`
	bindViper(cmd)
	return cmd
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("KTAIL")
	v.AutomaticEnv()
	configFile := os.Getenv("KTAIL_CONFIG")
	configureConfigFile(v, configFile)

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			cobra.CheckErr(err)
		}
		for _, cmd := range commands {
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				if f.Changed || !v.IsSet(f.Name) {
					return
				}
				if val := fmt.Sprintf("%v", v.Get(f.Name)); val != "" {
					_ = f.Value.Set(val)
				}
			})
		}
	})
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range help.ConfigSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		message = fmt.Sprintf("%s\nHint: verify network connectivity to the cluster.", err)
	case apierrors.IsUnauthorized(err):
		message = fmt.Sprintf("%s\nHint: kubeconfig credentials were rejected. Run 'kubectl config view' to confirm the active user.", err)
	case apierrors.IsForbidden(err):
		message = fmt.Sprintf("%s\nHint: ktail needs get/list on pods and get on pods/log in the namespace.", err)
	case apierrors.IsNotFound(err):
		message = fmt.Sprintf("%s\nHint: check --namespace and the pod or resource name.", err)
	case errors.Is(err, config.ErrPodAndResource):
		message = fmt.Sprintf("%s\nHint: pass either --pod or --kind/--name.", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

type cluster interface {
	domain.LogSource
	domain.WorkloadRepo
}

func run(ctx context.Context, opts *config.Options) error {
	log, closer, err := logging.NewFile(opts.LogLevel, opts.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	var c cluster
	if opts.Mock {
		c = mock.New()
		if opts.Namespace == "" {
			opts.Namespace = "default"
		}
	} else {
		repo, err := kk.New(opts.KubeConfigPath, opts.Context, log.WithName("k8s"))
		if err != nil {
			return err
		}
		c = repo
		if opts.Namespace == "" {
			opts.Namespace = kk.DefaultNamespace(opts.KubeConfigPath, opts.Context)
		}
	}

	target, state, err := resolveTarget(ctx, c, opts, log)
	if err != nil {
		return err
	}
	log.Info("starting", "namespace", target.Namespace, "pod", target.PodName, "resource", target.Resource.Name, "plain", opts.Plain)

	if opts.Plain {
		p, err := logview.DeriveParams(target, state)
		if err != nil {
			return err
		}
		return app.RunPlain(ctx, c, p, state, os.Stdout, log.WithName("plain"))
	}

	store, err := prefs.Open(opts.PrefsFile, log.WithName("prefs"))
	if err != nil {
		return err
	}
	defer store.Flush()

	subject := target.PodName
	if subject == "" {
		subject = target.Resource.Name
	}
	tty := clipboard.NewTerminal(os.Stdout)
	m := app.New(app.Deps{
		Source:    c,
		Workloads: c,
		Prefs:     store,
		Clipboard: clipboard.New(tty),
		Exporter:  export.New(opts.Server, c),
		Log:       log.WithName("viewer"),
	}, app.Options{
		Target:    target,
		State:     state,
		PrefsKey:  prefs.Key(opts.App, target.Namespace, subject),
		MaxLines:  opts.MaxLines,
		ExportDir: ".",
	})
	defer m.Close()

	_, err = tea.NewProgram(m, tea.WithOutput(tty), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// resolveTarget looks up the containers of the selected pod, or of the first
// pod of the selected workload, and points the view at --container.
func resolveTarget(ctx context.Context, repo domain.WorkloadRepo, opts *config.Options, log logr.Logger) (logview.Target, logview.ViewState, error) {
	target := logview.Target{ApplicationName: opts.App, Namespace: opts.Namespace, PodName: opts.Pod}
	state := opts.ViewState()

	switch {
	case opts.Pod != "":
		info, err := repo.GetPod(ctx, opts.Namespace, opts.Pod)
		if err != nil {
			return target, state, fmt.Errorf("get pod %s/%s: %w", opts.Namespace, opts.Pod, err)
		}
		target.Containers, target.InitContainers = info.Containers, info.InitContainers
	case opts.Name != "" && opts.Kind == "Pod":
		target.Resource = opts.Resource()
		info, err := repo.GetPod(ctx, opts.Namespace, opts.Name)
		if err != nil {
			return target, state, fmt.Errorf("get pod %s/%s: %w", opts.Namespace, opts.Name, err)
		}
		target.Containers, target.InitContainers = info.Containers, info.InitContainers
	case opts.Name != "":
		target.Resource = opts.Resource()
		if opts.Container != "" {
			target.Containers = []string{opts.Container}
			return target, state, nil
		}
		target.Containers, target.InitContainers = workloadContainers(ctx, repo, opts.Namespace, opts.Name, log)
	default:
		return target, state, nil
	}

	if opts.Container != "" {
		idx := indexOf(target.ContainerNames(), opts.Container)
		if idx < 0 {
			pod := opts.Pod
			if pod == "" {
				pod = opts.Name
			}
			return target, state, fmt.Errorf("container %q not found in pod %s (have %s)",
				opts.Container, pod, strings.Join(target.ContainerNames(), ", "))
		}
		state.SelectedContainer = idx
	}
	return target, state, nil
}

// workloadContainers borrows the container list of the first pod named after
// the workload. Pods of one workload share their template.
func workloadContainers(ctx context.Context, repo domain.WorkloadRepo, ns, name string, log logr.Logger) ([]string, []string) {
	pods, err := repo.ListPods(ctx, ns, "")
	if err != nil {
		log.V(1).Info("cannot list pods for containers", "err", err.Error())
		return nil, nil
	}
	for _, p := range pods {
		if strings.HasPrefix(p.PodName, name+"-") {
			return p.Containers, p.InitContainers
		}
	}
	return nil, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
