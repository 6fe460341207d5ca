package k8s

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

// Repo talks to the cluster. It serves both domain.LogSource and
// domain.WorkloadRepo.
type Repo struct {
	core    kubernetes.Interface
	metrics metricsclient.Interface
	log     logr.Logger
}

func New(kubeconfigPath, contextName string, log logr.Logger) (*Repo, error) {
	cfg, err := loadRESTConfig(kubeconfigPath, contextName)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	cfg.QPS = 30
	cfg.Burst = 60
	core, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	m, err := metricsclient.NewForConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClients(core, m, log), nil
}

// NewWithClients wires already built clients, e.g. fakes in tests.
func NewWithClients(core kubernetes.Interface, metrics metricsclient.Interface, log logr.Logger) *Repo {
	return &Repo{core: core, metrics: metrics, log: log}
}

func loadRESTConfig(kubeconfigPath, contextName string) (*rest.Config, error) {
	if kubeconfigPath == "" && contextName == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, nil
		}
	}
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
}

// DefaultNamespace resolves the namespace of the selected kubeconfig context.
func DefaultNamespace(kubeconfigPath, contextName string) string {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	ns, _, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).Namespace()
	if err != nil || ns == "" {
		return metav1.NamespaceDefault
	}
	return ns
}

// -------- WorkloadRepo --------

func (r *Repo) ListNamespaces(ctx context.Context) ([]string, error) {
	list, err := r.core.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list.Items)+1)
	out = append(out, domain.AllNamespaces)
	for _, ns := range list.Items {
		out = append(out, ns.Name)
	}
	return out, nil
}

func (r *Repo) ListPods(ctx context.Context, ns string, selector string) ([]domain.PodInfo, error) {
	if ns == domain.AllNamespaces {
		ns = ""
	}
	opts := metav1.ListOptions{LabelSelector: selector}
	pods, err := r.core.CoreV1().Pods(ns).List(ctx, opts)
	if err != nil {
		return nil, err
	}

	usage := r.podUsage(ctx, ns, selector)
	out := make([]domain.PodInfo, 0, len(pods.Items))
	for i := range pods.Items {
		p := &pods.Items[i]
		out = append(out, podInfo(p, usage[p.Namespace+"/"+p.Name]))
	}
	return out, nil
}

func (r *Repo) GetPod(ctx context.Context, ns, name string) (domain.PodInfo, error) {
	p, err := r.core.CoreV1().Pods(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return domain.PodInfo{}, err
	}
	var usage corev1.ResourceList
	if m, err := r.metrics.MetricsV1beta1().PodMetricses(ns).Get(ctx, name, metav1.GetOptions{}); err == nil {
		usage = sumUsage(m.Containers)
	}
	return podInfo(p, usage), nil
}

// podUsage returns summed container usage keyed by "ns/name". Metrics are
// optional; an unavailable metrics API yields an empty map.
func (r *Repo) podUsage(ctx context.Context, ns, selector string) map[string]corev1.ResourceList {
	out := map[string]corev1.ResourceList{}
	pms, err := r.metrics.MetricsV1beta1().PodMetricses(ns).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		r.log.V(1).Info("pod metrics unavailable", "namespace", ns, "err", err.Error())
		return out
	}
	for _, m := range pms.Items {
		out[m.Namespace+"/"+m.Name] = sumUsage(m.Containers)
	}
	return out
}

func sumUsage(containers []metricsv1beta1.ContainerMetrics) corev1.ResourceList {
	total := corev1.ResourceList{}
	for _, c := range containers {
		for res, q := range c.Usage {
			if cur, ok := total[res]; ok {
				cur.Add(q)
				total[res] = cur
			} else {
				total[res] = q.DeepCopy()
			}
		}
	}
	return total
}

func podInfo(p *corev1.Pod, usage corev1.ResourceList) domain.PodInfo {
	info := domain.PodInfo{
		Namespace: p.Namespace,
		PodName:   p.Name,
		NodeName:  p.Spec.NodeName,
		Phase:     string(p.Status.Phase),
		Ready:     readyStr(p.Status.ContainerStatuses),
	}
	for _, c := range p.Spec.Containers {
		info.Containers = append(info.Containers, c.Name)
		if cpu := c.Resources.Requests.Cpu(); cpu != nil {
			info.CPUReqm += int(cpu.MilliValue())
		}
		if mem := c.Resources.Requests.Memory(); mem != nil {
			info.MemReqBytes += mem.Value()
		}
	}
	for _, c := range p.Spec.InitContainers {
		info.InitContainers = append(info.InitContainers, c.Name)
	}
	if q, ok := usage[corev1.ResourceCPU]; ok {
		info.CPUm = int(q.MilliValue())
	}
	if q, ok := usage[corev1.ResourceMemory]; ok {
		info.MemBytes = q.Value()
	}
	return info
}

func readyStr(sts []corev1.ContainerStatus) string {
	r, t := 0, len(sts)
	for _, s := range sts {
		if s.Ready {
			r++
		}
	}
	if t == 0 {
		t = 1
	}
	return fmt.Sprintf("%d/%d", r, t)
}
