package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/edgeopslabs/appkit/pkg/app"
)

func handleListNamespaces(ctx context.Context, client app.Client, args map[string]any) (any, error) {
	cs, err := clientset(client)
	if err != nil {
		return nil, err
	}
	maxNamespaces := clampInt(intArg(args, "max_namespaces", 200), 1, 1000)

	namespaces, err := cs.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, upstream(listNamespacesTool, "failed to list namespaces: ", err)
	}

	count := len(namespaces.Items)
	if count == 0 {
		return "No namespaces found.", nil
	}
	if count > maxNamespaces {
		namespaces.Items = namespaces.Items[:maxNamespaces]
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Namespaces (showing %d of %d):\n", len(namespaces.Items), count))
	for _, ns := range namespaces.Items {
		output.WriteString("- " + ns.Name + "\n")
	}
	return output.String(), nil
}

func handleListPods(ctx context.Context, client app.Client, args map[string]any) (any, error) {
	cs, err := clientset(client)
	if err != nil {
		return nil, err
	}
	namespace := stringArg(args, "namespace", "default")

	pods, err := cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, upstream(listPodsTool, "failed to list pods: ", err)
	}
	if len(pods.Items) == 0 {
		return fmt.Sprintf("No pods found in namespace '%s'.", namespace), nil
	}

	var output strings.Builder
	for _, pod := range pods.Items {
		restarts := 0
		if len(pod.Status.ContainerStatuses) > 0 {
			restarts = int(pod.Status.ContainerStatuses[0].RestartCount)
		}
		output.WriteString(fmt.Sprintf("Pod: %s | Status: %s | Restarts: %d\n", pod.Name, pod.Status.Phase, restarts))
	}
	return output.String(), nil
}

func handleListPodsAll(ctx context.Context, client app.Client, args map[string]any) (any, error) {
	cs, err := clientset(client)
	if err != nil {
		return nil, err
	}
	errorOnly := boolArg(args, "error_only", true)
	maxPods := clampInt(intArg(args, "max_pods", 200), 1, 1000)

	pods, err := cs.CoreV1().Pods("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, upstream(listPodsAllTool, "failed to list pods across namespaces: ", err)
	}
	if len(pods.Items) == 0 {
		return "No pods found.", nil
	}

	var lines []string
	for i := range pods.Items {
		pod := &pods.Items[i]
		problems := podProblems(pod)
		if errorOnly && !unhealthy(pod, problems) {
			continue
		}
		if len(lines) == maxPods {
			lines = append(lines, fmt.Sprintf("... truncated at %d pods", maxPods))
			break
		}
		line := fmt.Sprintf("- %s/%s | phase=%s", pod.Namespace, pod.Name, pod.Status.Phase)
		if len(problems) > 0 {
			line += " | " + strings.Join(problems, ", ")
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "No erroring pods found.", nil
	}
	header := fmt.Sprintf("Pods across all namespaces (error_only=%t):", errorOnly)
	return header + "\n" + strings.Join(lines, "\n") + "\n", nil
}

// logRequest is the decoded get_logs input.
type logRequest struct {
	namespace string
	name      string
	selector  string
	container string
	options   corev1.PodLogOptions
	filter    lineFilter
}

func newLogRequest(args map[string]any) (logRequest, error) {
	req := logRequest{
		namespace: stringArg(args, "namespace", "default"),
		name:      stringArg(args, "name", ""),
		selector:  stringArg(args, "selector", ""),
		container: stringArg(args, "container", ""),
		filter: lineFilter{
			contains:  strings.ToLower(strings.TrimSpace(stringArg(args, "contains", ""))),
			errorOnly: boolArg(args, "error_only", true),
		},
	}
	if req.name == "" && req.selector == "" {
		return req, fmt.Errorf("name or selector is required")
	}
	tail := int64(clampInt(intArg(args, "tail_lines", 200), 1, 500))
	req.options.TailLines = &tail
	if since := int64(intArg(args, "since_seconds", 0)); since > 0 {
		req.options.SinceSeconds = &since
	}
	req.options.Previous = boolArg(args, "previous", false)
	return req, nil
}

func handleLogs(ctx context.Context, client app.Client, args map[string]any) (any, error) {
	cs, err := clientset(client)
	if err != nil {
		return nil, err
	}
	req, err := newLogRequest(args)
	if err != nil {
		return nil, err
	}

	pods, err := req.pods(ctx, cs)
	if err != nil {
		return nil, upstream(logsTool, "failed to find pods: ", err)
	}
	if len(pods) == 0 {
		return fmt.Sprintf("No pods matched in namespace %s.", req.namespace), nil
	}

	var output strings.Builder
	for i := range pods {
		pod := &pods[i]
		fmt.Fprintf(&output, "=== %s (%s) ===\n", pod.Name, pod.Status.Phase)
		if problems := podProblems(pod); len(problems) > 0 {
			fmt.Fprintf(&output, "problems: %s\n", strings.Join(problems, ", "))
		}
		for _, name := range req.containers(pod) {
			opts := req.options
			opts.Container = name
			logs, err := readLogs(ctx, cs, req.namespace, pod.Name, &opts)
			if err != nil {
				fmt.Fprintf(&output, "[%s] log error: %v\n", name, err)
				continue
			}
			kept := req.filter.apply(logs)
			if kept == "" {
				kept = "(no matching log lines)"
			}
			fmt.Fprintf(&output, "[%s]\n%s\n", name, kept)
		}
	}
	return output.String(), nil
}

func (r logRequest) pods(ctx context.Context, cs kubernetes.Interface) ([]corev1.Pod, error) {
	if r.name != "" {
		pod, err := cs.CoreV1().Pods(r.namespace).Get(ctx, r.name, metav1.GetOptions{})
		if err != nil {
			return nil, err
		}
		return []corev1.Pod{*pod}, nil
	}
	list, err := cs.CoreV1().Pods(r.namespace).List(ctx, metav1.ListOptions{LabelSelector: r.selector})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r logRequest) containers(pod *corev1.Pod) []string {
	if r.container != "" {
		return []string{r.container}
	}
	names := make([]string, len(pod.Spec.Containers))
	for i, c := range pod.Spec.Containers {
		names[i] = c.Name
	}
	return names
}

func readLogs(ctx context.Context, cs kubernetes.Interface, namespace, pod string, opts *corev1.PodLogOptions) (string, error) {
	stream, err := cs.CoreV1().Pods(namespace).GetLogs(pod, opts).Stream(ctx)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// podProblems lists what is wrong with a pod, most general first.
func podProblems(pod *corev1.Pod) []string {
	var problems []string
	if pod.Status.Reason != "" {
		problems = append(problems, pod.Status.Reason)
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status != corev1.ConditionTrue {
			problems = append(problems, "not-ready")
		}
	}
	for _, status := range pod.Status.ContainerStatuses {
		if w := status.State.Waiting; w != nil && w.Reason != "" {
			problems = append(problems, fmt.Sprintf("%s:waiting(%s)", status.Name, w.Reason))
		}
		if term := status.State.Terminated; term != nil && term.ExitCode != 0 {
			problems = append(problems, fmt.Sprintf("%s:exit(%d)", status.Name, term.ExitCode))
		}
		if status.RestartCount > 0 {
			problems = append(problems, fmt.Sprintf("%s:restarts(%d)", status.Name, status.RestartCount))
		}
	}
	return problems
}

func unhealthy(pod *corev1.Pod, problems []string) bool {
	switch pod.Status.Phase {
	case corev1.PodFailed, corev1.PodPending:
		return true
	}
	return len(problems) > 0
}

var errorWords = []string{
	"error", "failed", "panic", "fatal", "exception", "crash",
	"backoff", "oom", "terminated", "refused", "timeout",
}

// lineFilter keeps log lines containing a substring and, when errorOnly is
// set, a common error word. Matching is case-insensitive.
type lineFilter struct {
	contains  string
	errorOnly bool
}

func (f lineFilter) keep(line string) bool {
	lower := strings.ToLower(line)
	if f.contains != "" && !strings.Contains(lower, f.contains) {
		return false
	}
	if !f.errorOnly {
		return true
	}
	for _, word := range errorWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func (f lineFilter) apply(logs string) string {
	if f.contains == "" && !f.errorOnly {
		return logs
	}
	var kept []string
	for _, line := range strings.Split(logs, "\n") {
		if f.keep(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// upstream keeps the API server's status code on the re-signalled error.
func upstream(tool, prefix string, err error) error {
	wrapped := app.NewUpstreamError(tool, prefix, err)
	var status apierrors.APIStatus
	if errors.As(err, &status) {
		wrapped.Code = int(status.Status().Code)
	}
	return wrapped
}

func stringArg(args map[string]any, key, def string) string {
	if value := cast.ToString(args[key]); value != "" {
		return value
	}
	return def
}

func intArg(args map[string]any, key string, def int) int {
	value, ok := args[key]
	if !ok {
		return def
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return def
	}
	return n
}

func boolArg(args map[string]any, key string, def bool) bool {
	value, ok := args[key]
	if !ok {
		return def
	}
	switch v := value.(type) {
	case string:
		switch strings.ToLower(v) {
		case "true", "1", "yes", "y":
			return true
		case "false", "0", "no", "n":
			return false
		}
		return def
	default:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return def
		}
		return b
	}
}

func clampInt(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
