package kubernetes

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/auth"
	"github.com/edgeopslabs/appkit/pkg/registry"
	"github.com/edgeopslabs/appkit/pkg/schema"
)

const (
	ID                 = "kubernetes"
	listNamespacesTool = "list_namespaces"
	listPodsTool       = "list_pods"
	listPodsAllTool    = "list_pods_all"
	logsTool           = "get_logs"
)

const configSchema = `{
  "type": "object",
  "properties": {
    "url": {
      "type": "string",
      "@title": "API Server URL",
      "@placeholder": "https://kubernetes.example.com:6443",
      "description": "Leave empty to use the kubeconfig file"
    },
    "kubeconfig": {
      "type": "string",
      "@title": "Kubeconfig Path",
      "@placeholder": "~/.kube/config"
    },
    "insecure": {
      "type": "boolean",
      "@title": "Skip TLS verification"
    }
  },
  "additionalProperties": false
}`

func New() *app.App {
	a := app.Base()
	a.ID = ID
	a.Name = "Kubernetes"
	a.Categories = []app.Category{app.CategoryCustomTool}
	a.Features = []app.Feature{app.FeatureToolkit}
	a.ConfigSchema = schema.MustParse(configSchema)
	a.AuthSchemas = map[string]*schema.Document{
		"none": schema.MustParse(`{"type":"object","additionalProperties":false}`),
		"bearer": schema.MustParse(`{
  "type": "object",
  "properties": {
    "token": {"type": "string", "@title": "Service Account Token", "@sensitive": true}
  },
  "required": ["token"],
  "additionalProperties": false
}`),
		"basic": schema.MustParse(`{
  "type": "object",
  "properties": {
    "username": {"type": "string", "@title": "Username"},
    "password": {"type": "string", "@title": "Password", "@sensitive": true}
  },
  "required": ["username", "password"],
  "additionalProperties": false
}`),
	}
	a.Content = map[string]any{
		"shortDescription": "Inspect namespaces, pods and logs of a Kubernetes cluster.",
	}

	tools := app.NewToolSet().
		Add(app.ToolSpec{
			Name:        listNamespacesTool,
			Title:       "List namespaces",
			Description: "List all namespaces in the cluster.",
			InputSchema: objectSchema(map[string]any{
				"max_namespaces": map[string]any{"type": "number", "description": "Max namespaces to return (default 200, max 1000)."},
			}),
			ReadOnly: true,
		}, handleListNamespaces).
		Add(app.ToolSpec{
			Name:        listPodsTool,
			Title:       "List pods",
			Description: "List all pods in a specific namespace. Use this to check app health.",
			InputSchema: objectSchema(map[string]any{
				"namespace": map[string]any{"type": "string", "description": "The namespace to query (e.g., 'default', 'kube-system')"},
			}, "namespace"),
			ReadOnly: true,
		}, handleListPods).
		Add(app.ToolSpec{
			Name:        listPodsAllTool,
			Title:       "List pods in all namespaces",
			Description: "List pods across all namespaces, optionally filtering to erroring pods.",
			InputSchema: objectSchema(map[string]any{
				"error_only": map[string]any{"type": "boolean", "description": "Only include pods with error conditions (default true)."},
				"max_pods":   map[string]any{"type": "number", "description": "Max pods to return (default 200, max 1000)."},
			}),
			ReadOnly: true,
		}, handleListPodsAll).
		Add(app.ToolSpec{
			Name:        logsTool,
			Title:       "Get logs",
			Description: "Fetch error-focused logs for a pod, or for every pod matching a label selector.",
			InputSchema: objectSchema(map[string]any{
				"namespace":     map[string]any{"type": "string", "description": "Kubernetes namespace (e.g., 'default')."},
				"name":          map[string]any{"type": "string", "description": "Pod name."},
				"selector":      map[string]any{"type": "string", "description": "Label selector used when name is empty (e.g., 'app=web')."},
				"container":     map[string]any{"type": "string", "description": "Container name. If empty, all containers are included."},
				"tail_lines":    map[string]any{"type": "number", "description": "Max log lines per container (default 200, max 500)."},
				"since_seconds": map[string]any{"type": "number", "description": "Only return logs newer than this many seconds."},
				"previous":      map[string]any{"type": "boolean", "description": "Return logs from the previous container instance if it crashed."},
				"contains":      map[string]any{"type": "string", "description": "Filter logs to lines containing this string (case-insensitive)."},
				"error_only":    map[string]any{"type": "boolean", "description": "Only include common error patterns (default true)."},
			}, "namespace"),
			ReadOnly: true,
		}, handleLogs)

	a.GetClient = getClient
	a.GetTools = tools.GetTools
	a.CallTool = tools.CallTool
	return a
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	out := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		names := make([]any, 0, len(required))
		for _, name := range required {
			names = append(names, name)
		}
		out["required"] = names
	}
	return out
}

// getClient builds a clientset. An explicit url wins over the kubeconfig file;
// resolved auth headers are injected on every request either way.
func getClient(p app.ClientParams) (app.Client, error) {
	headers := auth.Resolve(p.AuthType, p.AuthParams)

	var (
		cfg *rest.Config
		err error
	)
	if host := strings.TrimSpace(cast.ToString(p.Config["url"])); host != "" {
		cfg = &rest.Config{Host: host}
		cfg.TLSClientConfig.Insecure = cast.ToBool(p.Config["insecure"])
	} else {
		kubeconfig := resolveKubeconfig(cast.ToString(p.Config["kubeconfig"]))
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("load kubeconfig: %w", err)
		}
	}
	if len(headers) > 0 {
		cfg.WrapTransport = func(rt http.RoundTripper) http.RoundTripper {
			return &headerTransport{headers: headers, next: rt}
		}
	}
	if p.HTTPClient != nil && p.HTTPClient.Timeout > 0 {
		cfg.Timeout = p.HTTPClient.Timeout
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return kubernetes.Interface(clientset), nil
}

type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	auth.Apply(clone.Header, t.headers)
	return t.next.RoundTrip(clone)
}

func clientset(client app.Client) (kubernetes.Interface, error) {
	cs, ok := client.(kubernetes.Interface)
	if !ok || cs == nil {
		return nil, fmt.Errorf("unexpected client %T", client)
	}
	return cs, nil
}

func resolveKubeconfig(path string) string {
	if path == "" {
		if env := os.Getenv("KUBECONFIG"); env != "" {
			return env
		}
		if home := homedir.HomeDir(); home != "" {
			return filepath.Join(home, ".kube", "config")
		}
		return ""
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}

	return path
}

func init() {
	registry.Register(New())
}
