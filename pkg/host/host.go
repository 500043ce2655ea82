// Package host runs configured app instances: it resolves each instance's
// app, validates its configuration and credentials against the app's schemas
// and dispatches tool calls under policy.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/edgeopslabs/appkit/pkg/app"
	"github.com/edgeopslabs/appkit/pkg/bundle"
	"github.com/edgeopslabs/appkit/pkg/config"
	"github.com/edgeopslabs/appkit/pkg/policy"
	"github.com/edgeopslabs/appkit/pkg/registry"
	"github.com/edgeopslabs/appkit/pkg/schema"
)

var (
	ErrUnknownInstance = errors.New("unknown instance")
	ErrDenied          = errors.New("tool blocked by policy")
	ErrNotConfirmed    = errors.New("tool execution denied by user")
)

const redacted = "[REDACTED]"

// Instance is one configured, validated app instance.
type Instance struct {
	Name       string
	App        *app.App
	Config     map[string]any
	AuthType   string
	AuthParams any
}

func (i *Instance) clientParams(hc *http.Client) app.ClientParams {
	return app.ClientParams{
		Config:     i.Config,
		AuthType:   i.AuthType,
		AuthParams: i.AuthParams,
		HTTPClient: hc,
	}
}

// Confirmer asks an operator whether a tool marked for confirmation may run.
type Confirmer func(ctx context.Context, instance, tool string) bool

type Option func(*Host)

func WithConfirmer(c Confirmer) Option {
	return func(h *Host) {
		h.confirm = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(h *Host) {
		h.httpClient = hc
	}
}

// WithRegistry registers the host metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(h *Host) {
		h.registry = reg
	}
}

type Host struct {
	cfg        *config.Config
	instances  map[string]*Instance
	order      []string
	policy     *policy.Policy
	httpClient *http.Client
	confirm    Confirmer
	logger     *slog.Logger
	registry   *prometheus.Registry
	metrics    *metrics

	mu       sync.RWMutex
	readOnly map[string]bool
}

// New resolves and validates every configured instance. Apps come from the
// compiled-in registry first, then from bundles installed under cfg.Apps.Dir.
func New(cfg *config.Config, opts ...Option) (*Host, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h := &Host{
		cfg:       cfg,
		instances: make(map[string]*Instance),
		policy:    policy.New(cfg.Policy, cfg.Server.SafeMode),
		logger:    slog.Default(),
		readOnly:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.httpClient == nil {
		h.httpClient = newHTTPClient(cfg.HTTP)
	}
	if h.registry == nil {
		h.registry = prometheus.NewRegistry()
	}
	m, err := newMetrics(h.registry)
	if err != nil {
		return nil, err
	}
	h.metrics = m

	resolver := &appResolver{dir: cfg.Apps.Dir}
	perApp := make(map[string]string)
	for _, ic := range cfg.Apps.Instances {
		a, err := resolver.resolve(ic.App)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", ic.Name, err)
		}
		if a.Singleton {
			if other, dup := perApp[a.Key()]; dup {
				return nil, fmt.Errorf("instance %s: app %s is a singleton and already configured as %s", ic.Name, a.Key(), other)
			}
		}
		perApp[a.Key()] = ic.Name

		inst, err := newInstance(ic, a)
		if err != nil {
			return nil, fmt.Errorf("instance %s: %w", ic.Name, err)
		}
		if _, dup := h.instances[inst.Name]; dup {
			return nil, fmt.Errorf("instance %s: duplicate instance name", inst.Name)
		}
		h.instances[inst.Name] = inst
		h.order = append(h.order, inst.Name)
		h.logger.Info("instance ready",
			"instance", inst.Name,
			"app", a.Key(),
			"auth_type", inst.AuthType,
			"config", Redact(a.ConfigSchema, inst.Config),
		)
	}
	sort.Strings(h.order)
	return h, nil
}

func newInstance(ic config.InstanceConfig, a *app.App) (*Instance, error) {
	authType := ic.AuthType
	if authType == "" {
		authType = defaultAuthType(a)
	}
	authSchema, ok := a.AuthSchemas[authType]
	if !ok {
		return nil, fmt.Errorf("auth type %q is not offered by app %s (offered: %s)", authType, a.Key(), strings.Join(a.AuthTypes(), ", "))
	}

	cfgValues := ic.Config
	if cfgValues == nil {
		cfgValues = map[string]any{}
	}
	if a.ConfigSchema != nil {
		if err := a.ConfigSchema.Validate(cfgValues); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	params := ic.AuthParams
	if params == nil {
		params = emptyValue(authSchema)
	}
	if authSchema != nil {
		if err := authSchema.Validate(params); err != nil {
			return nil, fmt.Errorf("invalid %s credentials: %w", authType, err)
		}
	}

	return &Instance{
		Name:       ic.Name,
		App:        a,
		Config:     cfgValues,
		AuthType:   authType,
		AuthParams: params,
	}, nil
}

// defaultAuthType picks the only offered auth type, or "none" when offered.
func defaultAuthType(a *app.App) string {
	types := a.AuthTypes()
	if len(types) == 1 {
		return types[0]
	}
	if _, ok := a.AuthSchemas["none"]; ok {
		return "none"
	}
	return ""
}

func emptyValue(doc *schema.Document) any {
	if doc != nil && doc.Type == "array" {
		return []any{}
	}
	return map[string]any{}
}

type appResolver struct {
	dir     string
	loaded  bool
	bundles map[string]*bundle.Bundle
}

func (r *appResolver) resolve(id string) (*app.App, error) {
	if a, ok := registry.Lookup(id); ok {
		return a, nil
	}
	if !r.loaded {
		r.loaded = true
		r.bundles = make(map[string]*bundle.Bundle)
		bundles, err := bundle.LoadAll(r.dir)
		if err != nil {
			return nil, fmt.Errorf("load installed apps: %w", err)
		}
		for _, b := range bundles {
			r.bundles[b.AppID()] = b
		}
	}
	b, ok := r.bundles[id]
	if !ok {
		return nil, fmt.Errorf("app %q is neither compiled in nor installed in %s", id, r.dir)
	}
	return bundle.Resolve(b)
}

// Instances returns the configured instances ordered by name.
func (h *Host) Instances() []*Instance {
	out := make([]*Instance, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.instances[name])
	}
	return out
}

func (h *Host) Instance(name string) (*Instance, bool) {
	inst, ok := h.instances[name]
	return inst, ok
}

// Registry exposes the metrics registry for a /metrics endpoint.
func (h *Host) Registry() *prometheus.Registry {
	return h.registry
}

// ToolInfo is one tool of one instance together with its policy status.
type ToolInfo struct {
	Instance string          `json:"instance"`
	App      string          `json:"app"`
	Tool     app.ToolSpec    `json:"tool"`
	Decision policy.Decision `json:"-"`
	Status   string          `json:"status"`
}

// Tools lists the tools of every toolkit instance. A failing instance does
// not hide the others; its error is joined into the returned error.
func (h *Host) Tools(ctx context.Context) ([]ToolInfo, error) {
	var (
		out  []ToolInfo
		errs []error
	)
	for _, inst := range h.Instances() {
		tools, err := h.instanceTools(ctx, inst)
		if err != nil {
			h.logger.Warn("failed to list tools", "instance", inst.Name, "error", err)
			errs = append(errs, fmt.Errorf("instance %s: %w", inst.Name, err))
			continue
		}
		out = append(out, tools...)
	}
	return out, errors.Join(errs...)
}

func (h *Host) instanceTools(ctx context.Context, inst *Instance) ([]ToolInfo, error) {
	a := inst.App
	if !a.HasFeature(app.FeatureToolkit) || a.GetTools == nil {
		return nil, nil
	}
	client, err := a.GetClient(inst.clientParams(h.httpClient))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	defer closeClient(client)

	specs, err := a.GetTools(ctx, app.ToolsParams{Client: client})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		spec := specs[name]
		h.readOnly[inst.Name+"/"+name] = spec.ReadOnly
		decision := h.policy.Evaluate(inst.Name, name, spec.ReadOnly)
		out = append(out, ToolInfo{
			Instance: inst.Name,
			App:      a.Key(),
			Tool:     spec,
			Decision: decision,
			Status:   decision.String(),
		})
	}
	return out, nil
}

// Call dispatches one tool call. A fresh client is created per call and
// closed afterwards when it holds resources.
func (h *Host) Call(ctx context.Context, instance, tool string, args map[string]any) (any, error) {
	inst, ok := h.instances[instance]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstance, instance)
	}
	a := inst.App
	callID := uuid.NewString()
	logger := h.logger.With("call_id", callID, "instance", instance, "app", a.Key(), "tool", tool)

	h.mu.RLock()
	readOnly := h.readOnly[instance+"/"+tool]
	h.mu.RUnlock()

	switch h.policy.Evaluate(instance, tool, readOnly) {
	case policy.Deny:
		logger.Warn("tool blocked by policy")
		h.metrics.observe(a.Key(), tool, outcomeDenied, 0)
		return nil, ErrDenied
	case policy.Confirm:
		if h.confirm == nil || !h.confirm(ctx, instance, tool) {
			logger.Warn("tool execution not confirmed")
			h.metrics.observe(a.Key(), tool, outcomeDenied, 0)
			return nil, ErrNotConfirmed
		}
	}

	if a.CallTool == nil {
		return nil, fmt.Errorf("app %s does not expose tools", a.Key())
	}
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	logger.Debug("tool call started", "args", argNames(args))
	result, err := h.dispatch(ctx, inst, tool, args)
	elapsed := time.Since(start)
	if err != nil {
		outcome := outcomeError
		if app.IsToolNotFound(err) {
			outcome = outcomeNotFound
		}
		h.metrics.observe(a.Key(), tool, outcome, elapsed)
		logger.Warn("tool call failed", "error", err, "status", app.StatusCodeOf(err), "duration", elapsed)
		return nil, err
	}
	h.metrics.observe(a.Key(), tool, outcomeOK, elapsed)
	logger.Info("tool call completed", "duration", elapsed)
	return result, nil
}

func (h *Host) dispatch(ctx context.Context, inst *Instance, tool string, args map[string]any) (any, error) {
	client, err := inst.App.GetClient(inst.clientParams(h.httpClient))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	defer closeClient(client)

	return inst.App.CallTool(ctx, app.CallParams{Client: client, ToolName: tool, Args: args})
}

func closeClient(client app.Client) {
	if closer, ok := client.(io.Closer); ok {
		_ = closer.Close()
	}
}

func argNames(args map[string]any) []string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Redact copies values, replacing fields the schema marks "@sensitive".
func Redact(doc *schema.Document, values any) any {
	sensitive := make(map[string]struct{})
	for _, name := range doc.SensitiveFields() {
		sensitive[name] = struct{}{}
	}
	return redactValue(values, sensitive)
}

func redactValue(value any, sensitive map[string]struct{}) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if _, hide := sensitive[key]; hide {
				out[key] = redacted
				continue
			}
			out[key] = redactValue(item, sensitive)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactValue(item, sensitive)
		}
		return out
	default:
		return value
	}
}
