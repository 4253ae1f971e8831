package flow

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"worksync-backend/pkg/ai"
	"worksync-backend/pkg/apperror"
	"worksync-backend/pkg/metrics"

	log "github.com/sirupsen/logrus"
)

// Registry maps flow names to flows and runs them against one completer.
type Registry struct {
	completer ai.Completer
	flows     map[string]Variant
}

// NewRegistry returns a registry holding the built-in flows.
func NewRegistry(completer ai.Completer) *Registry {
	r := &Registry{completer: completer, flows: make(map[string]Variant)}
	r.Register(SummarizeTranscript)
	r.Register(ExtractActionItems)
	r.Register(GenerateCode)
	r.Register(GenerateTests)
	r.Register(GenerateDocs)
	r.Register(GenerateTheme)
	return r
}

func (r *Registry) Register(v Variant) {
	r.flows[v.Info().Name] = v
}

// List returns the registered flows sorted by name.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.flows))
	for _, v := range r.flows {
		infos = append(infos, v.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Invoke runs the named flow on a JSON input.
func (r *Registry) Invoke(ctx context.Context, name string, input json.RawMessage) (any, error) {
	v, ok := r.flows[name]
	if !ok {
		return nil, apperror.NotFound("flow.invoke", "unknown flow "+name)
	}
	start := time.Now()
	out, err := v.Invoke(ctx, r.completer, input)
	observe(name, start, err)
	return out, err
}

// Call runs f with a typed input through r's completer.
func Call[In, Out any](ctx context.Context, r *Registry, f *Flow[In, Out], in In) (Out, error) {
	start := time.Now()
	out, err := f.Run(ctx, r.completer, in)
	observe(f.Name, start, err)
	return out, err
}

func observe(name string, start time.Time, err error) {
	metrics.FlowInvocations.WithLabelValues(name, metrics.Outcome(err)).Inc()
	if err != nil {
		log.WithFields(log.Fields{"flow": name, "kind": apperror.KindOf(err)}).
			Warnf("[Flow] %s failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
		return
	}
	log.Debugf("[Flow] %s completed in %s", name, time.Since(start).Round(time.Millisecond))
}
