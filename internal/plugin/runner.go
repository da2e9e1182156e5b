package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/momentum/internal/engine"
	"github.com/roach88/momentum/internal/schema"
)

// Runner orchestrates the plugin lifecycle.
//
// Phase order is the concurrency contract: init in array order, ready in
// array order, shutdown in reverse array order, one plugin at a time. No
// phase overlaps another.
type Runner struct {
	plugins  []Plugin
	contexts []*Context
	skipped  map[string]bool
	log      *slog.Logger

	collections []*schema.Collection
}

// NewRunner creates a runner over the plugin list. Order is preserved and
// meaningful.
func NewRunner(plugins []Plugin, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{
		plugins: plugins,
		skipped: make(map[string]bool),
		log:     log,
	}
	for _, p := range plugins {
		r.contexts = append(r.contexts, &Context{
			plugin: p.Name,
			log:    log.With("plugin", p.Name),
		})
	}
	return r
}

// RunInit runs every plugin's OnInit in array order and collects the
// contributed collections. After RunInit returns, the registration window
// is closed: contexts are frozen and the collection list is final.
//
// A FatalError aborts immediately; any other failure (or panic) marks the
// plugin skipped for later phases.
func (r *Runner) RunInit(ctx context.Context) error {
	for i, p := range r.plugins {
		r.collections = append(r.collections, p.Collections...)

		if p.OnInit == nil {
			continue
		}
		if err := r.call(ctx, p.Name, "init", func() error {
			return p.OnInit(ctx, r.contexts[i])
		}); err != nil {
			return err
		}
	}

	for _, c := range r.contexts {
		c.frozen = true
	}
	return nil
}

// RunReady hands each surviving plugin the fully-initialized engine, in
// array order.
func (r *Runner) RunReady(ctx context.Context, api *engine.Engine) error {
	for i, p := range r.plugins {
		if p.OnReady == nil || r.skipped[p.Name] {
			continue
		}
		if err := r.call(ctx, p.Name, "ready", func() error {
			return p.OnReady(ctx, r.contexts[i], api)
		}); err != nil {
			return err
		}
	}
	return nil
}

// RunShutdown runs OnShutdown in reverse array order. Shutdown never
// aborts: every surviving plugin gets its chance to release resources,
// fatal or not.
func (r *Runner) RunShutdown(ctx context.Context) {
	for i := len(r.plugins) - 1; i >= 0; i-- {
		p := r.plugins[i]
		if p.OnShutdown == nil || r.skipped[p.Name] {
			continue
		}
		pctx := r.contexts[i]
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error("plugin shutdown panicked",
						"plugin", p.Name,
						"panic", fmt.Sprint(rec))
				}
			}()
			if err := p.OnShutdown(ctx, pctx); err != nil {
				r.log.Error("plugin shutdown failed",
					"plugin", p.Name,
					"error", err)
			}
		}()
	}
}

// Collections returns every collection contributed by plugins, in plugin
// order. Valid after RunInit.
func (r *Runner) Collections() []*schema.Collection {
	return r.collections
}

// Middleware aggregates contributed middleware in plugin order.
func (r *Runner) Middleware() []Middleware {
	var out []Middleware
	for _, c := range r.contexts {
		out = append(out, c.middleware...)
	}
	return out
}

// Providers aggregates contributed providers in plugin order.
func (r *Runner) Providers() []Provider {
	var out []Provider
	for _, c := range r.contexts {
		out = append(out, c.providers...)
	}
	return out
}

// AdminRoutes aggregates contributed admin routes in plugin order.
func (r *Runner) AdminRoutes() []AdminRoute {
	var out []AdminRoute
	for _, c := range r.contexts {
		out = append(out, c.adminRoutes...)
	}
	return out
}

// call runs one lifecycle callback under the failure policy: recover
// panics, propagate fatal errors, log-and-skip everything else.
func (r *Runner) call(ctx context.Context, name, phase string, fn func() error) (fatal error) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		err = fn()
	}()

	if err == nil {
		return nil
	}
	if IsFatal(err) {
		var fe *FatalError
		if e, ok := err.(*FatalError); ok && e.Plugin == "" {
			e.Plugin = name
			fe = e
		} else {
			fe = &FatalError{Plugin: name, Err: err}
		}
		return fe
	}

	r.log.Error("plugin failed; skipping its later hooks",
		"plugin", name,
		"phase", phase,
		"error", err)
	r.skipped[name] = true
	return nil
}
