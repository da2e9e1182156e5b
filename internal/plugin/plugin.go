// Package plugin runs the plugin lifecycle: init, ready, shutdown.
//
// A plugin is a static descriptor, not runtime-loaded code: the collections,
// admin routes, and middleware it contributes are declared up front and
// resolved once at startup. Lifecycle callbacks run in plugin array order
// (reverse order for shutdown), strictly sequentially.
//
// Failure domains: each lifecycle call is individually recovered. A plugin
// that errors (or panics) is logged and skipped for its remaining phases -
// unless the error is a FatalError, which aborts startup entirely. A broken
// analytics plugin should not take the CMS down; a broken auth plugin
// should.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/momentum/internal/engine"
	"github.com/roach88/momentum/internal/schema"
)

// FatalError aborts startup when returned from a lifecycle callback.
// Wrap with Fatal; detect with IsFatal.
type FatalError struct {
	Plugin string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("plugin %q: fatal: %v", e.Plugin, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks an error as startup-aborting.
func Fatal(err error) error {
	return &FatalError{Err: err}
}

// IsFatal reports whether err is (or wraps) a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// AdminRoute is a route a plugin contributes to the admin surface.
// The handler is opaque here; the excluded HTTP layer mounts it.
type AdminRoute struct {
	Method  string
	Path    string
	Handler any
}

// Middleware is an opaque middleware contribution, mounted by the HTTP
// layer.
type Middleware any

// Provider is a named service a plugin exposes to the app shell.
type Provider struct {
	Name  string
	Value any
}

// Context is the isolated registration surface each plugin receives.
// Plugins cannot see one another's registrations; each context writes into
// its own bucket, and the runner aggregates.
type Context struct {
	plugin      string
	log         *slog.Logger
	middleware  []Middleware
	providers   []Provider
	adminRoutes []AdminRoute
	frozen      bool
}

// Logger returns a logger scoped with the plugin's name.
func (c *Context) Logger() *slog.Logger {
	return c.log
}

// RegisterMiddleware contributes a middleware.
func (c *Context) RegisterMiddleware(m Middleware) error {
	if c.frozen {
		return fmt.Errorf("plugin %q: registration window closed", c.plugin)
	}
	c.middleware = append(c.middleware, m)
	return nil
}

// RegisterProvider contributes a named provider.
func (c *Context) RegisterProvider(name string, value any) error {
	if c.frozen {
		return fmt.Errorf("plugin %q: registration window closed", c.plugin)
	}
	c.providers = append(c.providers, Provider{Name: name, Value: value})
	return nil
}

// RegisterAdminRoute contributes an admin route.
func (c *Context) RegisterAdminRoute(route AdminRoute) error {
	if c.frozen {
		return fmt.Errorf("plugin %q: registration window closed", c.plugin)
	}
	c.adminRoutes = append(c.adminRoutes, route)
	return nil
}

// Plugin is a named bundle of lifecycle callbacks plus the static
// contributions it makes to the system.
type Plugin struct {
	Name string

	// Collections are contributed during init, before the engine exists.
	Collections []*schema.Collection

	// OnInit registers contributions. Runs before the engine is built;
	// this is the only phase that may grow the collection list.
	OnInit func(ctx context.Context, pctx *Context) error

	// OnReady receives the fully-initialized engine.
	OnReady func(ctx context.Context, pctx *Context, api *engine.Engine) error

	// OnShutdown releases resources. Runs in reverse plugin order.
	OnShutdown func(ctx context.Context, pctx *Context) error
}
