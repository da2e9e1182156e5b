package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/momentum/internal/engine"
	"github.com/roach88/momentum/internal/schema"
	"github.com/roach88/momentum/internal/storage"
)

func namedCollection(slug string) *schema.Collection {
	return schema.NewCollection(slug, schema.Field{Name: "title", Type: schema.FieldText})
}

func TestRunInitOrderAndCollections(t *testing.T) {
	var order []string
	r := NewRunner([]Plugin{
		{
			Name:        "alpha",
			Collections: []*schema.Collection{namedCollection("alpha-items")},
			OnInit: func(ctx context.Context, pctx *Context) error {
				order = append(order, "alpha")
				return nil
			},
		},
		{
			Name:        "beta",
			Collections: []*schema.Collection{namedCollection("beta-items"), namedCollection("beta-logs")},
			OnInit: func(ctx context.Context, pctx *Context) error {
				order = append(order, "beta")
				return nil
			},
		},
	}, nil)

	require.NoError(t, r.RunInit(context.Background()))
	assert.Equal(t, []string{"alpha", "beta"}, order)

	cols := r.Collections()
	require.Len(t, cols, 3)
	assert.Equal(t, "alpha-items", cols[0].Slug)
	assert.Equal(t, "beta-items", cols[1].Slug)
	assert.Equal(t, "beta-logs", cols[2].Slug)
}

func TestRegistrationFreezesAfterInit(t *testing.T) {
	var saved *Context
	r := NewRunner([]Plugin{
		{
			Name: "alpha",
			OnInit: func(ctx context.Context, pctx *Context) error {
				saved = pctx
				return pctx.RegisterProvider("cache", "in-memory")
			},
		},
	}, nil)

	require.NoError(t, r.RunInit(context.Background()))

	err := saved.RegisterProvider("late", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registration window closed")
	require.Error(t, saved.RegisterMiddleware("m"))
	require.Error(t, saved.RegisterAdminRoute(AdminRoute{Method: "GET", Path: "/late"}))

	providers := r.Providers()
	require.Len(t, providers, 1)
	assert.Equal(t, Provider{Name: "cache", Value: "in-memory"}, providers[0])
}

func TestAggregatorsPreservePluginOrder(t *testing.T) {
	register := func(prefix string) func(context.Context, *Context) error {
		return func(ctx context.Context, pctx *Context) error {
			if err := pctx.RegisterMiddleware(prefix + "-mw"); err != nil {
				return err
			}
			return pctx.RegisterAdminRoute(AdminRoute{Method: "GET", Path: "/" + prefix})
		}
	}
	r := NewRunner([]Plugin{
		{Name: "alpha", OnInit: register("alpha")},
		{Name: "beta", OnInit: register("beta")},
	}, nil)

	require.NoError(t, r.RunInit(context.Background()))

	assert.Equal(t, []Middleware{"alpha-mw", "beta-mw"}, r.Middleware())
	routes := r.AdminRoutes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/alpha", routes[0].Path)
	assert.Equal(t, "/beta", routes[1].Path)
}

func TestNonFatalInitErrorSkipsPlugin(t *testing.T) {
	var readyRan []string
	r := NewRunner([]Plugin{
		{
			Name: "flaky",
			OnInit: func(ctx context.Context, pctx *Context) error {
				return errors.New("analytics endpoint unreachable")
			},
			OnReady: func(ctx context.Context, pctx *Context, api *engine.Engine) error {
				readyRan = append(readyRan, "flaky")
				return nil
			},
		},
		{
			Name: "solid",
			OnReady: func(ctx context.Context, pctx *Context, api *engine.Engine) error {
				readyRan = append(readyRan, "solid")
				return nil
			},
		},
	}, nil)

	ctx := context.Background()
	require.NoError(t, r.RunInit(ctx))

	eng, err := engine.New(storage.NewMemory(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.RunReady(ctx, eng))
	assert.Equal(t, []string{"solid"}, readyRan)
}

func TestInitPanicIsRecoveredAndSkips(t *testing.T) {
	var secondRan bool
	r := NewRunner([]Plugin{
		{
			Name: "crasher",
			OnInit: func(ctx context.Context, pctx *Context) error {
				panic("nil map write")
			},
		},
		{
			Name: "survivor",
			OnInit: func(ctx context.Context, pctx *Context) error {
				secondRan = true
				return nil
			},
		},
	}, nil)

	require.NoError(t, r.RunInit(context.Background()))
	assert.True(t, secondRan)
}

func TestFatalErrorAbortsInit(t *testing.T) {
	var secondRan bool
	r := NewRunner([]Plugin{
		{
			Name: "auth",
			OnInit: func(ctx context.Context, pctx *Context) error {
				return Fatal(errors.New("missing signing key"))
			},
		},
		{
			Name: "after",
			OnInit: func(ctx context.Context, pctx *Context) error {
				secondRan = true
				return nil
			},
		},
	}, nil)

	err := r.RunInit(context.Background())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.False(t, secondRan)

	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "auth", fe.Plugin)
	assert.Contains(t, fe.Error(), "missing signing key")
}

func TestFatalErrorDuringReady(t *testing.T) {
	r := NewRunner([]Plugin{
		{
			Name: "gate",
			OnReady: func(ctx context.Context, pctx *Context, api *engine.Engine) error {
				return Fatal(errors.New("license check failed"))
			},
		},
	}, nil)

	ctx := context.Background()
	require.NoError(t, r.RunInit(ctx))

	eng, err := engine.New(storage.NewMemory(), nil, nil)
	require.NoError(t, err)
	err = r.RunReady(ctx, eng)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestShutdownReverseOrderAndNeverAborts(t *testing.T) {
	var order []string
	shutdown := func(name string, fail bool) func(context.Context, *Context) error {
		return func(ctx context.Context, pctx *Context) error {
			order = append(order, name)
			if fail {
				return errors.New("close failed")
			}
			return nil
		}
	}
	r := NewRunner([]Plugin{
		{Name: "first", OnShutdown: shutdown("first", false)},
		{Name: "second", OnShutdown: shutdown("second", true)},
		{
			Name: "third",
			OnShutdown: func(ctx context.Context, pctx *Context) error {
				order = append(order, "third")
				panic("already closed")
			},
		},
	}, nil)

	ctx := context.Background()
	require.NoError(t, r.RunInit(ctx))

	r.RunShutdown(ctx)
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestSkippedPluginMissesShutdown(t *testing.T) {
	var shutdownRan []string
	r := NewRunner([]Plugin{
		{
			Name: "flaky",
			OnInit: func(ctx context.Context, pctx *Context) error {
				return errors.New("boom")
			},
			OnShutdown: func(ctx context.Context, pctx *Context) error {
				shutdownRan = append(shutdownRan, "flaky")
				return nil
			},
		},
		{
			Name: "solid",
			OnShutdown: func(ctx context.Context, pctx *Context) error {
				shutdownRan = append(shutdownRan, "solid")
				return nil
			},
		},
	}, nil)

	ctx := context.Background()
	require.NoError(t, r.RunInit(ctx))
	r.RunShutdown(ctx)
	assert.Equal(t, []string{"solid"}, shutdownRan)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))
	assert.True(t, IsFatal(Fatal(errors.New("x"))))

	wrapped := errors.Join(errors.New("outer"), Fatal(errors.New("inner")))
	assert.True(t, IsFatal(wrapped))
}
