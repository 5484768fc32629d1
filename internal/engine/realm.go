// Package engine wires the Value/GC/Intern/Object/Parser/Compiler/
// Environment/VM/JobQueue components into one embeddable Realm — the
// Section 6 external-interface surface spec.md describes, and the layer
// an embedder actually imports (nothing else in this module is meant to
// be used directly by host code).
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/termfx/ecmacore/internal/compiler"
	"github.com/termfx/ecmacore/internal/gc"
	"github.com/termfx/ecmacore/internal/intern"
	"github.com/termfx/ecmacore/internal/jobqueue"
	"github.com/termfx/ecmacore/internal/object"
	"github.com/termfx/ecmacore/internal/parser"
	"github.com/termfx/ecmacore/internal/value"
	"github.com/termfx/ecmacore/internal/vm"
)

// ModuleLoader resolves an import specifier relative to a referencing
// module into source text. host/loader implements this against the local
// filesystem. A Realm stores the loader installed by WithModuleLoader and
// returns it from ModuleLoader(); EvalModule does not call it.
type ModuleLoader interface {
	Resolve(specifier, referrer string) (source, resolvedSpecifier string, err error)
}

// Realm is one engine instance: its own heap, string interner, global
// object, and job queue (spec.md §5 — no state is ever shared between two
// Realms). Not safe for concurrent use from two goroutines at once, by
// the same single-owning-thread rule the VM itself documents.
type Realm struct {
	vm       *vm.VM
	interner *intern.Table
	jobs     *jobqueue.Queue
	logger   *slog.Logger

	moduleLoader      ModuleLoader
	canCompileStrings bool
}

// Option configures a Realm at construction time.
type Option func(*Realm)

// WithJobQueue installs a job queue other than a fresh jobqueue.New(),
// e.g. to share one queue's draining across multiple Eval calls issued by
// a host that wants a single microtask checkpoint per its own event-loop
// tick.
func WithJobQueue(q *jobqueue.Queue) Option {
	return func(r *Realm) { r.jobs = q }
}

// WithModuleLoader installs the resolver that ModuleLoader() returns.
func WithModuleLoader(l ModuleLoader) Option {
	return func(r *Realm) { r.moduleLoader = l }
}

// WithCanCompileStrings sets the flag that CanCompileStrings reports. The
// VM installs no eval() or Function constructor, so the flag does not
// change how any script runs.
func WithCanCompileStrings(allow bool) Option {
	return func(r *Realm) { r.canCompileStrings = allow }
}

// WithDebuggerHooks installs observation callbacks consulted at every
// frame boundary and loop back-edge (vm.DebugHooks) — the seam a host
// debugger UI would hang its own stepping/breakpoint logic off of; this
// package implements none of that UI itself.
func WithDebuggerHooks(h vm.DebugHooks) Option {
	return func(r *Realm) { r.vm.SetDebugHooks(h) }
}

// WithLogger overrides the realm's structured logger (default:
// slog.Default(), consistent with the rest of this module's ambient
// logging choice — see DESIGN.md).
func WithLogger(l *slog.Logger) Option {
	return func(r *Realm) { r.logger = l }
}

// WithGCConfig rebuilds the realm's VM with a non-default young-generation
// sizing (internal/config's ECMACORE_GC_YOUNG_CAP and friends feed this).
// Apply before WithMaxCallDepth/WithDebuggerHooks if combining them — this
// replaces r.vm outright, dropping anything set on the VM it replaces.
func WithGCConfig(cfg gc.Config) Option {
	return func(r *Realm) { r.vm = vm.NewWithGCConfig(r.interner, cfg) }
}

// WithMaxCallDepth overrides vm.DefaultMaxCallDepth (internal/config's
// ECMACORE_STACK_DEPTH_LIMIT).
func WithMaxCallDepth(n int) Option {
	return func(r *Realm) { r.vm.SetMaxCallDepth(n) }
}

// WithJobQueueCapacity bounds the realm's job queue (internal/config's
// ECMACORE_JOB_QUEUE_CAPACITY); combine with WithJobQueue by calling
// SetCapacity on the supplied queue directly instead.
func WithJobQueueCapacity(n int) Option {
	return func(r *Realm) { r.jobs.SetCapacity(n) }
}

// New constructs a Realm: a fresh interner, VM (which in turn brings up
// its own GC heap, kind table, and intrinsic prototypes), and job queue,
// then applies opts.
func New(opts ...Option) *Realm {
	interner := intern.New()
	r := &Realm{
		vm:       vm.New(interner),
		interner: interner,
		jobs:     jobqueue.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	// Bind the final job queue — default, or swapped in by WithJobQueue —
	// to whichever VM survived the options loop (WithGCConfig replaces it
	// outright), so Promise reactions schedule onto the queue RunJobs/
	// RunJobsAsync actually drain.
	r.vm.SetJobQueue(r.jobs)
	return r
}

// VM exposes the underlying interpreter for host code that needs lower-
// level access (installing native globals that construct objects, e.g.)
// than the Realm surface itself offers.
func (r *Realm) VM() *vm.VM { return r.vm }

// Eval compiles and runs source as a Script (spec.md §6, `context.eval`).
func (r *Realm) Eval(source string) (value.Value, error) {
	return r.run(source, false, "")
}

// EvalModule parses source with the module grammar and runs it like Eval;
// specifier appears only in debug log fields. Import and export
// declarations compile to no-ops: imports are not resolved, the
// configured ModuleLoader is not consulted, and ErrModuleLoad is never
// returned.
func (r *Realm) EvalModule(source, specifier string) (value.Value, error) {
	return r.run(source, true, specifier)
}

func (r *Realm) run(source string, isModule bool, specifier string) (value.Value, error) {
	p := parser.New(source)
	parseFn := p.ParseProgram
	if isModule {
		parseFn = p.ParseModule
	}
	astProgram, err := parseFn()
	if err != nil {
		r.logger.Debug("parse failed", "specifier", specifier, "error", err)
		return value.Undefined, wrapErr(ErrParse, "failed to parse source", err)
	}

	c := compiler.New(r.interner)
	block, err := c.CompileProgram(astProgram)
	if err != nil {
		r.logger.Debug("compile failed", "specifier", specifier, "error", err)
		return value.Undefined, wrapErr(ErrCompile, "failed to compile source", err)
	}

	result, err := r.vm.Run(block)
	if err != nil {
		if thrown, ok := err.(*vm.ThrownError); ok {
			r.logger.Debug("uncaught exception", "specifier", specifier, "value", thrown.Error())
			return value.Undefined, wrapErr(ErrUncaught, "uncaught exception", thrown)
		}
		if _, ok := err.(vm.StackOverflowError); ok {
			r.logger.Debug("stack overflow", "specifier", specifier)
			return value.Undefined, wrapErr(ErrStackDepth, "maximum call stack size exceeded", err)
		}
		return value.Undefined, err
	}
	return result, nil
}

// RegisterGlobal defines name as a data property of the realm's global
// object (spec.md §6).
func (r *Realm) RegisterGlobal(name string, v value.Value, attrs object.Attributes) error {
	r.vm.GlobalObject().DefineOwnProperty(object.StringKey(name), object.Property{Value: v, Attrs: attrs})
	return nil
}

// NativeFunction is the Go signature a host-registered callable global
// implements, mirroring object.NativeFunc without exposing internal/vm's
// construction details to callers of this package.
type NativeFunction func(this value.Value, args []value.Value) (value.Value, error)

// RegisterGlobalCallable wraps fn as a native function object of the
// given arity (its `.length`) and installs it as a writable, configurable
// global (spec.md §6).
func (r *Realm) RegisterGlobalCallable(name string, length int, fn NativeFunction) error {
	native := r.vm.NewNativeFunction(func(ctx object.CallContext) (value.Value, error) {
		return fn(ctx.This, ctx.Args)
	})
	native.DefineOwnProperty(object.StringKey("length"), object.Property{
		Value: value.Integer32(int32(length)),
		Attrs: object.Attributes{Configurable: true},
	})
	native.DefineOwnProperty(object.StringKey("name"), object.Property{
		Value: r.vm.NewString(name),
		Attrs: object.Attributes{Configurable: true},
	})
	return r.RegisterGlobal(name, value.FromRef(value.KindObject, native), object.Attributes{Writable: true, Configurable: true})
}

// RunJobs drains the synchronous job queue to completion (spec.md §4.7
// drain_sync) — every promise reaction and cleanup callback enqueued by
// the last Eval/EvalModule call, and anything they themselves enqueue.
func (r *Realm) RunJobs() error {
	if err := r.jobs.DrainSync(); err != nil {
		return wrapErr(ErrJobQueue, "job queue drain failed", err)
	}
	return nil
}

// RunJobsAsync drains both the synchronous and the async-future job sets
// (spec.md §4.7 drain_async), letting a host integrate this realm with its
// own event loop: it returns a channel that receives exactly one error (nil
// on success) once every job registered at call time — and any follow-up
// they schedule — has run, or ctx is cancelled first.
func (r *Realm) RunJobsAsync(ctx context.Context) <-chan error {
	out := make(chan error, 1)
	go func() {
		if err := r.jobs.DrainAsync(ctx); err != nil {
			out <- wrapErr(ErrJobQueue, "async job queue drain failed", err)
			return
		}
		out <- nil
	}()
	return out
}

// Jobs exposes the realm's job queue directly, for host code that wants
// to enqueue its own native-async work (e.g. a host-provided setTimeout)
// alongside whatever the running script itself schedules.
func (r *Realm) Jobs() *jobqueue.Queue { return r.jobs }

// ModuleLoader returns the loader installed via WithModuleLoader, or nil.
func (r *Realm) ModuleLoader() ModuleLoader { return r.moduleLoader }

// CanCompileStrings reports whether eval()/Function()-from-string is
// permitted in this realm.
func (r *Realm) CanCompileStrings() bool { return r.canCompileStrings }

// Interrupt requests cooperative cancellation of whatever script is
// currently running in this realm (spec.md §5).
func (r *Realm) Interrupt() { r.vm.RequestInterrupt() }

func (r *Realm) String() string {
	return fmt.Sprintf("Realm{canCompileStrings=%v}", r.canCompileStrings)
}
