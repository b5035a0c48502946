// Package block implements the Block/Behavior lifecycle protocol: a Block
// composes an ordered list of Behaviors under one BlockKey, and the
// lifecycle methods (mount/next/unmount/dispose) run every behavior's
// corresponding hook in registration order.
package block

import (
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Behavior is a composable unit of block semantics. Every hook is
// optional — embed behavior.Base (in the behavior package) to no-op the
// hooks a concrete behavior doesn't implement. Behaviors never mutate the
// runtime or call each other directly; they return actions and
// communicate only through memory refs set at construction time.
type Behavior interface {
	OnMount(ctx *Context) []runtime.Action
	OnNext(ctx *Context) []runtime.Action
	OnUnmount(ctx *Context) []runtime.Action
	OnDispose(ctx *Context)
	OnEvent(event types.Event, ctx *Context) []runtime.Action
}

// Context is the handle a strategy builds at compile time, before the
// Block exists, and every behavior hook subsequently receives.
type Context struct {
	Key       types.BlockKey
	SourceIDs []types.StatementID
	Fragments []types.Fragment
	Memory    *runtime.Memory
}

// NewContext mints a fresh BlockKey and returns a Context scoped to it.
func NewContext(sourceIDs []types.StatementID, mem *runtime.Memory) *Context {
	return &Context{Key: types.NewBlockKey(), SourceIDs: sourceIDs, Memory: mem}
}

// SetFragments stores the statements' resolved fragments into this
// context before the owning Block is returned from compile(). Strategies
// MUST call this explicitly — a block's fragments are never populated
// lazily at mount.
func (c *Context) SetFragments(fragments []types.Fragment) {
	c.Fragments = fragments
}

// Allocate is a typed convenience wrapper over runtime.Allocate, scoped to
// this context's owner key.
func Allocate[T any](ctx *Context, memType types.MemoryType, initial T, visibility types.Visibility) runtime.Ref[T] {
	return runtime.Allocate(ctx.Memory, memType, ctx.Key, initial, visibility)
}

// Block composes an ordered list of behaviors under one BlockKey.
// Iteration order over Behaviors is execution order for every hook.
type Block struct {
	key       types.BlockKey
	sourceIDs []types.StatementID
	blockType string
	label     string
	ctx       *Context
	behaviors []Behavior
}

// New constructs a Block. Strategies call this last, after minting a
// BlockKey (via NewContext), allocating memory against ctx, and
// constructing behaviors with the allocated refs injected.
func New(blockType, label string, ctx *Context, behaviors []Behavior) *Block {
	return &Block{
		key:       ctx.Key,
		sourceIDs: ctx.SourceIDs,
		blockType: blockType,
		label:     label,
		ctx:       ctx,
		behaviors: behaviors,
	}
}

func (b *Block) Key() types.BlockKey            { return b.key }
func (b *Block) SourceIDs() []types.StatementID { return b.sourceIDs }
func (b *Block) BlockType() string              { return b.blockType }
func (b *Block) Label() string                  { return b.label }
func (b *Block) Context() *Context              { return b.ctx }
func (b *Block) Behaviors() []Behavior           { return b.behaviors }

// Mount runs OnMount on every behavior in order, in the caller's own
// runtime.RunActions pass (this method only collects the actions; the
// caller drains them).
func (b *Block) Mount(rt *runtime.Runtime) []runtime.Action {
	var actions []runtime.Action
	for _, beh := range b.behaviors {
		actions = append(actions, beh.OnMount(b.ctx)...)
	}
	return actions
}

// Next runs OnNext on every behavior in order.
func (b *Block) Next(rt *runtime.Runtime) []runtime.Action {
	var actions []runtime.Action
	for _, beh := range b.behaviors {
		actions = append(actions, beh.OnNext(b.ctx)...)
	}
	return actions
}

// Unmount runs OnUnmount on every behavior in order.
func (b *Block) Unmount(rt *runtime.Runtime) []runtime.Action {
	var actions []runtime.Action
	for _, beh := range b.behaviors {
		actions = append(actions, beh.OnUnmount(b.ctx)...)
	}
	return actions
}

// Dispose runs OnDispose on every behavior, then releases every memory
// ref (and, since handlers are memory entries too, every handler) owned
// by this block's key. This is what makes PopAndDispose's guarantee hold:
// no ref or handler owned by a disposed block remains reachable.
func (b *Block) Dispose(rt *runtime.Runtime) {
	for _, beh := range b.behaviors {
		beh.OnDispose(b.ctx)
	}
	rt.Memory.ReleaseOwnedBy(b.key)
}

var _ runtime.Block = (*Block)(nil)
