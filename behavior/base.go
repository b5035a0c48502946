// Package behavior implements the concrete lifecycle behaviors strategies
// compose into a Block: timer control, round/loop bookkeeping, child
// compilation, and output/history recording. Behaviors never mutate the
// runtime directly or call each other — they read shared state from
// memory refs injected at construction and return actions.
package behavior

import (
	"github.com/wod-wiki/wodwiki/block"
	"github.com/wod-wiki/wodwiki/runtime"
	"github.com/wod-wiki/wodwiki/types"
)

// Base no-ops every hook. Concrete behaviors embed it and override only
// the hooks they need.
type Base struct{}

func (Base) OnMount(ctx *block.Context) []runtime.Action   { return nil }
func (Base) OnNext(ctx *block.Context) []runtime.Action    { return nil }
func (Base) OnUnmount(ctx *block.Context) []runtime.Action { return nil }
func (Base) OnDispose(ctx *block.Context)                  {}
func (Base) OnEvent(event types.Event, ctx *block.Context) []runtime.Action {
	return nil
}

var _ block.Behavior = Base{}

func intPtr(v int) *int { return &v }
