// Package compiler implements the one-pass bytecode compiler (spec.md
// §4.6): binding resolution against internal/environment's compile-time
// scope stack, the jump-control stack for break/continue/labels, handler-
// table emission for try/catch/finally, and function/class/destructuring
// lowering into internal/bytecode.CodeBlock. The stage sequence mirrors
// internal/core/pipeline.go's Pipeline.Apply: a fixed list of named passes
// run in order, each able to fail the whole compile.
package compiler

import "github.com/termfx/ecmacore/internal/bytecode"

// JumpKind tags what control-flow construct a JumpControlInfo frame
// represents, mirroring original_source/boa-dev's
// boa_engine/src/bytecompiler/jump_control.rs JumpControlInfoKind enum.
type JumpKind uint8

const (
	JumpLoop JumpKind = iota
	JumpSwitch
	JumpTry
	JumpLabelledBlock
)

// Label identifies one forward jump awaiting patching once its target
// instruction index is known.
type Label struct {
	InstrIndex int // index of the jump instruction whose operand needs patching
}

// JumpControlInfo is one frame of the compiler's control-flow stack,
// tracking enough state to resolve break/continue (possibly labelled)
// against the right target and to know whether a finally epilogue must
// run on the way out (grounded directly on jump_control.rs's struct
// shape: label/start_address/kind/breaks/try_continues/in_catch/
// has_finally/finally_start/for_of_in_loop/decl_envs).
type JumpControlInfo struct {
	Label        string // "" if this frame is unlabelled
	StartInstr    int
	Kind          JumpKind
	Breaks        []Label
	Continues     []Label
	InCatch       bool
	HasFinally    bool
	FinallyStart  int
	ForOfInLoop   bool
	DeclEnvs      int // number of environments pushed that break/continue must pop

	// BaseScopeDepth is the compiler's scopeDepth when this frame was
	// pushed; a break/continue inside subtracts it from the current depth
	// to tell the VM how many OpPushScope frames to pop before jumping.
	BaseScopeDepth int
}

// jumpControlStack is the compiler's live stack of enclosing control-flow
// constructs, consulted when compiling break/continue/labelled statements.
type jumpControlStack struct {
	frames []*JumpControlInfo
}

func (s *jumpControlStack) push(info *JumpControlInfo) { s.frames = append(s.frames, info) }

func (s *jumpControlStack) pop() *JumpControlInfo {
	n := len(s.frames)
	top := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return top
}

func (s *jumpControlStack) top() *JumpControlInfo {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// findBreakTarget returns the frame a (possibly labelled) break targets,
// searching from the innermost frame outward.
func (s *jumpControlStack) findBreakTarget(label string) (*JumpControlInfo, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if label == "" {
			if f.Kind == JumpLoop || f.Kind == JumpSwitch {
				return f, true
			}
			continue
		}
		if f.Label == label {
			return f, true
		}
	}
	return nil, false
}

// findContinueTarget returns the nearest enclosing loop frame a (possibly
// labelled) continue targets.
func (s *jumpControlStack) findContinueTarget(label string) (*JumpControlInfo, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if f.Kind != JumpLoop {
			continue
		}
		if label == "" || f.Label == label {
			return f, true
		}
	}
	return nil, false
}

// patchLabel backfills a previously-emitted jump instruction's operand A
// with the current end of instrs.
func patchLabel(instrs []bytecode.Instr, lbl Label, target int) {
	instrs[lbl.InstrIndex].A = int32(target)
}
