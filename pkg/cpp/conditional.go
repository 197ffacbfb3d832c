package cpp

import "fmt"

// condFrame is one level of #ifdef/#ifndef nesting.
type condFrame struct {
	active     bool // lines under this frame are currently emitted
	everActive bool // some branch of this frame has already been active
	seenElse   bool
	parentOK   bool // the enclosing frame was itself active
}

// ConditionalProcessor tracks nested #ifdef/#ifndef/#else/#endif state.
// Only that directive set is supported: the constant-expression forms
// #if/#elif are out of scope (SPEC_FULL.md's preprocessing feature list
// never names them), so there is no expression evaluator here at all.
type ConditionalProcessor struct {
	stack []*condFrame
}

// NewConditionalProcessor returns a processor with no open conditional.
func NewConditionalProcessor() *ConditionalProcessor {
	return &ConditionalProcessor{}
}

// Active reports whether a plain source line encountered right now
// should be emitted.
func (c *ConditionalProcessor) Active() bool {
	for _, f := range c.stack {
		if !f.active {
			return false
		}
	}
	return true
}

// Depth returns the current nesting depth.
func (c *ConditionalProcessor) Depth() int { return len(c.stack) }

// Ifdef pushes a new frame for "#ifdef name"; Ifndef is Ifdef with the
// sense inverted.
func (c *ConditionalProcessor) Ifdef(defined bool) {
	parentOK := c.Active()
	active := parentOK && defined
	c.stack = append(c.stack, &condFrame{active: active, everActive: active, parentOK: parentOK})
}

func (c *ConditionalProcessor) Ifndef(defined bool) { c.Ifdef(!defined) }

// Else flips the top frame's branch.
func (c *ConditionalProcessor) Else() error {
	f, err := c.top()
	if err != nil {
		return err
	}
	if f.seenElse {
		return fmt.Errorf("#else after #else")
	}
	f.seenElse = true
	f.active = f.parentOK && !f.everActive
	if f.active {
		f.everActive = true
	}
	return nil
}

// Endif pops the top frame.
func (c *ConditionalProcessor) Endif() error {
	if _, err := c.top(); err != nil {
		return err
	}
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

// CheckBalanced reports an error if any #ifdef/#ifndef is still open
// at end of file.
func (c *ConditionalProcessor) CheckBalanced() error {
	if len(c.stack) != 0 {
		return fmt.Errorf("unterminated #ifdef/#ifndef: %d still open", len(c.stack))
	}
	return nil
}

func (c *ConditionalProcessor) top() (*condFrame, error) {
	if len(c.stack) == 0 {
		return nil, fmt.Errorf("#else/#endif without matching #ifdef/#ifndef")
	}
	return c.stack[len(c.stack)-1], nil
}
