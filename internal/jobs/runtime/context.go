package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huwany1/KeShang/internal/types"
)

// Context is the execution handle for one claimed task delivery. It carries
// the soft-time-limited context.Context, the claimed row, and the decoded
// payload. Handlers report results through the return value of Run; the
// worker owns the terminal row transition.
type Context struct {
	Ctx     context.Context
	Task    *types.TaskRun
	Result  []byte
	payload map[string]any
}

// NewContext decodes the task payload eagerly. A malformed payload decodes to
// an empty map and the error is returned; handlers validate required fields
// themselves, so the caller may treat the decode error as non-fatal.
func NewContext(ctx context.Context, task *types.TaskRun) (*Context, error) {
	c := &Context{Ctx: ctx, Task: task}
	err := c.decodePayload()
	return c, err
}

func (c *Context) decodePayload() error {
	if c.Task == nil || len(c.Task.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Task.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadString reads a payload field as a trimmed string; ("", false) when
// missing or empty.
func (c *Context) PayloadString(key string) (string, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return "", false
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return "", false
	}
	return s, true
}

// SetResult records the handler's output; the worker persists it on success.
func (c *Context) SetResult(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Result = raw
	return nil
}
