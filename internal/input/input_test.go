package input

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hotclick/internal/keys"
	"github.com/roach88/hotclick/internal/model"
)

type callLog struct {
	calls []string
	err   error
}

func (c *callLog) MoveTo(x, y int) error {
	c.calls = append(c.calls, "move")
	return c.err
}

func (c *callLog) Click(b model.ActionKind) error {
	c.calls = append(c.calls, "click:"+string(b))
	return c.err
}

func (c *callLog) KeyTap(k string) error {
	c.calls = append(c.calls, "tap:"+k)
	return c.err
}

func TestPerform_ClickAtCursor(t *testing.T) {
	inj := &callLog{}
	require.NoError(t, Perform(inj, model.Click(model.ActionMiddle)))
	assert.Equal(t, []string{"click:middle"}, inj.calls)
}

func TestPerform_ClickAtPoint(t *testing.T) {
	inj := &callLog{}
	require.NoError(t, Perform(inj, model.Click(model.ActionLeft).WithPoint(5, 6)))
	assert.Equal(t, []string{"move", "click:left"}, inj.calls)
}

func TestPerform_Keystroke(t *testing.T) {
	inj := &callLog{}
	require.NoError(t, Perform(inj, model.Keystroke("enter")))
	assert.Equal(t, []string{"tap:enter"}, inj.calls)
}

func TestPerform_EmptyKeystrokeIsNoop(t *testing.T) {
	inj := &callLog{}
	require.NoError(t, Perform(inj, model.Action{Kind: model.ActionKey}))
	assert.Empty(t, inj.calls)
}

func TestPerform_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	inj := &callLog{err: boom}

	err := Perform(inj, model.Click(model.ActionLeft).WithPoint(1, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"move"}, inj.calls, "click is skipped when the move fails")
}

func TestPerform_UnknownKind(t *testing.T) {
	err := Perform(&callLog{}, model.Action{Kind: "scroll"})
	assert.Error(t, err)
}

func TestKeyEventConstructors(t *testing.T) {
	k := keys.MustParse("f3")
	assert.Equal(t, KeyEvent{Key: k, Type: KeyDown}, Press(k))
	assert.Equal(t, KeyEvent{Key: k, Type: KeyUp}, Release(k))
	assert.Equal(t, "down", KeyDown.String())
	assert.Equal(t, "up", KeyUp.String())
}
