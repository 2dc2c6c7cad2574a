package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "ScanComplete", typ: ScanComplete},
		{want: "SetIncomplete", typ: SetIncomplete},
		{want: "SetStarted", typ: SetStarted},
		{want: "SetArchived", typ: SetArchived},
		{want: "SetSkipped", typ: SetSkipped},
		{want: "SetFailed", typ: SetFailed},
		{want: "MemberSkipped", typ: MemberSkipped},
		{want: "RepresentativeCopied", typ: RepresentativeCopied},
		{want: "VerifyFailed", typ: VerifyFailed},
		{want: "DeleteFile", typ: DeleteFile},
		{want: "DeleteFailed", typ: DeleteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
	assert.Equal(t, "Unknown", Type(0).String())
	assert.Equal(t, "Unknown", Type(-1).String())
}

func TestEventZeroValue(t *testing.T) {
	var e Event
	assert.Equal(t, Type(0), e.Type)
	assert.True(t, e.Timestamp.IsZero())
	assert.Empty(t, e.Path)
	assert.Zero(t, e.Run)
	assert.Zero(t, e.SetStart)
	require.NoError(t, e.Error)
}

func TestEmitStampsTimestamp(t *testing.T) {
	ch := make(chan Event, 1)
	Emit(ch, Event{Type: SetArchived, Run: 1, SetStart: 101})

	ev := <-ch
	assert.Equal(t, SetArchived, ev.Type)
	assert.Equal(t, 101, ev.SetStart)
	assert.WithinDuration(t, time.Now(), ev.Timestamp, time.Second)
}

func TestEmitNeverBlocks(t *testing.T) {
	Emit(nil, Event{Type: SetFailed})

	ch := make(chan Event, 1)
	Emit(ch, Event{Type: SetStarted})
	Emit(ch, Event{Type: SetFailed, Error: errors.New("dropped")})

	assert.Len(t, ch, 1)
	assert.Equal(t, SetStarted, (<-ch).Type)
}
