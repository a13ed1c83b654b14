package signal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaySource_DeliversInFileOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"kind":"page_load","at":1000,"page":{"url":"/"}}`,
		`{"kind":"click","at":2000,"page":{"url":"/"},"click":{"x":10,"y":20,"element":{"tag":"a"}}}`,
		`{"kind":"custom","at":3000,"page":{},"custom":{"name":"signup"}}`,
	}, "\n")

	src := NewReplaySource(strings.NewReader(input))

	var got []Signal
	src.OnSignal(func(sig Signal) { got = append(got, sig) })
	require.NoError(t, src.Start())

	select {
	case <-src.Done():
	case <-time.After(time.Second):
		t.Fatal("replay never finished")
	}

	require.Len(t, got, 3)
	assert.Equal(t, KindPageLoad, got[0].Kind)
	assert.Equal(t, KindClick, got[1].Kind)
	assert.Equal(t, KindCustom, got[2].Kind)
	assert.EqualValues(t, 1000, got[0].At)

	require.NotNil(t, got[1].Click)
	assert.Equal(t, 10, got[1].Click.X)
	require.NotNil(t, got[2].Custom)
	assert.Equal(t, "signup", got[2].Custom.Name)
}

func TestReplaySource_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"kind":"page_load","page":{"url":"/"}}`,
		`{broken`,
		``,
		`{"kind":"page_load","page":{"url":"/two"}}`,
	}, "\n")

	src := NewReplaySource(strings.NewReader(input))

	var got []Signal
	src.OnSignal(func(sig Signal) { got = append(got, sig) })
	require.NoError(t, src.Start())
	<-src.Done()

	require.Len(t, got, 2)
	assert.Equal(t, "/two", got[1].Page.URL)
}

func TestChanSource_EmitAndStop(t *testing.T) {
	src := NewChanSource(8)

	received := make(chan Signal, 8)
	src.OnSignal(func(sig Signal) { received <- sig })
	require.NoError(t, src.Start())

	src.Emit(Signal{Kind: KindPageLoad, Page: PageInfo{URL: "/"}})

	select {
	case sig := <-received:
		assert.Equal(t, KindPageLoad, sig.Kind)
	case <-time.After(time.Second):
		t.Fatal("signal never delivered")
	}

	src.Stop()
	// Emit after Stop must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		src.Emit(Signal{Kind: KindClick})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked after stop")
	}
}
