package gcheap_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/hupe1980/gcheap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap_Conversions(t *testing.T) {
	h := newHeap(t, gcheap.WithInitialThreshold(1000))

	tests := []struct {
		name    string
		src     func() (gcheap.Ref, error)
		convert func(gcheap.Ref) (gcheap.Ref, error)
		want    gcheap.Value
	}{
		{"double to int", func() (gcheap.Ref, error) { return h.Double(3.9) }, h.ToInt, gcheap.Int(3)},
		{"negative double to int", func() (gcheap.Ref, error) { return h.Double(-3.9) }, h.ToInt, gcheap.Int(-3)},
		{"float to int", func() (gcheap.Ref, error) { return h.Float(7.75) }, h.ToInt, gcheap.Int(7)},
		{"char to int", func() (gcheap.Ref, error) { return h.Char(200) }, h.ToInt, gcheap.Int(200)},
		{"int to char", func() (gcheap.Ref, error) { return h.Int(0x1234) }, h.ToChar, gcheap.Char(0x34)},
		{"double to char", func() (gcheap.Ref, error) { return h.Double(65.9) }, h.ToChar, gcheap.Char('A')},
		{"int to float", func() (gcheap.Ref, error) { return h.Int(-2) }, h.ToFloat, gcheap.Float(-2)},
		{"double to float", func() (gcheap.Ref, error) { return h.Double(0.5) }, h.ToFloat, gcheap.Float(0.5)},
		{"int to double", func() (gcheap.Ref, error) { return h.Int(9) }, h.ToDouble, gcheap.Double(9)},
		{"char to double", func() (gcheap.Ref, error) { return h.Char(1) }, h.ToDouble, gcheap.Double(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := tt.src()
			require.NoError(t, err)
			before := mustLoad(t, h, src)

			out, err := tt.convert(src)
			require.NoError(t, err)
			assert.NotEqual(t, src.Offset(), out.Offset())
			assert.Equal(t, tt.want, mustLoad(t, h, out))
			assert.Equal(t, before, mustLoad(t, h, src))
		})
	}
}

func TestHeap_ConversionIdentity(t *testing.T) {
	h := newHeap(t)

	for _, tc := range []struct {
		alloc   func() (gcheap.Ref, error)
		convert func(gcheap.Ref) (gcheap.Ref, error)
	}{
		{func() (gcheap.Ref, error) { return h.Int(1) }, h.ToInt},
		{func() (gcheap.Ref, error) { return h.Float(1) }, h.ToFloat},
		{func() (gcheap.Ref, error) { return h.Double(1) }, h.ToDouble},
		{func() (gcheap.Ref, error) { return h.Char(1) }, h.ToChar},
	} {
		r, err := tc.alloc()
		require.NoError(t, err)
		live := h.Stats().Live

		out, err := tc.convert(r)
		require.NoError(t, err)
		assert.Equal(t, r, out)
		assert.Equal(t, live, h.Stats().Live)
	}
}

func TestHeap_UnsupportedConversions(t *testing.T) {
	mc := &gcheap.BasicMetricsCollector{}
	h := newHeap(t, gcheap.WithMetricsCollector(mc))

	a := mustInt(t, h, 1)
	p, err := h.Pair(a, gcheap.Nil)
	require.NoError(t, err)
	e, err := h.Enum(2)
	require.NoError(t, err)
	u, err := h.Union(gcheap.UnionInt, gcheap.Int(3))
	require.NoError(t, err)

	live := h.Stats().Live
	for _, src := range []gcheap.Ref{p, e, u} {
		for _, convert := range []func(gcheap.Ref) (gcheap.Ref, error){h.ToInt, h.ToFloat, h.ToDouble, h.ToChar} {
			out, err := convert(src)
			assert.True(t, out.IsNil())
			assert.ErrorIs(t, err, gcheap.ErrUnsupportedConversion)
			assert.False(t, gcheap.IsFatal(err))

			var cerr *gcheap.ConversionError
			require.True(t, errors.As(err, &cerr))
			kind, kerr := h.Kind(src)
			require.NoError(t, kerr)
			assert.Equal(t, kind, cerr.From)
		}
	}
	assert.Equal(t, live, h.Stats().Live)

	out, err := h.ToDouble(gcheap.Nil)
	assert.True(t, out.IsNil())
	assert.ErrorIs(t, err, gcheap.ErrNilRef)
	assert.Equal(t, live, h.Stats().Live)

	ms := mc.GetStats()
	assert.Equal(t, int64(13), ms.ConversionCount)
	assert.Equal(t, int64(13), ms.ConversionErrors)
}

func TestConversionError(t *testing.T) {
	err := &gcheap.ConversionError{From: gcheap.KindPair, To: gcheap.KindInt}
	assert.Equal(t, "type conversion from pair to int not supported", err.Error())
	assert.ErrorIs(t, err, gcheap.ErrUnsupportedConversion)
	assert.NotErrorIs(t, err, gcheap.ErrNilRef)
}

func TestHeap_ConversionOfStaleRefIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := gcheap.NewLogger(slog.NewJSONHandler(&buf, nil))
	metrics := &gcheap.BasicMetricsCollector{}
	h := newHeap(t, gcheap.WithLogger(logger), gcheap.WithMetricsCollector(metrics))

	mustInt(t, h, 1)
	kept := mustInt(t, h, 2)
	require.NoError(t, h.Push(kept))
	_, err := h.Collect()
	require.NoError(t, err)

	out, err := h.ToChar(kept)
	require.ErrorIs(t, err, gcheap.ErrStaleRef)
	assert.True(t, out.IsNil())

	assert.Contains(t, buf.String(), `"msg":"conversion failed"`)
	assert.Contains(t, buf.String(), `"to":"char"`)
	assert.Contains(t, buf.String(), `stale reference`)
	assert.Equal(t, int64(1), metrics.GetStats().ConversionErrors)
}
