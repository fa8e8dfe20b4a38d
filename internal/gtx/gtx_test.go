package gtx

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/optalg/internal/algebra"
	"github.com/vk/optalg/internal/testutil"
)

func TestRoundtrip_Transport(t *testing.T) {
	t.Parallel()
	ts := testutil.BuildTransport(t)

	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), ts.Container, &buf))

	restored := algebra.New()
	require.NoError(t, Read(context.Background(), restored, &buf))

	sym, ok := restored.Symbol("plants")
	require.True(t, ok)
	plants := sym.(*algebra.Set)
	assert.Equal(t, []string{"seattle", "san-diego"}, plants.Elements())
	assert.Equal(t, 2, plants.Ordinal("san-diego"), "ordinal order survives the roundtrip")

	sym, ok = restored.Symbol("cost")
	require.True(t, ok)
	cost := sym.(*algebra.Parameter)
	assert.Equal(t, 0.225, cost.Value("seattle", "new-york"))
	assert.Equal(t, 0.126, cost.Value("san-diego", "topeka"))
	assert.Len(t, cost.Records(), 6)

	sym, ok = restored.Symbol("ship")
	require.True(t, ok)
	ship := sym.(*algebra.Variable)
	assert.Equal(t, algebra.VarPositive, ship.Type(), "the variable subtype survives")
	assert.Equal(t, []string{"plants", "markets"}, []string{
		ship.Domain()[0].Name(), ship.Domain()[1].Name(),
	})
}

func TestRoundtrip_SentinelsAndAttributes(t *testing.T) {
	t.Parallel()
	c := algebra.New()

	i, err := c.AddSet("i", nil, "a", "b")
	require.NoError(t, err)
	p, err := c.AddParameter("p", i)
	require.NoError(t, err)
	require.NoError(t, p.SetRecords([][]any{
		{"a", algebra.Eps},
		{"b", algebra.NA},
	}))
	x, err := c.AddVariable("x", algebra.VarFree, i)
	require.NoError(t, err)
	require.NoError(t, x.SetRecords([][]any{
		{"a", 1.5, -0.25, algebra.NegInf, algebra.PosInf, 1.0},
	}))

	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), c, &buf))

	restored := algebra.New()
	require.NoError(t, Read(context.Background(), restored, &buf))

	rp := mustParameter(t, restored, "p")
	assert.Equal(t, algebra.Eps, rp.Value("a"), "EPS survives bit-exactly")
	assert.Equal(t, algebra.NA, rp.Value("b"))
	assert.True(t, rp.Has("a"), "an explicit EPS record is not absence")

	sym, _ := restored.Symbol("x")
	rx := sym.(*algebra.Variable)
	rec := rx.Record("a")
	assert.Equal(t, 1.5, rec.Level)
	assert.Equal(t, -0.25, rec.Marginal)
	assert.Equal(t, algebra.NegInf, rec.Lower)
	assert.Equal(t, algebra.PosInf, rec.Upper)
}

func TestRoundtrip_AliasAndScalar(t *testing.T) {
	t.Parallel()
	c := algebra.New()

	i, err := c.AddSet("i", nil, "a")
	require.NoError(t, err)
	_, err = c.AddAlias("i2", i)
	require.NoError(t, err)
	f, err := c.AddParameter("freight")
	require.NoError(t, err)
	require.NoError(t, f.SetRecords(90))

	var buf bytes.Buffer
	require.NoError(t, Write(context.Background(), c, &buf))

	restored := algebra.New()
	require.NoError(t, Read(context.Background(), restored, &buf))

	sym, ok := restored.Symbol("i2")
	require.True(t, ok)
	alias := sym.(*algebra.Alias)
	assert.Equal(t, "i", alias.Target().Name())
	assert.Equal(t, 1, alias.Card())

	assert.Equal(t, 90.0, mustParameter(t, restored, "freight").Value())
}

func TestRead_RejectsForeignFile(t *testing.T) {
	t.Parallel()
	c := algebra.New()

	err := Read(context.Background(), c, bytes.NewReader([]byte("PNG\x89 definitely not ours")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad magic")
}

func TestRead_RejectsTruncatedRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   symbol
		wantErr string
	}{
		{
			name:    "set record without a key",
			entry:   symbol{Name: "i", Kind: uint8(algebra.KindSet), Records: []record{{}}},
			wantErr: "0 keys",
		},
		{
			name:    "scalar record without a value",
			entry:   symbol{Name: "f", Kind: uint8(algebra.KindParameter), Records: []record{{}}},
			wantErr: "no value",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			buf.Write(magic)
			doc := file{Version: version, Symbols: []symbol{tc.entry}}
			require.NoError(t, msgpack.NewEncoder(&buf).Encode(doc))

			err := Read(context.Background(), algebra.New(), &buf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestWriteReadFile(t *testing.T) {
	t.Parallel()
	ts := testutil.BuildTransport(t)

	path := t.TempDir() + "/model.gtx"
	require.NoError(t, WriteFile(context.Background(), ts.Container, path))

	restored := algebra.New()
	require.NoError(t, ReadFile(context.Background(), restored, path))
	assert.Len(t, restored.Symbols(), len(ts.Container.Symbols()))
}

func mustParameter(t *testing.T, c *algebra.Container, name string) *algebra.Parameter {
	t.Helper()
	sym, ok := c.Symbol(name)
	require.True(t, ok)
	p, ok := sym.(*algebra.Parameter)
	require.True(t, ok)
	return p
}
