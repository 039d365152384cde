package cel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/crmx/internal/model"
)

func TestFilterMatch(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	rec := model.NewRecord("l1", map[string]any{
		"name":   "Ana Pérez",
		"status": "nuevo",
		"city":   "Mérida",
		"score":  float64(7),
		"office": map[string]any{"name": "Centro"},
	})

	tests := []struct {
		expr string
		want bool
	}{
		{`record.status == "nuevo"`, true},
		{`record.city.startsWith("Mé") && record.score > 5.0`, true},
		{`_.name.lowerAscii().contains("ana")`, true},
		{`record.office.name == "Norte"`, false},
		{`record._id == "l1"`, true},
		{`"phone" in record`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := ev.Compile(tt.expr)
			require.NoError(t, err)
			got, err := f.Match(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.expr, f.String())
		})
	}
}

func TestCompileErrors(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)

	for _, expr := range []string{"", "record.name ==", `"just a string"`, "1 + 2"} {
		t.Run(expr, func(t *testing.T) {
			_, err := ev.Compile(expr)
			assert.Error(t, err)
		})
	}
}

func TestMatchMissingFieldErrors(t *testing.T) {
	ev, err := NewEvaluator()
	require.NoError(t, err)
	f, err := ev.Compile(`record.phone == "1"`)
	require.NoError(t, err)

	_, err = f.Match(model.NewRecord("x", nil))
	assert.Error(t, err)
}
