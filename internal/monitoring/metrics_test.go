package monitoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIndependent(t *testing.T) {
	t.Parallel()

	a := NewMetrics()
	b := NewMetrics()
	a.Rows.Add(3)
	a.Cells.WithLabelValues(StatusComputed).Add(5)
	a.Failures.WithLabelValues("stem_volume_formula_1").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(a.Rows))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Rows))
	assert.Equal(t, 5.0, testutil.ToFloat64(a.Cells.WithLabelValues(StatusComputed)))
	assert.Equal(t, 1, testutil.CollectAndCount(a.Failures))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.Rows.Add(2)
	m.ExcludedFormulas.Set(214)
	m.StageDuration.WithLabelValues("evaluate").Observe(0.02)

	path := filepath.Join(t.TempDir(), "stemvolume.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "stemvolume_rows_total 2")
	assert.Contains(t, text, "stemvolume_excluded_formulas 214")
	assert.Contains(t, text, `stemvolume_stage_duration_seconds_count{stage="evaluate"} 1`)
}
