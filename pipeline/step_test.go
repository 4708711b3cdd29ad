package pipeline_test

import (
	"context"
	"testing"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casualjim/conveyor"
	"github.com/casualjim/conveyor/pipeline"
)

func TestConfig_Require(t *testing.T) {
	t.Parallel()

	cfg := pipeline.Config{"table": "users", "batchSize": 500}
	assert.NoError(t, cfg.Require("table", "batchSize"))

	err := cfg.Require("table", "bucket", "region")
	require.Error(t, err)
	assert.True(t, pipeline.IsConfiguration(err))
	assert.Contains(t, err.Error(), `"bucket"`)
	assert.Contains(t, err.Error(), `"region"`)
}

func TestConfig_String(t *testing.T) {
	t.Parallel()

	cfg := pipeline.Config{"table": "users", "batchSize": 500}

	table, err := cfg.String("table")
	require.NoError(t, err)
	assert.Equal(t, "users", table)

	_, err = cfg.String("bucket")
	assert.True(t, pipeline.IsConfiguration(err))

	_, err = cfg.String("batchSize")
	require.Error(t, err)
	assert.True(t, pipeline.IsConfiguration(err))
	assert.Contains(t, err.Error(), "expected a string")
}

func TestFactory_SurfacesConfigurationErrors(t *testing.T) {
	t.Parallel()

	factory := pipeline.Factory(func(cfg pipeline.Config, conn interface{}) (pipeline.Step, error) {
		if err := cfg.Require("table"); err != nil {
			return nil, err
		}
		return pipeline.Return("lookup", func(context.Context) (pipeline.Either, error) {
			return pipeline.Emit("rec-1"), nil
		}, pipeline.LogWith(conveyor.NopLogger)), nil
	})

	_, err := factory(pipeline.Config{}, nil)
	require.Error(t, err)
	assert.True(t, pipeline.IsConfiguration(err))

	step, err := factory(pipeline.Config{"table": "users"}, nil)
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "lookup", step.Name())
	assert.NotNil(t, step.Status())
	assert.NoError(t, step.Close())
}

func TestStep_CloseOnce(t *testing.T) {
	t.Parallel()

	var calls int
	step := pipeline.Return("closes-once", func(context.Context) (pipeline.Either, error) {
		return pipeline.Either{}, pipeline.Fatalf("connection lost")
	},
		pipeline.LogWith(conveyor.NopLogger),
		pipeline.OnClose(func() error { calls++; return nil }),
	)

	_, err := step.Run(context.Background())
	require.Error(t, err)

	// close after the fatal abort, and more than once, without error
	assert.NoError(t, step.Close())
	assert.NoError(t, step.Close())
	assert.Equal(t, 1, calls)
}

func TestCloseAll(t *testing.T) {
	t.Parallel()

	ok := pipeline.Return("fine", nopUnit, pipeline.LogWith(conveyor.NopLogger))
	bad := pipeline.Return("leaky", nopUnit,
		pipeline.LogWith(conveyor.NopLogger),
		pipeline.OnClose(func() error { return assert.AnError }),
	)
	alsoBad := pipeline.Bulk("leakier", func(context.Context, *pipeline.Status) error { return nil },
		pipeline.LogWith(conveyor.NopLogger),
		pipeline.OnClose(func() error { return assert.AnError }),
	)

	err := pipeline.CloseAll(ok, bad, alsoBad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"leaky"`)
	assert.Contains(t, err.Error(), `"leakier"`)

	assert.NoError(t, pipeline.CloseAll(pipeline.Return("clean", nopUnit, pipeline.LogWith(conveyor.NopLogger))))
}

func TestStep_Metering(t *testing.T) {
	t.Parallel()

	reg := metrics.NewRegistry()
	step := pipeline.Return("metered", func(context.Context) (pipeline.Either, error) {
		return pipeline.Emit("rec-1"), nil
	},
		pipeline.LogWith(conveyor.NopLogger),
		pipeline.MeterWith(reg),
	)

	_, err := step.Run(context.Background())
	require.NoError(t, err)
	_, err = step.Run(context.Background())
	require.NoError(t, err)

	counter := metrics.GetOrRegisterCounter("steps.metered.succeeded", reg)
	assert.EqualValues(t, 2, counter.Count())
}

func TestStep_ID(t *testing.T) {
	t.Parallel()

	one := pipeline.Return("same-name", nopUnit, pipeline.LogWith(conveyor.NopLogger))
	two := pipeline.Return("same-name", nopUnit, pipeline.LogWith(conveyor.NopLogger))
	assert.NotEmpty(t, one.ID())
	assert.NotEqual(t, one.ID(), two.ID())
}

func nopUnit(context.Context) (pipeline.Either, error) {
	return pipeline.Emit("noop"), nil
}
