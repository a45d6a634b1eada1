package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zberg/go-samsungcac/internal/config"
	"github.com/zberg/go-samsungcac/pkg/samsungcac"
)

func newControlFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "control"}
	cmd.Flags().String("power", "", "")
	cmd.Flags().String("mode", "", "")
	cmd.Flags().Float64("temp", 0, "")
	cmd.Flags().String("fan-speed", "", "")
	cmd.Flags().String("fan", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestParseChoice(t *testing.T) {
	m, err := parseChoice("mode", "COOL", samsungcac.OperationAuto, samsungcac.OperationCool)
	require.NoError(t, err)
	assert.Equal(t, samsungcac.OperationCool, m)

	_, err = parseChoice("mode", "fan", samsungcac.OperationAuto, samsungcac.OperationCool)
	assert.EqualError(t, err, `invalid --mode "fan": must be one of auto, cool`)
}

func TestControlOptionsFromFlags_OnlySetFlags(t *testing.T) {
	opts, err := controlOptionsFromFlags(newControlFlags(t, "--temp", "22"))
	require.NoError(t, err)

	assert.Equal(t, []samsungcac.ControlAttr{{ID: samsungcac.AttrTargetTemp, Value: "22"}}, opts.Attrs())
}

func TestControlOptionsFromFlags_All(t *testing.T) {
	opts, err := controlOptionsFromFlags(newControlFlags(t,
		"--power", "on", "--mode", "heat", "--temp", "0", "--fan-speed", "turbo", "--fan", "off"))
	require.NoError(t, err)

	require.NotNil(t, opts.Power)
	assert.Equal(t, samsungcac.PowerOn, *opts.Power)
	require.NotNil(t, opts.Operation)
	assert.Equal(t, samsungcac.OperationHeat, *opts.Operation)
	require.NotNil(t, opts.TargetTemperature)
	assert.Equal(t, 0.0, *opts.TargetTemperature)
	require.NotNil(t, opts.FanSpeed)
	assert.Equal(t, samsungcac.FanSpeedTurbo, *opts.FanSpeed)
	require.NotNil(t, opts.Fan)
	assert.Equal(t, samsungcac.FanOff, *opts.Fan)
}

func TestControlOptionsFromFlags_Errors(t *testing.T) {
	_, err := controlOptionsFromFlags(newControlFlags(t))
	assert.ErrorContains(t, err, "nothing to change")

	_, err = controlOptionsFromFlags(newControlFlags(t, "--power", "maybe"))
	assert.ErrorContains(t, err, "invalid --power")
}

func TestPrintDevice(t *testing.T) {
	cfg = config.New()
	require.NoError(t, cfg.SetAlias("lounge", "A1"))

	dev := samsungcac.NewDevice("A1", "Living", "M1")
	var buf bytes.Buffer

	printDevice(&buf, dev, false)
	assert.Equal(t, "A1 (lounge): group=Living model=M1\n", buf.String())

	buf.Reset()
	printDevice(&buf, dev, true)
	assert.Equal(t, "A1 (lounge): power=? mode=? temp=? set=? fan=? speed=?\n", buf.String())

	buf.Reset()
	other := samsungcac.NewDevice("B2", "Bed", "M2")
	printDevice(&buf, other, true)
	assert.Equal(t, "B2: power=? mode=? temp=? set=? fan=? speed=?\n", buf.String())
}

func TestNumberOrUnknown(t *testing.T) {
	v := 22.5
	assert.Equal(t, "22.5", numberOrUnknown(&v))
	v = 20
	assert.Equal(t, "20", numberOrUnknown(&v))
	assert.Equal(t, "?", numberOrUnknown(nil))
}
