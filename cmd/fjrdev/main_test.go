package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i5heu/GoByteQueue/pkg/config"
	"github.com/i5heu/GoByteQueue/pkg/device"
	"github.com/i5heu/GoByteQueue/pkg/registrar"
)

func load(t *testing.T, mutate func(*config.Config)) (*registrar.Table, *device.Device) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	table := registrar.NewTable(nil)
	dev, err := device.Load(cfg, table, nil)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Unload() })
	return table, dev
}

func TestRun_Session(t *testing.T) {
	table, dev := load(t, func(c *config.Config) { c.Capacity = 5 })

	in := strings.NewReader(strings.Join([]string{
		"open",
		"write hello world",
		"read 3",
		"readall",
		"read",
		"stat",
		"close",
		"",
		"frobnicate",
	}, "\n"))
	var out bytes.Buffer
	require.NoError(t, run(in, &out, table, dev))

	assert.Equal(t, strings.Join([]string{
		"wrote 5 of 11 bytes",
		`read 3 bytes: "hel"`,
		`read 2 bytes: "lo"`,
		`read 0 bytes: ""`,
		"fjr major=254 mode=bounded",
		`unknown command "frobnicate"`,
		"",
	}, "\n"), out.String())
}

func TestRun_FullModeShortBuffer(t *testing.T) {
	table, dev := load(t, func(c *config.Config) { c.ReadMode = config.ReadModeFull })

	in := strings.NewReader("write abcdef\nread 2\nread 6\nread x\n")
	var out bytes.Buffer
	require.NoError(t, run(in, &out, table, dev))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "wrote 6 of 6 bytes", lines[0])
	assert.Contains(t, lines[1], "read failed:")
	assert.Equal(t, `read 6 bytes: "abcdef"`, lines[2])
	assert.Equal(t, `bad length "x"`, lines[3])
}

func TestRun_ReadLengthClampedToCapacity(t *testing.T) {
	table, dev := load(t, func(c *config.Config) { c.Capacity = 4 })

	in := strings.NewReader("write abcdef\nread 999999999999\n")
	var out bytes.Buffer
	require.NoError(t, run(in, &out, table, dev))

	assert.Equal(t, "wrote 4 of 6 bytes\n"+`read 4 bytes: "abcd"`+"\n", out.String())
}

func TestRun_Unregistered(t *testing.T) {
	table, dev := load(t, nil)
	require.NoError(t, dev.Unload())

	err := run(strings.NewReader("open\n"), &bytes.Buffer{}, table, dev)
	assert.Error(t, err)
}
