package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flag variables outlive a single Execute.
	logLevel = "warn"
	regionBaseFlag = "0xff0c0000"
	applyFile, applyDevice, applyBase, applySCUBase, applyRecord = "", "edison", "", "", ""
	applyDevMem = false
	applyProtected = []int{7}
	applyTimeout = 5 * time.Second

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeBoard(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFamilies(t *testing.T) {
	out, err := run(t, "families")
	require.NoError(t, err)
	for _, want := range []string{"37..56", "0xff0c0c00", "0xff0c0d00", "101..114", "0xff0c1c00", "0xff0c1d00"} {
		assert.Contains(t, out, want)
	}
}

func TestAddr(t *testing.T) {
	out, err := run(t, "addr", "37", "0x6f", "999")
	require.NoError(t, err)
	assert.Contains(t, out, "pin 37: family 3 bufcfg 0xff0c0d00")
	assert.Contains(t, out, "pin 111: family 7 bufcfg 0xff0c1d28")
	assert.Contains(t, out, "pin 999: family_not_found")

	out, err = run(t, "addr", "--base", "0x1000", "101")
	require.NoError(t, err)
	assert.Contains(t, out, "bufcfg 0x00002d00")

	_, err = run(t, "addr", "abc")
	assert.Error(t, err)
}

func TestApply_EmbeddedEdison(t *testing.T) {
	out, err := run(t, "apply")
	require.NoError(t, err)
	assert.Contains(t, out, "i2c6-scl")
	assert.Contains(t, out, "scu")
	assert.Contains(t, out, "0xff0c1d28")
	assert.Contains(t, out, "status: configured\n")
}

func TestApply_BoardFileWithFailures(t *testing.T) {
	p := writeBoard(t, `
pinctrl:
  controllers:
    - name: tangier
      compatible: intel,pinctrl-tangier
      pins:
        - name: good
          pad-offset: 40
          mode-func: 3
        - name: nowhere
          pad-offset: 999
          mode-func: 1
        - name: wide
          pad-offset: 41
          mode-func: 12
`)
	out, err := run(t, "apply", "-f", p)
	require.NoError(t, err)
	assert.Contains(t, out, "family_not_found")
	assert.Contains(t, out, "unsupported_mode")
	assert.Contains(t, out, "status: configured_with_errors")
}

func TestApply_Errors(t *testing.T) {
	_, err := run(t, "apply", "-f", writeBoard(t, "other: {}\n"))
	assert.ErrorContains(t, err, "no pinctrl section")

	_, err = run(t, "apply", "--device", "nope")
	assert.ErrorContains(t, err, "no embedded config")

	_, err = run(t, "apply", "--log-level", "loud")
	assert.ErrorContains(t, err, "--log-level")
}

func TestApply_RecordAndShow(t *testing.T) {
	rec := filepath.Join(t.TempDir(), "pass.cbor")
	_, err := run(t, "apply", "--record", rec)
	require.NoError(t, err)

	out, err := run(t, "show", rec)
	require.NoError(t, err)
	assert.Contains(t, out, "pinctrl/state")
	assert.Contains(t, out, "pinctrl/tangier/pin/i2c6-scl/status")
	assert.Contains(t, out, "pinctrl/tangier/summary")

	_, err = run(t, "show", filepath.Join(t.TempDir(), "missing.cbor"))
	assert.Error(t, err)
}

func TestApply_RebasedKeepsProtection(t *testing.T) {
	p := writeBoard(t, `
pinctrl:
  controllers:
    - name: tangier
      compatible: intel,pinctrl-tangier
      pins:
        - name: scl
          pad-offset: 111
          mode-func: 1
          protected: true
        - name: bare
          pad-offset: 112
          mode-func: 1
`)
	out, err := run(t, "apply", "-f", p, "--base", "0x1000")
	require.NoError(t, err)
	assert.Contains(t, out, "0x00002d28")
	assert.Contains(t, out, "status: configured_with_errors")

	var scl, bare string
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if len(f) < 2 {
			continue
		}
		switch f[1] {
		case "scl":
			scl = line
		case "bare":
			bare = line
		}
	}
	assert.True(t, strings.HasSuffix(scl, "ok"), scl)
	assert.True(t, strings.HasSuffix(bare, "error"), bare)
}
