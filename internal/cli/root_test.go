package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "storefront", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"serve", "seed", "demo"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestDemoFlags(t *testing.T) {
	cmd := NewRootCommand()
	demo, _, err := cmd.Find([]string{"demo"})
	require.NoError(t, err)

	for _, name := range []string{"variant", "method", "items", "owner", "delay"} {
		assert.NotNil(t, demo.Flags().Lookup(name), name)
	}
	assert.Equal(t, "storefront", demo.Flags().Lookup("variant").DefValue)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STOREFRONT_DB_DRIVER", "memory")
	t.Setenv("STOREFRONT_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestDemo(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "storefront transfer",
			args: []string{"demo", "--delay", "0"},
		},
		{
			name: "pos cash",
			args: []string{"demo", "--variant", "pos", "--method", "cash", "--delay", "0"},
		},
		{
			name: "storefront qris",
			args: []string{"demo", "--method", "qris", "--delay", "0", "--items", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)

			assert.Contains(t, out, "PEMBAYARAN BERHASIL")
			assert.Contains(t, out, "Total Pembayaran")
			assert.Contains(t, out, "NE-")
		})
	}
}

func TestDemoSQLite(t *testing.T) {
	t.Setenv("STOREFRONT_DB_DRIVER", "sqlite")
	t.Setenv("STOREFRONT_DB_PATH", filepath.Join(t.TempDir(), "demo.db"))
	t.Setenv("STOREFRONT_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"demo", "--variant", "pos", "--method", "ewallet", "--delay", "0"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "PEMBAYARAN BERHASIL")
	assert.Contains(t, out.String(), "EWALLET")
}

func TestDemoInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown variant", args: []string{"demo", "--variant", "kiosk"}},
		{name: "unknown method", args: []string{"demo", "--method", "cheque"}},
		{name: "no items", args: []string{"demo", "--items", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestDemoCashRejectedOnStorefront(t *testing.T) {
	_, err := execute(t, "demo", "--method", "cash", "--delay", "0")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSeed(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "seed", "--count", "4", "--seed", "7", "--format", "yaml")
		require.NoError(t, err)

		var products []seedProduct
		require.NoError(t, yaml.Unmarshal([]byte(out), &products))
		require.Len(t, products, 4)
		for _, p := range products {
			assert.NotEmpty(t, p.ID)
			assert.NotEmpty(t, p.Name)
		}
	})

	t.Run("json is deterministic", func(t *testing.T) {
		first, err := execute(t, "seed", "--count", "3", "--seed", "11", "--format", "json")
		require.NoError(t, err)
		second, err := execute(t, "seed", "--count", "3", "--seed", "11", "--format", "json")
		require.NoError(t, err)

		var a, b []seedProduct
		require.NoError(t, json.Unmarshal([]byte(first), &a))
		require.NoError(t, json.Unmarshal([]byte(second), &b))
		assert.Equal(t, a, b)
	})

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "seed", "--count", "2")
		require.NoError(t, err)
		assert.Contains(t, out, "CATEGORY")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := execute(t, "seed", "--format", "xml")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", nil)))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, "outer: inner", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "inner")
}
