// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package setup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testHash() [32]byte {
	var hash [32]byte
	for i := range hash {
		hash[i] = byte(i)
	}
	return hash
}

func TestKeys(t *testing.T) {
	hash := testHash()
	hashHex := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

	require.Equal(t, "0x"+hashHex+"02", DlopenKey(hash, 2))
	require.Equal(t, "0x"+hashHex+"01"+"00000010"+"00001000", SpawnKey(hash, 1, 0x10, 0x1000))
}

const sample = `{
	"is_lock_script": true,
	"is_output": false,
	"script_index": 3,
	"vm_version": 1,
	"native_binaries": {
		"0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f02": "/opt/native/libfoo.so",
		"0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1fff0000000000000000": "/opt/native/child"
	},
	"run_type": "DynamicLib"
}`

func TestParse(t *testing.T) {
	setup, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.True(t, setup.IsLockScript)
	require.False(t, setup.IsOutput)
	require.Equal(t, uint64(3), setup.ScriptIndex)
	require.Equal(t, int32(1), setup.VMVersion)
	require.NotNil(t, setup.RunType)
	require.Equal(t, DynamicLib, *setup.RunType)
	require.Len(t, setup.NativeBinaries, 2)

	hash := testHash()
	path, ok := setup.NativeLibrary(hash, 2)
	require.True(t, ok)
	require.Equal(t, "/opt/native/libfoo.so", path)

	_, ok = setup.NativeLibrary(hash, 1)
	require.False(t, ok)

	path, ok = setup.NativeExecutable(hash, 1, 0, 0)
	require.True(t, ok, "spawn keys fall back to the any hash type")
	require.Equal(t, "/opt/native/child", path)

	_, ok = setup.NativeExecutable(hash, 1, 0, 8)
	require.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	for name, data := range map[string]string{
		"not-json":     "native_binaries",
		"bad-run-type": `{"run_type": "Kernel"}`,
		"bad-field":    `{"script_index": "three"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
		})
	}

	t.Run("no-run-type", func(t *testing.T) {
		setup, err := Parse([]byte(`{"vm_version": 2, "run_type": null}`))
		require.NoError(t, err)
		require.Nil(t, setup.RunType)
		require.Empty(t, setup.NativeBinaries)
	})
}

func TestFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	t.Setenv(EnvFile, path)
	setup, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, uint64(3), setup.ScriptIndex)

	t.Setenv(EnvFile, "")
	_, err = FromEnv()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), EnvFile))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
