// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package setup reads the running setup of a simulated script: which native
// library stands for which on-chain binary.
package setup

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// EnvFile names the environment variable holding the running setup path.
const EnvFile = "CKB_RUNNING_SETUP"

// AnyHashType is the hash type native binaries can be registered under to
// match a code hash whatever the hash type the guest asks for.
const AnyHashType uint8 = 0xFF

// RunType tells how the simulated script is built.
type RunType string

const (
	Executable RunType = "Executable"
	DynamicLib RunType = "DynamicLib"
)

// Setup is the running setup file.
type Setup struct {
	IsLockScript bool   `json:"is_lock_script"`
	IsOutput     bool   `json:"is_output"`
	ScriptIndex  uint64 `json:"script_index"`
	VMVersion    int32  `json:"vm_version"`
	// NativeBinaries maps hex keys built by DlopenKey or SpawnKey to native
	// library paths.
	NativeBinaries map[string]string `json:"native_binaries"`
	RunType        *RunType          `json:"run_type,omitempty"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Parse decodes a running setup.
func Parse(data []byte) (*Setup, error) {
	var setup Setup
	if err := json.Unmarshal(data, &setup); err != nil {
		return nil, fmt.Errorf("parsing running setup: %w", err)
	}
	if setup.RunType != nil {
		switch *setup.RunType {
		case Executable, DynamicLib:
		default:
			return nil, fmt.Errorf("parsing running setup: unknown run type %q", *setup.RunType)
		}
	}
	return &setup, nil
}

// Load reads and decodes the running setup at path.
func Load(path string) (*Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading running setup: %w", err)
	}
	return Parse(data)
}

// FromEnv loads the running setup named by $CKB_RUNNING_SETUP.
func FromEnv() (*Setup, error) {
	path := os.Getenv(EnvFile)
	if path == "" {
		return nil, fmt.Errorf("environment variable %s is not set", EnvFile)
	}
	return Load(path)
}

func hexKey(parts ...[]byte) string {
	var buf []byte
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return "0x" + hex.EncodeToString(buf)
}

// DlopenKey is the NativeBinaries key of a library opened by code hash.
func DlopenKey(codeHash [32]byte, hashType uint8) string {
	return hexKey(codeHash[:], []byte{hashType})
}

// SpawnKey is the NativeBinaries key of a binary spawned from a slice of a
// cell's data.
func SpawnKey(codeHash [32]byte, hashType uint8, offset, length uint32) string {
	return hexKey(codeHash[:], []byte{hashType}, binary.BigEndian.AppendUint32(nil, offset), binary.BigEndian.AppendUint32(nil, length))
}

// NativeLibrary returns the native library registered for a dlopen of
// codeHash.
func (s *Setup) NativeLibrary(codeHash [32]byte, hashType uint8) (string, bool) {
	path, ok := s.NativeBinaries[DlopenKey(codeHash, hashType)]
	return path, ok
}

// NativeExecutable returns the native binary registered for a spawn of
// codeHash, falling back to AnyHashType.
func (s *Setup) NativeExecutable(codeHash [32]byte, hashType uint8, offset, length uint32) (string, bool) {
	for _, ht := range []uint8{hashType, AnyHashType} {
		if path, ok := s.NativeBinaries[SpawnKey(codeHash, ht, offset, length)]; ok {
			return path, true
		}
	}
	return "", false
}
