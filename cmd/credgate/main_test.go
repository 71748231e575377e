// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "serve", "Help missing serve command")
}

func TestRootCommand_EnvFileFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "env-file flag",
			args:     []string{"--env-file", "/path/to/.env", "--help"},
			wantFlag: "/path/to/.env",
		},
		{
			name:     "env-file flag with equals",
			args:     []string{"--env-file=/etc/credgate.env", "--help"},
			wantFlag: "/etc/credgate.env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset global
			envFile = ""

			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, envFile)
		})
	}
}

func TestServeCommand_RejectsMissingEnvFile(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--env-file", "/nonexistent/.env", "serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env file")
}
