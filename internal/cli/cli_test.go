package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/filekeystore/internal/config"
	"github.com/iudanet/filekeystore/internal/iocli"
	"github.com/iudanet/filekeystore/internal/keystore"
)

type testCli struct {
	io   *iocli.IOMock
	out  *bytes.Buffer
	logs *bytes.Buffer
	path string
}

func newTestCli(t *testing.T) *testCli {
	t.Helper()

	for _, env := range []string{config.EnvFile, config.EnvConfig, config.EnvBackend, config.EnvLogLevel} {
		t.Setenv(env, "")
	}

	tc := &testCli{
		out:  &bytes.Buffer{},
		logs: &bytes.Buffer{},
		path: filepath.Join(t.TempDir(), "keystore"),
	}
	tc.io = &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			fmt.Fprintln(tc.out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			fmt.Fprintf(tc.out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			return tc.out.Write(p)
		},
		ReadPasswordFunc: func(prompt string) (string, error) {
			return "", errors.New("unexpected prompt")
		},
		ReadInputFunc: func(prompt string) (string, error) {
			return "", errors.New("unexpected prompt")
		},
	}

	return tc
}

func (tc *testCli) run(args ...string) error {
	tc.out.Reset()
	root := NewRootCommand(tc.io, tc.logs, BuildInfo{Version: "1.2.3", BuildDate: "2026-01-01", GitCommit: "abc123"})
	root.SetArgs(append([]string{"--file", tc.path}, args...))
	return root.Execute()
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    keystore.Values
		wantErr string
	}{
		{
			name: "empty",
			args: nil,
			want: keystore.Values{},
		},
		{
			name: "several fields",
			args: []string{"user=alice", "server=example.com", "port=443"},
			want: keystore.Values{
				keystore.KeyUser:   "alice",
				keystore.KeyServer: "example.com",
				keystore.KeyPort:   "443",
			},
		},
		{
			name: "value containing equals",
			args: []string{"path=/a=b"},
			want: keystore.Values{keystore.KeyPath: "/a=b"},
		},
		{
			name:    "missing equals",
			args:    []string{"user"},
			wantErr: "expected FIELD=VALUE",
		},
		{
			name:    "unknown field",
			args:    []string{"host=x"},
			wantErr: "invalid argument",
		},
		{
			name:    "duplicate field",
			args:    []string{"user=a", "user=b"},
			wantErr: "more than once",
		},
		{
			name:    "empty value",
			args:    []string{"user="},
			wantErr: "has no value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValues(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInit_CreatesFile(t *testing.T) {
	tc := newTestCli(t)

	require.NoError(t, tc.run("init"))

	info, err := os.Stat(tc.path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
	assert.Contains(t, tc.out.String(), "Keystore is ready")
}

func TestInit_NoFile(t *testing.T) {
	tc := newTestCli(t)

	root := NewRootCommand(tc.io, tc.logs, BuildInfo{})
	root.SetArgs([]string{"init"})
	err := root.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNoKeystoreFile)
}

func TestStoreAndFind(t *testing.T) {
	tc := newTestCli(t)

	require.NoError(t, tc.run("store", "--secret", "hunter2", "user=alice", "server=example.com"))
	assert.Contains(t, tc.out.String(), "Secret stored")
	assert.Contains(t, tc.out.String(), "user=alice server=example.com")

	require.NoError(t, tc.run("find", "user=alice"))
	out := tc.out.String()
	assert.Contains(t, out, "Found 1 entry(ies)")
	assert.Contains(t, out, "1. user=alice server=example.com")
	assert.Contains(t, out, "(hidden, 7 bytes)")
	assert.NotContains(t, out, "hunter2")

	require.NoError(t, tc.run("find", "--show", "server=example.com"))
	assert.Contains(t, tc.out.String(), "Secret: hunter2")
}

func TestStore_PromptsForSecret(t *testing.T) {
	tc := newTestCli(t)
	tc.io.ReadPasswordFunc = func(prompt string) (string, error) {
		return "s3cret", nil
	}

	require.NoError(t, tc.run("store", "user=bob"))
	require.Len(t, tc.io.ReadPasswordCalls(), 1)
	assert.Equal(t, "Secret: ", tc.io.ReadPasswordCalls()[0].Prompt)

	require.NoError(t, tc.run("find", "--show"))
	assert.Contains(t, tc.out.String(), "Secret: s3cret")
}

func TestStore_EmptyPromptedSecret(t *testing.T) {
	tc := newTestCli(t)
	tc.io.ReadPasswordFunc = func(prompt string) (string, error) {
		return "", nil
	}

	err := tc.run("store", "user=bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret cannot be empty")
}

func TestStore_RequiresFields(t *testing.T) {
	tc := newTestCli(t)

	require.Error(t, tc.run("store", "--secret", "x"))
	require.Error(t, tc.run("store", "--secret", "x", "nope=1"))
}

func TestStore_PromptsForFields(t *testing.T) {
	tc := newTestCli(t)
	tc.io.ReadInputFunc = func(prompt string) (string, error) {
		return "  user=carol   server=example.com ", nil
	}

	require.NoError(t, tc.run("store", "--secret", "pw"))
	require.Len(t, tc.io.ReadInputCalls(), 1)
	assert.Equal(t, "Fields (FIELD=VALUE ...): ", tc.io.ReadInputCalls()[0].Prompt)

	require.NoError(t, tc.run("find", "--show", "user=carol"))
	assert.Contains(t, tc.out.String(), "1. user=carol server=example.com")
	assert.Contains(t, tc.out.String(), "Secret: pw")
}

func TestStore_PromptedFieldsEmpty(t *testing.T) {
	tc := newTestCli(t)
	tc.io.ReadInputFunc = func(prompt string) (string, error) {
		return "   ", nil
	}

	err := tc.run("store", "--secret", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one FIELD=VALUE")
}

func TestFind_NoEntries(t *testing.T) {
	tc := newTestCli(t)

	require.NoError(t, tc.run("find", "user=nobody"))
	assert.Equal(t, "No entries found.\n", tc.out.String())
}

func TestRemove(t *testing.T) {
	tc := newTestCli(t)

	require.NoError(t, tc.run("store", "--secret", "1", "user=a", "server=x"))
	require.NoError(t, tc.run("store", "--secret", "2", "user=b", "server=x"))
	require.NoError(t, tc.run("store", "--secret", "3", "user=c", "server=y"))

	require.NoError(t, tc.run("remove", "server=x"))
	assert.Equal(t, "Removed 2 entry(ies).\n", tc.out.String())

	require.NoError(t, tc.run("find"))
	assert.Contains(t, tc.out.String(), "Found 1 entry(ies)")
	assert.Contains(t, tc.out.String(), "user=c server=y")
}

func TestRemove_AllRequiresFlag(t *testing.T) {
	tc := newTestCli(t)

	require.NoError(t, tc.run("store", "--secret", "1", "user=a"))

	err := tc.run("remove")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--all")

	require.NoError(t, tc.run("remove", "--all"))
	assert.Equal(t, "Removed 1 entry(ies).\n", tc.out.String())
}

func TestCorruptFile_Reported(t *testing.T) {
	tc := newTestCli(t)
	require.NoError(t, os.WriteFile(tc.path, []byte("garbage\n"), 0o600))

	err := tc.run("find")
	require.Error(t, err)
	assert.ErrorIs(t, err, keystore.ErrCorruptFormat)
	assert.Contains(t, tc.logs.String(), "discarding keystore file")

	_, statErr := os.Stat(tc.path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestBoltBackend(t *testing.T) {
	tc := newTestCli(t)

	require.NoError(t, tc.run("--backend", "bolt", "store", "--secret", "pw", "user=alice"))
	require.NoError(t, tc.run("--backend", "bolt", "find", "--show", "user=alice"))
	assert.Contains(t, tc.out.String(), "Secret: pw")

	require.NoError(t, tc.run("--backend", "bolt", "remove", "user=alice"))
	assert.Equal(t, "Removed 1 entry(ies).\n", tc.out.String())
}

func TestUnknownBackend(t *testing.T) {
	tc := newTestCli(t)

	err := tc.run("--backend", "redis", "find")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestLogLevelFromFlag(t *testing.T) {
	tc := newTestCli(t)

	require.NoError(t, tc.run("--log-level", "debug", "find"))
	assert.Contains(t, tc.logs.String(), "level=DEBUG")
}

func TestVersion(t *testing.T) {
	tc := newTestCli(t)

	require.NoError(t, tc.run("version"))
	out := tc.out.String()
	assert.Contains(t, out, "Version:    1.2.3")
	assert.Contains(t, out, "Build Date: 2026-01-01")
	assert.Contains(t, out, "Git Commit: abc123")
}
