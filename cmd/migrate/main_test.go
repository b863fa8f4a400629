package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls  []string
	steps  int
	closed bool
}

func (f *fakeMigrator) Up() error                    { f.calls = append(f.calls, "up"); return nil }
func (f *fakeMigrator) Down() error                  { f.calls = append(f.calls, "down"); return nil }
func (f *fakeMigrator) Steps(n int) error            { f.calls = append(f.calls, "steps"); f.steps = n; return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return 3, false, nil }
func (f *fakeMigrator) Force(int) error              { f.calls = append(f.calls, "force"); return nil }
func (f *fakeMigrator) Close() error                 { f.closed = true; return nil }

func run(t *testing.T, args ...string) (*fakeMigrator, string, error) {
	t.Helper()
	fake := &fakeMigrator{}
	cmd := newRootCmd(func() (migrator, error) { return fake, nil })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return fake, out.String(), err
}

func TestMigrateCmd_Up(t *testing.T) {
	fake, _, err := run(t, "up")
	require.NoError(t, err)
	assert.Equal(t, []string{"up"}, fake.calls)
	assert.True(t, fake.closed)
}

func TestMigrateCmd_StepsNegativo(t *testing.T) {
	fake, _, err := run(t, "steps", "--", "-1")
	require.NoError(t, err)
	assert.Equal(t, -1, fake.steps)
}

func TestMigrateCmd_StepsInvalido(t *testing.T) {
	fake, _, err := run(t, "steps", "tres")
	assert.Error(t, err)
	assert.Empty(t, fake.calls)
	assert.True(t, fake.closed)
}

func TestMigrateCmd_Version(t *testing.T) {
	_, out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version=3 dirty=false")
}

func TestMigrateCmd_ErrorAlAbrir(t *testing.T) {
	cmd := newRootCmd(func() (migrator, error) { return nil, errors.New("sin conexión") })
	cmd.SetArgs([]string{"down"})
	assert.EqualError(t, cmd.Execute(), "sin conexión")
}

func TestMigrateCmd_ArgumentosRequeridos(t *testing.T) {
	fake, _, err := run(t, "force")
	assert.Error(t, err)
	assert.False(t, fake.closed, "no abre el migrador si faltan argumentos")
}
