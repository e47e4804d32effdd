package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "lexidxd", Short: "daemon"}
	AddHelpJSONFlag(root)

	serve := &cobra.Command{Use: "serve", Short: "Start the API server"}
	serve.Flags().StringP("port", "p", "8080", "Port to listen on")
	serve.Flags().Bool("no-migrate", false, "Skip automatic migrations")
	root.AddCommand(serve)

	hidden := &cobra.Command{Use: "debug", Hidden: true}
	root.AddCommand(hidden)

	return root
}

func TestGenerateSchema(t *testing.T) {
	root := newTestRoot()
	schema := GenerateSchema(root)

	assert.Equal(t, "lexidxd", schema.Name)
	require.Len(t, schema.Subcommands, 1, "hidden commands are excluded")

	serve := schema.Subcommands[0]
	assert.Equal(t, "serve", serve.Name)
	require.Len(t, serve.Flags, 2)
	assert.Equal(t, "no-migrate", serve.Flags[0].Name)
	assert.Equal(t, "bool", serve.Flags[0].Type)
	assert.Equal(t, "port", serve.Flags[1].Name)
	assert.Equal(t, "p", serve.Flags[1].Shorthand)
	assert.Equal(t, "8080", serve.Flags[1].Default)
	assert.False(t, serve.Flags[1].Required)
}

func TestGenerateSchema_RequiredFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "migrate"}
	cmd.Flags().String("database-url", "", "Connection string")
	require.NoError(t, cmd.MarkFlagRequired("database-url"))

	schema := GenerateSchema(cmd)
	require.Len(t, schema.Flags, 1)
	assert.True(t, schema.Flags[0].Required)
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, newTestRoot()))

	var schema CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
	assert.Equal(t, "lexidxd", schema.Name)
}

func TestResolveCommand(t *testing.T) {
	root := newTestRoot()

	assert.Equal(t, "serve", resolveCommand(root, []string{"serve"}).Name())
	assert.Equal(t, "lexidxd", resolveCommand(root, nil).Name())
	assert.Equal(t, "lexidxd", resolveCommand(root, []string{"unknown"}).Name())
}
