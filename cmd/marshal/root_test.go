package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
id: integer
name: capitalize
tags:
  type: csv
  of: string
href:
  type: url
  endpoint: user
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCmd(strings.NewReader(stdin), out, errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestOutputCommand(t *testing.T) {
	schema := writeFile(t, "schema.yaml", testSchema)

	out, _, err := execute(t, `{"id": 7, "name": "aDA", "tags": ["x", "y"]}`,
		"output", "--schema", schema, "--route", "user=/users/{id}", "--base-url", "https://api.example.com")
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"name":"Ada","tags":"x,y","href":"/users/7"}`+"\n", out)
}

func TestOutputCommand_YAMLDataAndFormat(t *testing.T) {
	schema := writeFile(t, "schema.yaml", "id: integer\nname: capitalize\n")
	data := writeFile(t, "doc.yml", "name: bob\nid: 3\n")

	out, _, err := execute(t, "", "output", "-s", schema, "-d", data, "-f", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "id: 3\nname: Bob\n", out)
}

func TestInputCommand_Debug(t *testing.T) {
	schema := writeFile(t, "schema.yaml", "name: string\ntags:\n  type: csv\n  of: integer\n")

	out, _, err := execute(t, `{"tags": "1,2", "name": "n"}`, "input", "--schema", schema, "--debug")
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"name\": \"n\",\n    \"tags\": [\n        1,\n        2\n    ]\n}\n", out)
}

func TestInputCommand_RequiredFailure(t *testing.T) {
	schema := writeFile(t, "schema.yaml", "name:\n  type: string\n  required: true\n")

	_, _, err := execute(t, `{}`, "input", "--schema", schema)
	require.Error(t, err)
	assert.Equal(t, "required at /name: the field name is required for requests", err.Error())
}

func TestStrictRejectsDuplicateKeys(t *testing.T) {
	schema := writeFile(t, "schema.yaml", "name: string\n")
	doc := `{"name": "a", "name": "b"}`

	out, _, err := execute(t, doc, "output", "--schema", schema)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"b"}`+"\n", out)

	_, _, err = execute(t, doc, "output", "--schema", schema, "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate object key "name" at /name`)
}

func TestVerboseLogsToStderr(t *testing.T) {
	schema := writeFile(t, "schema.yaml", "name: string\n")
	_, logs, err := execute(t, `{"name": "a"}`, "output", "--schema", schema, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, logs, "schema loaded")
	assert.Contains(t, logs, "marshaled")
}

func TestCommandErrors(t *testing.T) {
	schema := writeFile(t, "schema.yaml", "name: string\n")
	urlSchema := writeFile(t, "url.yaml", testSchema)

	cases := map[string][]string{
		"missing schema flag": {"output"},
		"unknown format":      {"output", "-s", schema, "-f", "xml"},
		"bad route":           {"output", "-s", schema, "--route", "nopattern"},
		"missing schema file": {"output", "-s", filepath.Join(t.TempDir(), "none.yaml")},
		"unresolved route":    {"output", "-s", urlSchema},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := execute(t, `{"id": 1}`, args...)
			assert.Error(t, err)
		})
	}
}
