package main

import (
	"bytes"
	"testing"

	"scout/scout/services/crawler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "scout", cmd.Use)
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"search", "browse"}, names)

	for _, flag := range []string{"store", "renderer", "timeout", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestSearchCmdDefaults(t *testing.T) {
	cmd := NewSearchCmd()
	depth, err := cmd.Flags().GetInt("depth")
	require.NoError(t, err)
	assert.Equal(t, 3, depth)
}

func TestSearchRequiresQuestion(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"search"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestPrintKnowledge(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)

	printKnowledge(cmd, nil)
	assert.Contains(t, buf.String(), "no summaries collected")

	buf.Reset()
	printKnowledge(cmd, []crawler.Knowledge{{SourceURL: "https://a.test/", Content: "A is a test"}})
	assert.Contains(t, buf.String(), "https://a.test/")
	assert.Contains(t, buf.String(), "A is a test")
}
