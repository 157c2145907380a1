package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompterReadsLinesWithoutTerminal(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader("alice\r\ns3cret"))
	cmd.SetOut(&out)

	ask := newPrompter(cmd)
	assert.Nil(t, ask.stdio, "piped input is read line by line")

	user, err := ask.Ask("Username or email:")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	pw, err := ask.Secret("Password:")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw, "a last line without newline still counts")
	assert.Equal(t, "Username or email: Password: ", out.String())

	_, err = ask.Secret("Confirm password:")
	assert.EqualError(t, err, "read confirm password: EOF")
}
