// internal/cli/prompt.go
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// prompter asks for missing flag values. On a terminal it uses survey, so
// secrets are not echoed; otherwise it reads lines from the command input.
type prompter struct {
	out    io.Writer
	reader *bufio.Reader
	stdio  survey.AskOpt
}

func newPrompter(cmd *cobra.Command) *prompter {
	p := &prompter{out: cmd.OutOrStdout()}
	in, inOK := cmd.InOrStdin().(*os.File)
	out, outOK := cmd.OutOrStdout().(*os.File)
	if inOK && outOK && isatty.IsTerminal(in.Fd()) && isatty.IsTerminal(out.Fd()) {
		p.stdio = survey.WithStdio(in, out, cmd.ErrOrStderr())
		return p
	}
	p.reader = bufio.NewReader(cmd.InOrStdin())
	return p
}

// Ask reads a visible value.
func (p *prompter) Ask(label string) (string, error) {
	if p.stdio != nil {
		return p.askTerminal(&survey.Input{Message: label}, label)
	}
	return p.line(label)
}

// Secret reads a value without echoing it on a terminal.
func (p *prompter) Secret(label string) (string, error) {
	if p.stdio != nil {
		return p.askTerminal(&survey.Password{Message: label}, label)
	}
	return p.line(label)
}

func (p *prompter) askTerminal(q survey.Prompt, label string) (string, error) {
	var answer string
	if err := survey.AskOne(q, &answer, p.stdio); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", fmt.Errorf("%s: canceled", fieldName(label))
		}
		return "", fmt.Errorf("read %s: %w", fieldName(label), err)
	}
	return answer, nil
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label+" ")
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", fieldName(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func fieldName(label string) string {
	return strings.TrimSuffix(strings.ToLower(label), ":")
}
