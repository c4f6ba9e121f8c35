package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

// Prompter asks the user for values on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// fd is set when in is an interactive terminal; passwords are then read
	// without echo.
	fd int
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

// Ask prints label and returns the trimmed answer. When current is not empty
// it is returned without asking.
func (p *Prompter) Ask(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	line, err := p.readLine(label)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Secret is Ask without echo on terminals. The answer is returned as typed,
// surrounding spaces included.
func (p *Prompter) Secret(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	if p.fd < 0 {
		return p.readLine(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", strings.ToLower(label))
	}
	return strings.TrimSuffix(string(b), "\r"), nil
}

// readLine prints label and returns one line without its line ending.
func (p *Prompter) readLine(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrapf(err, "read %s", strings.ToLower(label))
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

// Credentials prompts for whichever of identifier and password is missing.
func (p *Prompter) Credentials(identifier, password string) (string, string, error) {
	identifier, err := p.Ask("Email or username", identifier)
	if err != nil {
		return "", "", err
	}
	password, err = p.Secret("Password", password)
	if err != nil {
		return "", "", err
	}
	return identifier, password, nil
}

// ApplicationForm holds the values typed into the apply dialog.
type ApplicationForm struct {
	Name  string
	Email string
	Phone string
}

// Application fills the empty fields of form. Phone may be left blank.
func (p *Prompter) Application(form ApplicationForm) (ApplicationForm, error) {
	var err error
	if form.Name, err = p.Ask("Full name", form.Name); err != nil {
		return form, err
	}
	if form.Email, err = p.Ask("Email", form.Email); err != nil {
		return form, err
	}
	if form.Phone, err = p.Ask("Phone (optional)", form.Phone); err != nil {
		return form, err
	}
	return form, nil
}
