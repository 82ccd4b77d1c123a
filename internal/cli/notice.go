package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/lucasvrm/previso/internal/infra/apiclient/apierr"
)

var (
	warnColor  = color.New(color.FgYellow, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
	hintColor  = color.New(color.FgHiBlack)
)

// LoginNotice is the CLI's login navigation: it tells the user to log in
// again. It implements session.Navigator.
type LoginNotice struct {
	mu  sync.Mutex
	out io.Writer
}

// NewLoginNotice writes notices to out.
func NewLoginNotice(out io.Writer) *LoginNotice {
	return &LoginNotice{out: out}
}

func (n *LoginNotice) GoToLogin(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "%s your session has expired. Run %s to sign in again.\n",
		warnColor.Sprint("Session expired:"),
		color.New(color.FgCyan).Sprint("previso login --token <token>"),
	)
}

func printError(w io.Writer, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		fmt.Fprintf(w, "%s %s\n", errorColor.Sprint("Error:"), apierr.UserMessage(ae.Kind))
		fmt.Fprintln(w, hintColor.Sprint(ae.Error()))
		return
	}
	fmt.Fprintf(w, "%s %v\n", errorColor.Sprint("Error:"), err)
}
