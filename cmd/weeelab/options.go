package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// errHelpRequested distinguishes --help from a real parse failure.
var errHelpRequested = errors.New("help requested")

type options struct {
	debug             bool
	login             string
	logout            string
	message           string
	interactiveLogin  bool
	interactiveLogout bool
	inlab             bool
	showLog           bool
	admin             bool
	doctor            bool
	version           bool
	useDirectory      bool
}

// action is what one invocation does; exactly one must be selected.
type action struct {
	name string
}

func parseOptions(arguments []string, output io.Writer) (options, error) {
	selected := options{useDirectory: true}
	var noDirectory bool

	flags := pflag.NewFlagSet("weeelab", pflag.ContinueOnError)
	flags.SetOutput(output)
	flags.SortFlags = false

	flags.StringVarP(&selected.login, "login", "i", "", "log in USER")
	flags.StringVarP(&selected.logout, "logout", "o", "", "log out USER")
	flags.StringVarP(&selected.message, "message", "m", "", "logout note (only with --logout)")
	flags.BoolVar(&selected.interactiveLogin, "interactive-login", false, "log in with questions")
	flags.BoolVar(&selected.interactiveLogout, "interactive-logout", false, "log out with questions")
	flags.BoolVarP(&selected.inlab, "inlab", "p", false, "show who's in the lab right now")
	flags.BoolVarP(&selected.showLog, "log", "l", false, "show the ledger file")
	flags.BoolVarP(&selected.admin, "admin", "a", false, "close a session with an explicit date and time")
	flags.BoolVar(&selected.doctor, "doctor", false, "check configuration, ledger, and archives")
	flags.BoolVarP(&selected.debug, "debug", "d", false, "use ./debug as the ledger directory")
	flags.BoolVar(&selected.useDirectory, "ldap", true, "resolve usernames through the directory service")
	flags.BoolVar(&noDirectory, "no-ldap", false, "trust the typed username as-is")
	flags.BoolVar(&selected.version, "version", false, "print the version")

	if err := flags.Parse(arguments); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return options{}, errHelpRequested
		}
		return options{}, err
	}
	if flags.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument %q", flags.Arg(0))
	}
	if flags.Changed("ldap") && noDirectory {
		return options{}, errors.New("--ldap and --no-ldap are mutually exclusive")
	}
	if noDirectory {
		selected.useDirectory = false
	}
	if selected.message != "" && selected.logout == "" {
		return options{}, errors.New("--message only makes sense together with --logout")
	}
	return selected, nil
}

// action picks the single requested action. Zero or several selections are
// a usage error, reported with the dedicated exit code.
func (o options) action() (action, error) {
	var chosen []action
	pick := func(name string, enabled bool) {
		if enabled {
			chosen = append(chosen, action{name: name})
		}
	}
	pick("login", o.login != "")
	pick("logout", o.logout != "")
	pick("interactive-login", o.interactiveLogin)
	pick("interactive-logout", o.interactiveLogout)
	pick("inlab", o.inlab)
	pick("log", o.showLog)
	pick("admin", o.admin)
	pick("doctor", o.doctor)

	switch len(chosen) {
	case 0:
		return action{}, errors.New("no action given; see --help")
	case 1:
		return chosen[0], nil
	default:
		return action{}, fmt.Errorf("actions %s and %s are mutually exclusive",
			chosen[0].name, chosen[1].name)
	}
}
