package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/san-kum/heatloop/internal/control"
)

var (
	ErrEmpty       = errors.New("shell: empty command")
	ErrUnknownVerb = errors.New("shell: unknown command")
	ErrSyntax      = errors.New("shell: syntax error")
)

type Verb int

const (
	Start Verb = iota
	Stop
	Target
	Set
	Status
	Reset
)

var verbs = map[string]Verb{
	"START":  Start,
	"STOP":   Stop,
	"TARGET": Target,
	"SET":    Set,
	"STATUS": Status,
	"RESET":  Reset,
}

func (v Verb) String() string {
	for name, verb := range verbs {
		if verb == v {
			return name
		}
	}
	return fmt.Sprintf("Verb(%d)", int(v))
}

// Command is one parsed line. Target is meaningful only when HasTarget is
// set; Params holds the key=value pairs of SET, keys lower-cased.
type Command struct {
	Verb      Verb
	Target    int32
	HasTarget bool
	Params    map[string]int32
}

func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Verb.String())
	if c.HasTarget {
		if c.Verb == Target {
			fmt.Fprintf(&b, " %d", c.Target)
		} else {
			fmt.Fprintf(&b, " TARGET=%d", c.Target)
		}
	}
	for _, k := range sortedKeys(c.Params) {
		fmt.Fprintf(&b, " %s=%d", k, c.Params[k])
	}
	return b.String()
}

func Parse(line string) (Command, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if len(tokens) == 0 {
		return Command{}, ErrEmpty
	}

	verb, ok := verbs[strings.ToUpper(tokens[0])]
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownVerb, tokens[0])
	}
	cmd := Command{Verb: verb}
	args := tokens[1:]

	switch verb {
	case Start:
		for _, arg := range args {
			key, val, err := splitPair(arg)
			if err != nil {
				return Command{}, err
			}
			if key != "target" {
				return Command{}, fmt.Errorf("%w: START takes only TARGET, got %s", ErrSyntax, key)
			}
			if cmd.Target, err = parseInt(key, val); err != nil {
				return Command{}, err
			}
			cmd.HasTarget = true
		}
	case Target:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: TARGET takes one value", ErrSyntax)
		}
		v, err := parseInt("target", strings.TrimPrefix(strings.ToLower(args[0]), "target="))
		if err != nil {
			return Command{}, err
		}
		cmd.Target, cmd.HasTarget = v, true
	case Set:
		if len(args) == 0 {
			return Command{}, fmt.Errorf("%w: SET needs key=value", ErrSyntax)
		}
		cmd.Params = make(map[string]int32, len(args))
		for _, arg := range args {
			key, val, err := splitPair(arg)
			if err != nil {
				return Command{}, err
			}
			v, err := parseParam(key, val)
			if err != nil {
				return Command{}, err
			}
			cmd.Params[key] = v
		}
	default:
		if len(args) > 0 {
			return Command{}, fmt.Errorf("%w: %s takes no arguments", ErrSyntax, verb)
		}
	}
	return cmd, nil
}

func splitPair(arg string) (string, string, error) {
	key, val, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: expected key=value, got %q", ErrSyntax, arg)
	}
	return strings.ToLower(key), val, nil
}

// parseParam accepts derivative mode names in addition to integers.
func parseParam(key, val string) (int32, error) {
	if key == "mode" {
		if _, err := strconv.Atoi(val); err != nil {
			mode, err := control.ParseDerivativeMode(strings.ToLower(val))
			if err != nil {
				return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
			}
			return int32(mode), nil
		}
	}
	return parseInt(key, val)
}

func parseInt(key, val string) (int32, error) {
	v, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSyntax, key, err)
	}
	return int32(v), nil
}
