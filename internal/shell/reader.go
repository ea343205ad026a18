package shell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sort"
)

// Feed parses lines from r and sends the commands on out until r is
// exhausted or ctx is done. Lines that fail to parse are passed to onErr
// and skipped; blank lines are ignored.
func Feed(ctx context.Context, r io.Reader, out chan<- Command, onErr func(line string, err error)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		cmd, err := Parse(line)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			if onErr != nil {
				onErr(line, err)
			}
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func sortedKeys(m map[string]int32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
