package plugin

import (
	"regexp"
	"strings"
)

// CompileMatcher builds the regular expression that decides whether a chat
// payload invokes a command. The pattern is a pure function of its inputs,
// so plugins compile it once at registration and reuse it for every event.
//
// Shapes by declared argument count:
//
//	0:  ^<prefix><command>$                     no trailing text allowed
//	1:  ^<prefix><command>\s+(.+)$              one capture, commas included
//	n:  first and last captures are greedy (.+), interior ones are
//	    comma-exclusive ([^,]+), mirroring "cmd a, b, c" argument lists
func CompileMatcher(prefixes []string, command string, numArgs int, caseSensitive bool) *regexp.Regexp {
	flags := "(?i)"
	if caseSensitive {
		flags = ""
	}

	escaped := make([]string, len(prefixes))
	for i, p := range prefixes {
		escaped[i] = regexp.QuoteMeta(p)
	}
	pre := strings.Join(escaped, "|")
	cmd := regexp.QuoteMeta(command)

	if numArgs <= 0 {
		return regexp.MustCompile("^(" + flags + "(" + pre + ")" + cmd + ")$")
	}

	var args strings.Builder
	if numArgs == 1 {
		args.WriteString(`\s+(.+)`)
	} else {
		args.WriteString(`\s+(.+)`)
		for i := 1; i < numArgs-1; i++ {
			args.WriteString(`,\s+([^,]+)`)
		}
		args.WriteString(`,\s+(.+)`)
	}

	return regexp.MustCompile("^(" + flags + "(" + pre + ")" + cmd + args.String() + "$)")
}

// Arguments extracts the command's argument captures from a payload that
// already matched re. Each capture is returned with surrounding whitespace
// trimmed; interior captures can carry trailing spaces the comma separators
// do not consume. Returns nil when the payload does not match.
func Arguments(re *regexp.Regexp, payload string) []string {
	caps := re.FindStringSubmatch(payload)
	if caps == nil {
		return nil
	}
	// caps[0] is the whole match, caps[1] the outer group, caps[2] the
	// prefix alternation; arguments start at index 3.
	if len(caps) <= 3 {
		return nil
	}
	args := make([]string, 0, len(caps)-3)
	for _, c := range caps[3:] {
		args = append(args, strings.TrimSpace(c))
	}
	return args
}
